// cmd/storefront/main.go
package main

import (
	"os"

	"github.com/your-org/storefront/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
