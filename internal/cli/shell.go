package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/your-org/storefront/internal/app"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/storefront"
)

var errUsage = errors.New("usage")

const shellHelp = `commands:
  products                 show the product list
  search [term]            search products, no term shows everything
  want <index> <delta>     change how many of a product to add
  add <index>              add a product to the cart
  qty <id> <delta>         change a cart line
  cart                     show the cart
  clear                    empty the cart
  checkout                 verify stock
  fulfill <name> | <addr>  set delivery details
  pay                      start payment
  back                     leave the pay step
  paid | cancelled         report the payment page outcome
  state                    show checkout state
  exit`

func newShellCommand(v *viper.Viper) *cobra.Command {
	var shopperID string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(v)
			if err != nil {
				return err
			}
			// keep routine log lines out of the prompt
			if log.GetLevel() == logrus.InfoLevel {
				log.SetLevel(logrus.WarnLevel)
			}

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc := a.Storefront(ctx, shopperID)
			return runShell(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&shopperID, "shopper", "shell", "shopper id whose cart to use")
	return cmd
}

func runShell(ctx context.Context, svc *storefront.Service, in io.Reader, out io.Writer) error {
	printListing(out, svc.Snapshot())

	r := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "storefront> ")
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		quit, cmdErr := runShellLine(ctx, svc, out, line)
		if cmdErr != nil {
			fmt.Fprintln(out, "error:", cmdErr)
		}
		if quit {
			return nil
		}
	}
}

// runShellLine executes one shell command against the storefront
func runShellLine(ctx context.Context, svc *storefront.Service, out io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	var err error
	switch name {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprintln(out, shellHelp)
	case "products":
		printListing(out, svc.Snapshot())
	case "search":
		if err = svc.Search(ctx, strings.Join(args, " ")); err == nil {
			printListing(out, svc.Snapshot())
		}
	case "want":
		var index, delta int
		if index, delta, err = twoInts(args); err == nil {
			var q int
			if q, err = svc.AdjustDesired(index, delta); err == nil {
				fmt.Fprintf(out, "want %d of [%d]\n", q, index)
			}
		}
	case "add":
		var index int
		if len(args) != 1 {
			err = fmt.Errorf("%w: add <index>", errUsage)
		} else if index, err = strconv.Atoi(args[0]); err == nil {
			if _, err = svc.AddToCart(ctx, index); err == nil {
				printCart(out, svc.Snapshot())
			}
		}
	case "qty":
		var delta int
		if len(args) != 2 {
			err = fmt.Errorf("%w: qty <id> <delta>", errUsage)
		} else if delta, err = strconv.Atoi(args[1]); err == nil {
			if _, err = svc.AdjustCartQuantity(ctx, catalog.ProductID(args[0]), delta); err == nil {
				printCart(out, svc.Snapshot())
			}
		}
	case "cart":
		printCart(out, svc.Snapshot())
	case "clear":
		svc.ClearCart(ctx)
		printCart(out, svc.Snapshot())
	case "checkout":
		var res checkout.Result
		if res, err = svc.Checkout(ctx); err == nil {
			printResult(out, res)
		}
	case "fulfill":
		parts := strings.SplitN(strings.Join(args, " "), "|", 2)
		if len(parts) != 2 {
			err = fmt.Errorf("%w: fulfill <name> | <address>", errUsage)
		} else {
			err = svc.SetFulfillment(checkout.FulfillmentInfo{Name: parts[0], Address: parts[1]})
		}
	case "pay":
		var res checkout.Result
		if res, err = svc.Pay(ctx); err == nil {
			printResult(out, res)
			if snap := svc.Snapshot(); snap.RedirectURL != "" {
				fmt.Fprintf(out, "open %s to pay, then type paid or cancelled\n", snap.RedirectURL)
			}
		}
	case "back":
		err = svc.Back()
	case "paid", "cancelled":
		err = svc.PaymentReturned(ctx, name == "paid")
	case "state":
		printState(out, svc.Snapshot())
	default:
		err = fmt.Errorf("unknown command %q, try help", name)
	}

	if snap := svc.Snapshot(); snap.Flash != "" {
		fmt.Fprintln(out, "*", snap.Flash)
		svc.DismissFlash()
	}
	return false, err
}

func twoInts(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("%w: want <index> <delta>", errUsage)
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func printListing(out io.Writer, snap storefront.Snapshot) {
	if snap.CatalogError != "" {
		fmt.Fprintln(out, "catalog unavailable:", snap.CatalogError)
	}
	if snap.Listing.Len() == 0 {
		fmt.Fprintln(out, "no products")
		return
	}
	for _, item := range snap.Listing.Items {
		p := item.Product
		fmt.Fprintf(out, "[%d] %-20s %10s  stock %-4d want %d\n",
			item.Index, p.Name, item.FormattedPrice, p.Quantity, p.DesiredQuantity)
	}
}

func printCart(out io.Writer, snap storefront.Snapshot) {
	if len(snap.Cart.Lines) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}
	for _, l := range snap.Cart.Lines {
		fmt.Fprintf(out, "%-10s %-20s %3d x %10s = %10s\n",
			l.Line.ID, l.Line.Name, l.Line.CartQuantity, l.FormattedPrice, l.FormattedSubtotal)
	}
	fmt.Fprintf(out, "%d items, total %s\n", snap.Cart.Size, snap.Cart.FormattedTotal)
}

func printResult(out io.Writer, res checkout.Result) {
	fmt.Fprintf(out, "%s (%s)\n", res.Outcome, res.State)
}

func printState(out io.Writer, snap storefront.Snapshot) {
	fmt.Fprintf(out, "view %s, checkout %s\n", snap.View, snap.Checkout.State)
	if f := snap.Checkout.Fulfillment; f != nil {
		fmt.Fprintf(out, "deliver to %s, %s\n", f.Name, f.Address)
	}
	if snap.Checkout.LastFailure != "" {
		fmt.Fprintln(out, "last failure:", snap.Checkout.LastFailure)
	}
}
