package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders(serverName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent clickjacking
		c.Header("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Responses are JSON or event streams, nothing to render
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Shopper state must never be cached by intermediaries
		c.Header("Cache-Control", "no-store")

		c.Header("Server", serverName)

		c.Next()
	}
}
