package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/pkg/requestid"
)

// Context keys set by the middleware in this package
const (
	ContextKeyRequestID  = "request_id"
	ContextKeyShopperID  = "shopper_id"
	ContextKeyShopperNew = "shopper_new"
)

// RequestID reuses the caller's X-Request-ID or mints one, and carries it
// into the request context so outgoing calls propagate it
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" || len(id) > 128 {
			id = requestid.New()
		}

		c.Set(ContextKeyRequestID, id)
		c.Header(requestid.Header, id)
		c.Request = c.Request.WithContext(requestid.With(c.Request.Context(), id))

		c.Next()
	}
}

// RequestSizeLimit caps request bodies at maxBytes
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
