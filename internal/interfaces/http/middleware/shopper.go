package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront/internal/pkg/auth"
)

const (
	shopperCookie       = "session_id"
	shopperCookieMaxAge = 86400
)

// Shopper identifies the browser by its session cookie, creating one on
// first visit, and carries the id into the request context
func Shopper(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperID, err := c.Cookie(shopperCookie)
		if err != nil || uuid.Validate(shopperID) != nil {
			shopperID = uuid.New().String()
			c.Set(ContextKeyShopperNew, true)
		}

		// refresh the cookie on every request (24 hours).
		// Lax keeps it off cross-site subrequests and POSTs.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(shopperCookie, shopperID, shopperCookieMaxAge, "/", "", secureCookie, true)

		c.Set(ContextKeyShopperID, shopperID)
		c.Request = c.Request.WithContext(auth.WithShopperID(c.Request.Context(), shopperID))

		c.Next()
	}
}

// IsNewShopper reports whether Shopper minted the id on this request
func IsNewShopper(c *gin.Context) bool {
	return c.GetBool(ContextKeyShopperNew)
}

// GetShopperID returns the shopper id set by Shopper
func GetShopperID(c *gin.Context) string {
	return c.GetString(ContextKeyShopperID)
}
