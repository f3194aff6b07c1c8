// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// SetupStorefrontRoutes sets up the shopper facing API
func SetupStorefrontRoutes(rg *gin.RouterGroup, h *handlers.StorefrontHandler, requestTimeout time.Duration) {
	// The event stream outlives any request timeout
	rg.GET("/storefront/events", h.Events)

	api := rg.Group("")
	api.Use(middleware.Timeout(requestTimeout))
	{
		api.GET("/storefront", h.GetStorefront)
		api.POST("/storefront", h.Land)
		api.PUT("/view", h.SetView)
		api.POST("/flash/dismiss", h.DismissFlash)

		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.POST("/refresh", h.RefreshProducts)
			products.POST("/clear-search", h.ClearSearch)
			products.POST("/:index/desired", h.AdjustDesired)
		}

		cart := api.Group("/cart")
		{
			cart.POST("/items", h.AddToCart)
			cart.PATCH("/items/:id", h.AdjustCartItem)
			cart.DELETE("", h.ClearCart)
		}

		checkout := api.Group("/checkout")
		{
			checkout.POST("", h.Checkout)
			checkout.PUT("/fulfillment", h.SetFulfillment)
			checkout.POST("/pay", h.Pay)
			checkout.POST("/back", h.Back)
		}
	}
}

// SetupPaymentRoutes sets up the routes the payment gateway sends shoppers back to
func SetupPaymentRoutes(r gin.IRoutes, h *handlers.StorefrontHandler) {
	r.GET("/payment/return", h.PaymentReturn)
}
