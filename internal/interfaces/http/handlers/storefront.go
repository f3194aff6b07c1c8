// internal/interfaces/http/handlers/storefront.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/storefront"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// StorefrontHandler exposes a shopper's storefront over HTTP
type StorefrontHandler struct {
	registry *storefront.Registry
	log      logrus.FieldLogger
}

// NewStorefrontHandler creates a new storefront handler
func NewStorefrontHandler(registry *storefront.Registry, log logrus.FieldLogger) *StorefrontHandler {
	return &StorefrontHandler{
		registry: registry,
		log:      log,
	}
}

// DeltaRequest carries a signed quantity change
type DeltaRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

// AddToCartRequest names a listing row by index
type AddToCartRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// ViewRequest switches the visible view
type ViewRequest struct {
	View string `json:"view" binding:"required"`
}

func (h *StorefrontHandler) session(c *gin.Context) *storefront.Service {
	return h.registry.Get(c.Request.Context(), middleware.GetShopperID(c))
}

// GetStorefront handles GET /storefront. It never changes state.
func (h *StorefrontHandler) GetStorefront(c *gin.Context) {
	svc := h.session(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Storefront retrieved successfully",
		"data":    svc.Snapshot(),
	})
}

// Land handles POST /storefront?clear_cart=y, the landing after a completed payment
func (h *StorefrontHandler) Land(c *gin.Context) {
	svc := h.session(c)
	if c.Query("clear_cart") == "y" {
		svc.ClearCart(c.Request.Context())
	}
	h.respondSnapshot(c, "Storefront retrieved successfully", svc)
}

// ListProducts handles GET /products?q=
func (h *StorefrontHandler) ListProducts(c *gin.Context) {
	svc := h.session(c)

	if err := svc.Search(c.Request.Context(), c.Query("q")); err != nil {
		h.respondError(c, err)
		return
	}

	snap := svc.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data": gin.H{
			"search":   snap.Search,
			"products": snap.Listing.Items,
		},
	})
}

// RefreshProducts handles POST /products/refresh
func (h *StorefrontHandler) RefreshProducts(c *gin.Context) {
	svc := h.session(c)
	if err := svc.RefreshCatalog(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSnapshot(c, "Products refreshed", svc)
}

// ClearSearch handles POST /products/clear-search
func (h *StorefrontHandler) ClearSearch(c *gin.Context) {
	svc := h.session(c)
	if err := svc.ClearSearch(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSnapshot(c, "Search cleared", svc)
}

// AdjustDesired handles POST /products/:index/desired
func (h *StorefrontHandler) AdjustDesired(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product index",
		})
		return
	}

	var req DeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	desired, err := h.session(c).AdjustDesired(index, *req.Delta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Desired quantity updated",
		"data": gin.H{
			"index":            index,
			"desired_quantity": desired,
		},
	})
}

// AddToCart handles POST /cart/items
func (h *StorefrontHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	svc := h.session(c)
	line, err := svc.AddToCart(c.Request.Context(), *req.Index)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"data": gin.H{
			"line": line,
			"cart": svc.Snapshot().Cart,
		},
	})
}

// AdjustCartItem handles PATCH /cart/items/:id
func (h *StorefrontHandler) AdjustCartItem(c *gin.Context) {
	var req DeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	svc := h.session(c)
	line, err := svc.AdjustCartQuantity(c.Request.Context(), catalog.ProductID(c.Param("id")), *req.Delta)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
		"data": gin.H{
			"line": line,
			"cart": svc.Snapshot().Cart,
		},
	})
}

// ClearCart handles DELETE /cart
func (h *StorefrontHandler) ClearCart(c *gin.Context) {
	svc := h.session(c)
	svc.ClearCart(c.Request.Context())
	h.respondSnapshot(c, "Cart cleared", svc)
}

// SetView handles PUT /view
func (h *StorefrontHandler) SetView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	view, err := storefront.ParseView(req.View)
	if err != nil {
		h.respondError(c, err)
		return
	}

	svc := h.session(c)
	if err := svc.Show(view); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSnapshot(c, "View updated", svc)
}

// Checkout handles POST /checkout
func (h *StorefrontHandler) Checkout(c *gin.Context) {
	svc := h.session(c)
	result, err := svc.Checkout(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondResult(c, result, svc)
}

// SetFulfillment handles PUT /checkout/fulfillment
func (h *StorefrontHandler) SetFulfillment(c *gin.Context) {
	var req checkout.FulfillmentInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	svc := h.session(c)
	if err := svc.SetFulfillment(req); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSnapshot(c, "Fulfillment details saved", svc)
}

// Pay handles POST /checkout/pay
func (h *StorefrontHandler) Pay(c *gin.Context) {
	svc := h.session(c)
	result, err := svc.Pay(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondResult(c, result, svc)
}

// Back handles POST /checkout/back
func (h *StorefrontHandler) Back(c *gin.Context) {
	svc := h.session(c)
	if err := svc.Back(); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSnapshot(c, "Returned to cart", svc)
}

// DismissFlash handles POST /flash/dismiss
func (h *StorefrontHandler) DismissFlash(c *gin.Context) {
	svc := h.session(c)
	svc.DismissFlash()
	h.respondSnapshot(c, "Message dismissed", svc)
}

// PaymentReturn handles GET /payment/return, where the gateway sends the
// shopper back. Every outcome lands on the storefront root. A return is
// acted on only while the shopper is being redirected to the gateway, and
// only for the session it names, so a cross-site link cannot clear a cart.
func (h *StorefrontHandler) PaymentReturn(c *gin.Context) {
	svc := h.session(c)
	success := c.Query("status") == "success"
	fields := logrus.Fields{
		"shopper_id": svc.ShopperID(),
		"status":     c.Query("status"),
	}

	status := svc.Snapshot().Checkout
	sessionID, named := c.GetQuery("session_id")
	switch {
	case status.State != checkout.StateRedirecting:
		h.log.WithFields(fields).WithField("state", status.State).Warn("Payment return outside a redirect ignored")
	case named && sessionID != status.SessionID:
		h.log.WithFields(fields).WithField("session_id", sessionID).Warn("Payment return for another session ignored")
	default:
		if err := svc.PaymentReturned(c.Request.Context(), success); err != nil {
			h.log.WithFields(fields).WithError(err).Warn("Payment return ignored")
		}
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *StorefrontHandler) respondSnapshot(c *gin.Context, message string, svc *storefront.Service) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    svc.Snapshot(),
	})
}

func (h *StorefrontHandler) respondResult(c *gin.Context, result checkout.Result, svc *storefront.Service) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout " + string(result.Outcome),
		"data": gin.H{
			"result":     result,
			"storefront": svc.Snapshot(),
		},
	})
}

// respondError maps domain errors onto HTTP statuses
func (h *StorefrontHandler) respondError(c *gin.Context, err error) {
	switch {
	case catalog.IsIndexOutOfRange(err):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Product not found",
			"details": err.Error(),
		})
	case cart.IsLineNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Cart item not found",
			"details": err.Error(),
		})
	case checkout.IsIllegalTransition(err):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Action not allowed right now",
			"details": err.Error(),
		})
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrFulfillmentRequired),
		errors.Is(err, storefront.ErrUnknownView):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"details": err.Error(),
		})
	default:
		h.log.WithError(err).Error("Storefront request failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to reach the store services",
			"details": err.Error(),
		})
	}
}
