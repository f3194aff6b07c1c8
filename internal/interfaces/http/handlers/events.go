package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const eventsKeepAlive = 15 * time.Second

// Events handles GET /storefront/events, streaming a snapshot after every
// change as server-sent events until the client goes away
func (h *StorefrontHandler) Events(c *gin.Context) {
	svc := h.session(c)
	updates, cancel := svc.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent("snapshot", svc.Snapshot())
	c.Writer.Flush()

	ticker := time.NewTicker(eventsKeepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case snap, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
		}
	}
}
