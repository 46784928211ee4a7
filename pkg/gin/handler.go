// Package gin wires the bpcheckout webhook endpoints into a gin router.
package gin

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bpcheckout "github.com/bpcheckout/bpcheckout-go"
)

// Handler exposes the provider callback endpoints. The IPN endpoint always
// acknowledges with 200 so the provider does not retry-storm; internal
// no-op outcomes stay in the logs.
type Handler struct {
	reconciler *bpcheckout.Reconciler
	closer     *bpcheckout.CloseHandler
	logger     *zap.Logger
}

// NewHandler creates a handler. A nil logger defaults to no-op.
func NewHandler(reconciler *bpcheckout.Reconciler, closer *bpcheckout.CloseHandler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		reconciler: reconciler,
		closer:     closer,
		logger:     logger,
	}
}

// RegisterRoutes mounts POST /ipn and POST /close on the router group.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/ipn", h.PostIpn)
	router.POST("/close", h.PostClose)
}

// PostIpn handles a webhook delivery. The sender needs only a success
// acknowledgment; reconciliation outcomes are not reflected in the response.
func (h *Handler) PostIpn(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read ipn body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	h.reconciler.Handle(c.Request.Context(), body)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PostClose handles the buyer-abandoned-checkout callback and redirects to
// the cart.
func (h *Handler) PostClose(c *gin.Context) {
	orderID := c.Query("orderID")
	redirect := h.closer.HandleClose(c.Request.Context(), orderID)
	c.Redirect(http.StatusFound, redirect.URL)
}
