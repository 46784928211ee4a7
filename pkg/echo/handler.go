// Package echo wires the bpcheckout webhook endpoints into an echo router.
package echo

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	bpcheckout "github.com/bpcheckout/bpcheckout-go"
)

// Handler exposes the provider callback endpoints over echo. Behavior
// mirrors the gin adapter: the IPN endpoint always acknowledges with 200.
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

// RegisterRoutes mounts POST /ipn and POST /close on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/ipn", h.PostIpn)
	e.POST("/close", h.PostClose)
}

// PostIpn handles a webhook delivery.
func (h *Handler) PostIpn(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("failed to read ipn body", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	h.reconciler.Handle(c.Request().Context(), body)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// PostClose handles the buyer-abandoned-checkout callback.
func (h *Handler) PostClose(c echo.Context) error {
	orderID := c.QueryParam("orderID")
	redirect := h.closer.HandleClose(c.Request().Context(), orderID)
	return c.Redirect(http.StatusFound, redirect.URL)
}
