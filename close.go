package bpcheckout

import (
	"context"

	"go.uber.org/zap"
)

// CartRestoredNotice is shown after an abandoned cart is reactivated.
const CartRestoredNotice = "Your cart has been restored"

// CloseHandler handles the provider's buyer-abandoned-checkout callback by
// restoring the abandoned cart as the session's active quote. Delivery is
// best-effort and may arrive for already-cleaned-up orders, so missing data
// is never an error outward.
type CloseHandler struct {
	orders  OrderRepository
	quotes  QuoteRepository
	session CheckoutSession
	cartURL string
	logger  *zap.Logger
}

// NewCloseHandler creates a close handler. cartURL is the absolute cart page
// URL buyers are redirected to. A nil logger defaults to no-op.
func NewCloseHandler(
	orders OrderRepository,
	quotes QuoteRepository,
	session CheckoutSession,
	cartURL string,
	logger *zap.Logger,
) *CloseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloseHandler{
		orders:  orders,
		quotes:  quotes,
		session: session,
		cartURL: cartURL,
		logger:  logger,
	}
}

// HandleClose restores the quote behind the order identified by its
// increment id and redirects to the cart. Every branch redirects; only the
// notice differs.
func (h *CloseHandler) HandleClose(ctx context.Context, orderIncrementID string) Redirect {
	order, err := h.orders.LoadByIncrementID(ctx, orderIncrementID)
	if err != nil {
		h.logger.Warn("close callback for unknown order",
			zap.String("order_increment_id", orderIncrementID), zap.Error(err))
		return Redirect{URL: h.cartURL}
	}
	if order.QuoteID == "" {
		h.logger.Warn("close callback for order without quote",
			zap.String("order_increment_id", orderIncrementID))
		return Redirect{URL: h.cartURL}
	}

	quote, err := h.quotes.LoadByID(ctx, order.QuoteID)
	if err != nil {
		h.logger.Warn("quote not found for close callback",
			zap.String("quote_id", order.QuoteID), zap.Error(err))
		return Redirect{URL: h.cartURL}
	}

	quote.Active = true
	quote.ReservedOrderID = ""
	if err := h.quotes.Save(ctx, quote); err != nil {
		h.logger.Error("quote restore failed",
			zap.String("quote_id", quote.ID), zap.Error(err))
		return Redirect{URL: h.cartURL}
	}
	h.session.RestoreQuote(quote.ID)

	return Redirect{URL: h.cartURL, Notice: CartRestoredNotice}
}
