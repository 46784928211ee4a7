package bpcheckout

import "context"

// InvoiceGateway is the provider capability boundary: create an invoice and
// fetch one back by id. Two implementations exist: the real REST client in
// the http package and deterministic fakes in tests.
type InvoiceGateway interface {
	CreateInvoice(ctx context.Context, params InvoiceParams) (*Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
}

// TransactionStore persists transaction records linking local orders to
// provider invoices. Implementations must be safe for concurrent use:
// webhook deliveries are independent requests sharing only this state.
type TransactionStore interface {
	// Add creates a record for (orderID, transactionID) with the given
	// status, normally StatusNew at invoice-creation time.
	Add(ctx context.Context, orderID, transactionID string, status TransactionStatus) (*TransactionRecord, error)

	// FindByTransactionID returns the record for a provider invoice id,
	// or ErrNotFound. Absence means the IPN is unrecognized or stale and
	// must short-circuit reconciliation without order-visible effects.
	FindByTransactionID(ctx context.Context, transactionID string) (*TransactionRecord, error)

	// UpdateStatus rewrites the reconciliation status for a provider
	// invoice id. Reapplying the same status is a no-op observably.
	UpdateStatus(ctx context.Context, transactionID string, status TransactionStatus) error
}

// DeleteOptions controls an order deletion. BypassValidation opens a scoped
// administrative override that disables integrity checks for exactly this
// one write; it is used only to roll back the speculatively-created order
// when invoice creation fails.
type DeleteOptions struct {
	BypassValidation bool
}

// OrderRepository is the host platform's order access boundary.
type OrderRepository interface {
	LoadByID(ctx context.Context, entityID string) (*Order, error)
	LoadByIncrementID(ctx context.Context, incrementID string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, order *Order, opts DeleteOptions) error
}

// QuoteRepository is the host platform's cart access boundary, used only by
// the close handler to restore an abandoned cart.
type QuoteRepository interface {
	LoadByID(ctx context.Context, quoteID string) (*Quote, error)
	Save(ctx context.Context, quote *Quote) error
}

// CheckoutSession is the buyer's session as the host platform exposes it.
type CheckoutSession interface {
	// LastOrderID returns the entity id of the order just placed, or ""
	// when checkout did not reach order placement.
	LastOrderID() string

	// SetCustomerInfo records the guest-checkout snapshot the modal
	// invoice page renders from.
	SetCustomerInfo(info CustomerInfo)

	// RestoreQuote reactivates the given cart as the session's current
	// quote after the buyer abandons the hosted payment page.
	RestoreQuote(quoteID string)
}

// OrderStatePolicy maps an accepted transaction status onto the order's
// commerce state/status pair. The reconciler invokes it exactly once per
// accepted event; the exact commerce mapping is a host concern.
type OrderStatePolicy interface {
	Apply(order *Order, status TransactionStatus)
}

// OrderStatePolicyFunc adapts a function to the OrderStatePolicy interface.
type OrderStatePolicyFunc func(order *Order, status TransactionStatus)

func (f OrderStatePolicyFunc) Apply(order *Order, status TransactionStatus) {
	f(order, status)
}

// DefaultOrderStatePolicy advances payment-accepted statuses toward
// processing, moves declined/invalid to canceled, and refund to closed.
func DefaultOrderStatePolicy() OrderStatePolicy {
	return OrderStatePolicyFunc(func(order *Order, status TransactionStatus) {
		switch status {
		case StatusComplete, StatusConfirmed, StatusPaid:
			order.State = OrderStateProcessing
			order.Status = OrderStateProcessing
		case StatusDeclined, StatusInvalid:
			order.State = OrderStateCanceled
			order.Status = OrderStateCanceled
		case StatusRefund:
			order.State = OrderStateClosed
			order.Status = "refunded"
		}
	})
}
