package bpcheckout

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TransitionPolicy selects how the reconciler treats out-of-order event
// deliveries.
type TransitionPolicy int

const (
	// LastWriteWins blindly overwrites the record with the latest-received
	// mapped status. Faithful to the provider's at-least-once, unordered
	// delivery contract: applying the same or an older status again never
	// corrupts state, it only rewrites it.
	LastWriteWins TransitionPolicy = iota

	// MonotonicBySeverity refuses to regress a record to a status of lower
	// severity, so a late "confirmed" cannot undo an applied "paid".
	MonotonicBySeverity
)

// No-op reasons reported in a ReconcileOutcome.
const (
	ReasonDuplicateDelivery = "duplicate delivery"
	ReasonInvalidPayload    = "invalid payload"
	ReasonFetchFailed       = "invoice fetch failed"
	ReasonUnknownInvoice    = "unknown invoice"
	ReasonBuyerMismatch     = "buyer email mismatch"
	ReasonUnmappedEvent     = "unmapped event"
	ReasonUnknownOrder      = "unknown order"
	ReasonStaleEvent        = "stale event"
	ReasonHookAborted       = "aborted by hook"
	ReasonPersistence       = "persistence failure"
)

// ReconcileOutcome reports what a delivery did. Applied is true when the
// transaction record and order were updated; otherwise Reason names the
// no-op branch taken. The outcome is informational only: every delivery is
// acknowledged to the sender regardless.
type ReconcileOutcome struct {
	Applied bool
	Status  TransactionStatus
	Reason  string
}

func applied(status TransactionStatus) ReconcileOutcome {
	return ReconcileOutcome{Applied: true, Status: status}
}

func skipped(reason string) ReconcileOutcome {
	return ReconcileOutcome{Reason: reason}
}

// Reconciler is the IPN reconciliation state machine. It receives webhook
// payloads, re-fetches the authoritative invoice from the provider,
// cross-validates, maps the event to a local status, and updates the order
// and transaction record. No branch ever propagates an error to the webhook
// transport; a failure there would surface as an HTTP error the provider
// would endlessly retry.
type Reconciler struct {
	gateway      InvoiceGateway
	store        TransactionStore
	orders       OrderRepository
	orderPolicy  OrderStatePolicy
	transition   TransitionPolicy
	fetchTimeout time.Duration
	dedup        *DeliveryCache
	hooks        ReconcilerHooks
	logger       *zap.Logger
}

// ReconcilerOption configures the reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithOrderStatePolicy overrides the commerce state mapping applied to
// orders on accepted events.
func WithOrderStatePolicy(policy OrderStatePolicy) ReconcilerOption {
	return func(r *Reconciler) {
		r.orderPolicy = policy
	}
}

// WithTransitionPolicy selects the out-of-order delivery policy.
func WithTransitionPolicy(policy TransitionPolicy) ReconcilerOption {
	return func(r *Reconciler) {
		r.transition = policy
	}
}

// WithFetchTimeout bounds the authoritative invoice fetch per delivery.
func WithFetchTimeout(timeout time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		r.fetchTimeout = timeout
	}
}

// WithDeliveryCache installs a duplicate-delivery guard in front of the
// state machine.
func WithDeliveryCache(cache *DeliveryCache) ReconcilerOption {
	return func(r *Reconciler) {
		r.dedup = cache
	}
}

// WithBeforeApplyHook registers a hook that runs before event application.
func WithBeforeApplyHook(hook BeforeApplyHook) ReconcilerOption {
	return func(r *Reconciler) {
		r.hooks.BeforeApply = append(r.hooks.BeforeApply, hook)
	}
}

// WithAfterApplyHook registers a hook that runs after event application.
func WithAfterApplyHook(hook AfterApplyHook) ReconcilerOption {
	return func(r *Reconciler) {
		r.hooks.AfterApply = append(r.hooks.AfterApply, hook)
	}
}

// NewReconciler creates a reconciler over the given provider gateway,
// transaction store, and order repository.
func NewReconciler(gateway InvoiceGateway, store TransactionStore, orders OrderRepository, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		gateway:      gateway,
		store:        store,
		orders:       orders,
		orderPolicy:  DefaultOrderStatePolicy(),
		transition:   LastWriteWins,
		fetchTimeout: 30 * time.Second,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one webhook delivery as a complete, independent unit of
// work. Every branch either completes the mutation or returns having logged
// the reason for the no-op; the transport layer acknowledges the delivery
// either way.
func (r *Reconciler) Handle(ctx context.Context, body []byte) ReconcileOutcome {
	var deliveryKey string
	if r.dedup != nil {
		deliveryKey = DeliveryKey(body)
		if r.dedup.CheckAndMark(deliveryKey) {
			r.logger.Info("ipn duplicate delivery suppressed")
			return skipped(ReasonDuplicateDelivery)
		}
	}

	event, err := ParseIpnEvent(body)
	if err != nil {
		r.logger.Error("ipn payload rejected", zap.Error(err))
		return skipped(ReasonInvalidPayload)
	}

	// The webhook body's own financial fields are never trusted directly.
	// Re-fetch the invoice from the provider and reconcile against that.
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	invoice, err := r.gateway.GetInvoice(fetchCtx, event.InvoiceID)
	if err != nil {
		r.logger.Error("authoritative invoice fetch failed",
			zap.String("invoice_id", event.InvoiceID),
			zap.Error(err))
		// Transient: the provider will redeliver this body, and the retry
		// must not be suppressed as a duplicate.
		r.failDelivery(deliveryKey)
		return skipped(ReasonFetchFailed)
	}

	record, err := r.store.FindByTransactionID(ctx, event.InvoiceID)
	if err != nil {
		// Unknown invoice: a forged, stale, or foreign callback. No
		// order-visible side effects.
		r.logger.Warn("no transaction record for invoice",
			zap.String("invoice_id", event.InvoiceID),
			zap.Error(err))
		return skipped(ReasonUnknownInvoice)
	}

	if err := validateBuyer(event, invoice); err != nil {
		r.logger.Error("ipn validation failed",
			zap.String("invoice_id", event.InvoiceID),
			zap.Error(err))
		return skipped(ReasonBuyerMismatch)
	}

	status, ok := StatusForEvent(event.Event)
	if !ok {
		r.logger.Warn("unmapped ipn event",
			zap.String("event", event.Event),
			zap.String("invoice_id", event.InvoiceID))
		return skipped(ReasonUnmappedEvent)
	}

	// Load the order from the fetched invoice's orderId, not from the
	// transaction record: only the fetched object is trusted.
	order, err := r.orders.LoadByIncrementID(ctx, invoice.OrderID)
	if err != nil {
		r.logger.Warn("order not found for invoice",
			zap.String("order_increment_id", invoice.OrderID),
			zap.String("invoice_id", invoice.ID),
			zap.Error(err))
		return skipped(ReasonUnknownOrder)
	}

	if order.CustomerEmail != invoice.Buyer.Email {
		err := NewValidationError(
			"buyer email from invoice does not match email on order",
			map[string]interface{}{
				"invoice_email": invoice.Buyer.Email,
				"order_email":   order.CustomerEmail,
			})
		r.logger.Error("ipn validation failed",
			zap.String("invoice_id", invoice.ID),
			zap.Error(err))
		return skipped(ReasonBuyerMismatch)
	}

	if r.transition == MonotonicBySeverity &&
		statusSeverity[status] < statusSeverity[record.TransactionStatus] {
		r.logger.Info("stale ipn event ignored",
			zap.String("invoice_id", invoice.ID),
			zap.String("current", string(record.TransactionStatus)),
			zap.String("received", string(status)))
		return skipped(ReasonStaleEvent)
	}

	rctx := ReconcileContext{
		Ctx:       ctx,
		Event:     *event,
		Invoice:   *invoice,
		Record:    *record,
		Timestamp: time.Now(),
	}
	for _, hook := range r.hooks.BeforeApply {
		result, err := hook(rctx, status)
		if err != nil {
			r.logger.Error("before-apply hook failed", zap.Error(err))
			return skipped(ReasonHookAborted)
		}
		if result != nil && result.Abort {
			r.logger.Info("event application aborted by hook",
				zap.String("reason", result.Reason))
			return skipped(ReasonHookAborted)
		}
	}

	start := time.Now()
	if err := r.store.UpdateStatus(ctx, invoice.ID, status); err != nil {
		r.logger.Error("transaction status update failed",
			zap.String("invoice_id", invoice.ID),
			zap.String("status", string(status)),
			zap.Error(err))
		r.failDelivery(deliveryKey)
		return skipped(ReasonPersistence)
	}

	r.orderPolicy.Apply(order, status)
	if err := r.orders.Save(ctx, order); err != nil {
		r.logger.Error("order state update failed",
			zap.String("order_increment_id", order.IncrementID),
			zap.Error(err))
		r.failDelivery(deliveryKey)
		return skipped(ReasonPersistence)
	}

	duration := time.Since(start)
	for _, hook := range r.hooks.AfterApply {
		if err := hook(rctx, status, duration); err != nil {
			r.logger.Error("after-apply hook failed", zap.Error(err))
		}
	}

	r.logger.Info("ipn event applied",
		zap.String("event", event.Event),
		zap.String("invoice_id", invoice.ID),
		zap.String("order_increment_id", order.IncrementID),
		zap.String("status", string(status)))
	return applied(status)
}

// failDelivery drops a delivery marker after a transient failure. Dropping it
// lets the provider's at-least-once redelivery reach the state machine; only
// deliveries that reached a terminal outcome stay cached.
func (r *Reconciler) failDelivery(key string) {
	if r.dedup != nil {
		r.dedup.Fail(key)
	}
}

// validateBuyer cross-checks the webhook's claimed buyer against the fetched
// invoice. A real invoice id with a forged association fails here.
func validateBuyer(event *IpnEvent, invoice *Invoice) error {
	if event.Buyer.Email == "" {
		return nil
	}
	if event.Buyer.Email != invoice.Buyer.Email {
		return NewValidationError(
			"email from IPN data does not match with email from invoice",
			map[string]interface{}{
				"ipn_email":     event.Buyer.Email,
				"invoice_email": invoice.Buyer.Email,
			})
	}
	return nil
}
