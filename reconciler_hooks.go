package bpcheckout

import (
	"context"
	"time"
)

// ReconcileContext carries the validated inputs of an accepted IPN event
// into reconciler hooks.
type ReconcileContext struct {
	Ctx       context.Context
	Event     IpnEvent
	Invoice   Invoice
	Record    TransactionRecord
	Timestamp time.Time
}

// BeforeApplyResult is returned by a "before" hook. If Abort is true, the
// event is not applied and the delivery is acknowledged as a no-op with the
// given reason.
type BeforeApplyResult struct {
	Abort  bool
	Reason string
}

// BeforeApplyHook runs after validation and mapping but before any mutation.
// A hook error aborts the application; the delivery is still acknowledged.
type BeforeApplyHook func(ReconcileContext, TransactionStatus) (*BeforeApplyResult, error)

// AfterApplyHook runs after the transaction record and order have been
// updated. Errors are logged and do not affect the outcome.
type AfterApplyHook func(ReconcileContext, TransactionStatus, time.Duration) error

// ReconcilerHooks observes or aborts event application without forking the
// core. Hosts use them for auditing and metrics.
type ReconcilerHooks struct {
	BeforeApply []BeforeApplyHook
	AfterApply  []AfterApplyHook
}
