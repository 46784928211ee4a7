// Package bpcheckout integrates a storefront checkout flow with a hosted
// crypto-invoice payment provider: it creates provider invoices for orders,
// redirects buyers to pay, and reconciles asynchronous payment-status
// callbacks (IPNs) back onto the local order and transaction records.
package bpcheckout

import (
	"github.com/shopspring/decimal"
)

// PaymentMethodCode identifies this provider's payment method on an order.
const PaymentMethodCode = "bpcheckout"

// ExtensionVersion is reported to the provider on invoice creation.
const ExtensionVersion = "bpcheckout-go/1.0.0"

// TransactionStatus is the reconciliation status of a transaction record.
type TransactionStatus string

const (
	StatusNew       TransactionStatus = "new"
	StatusComplete  TransactionStatus = "complete"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusPaid      TransactionStatus = "paid"
	StatusDeclined  TransactionStatus = "declined"
	StatusInvalid   TransactionStatus = "invalid"
	StatusRefund    TransactionStatus = "refund"
)

// Provider IPN event names. Matching is exact and case-sensitive.
const (
	EventInvoiceCompleted       = "invoice_completed"
	EventInvoiceConfirmed       = "invoice_confirmed"
	EventInvoicePaidInFull      = "invoice_paidInFull"
	EventInvoiceFailedToConfirm = "invoice_failedToConfirm"
	EventInvoiceDeclined        = "invoice_declined"
	EventInvoiceRefundComplete  = "invoice_refundComplete"
)

var eventStatuses = map[string]TransactionStatus{
	EventInvoiceCompleted:       StatusComplete,
	EventInvoiceConfirmed:       StatusConfirmed,
	EventInvoicePaidInFull:      StatusPaid,
	EventInvoiceFailedToConfirm: StatusInvalid,
	EventInvoiceDeclined:        StatusDeclined,
	EventInvoiceRefundComplete:  StatusRefund,
}

// StatusForEvent maps a provider event name to the local transaction status.
// The second return is false for unrecognized events, which must result in
// no mutation at all.
func StatusForEvent(eventName string) (TransactionStatus, bool) {
	status, ok := eventStatuses[eventName]
	return status, ok
}

// statusSeverity ranks statuses for the monotonic transition policy.
// A record never moves from a higher rank to a lower one under that policy.
var statusSeverity = map[TransactionStatus]int{
	StatusNew:       0,
	StatusComplete:  1,
	StatusConfirmed: 2,
	StatusPaid:      3,
	StatusDeclined:  4,
	StatusInvalid:   4,
	StatusRefund:    5,
}

// Buyer identifies the paying customer as the provider sees them.
type Buyer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Address1 string `json:"address1,omitempty"`
}

// Invoice is the provider-side record of a requested payment. It is fetched
// from the provider API and treated as the single source of truth during
// reconciliation; IPN payload fields are only claims to be cross-checked
// against it.
type Invoice struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"orderId"`
	Status     string          `json:"status"`
	URL        string          `json:"url"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Buyer      Buyer           `json:"buyer"`
}

// InvoiceParams are the invoice-creation parameters sent to the provider.
type InvoiceParams struct {
	Price                 decimal.Decimal `json:"price"`
	Currency              string          `json:"currency"`
	Buyer                 Buyer           `json:"buyer"`
	OrderID               string          `json:"orderId"`
	RedirectURL           string          `json:"redirectURL"`
	NotificationURL       string          `json:"notificationURL"`
	CloseURL              string          `json:"closeURL"`
	ExtendedNotifications bool            `json:"extendedNotifications"`
	ExtensionVersion      string          `json:"extension_version"`
}

// IpnEvent is the parsed webhook payload. It is transient and never
// persisted; its financial fields exist only for cross-validation against
// the authoritative fetched Invoice.
type IpnEvent struct {
	Event      string
	InvoiceID  string
	OrderID    string
	Buyer      Buyer
	AmountPaid decimal.Decimal
}

// TransactionRecord joins a local order to a provider invoice and tracks the
// reconciliation status. One record exists per (order, invoice) pair,
// created with StatusNew when the invoice is created.
type TransactionRecord struct {
	ID                string
	OrderID           string
	TransactionID     string
	TransactionStatus TransactionStatus
}

// Address is a billing address as the host commerce platform stores it.
type Address struct {
	FirstName string
	LastName  string
	Street1   string
	City      string
	Region    string
	PostCode  string
	Country   string
}

// Order state values used by the default order-state policy.
const (
	OrderStateNew        = "new"
	OrderStateProcessing = "processing"
	OrderStateCanceled   = "canceled"
	OrderStateClosed     = "closed"
)

// Order is the host platform's order, referenced but not owned by this
// module. IncrementID is the human-facing order number and is what the
// provider carries as its orderId.
type Order struct {
	EntityID       string
	IncrementID    string
	QuoteID        string
	State          string
	Status         string
	PaymentMethod  string
	CustomerEmail  string
	BillingAddress Address
	GrandTotal     decimal.Decimal
	Currency       string
}

// Quote is the cart a buyer abandons when closing the hosted payment page.
type Quote struct {
	ID              string
	Active          bool
	ReservedOrderID string
}

// CustomerInfo is the session snapshot recorded for guest checkout so the
// modal invoice page can render without a full customer account.
type CustomerInfo struct {
	BillingAddress Address
	Email          string
	IncrementID    string
}

// Redirect is the outcome of initiation and close handling: where to send
// the buyer next, with an optional user-facing notice. RenderCheckout is set
// when the order does not belong to this payment method and the host should
// render its own checkout result page instead of redirecting.
type Redirect struct {
	URL            string
	Notice         string
	IsError        bool
	RenderCheckout bool
}
