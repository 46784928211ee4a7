package bpcheckout

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// GenericOrderFailure is the only message a buyer ever sees when invoice
// creation fails; the underlying error stays in the logs.
const GenericOrderFailure = "We are unable to place your Order at this time"

// InitiatorConfig carries the host-level settings the initiator needs.
type InitiatorConfig struct {
	// BaseURL is the storefront base URL, with trailing slash.
	BaseURL string

	// Modal embeds the payment UI in a local page instead of redirecting
	// the buyer to the provider's hosted page.
	Modal bool

	// PendingOrderStatus is the order status set before the remote call.
	// Defaults to "pending".
	PendingOrderStatus string
}

// Initiator starts the payment flow after checkout completion: it marks the
// order pending, creates the provider invoice, records the transaction, and
// computes where to send the buyer.
type Initiator struct {
	session CheckoutSession
	orders  OrderRepository
	gateway InvoiceGateway
	store   TransactionStore
	config  InitiatorConfig
	logger  *zap.Logger
}

// NewInitiator creates an initiator. A nil logger defaults to no-op.
func NewInitiator(
	session CheckoutSession,
	orders OrderRepository,
	gateway InvoiceGateway,
	store TransactionStore,
	config InitiatorConfig,
	logger *zap.Logger,
) *Initiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PendingOrderStatus == "" {
		config.PendingOrderStatus = "pending"
	}
	return &Initiator{
		session: session,
		orders:  orders,
		gateway: gateway,
		store:   store,
		config:  config,
		logger:  logger,
	}
}

// Initiate runs the redirect flow for the order just placed in the session.
// All failures resolve to a cart redirect with a generic message; the
// underlying cause is never surfaced to the buyer.
func (i *Initiator) Initiate(ctx context.Context) Redirect {
	orderID := i.session.LastOrderID()
	if orderID == "" {
		return Redirect{URL: i.cartURL()}
	}

	order, err := i.orders.LoadByID(ctx, orderID)
	if err != nil {
		i.logger.Error("order load failed", zap.String("order_id", orderID), zap.Error(err))
		return Redirect{URL: i.cartURL()}
	}

	if order.PaymentMethod != PaymentMethodCode {
		return Redirect{RenderCheckout: true}
	}

	incrementID := order.IncrementID

	// Pending-first: local state must reflect "payment not yet confirmed"
	// before the remote call, which can fail.
	order.State = OrderStateNew
	order.Status = i.config.PendingOrderStatus
	if err := i.orders.Save(ctx, order); err != nil {
		i.logger.Error("pending status persist failed",
			zap.String("order_increment_id", incrementID), zap.Error(err))
		return i.failOrder(ctx, order)
	}

	i.session.SetCustomerInfo(CustomerInfo{
		BillingAddress: order.BillingAddress,
		Email:          order.CustomerEmail,
		IncrementID:    incrementID,
	})

	invoice, err := i.gateway.CreateInvoice(ctx, i.invoiceParams(order, incrementID))
	if err != nil {
		i.logger.Error("invoice creation failed",
			zap.String("order_increment_id", incrementID), zap.Error(err))
		return i.failOrder(ctx, order)
	}

	if _, err := i.store.Add(ctx, incrementID, invoice.ID, StatusNew); err != nil {
		i.logger.Error("transaction record persist failed",
			zap.String("order_increment_id", incrementID),
			zap.String("invoice_id", invoice.ID), zap.Error(err))
		return i.failOrder(ctx, order)
	}

	if i.config.Modal {
		url := fmt.Sprintf("%sbitpay-invoice/?invoiceID=%s&order_id=%s&m=1",
			i.config.BaseURL, invoice.ID, incrementID)
		return Redirect{URL: url}
	}
	return Redirect{URL: invoice.URL}
}

// failOrder rolls back the speculatively-created order. The deletion runs
// under a scoped validation bypass: the order was never visible to the buyer
// as placed, and normal save-validation would refuse to remove it.
func (i *Initiator) failOrder(ctx context.Context, order *Order) Redirect {
	if err := i.orders.Delete(ctx, order, DeleteOptions{BypassValidation: true}); err != nil {
		i.logger.Error("order rollback failed",
			zap.String("order_increment_id", order.IncrementID), zap.Error(err))
	}
	return Redirect{
		URL:     i.cartURL(),
		Notice:  GenericOrderFailure,
		IsError: true,
	}
}

func (i *Initiator) invoiceParams(order *Order, incrementID string) InvoiceParams {
	redirectURL := i.config.BaseURL + "bitpay-invoice/?order_id=" + incrementID
	if !i.config.Modal {
		redirectURL += "&m=0"
	}
	return InvoiceParams{
		Price:    order.GrandTotal,
		Currency: order.Currency,
		Buyer: Buyer{
			Name:  strings.TrimSpace(order.BillingAddress.FirstName + " " + order.BillingAddress.LastName),
			Email: order.CustomerEmail,
		},
		OrderID:               strings.TrimSpace(incrementID),
		RedirectURL:           redirectURL,
		NotificationURL:       i.config.BaseURL + "rest/V1/bpcheckout/ipn",
		CloseURL:              i.config.BaseURL + "rest/V1/bpcheckout/close?orderID=" + incrementID,
		ExtendedNotifications: true,
		ExtensionVersion:      ExtensionVersion,
	}
}

func (i *Initiator) cartURL() string {
	return i.config.BaseURL + "checkout/cart"
}
