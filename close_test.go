package bpcheckout

import (
	"context"
	"testing"
)

// fakeQuotes implements QuoteRepository for testing
type fakeQuotes struct {
	quotes  map[string]*Quote
	saveErr error
	saves   int
}

func newFakeQuotes(quotes ...*Quote) *fakeQuotes {
	r := &fakeQuotes{quotes: make(map[string]*Quote)}
	for _, q := range quotes {
		r.quotes[q.ID] = q
	}
	return r
}

func (r *fakeQuotes) LoadByID(ctx context.Context, quoteID string) (*Quote, error) {
	quote, ok := r.quotes[quoteID]
	if !ok {
		return nil, ErrNotFound
	}
	return quote, nil
}

func (r *fakeQuotes) Save(ctx context.Context, quote *Quote) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.quotes[quote.ID] = quote
	return nil
}

const cartURL = "http://localhost/checkout/cart"

func TestHandleCloseRestoresQuote(t *testing.T) {
	order := testOrder()
	quote := &Quote{ID: order.QuoteID, Active: false, ReservedOrderID: order.IncrementID}
	quotes := newFakeQuotes(quote)
	session := &fakeSession{}
	handler := NewCloseHandler(newFakeOrders(order), quotes, session, cartURL, nil)

	redirect := handler.HandleClose(context.Background(), order.IncrementID)

	if redirect.URL != cartURL {
		t.Errorf("expected cart redirect, got %s", redirect.URL)
	}
	if redirect.Notice != CartRestoredNotice {
		t.Errorf("expected restored notice, got %q", redirect.Notice)
	}
	restored := quotes.quotes[quote.ID]
	if !restored.Active {
		t.Error("expected quote reactivated")
	}
	if restored.ReservedOrderID != "" {
		t.Error("expected reserved order id cleared")
	}
	if session.restoredQuote != quote.ID {
		t.Errorf("expected session to restore quote %s, got %s", quote.ID, session.restoredQuote)
	}
}

func TestHandleCloseUnknownOrder(t *testing.T) {
	quotes := newFakeQuotes()
	session := &fakeSession{}
	handler := NewCloseHandler(newFakeOrders(), quotes, session, cartURL, nil)

	redirect := handler.HandleClose(context.Background(), "000000099")

	if redirect.URL != cartURL {
		t.Errorf("expected cart redirect, got %s", redirect.URL)
	}
	if redirect.Notice != "" {
		t.Errorf("expected no notice, got %q", redirect.Notice)
	}
	if quotes.saves != 0 {
		t.Error("expected no quote mutation")
	}
}

func TestHandleCloseQuoteNotFound(t *testing.T) {
	order := testOrder()
	quotes := newFakeQuotes()
	session := &fakeSession{}
	handler := NewCloseHandler(newFakeOrders(order), quotes, session, cartURL, nil)

	redirect := handler.HandleClose(context.Background(), order.IncrementID)

	if redirect.URL != cartURL {
		t.Errorf("expected cart redirect, got %s", redirect.URL)
	}
	if session.restoredQuote != "" {
		t.Error("expected no session quote restore")
	}
}

func TestHandleCloseOrderWithoutQuote(t *testing.T) {
	order := testOrder()
	order.QuoteID = ""
	quotes := newFakeQuotes()
	handler := NewCloseHandler(newFakeOrders(order), quotes, &fakeSession{}, cartURL, nil)

	redirect := handler.HandleClose(context.Background(), order.IncrementID)

	if redirect.URL != cartURL {
		t.Errorf("expected cart redirect, got %s", redirect.URL)
	}
	if quotes.saves != 0 {
		t.Error("expected no quote mutation")
	}
}
