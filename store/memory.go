// Package store provides transaction-record persistence: an in-memory
// implementation for tests and single-instance deployments, and a Postgres
// implementation for production.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	bpcheckout "github.com/bpcheckout/bpcheckout-go"
)

// MemoryTransactionStore is an in-memory bpcheckout.TransactionStore.
//
// Suitable for single-instance deployments and tests where state doesn't
// need to survive a restart. Thread-safe with mutex protection; webhook
// deliveries hit it concurrently.
type MemoryTransactionStore struct {
	mu      sync.Mutex
	records map[string]*bpcheckout.TransactionRecord
}

// NewMemoryTransactionStore creates an empty in-memory transaction store.
func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		records: make(map[string]*bpcheckout.TransactionRecord),
	}
}

// Add creates a record keyed by the provider invoice id.
func (s *MemoryTransactionStore) Add(ctx context.Context, orderID, transactionID string, status bpcheckout.TransactionStatus) (*bpcheckout.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &bpcheckout.TransactionRecord{
		ID:                uuid.NewString(),
		OrderID:           orderID,
		TransactionID:     transactionID,
		TransactionStatus: status,
	}
	s.records[transactionID] = record
	copied := *record
	return &copied, nil
}

// FindByTransactionID returns the record for a provider invoice id or
// bpcheckout.ErrNotFound.
func (s *MemoryTransactionStore) FindByTransactionID(ctx context.Context, transactionID string) (*bpcheckout.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[transactionID]
	if !ok {
		return nil, bpcheckout.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// UpdateStatus rewrites the reconciliation status for a provider invoice id.
func (s *MemoryTransactionStore) UpdateStatus(ctx context.Context, transactionID string, status bpcheckout.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[transactionID]
	if !ok {
		return bpcheckout.ErrNotFound
	}
	record.TransactionStatus = status
	return nil
}

var _ bpcheckout.TransactionStore = (*MemoryTransactionStore)(nil)

// MemoryOrderRepository is an in-memory bpcheckout.OrderRepository for tests
// and demos. Real deployments adapt the host platform's order model instead.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*bpcheckout.Order
}

// NewMemoryOrderRepository creates an order repository seeded with the given
// orders, keyed by entity id.
func NewMemoryOrderRepository(orders ...*bpcheckout.Order) *MemoryOrderRepository {
	repo := &MemoryOrderRepository{orders: make(map[string]*bpcheckout.Order)}
	for _, order := range orders {
		copied := *order
		repo.orders[order.EntityID] = &copied
	}
	return repo
}

func (r *MemoryOrderRepository) LoadByID(ctx context.Context, entityID string) (*bpcheckout.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[entityID]
	if !ok {
		return nil, bpcheckout.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *MemoryOrderRepository) LoadByIncrementID(ctx context.Context, incrementID string) (*bpcheckout.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.IncrementID == incrementID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, bpcheckout.ErrNotFound
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *bpcheckout.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *order
	r.orders[order.EntityID] = &copied
	return nil
}

// Delete removes an order. Without BypassValidation the repository refuses
// to delete orders that advanced past the new state, mirroring the host
// platform's save-validation.
func (r *MemoryOrderRepository) Delete(ctx context.Context, order *bpcheckout.Order, opts bpcheckout.DeleteOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.EntityID]
	if !ok {
		return bpcheckout.ErrNotFound
	}
	if !opts.BypassValidation && stored.State != bpcheckout.OrderStateNew {
		return bpcheckout.NewPersistenceError("cannot delete order past new state without bypass",
			map[string]interface{}{"state": stored.State})
	}
	delete(r.orders, order.EntityID)
	return nil
}

var _ bpcheckout.OrderRepository = (*MemoryOrderRepository)(nil)

// MemoryQuoteRepository is an in-memory bpcheckout.QuoteRepository.
type MemoryQuoteRepository struct {
	mu     sync.Mutex
	quotes map[string]*bpcheckout.Quote
}

// NewMemoryQuoteRepository creates a quote repository seeded with the given
// quotes, keyed by quote id.
func NewMemoryQuoteRepository(quotes ...*bpcheckout.Quote) *MemoryQuoteRepository {
	repo := &MemoryQuoteRepository{quotes: make(map[string]*bpcheckout.Quote)}
	for _, quote := range quotes {
		copied := *quote
		repo.quotes[quote.ID] = &copied
	}
	return repo
}

func (r *MemoryQuoteRepository) LoadByID(ctx context.Context, quoteID string) (*bpcheckout.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	quote, ok := r.quotes[quoteID]
	if !ok {
		return nil, bpcheckout.ErrNotFound
	}
	copied := *quote
	return &copied, nil
}

func (r *MemoryQuoteRepository) Save(ctx context.Context, quote *bpcheckout.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *quote
	r.quotes[quote.ID] = &copied
	return nil
}

var _ bpcheckout.QuoteRepository = (*MemoryQuoteRepository)(nil)

// MemorySession is an in-memory bpcheckout.CheckoutSession.
type MemorySession struct {
	mu            sync.Mutex
	lastOrderID   string
	customerInfo  *bpcheckout.CustomerInfo
	restoredQuote string
}

// NewMemorySession creates a session with the given last-placed order id.
func NewMemorySession(lastOrderID string) *MemorySession {
	return &MemorySession{lastOrderID: lastOrderID}
}

func (s *MemorySession) LastOrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOrderID
}

func (s *MemorySession) SetCustomerInfo(info bpcheckout.CustomerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerInfo = &info
}

// CustomerInfo returns the recorded guest-checkout snapshot, or nil.
func (s *MemorySession) CustomerInfo() *bpcheckout.CustomerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customerInfo
}

func (s *MemorySession) RestoreQuote(quoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoredQuote = quoteID
}

// RestoredQuote returns the quote id restored by the close flow, or "".
func (s *MemorySession) RestoredQuote() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoredQuote
}

var _ bpcheckout.CheckoutSession = (*MemorySession)(nil)
