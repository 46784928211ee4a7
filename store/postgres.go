package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	bpcheckout "github.com/bpcheckout/bpcheckout-go"
)

// transactionSchema creates the transaction table. transaction_id carries a
// unique index: lookups key on it and one invoice maps to one record.
const transactionSchema = `
CREATE TABLE IF NOT EXISTS bpcheckout_transactions (
	id                 UUID PRIMARY KEY,
	order_id           TEXT NOT NULL,
	transaction_id     TEXT NOT NULL,
	transaction_status TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS bpcheckout_transactions_transaction_id
	ON bpcheckout_transactions (transaction_id);
`

// PostgresTransactionStore is the Postgres-backed bpcheckout.TransactionStore.
type PostgresTransactionStore struct {
	db *sql.DB
}

// NewPostgresTransactionStore opens a connection to the given Postgres DSN
// and verifies it with a ping.
func NewPostgresTransactionStore(connStr string) (*PostgresTransactionStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres db: %w", err)
	}
	return &PostgresTransactionStore{db: db}, nil
}

// NewPostgresTransactionStoreFromDB wraps an existing connection pool.
func NewPostgresTransactionStoreFromDB(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db}
}

// EnsureSchema creates the transaction table and its unique index.
func (s *PostgresTransactionStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, transactionSchema); err != nil {
		return fmt.Errorf("failed to create transaction schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresTransactionStore) Close() error {
	return s.db.Close()
}

// Add inserts a record for (orderID, transactionID) with the given status.
func (s *PostgresTransactionStore) Add(ctx context.Context, orderID, transactionID string, status bpcheckout.TransactionStatus) (*bpcheckout.TransactionRecord, error) {
	record := &bpcheckout.TransactionRecord{
		ID:                uuid.NewString(),
		OrderID:           orderID,
		TransactionID:     transactionID,
		TransactionStatus: status,
	}

	query := `
		INSERT INTO bpcheckout_transactions (id, order_id, transaction_id, transaction_status)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query,
		record.ID, record.OrderID, record.TransactionID, string(record.TransactionStatus),
	); err != nil {
		return nil, bpcheckout.NewPersistenceError(
			fmt.Sprintf("failed to insert transaction record: %s", err.Error()),
			map[string]interface{}{"transaction_id": transactionID})
	}
	return record, nil
}

// FindByTransactionID returns the record for a provider invoice id or
// bpcheckout.ErrNotFound.
func (s *PostgresTransactionStore) FindByTransactionID(ctx context.Context, transactionID string) (*bpcheckout.TransactionRecord, error) {
	query := `
		SELECT id, order_id, transaction_id, transaction_status
		FROM bpcheckout_transactions
		WHERE transaction_id = $1`

	var record bpcheckout.TransactionRecord
	var status string
	err := s.db.QueryRowContext(ctx, query, transactionID).Scan(
		&record.ID, &record.OrderID, &record.TransactionID, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bpcheckout.ErrNotFound
	}
	if err != nil {
		return nil, bpcheckout.NewPersistenceError(
			fmt.Sprintf("failed to query transaction record: %s", err.Error()),
			map[string]interface{}{"transaction_id": transactionID})
	}
	record.TransactionStatus = bpcheckout.TransactionStatus(status)
	return &record, nil
}

// UpdateStatus rewrites the reconciliation status for a provider invoice id.
func (s *PostgresTransactionStore) UpdateStatus(ctx context.Context, transactionID string, status bpcheckout.TransactionStatus) error {
	query := `
		UPDATE bpcheckout_transactions
		SET transaction_status = $2
		WHERE transaction_id = $1`

	result, err := s.db.ExecContext(ctx, query, transactionID, string(status))
	if err != nil {
		return bpcheckout.NewPersistenceError(
			fmt.Sprintf("failed to update transaction status: %s", err.Error()),
			map[string]interface{}{"transaction_id": transactionID})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return bpcheckout.NewPersistenceError(
			fmt.Sprintf("failed to read update result: %s", err.Error()), nil)
	}
	if affected == 0 {
		return bpcheckout.ErrNotFound
	}
	return nil
}

var _ bpcheckout.TransactionStore = (*PostgresTransactionStore)(nil)
