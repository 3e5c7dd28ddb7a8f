package repository

import (
	"context"
	"errors"

	"github.com/prestamos/ledger-engine/internal/domain"
)

// ErrKeyNotFound is returned by a KVStore when no record exists for a key.
var ErrKeyNotFound = errors.New("key not found")

// Persisted key layout. Each loan's ledger lives under its own key so a
// loan can be reset without touching the roster or any other loan.
const (
	RosterKey       = "lista_prestamos"
	ledgerKeyPrefix = "pagos_prestamo_"
)

// LedgerKey returns the per-loan ledger key for a loan id.
func LedgerKey(loanID string) string {
	return ledgerKeyPrefix + loanID
}

// KVStore is a generic key-value persistence provider. Writes are
// last-writer-wins with no versioning.
type KVStore interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks connectivity to the underlying store.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// RosterRepository persists the loan roster (loans without their live
// installment sequences).
type RosterRepository interface {
	// Load returns the roster, or ErrKeyNotFound when none has been saved.
	Load(ctx context.Context) ([]*domain.Loan, error)

	// Save overwrites the roster.
	Save(ctx context.Context, loans []*domain.Loan) error
}

// LedgerRepository persists one installment sequence per loan.
type LedgerRepository interface {
	// Load returns the installment sequence for a loan, or ErrKeyNotFound.
	Load(ctx context.Context, loanID string) ([]domain.Installment, error)

	// Save overwrites the installment sequence for a loan.
	Save(ctx context.Context, loanID string, seq []domain.Installment) error

	// Clear removes the persisted sequence for a loan.
	Clear(ctx context.Context, loanID string) error
}
