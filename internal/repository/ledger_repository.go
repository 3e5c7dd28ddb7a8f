package repository

import (
	"context"
	"encoding/json"

	"github.com/prestamos/ledger-engine/internal/domain"
)

type ledgerRepository struct {
	store KVStore
}

func NewLedgerRepository(store KVStore) LedgerRepository {
	return &ledgerRepository{store: store}
}

func (r *ledgerRepository) Load(ctx context.Context, loanID string) ([]domain.Installment, error) {
	raw, err := r.store.Get(ctx, LedgerKey(loanID))
	if err != nil {
		return nil, err
	}

	var seq []domain.Installment
	if err := json.Unmarshal(raw, &seq); err != nil {
		return nil, err
	}

	return seq, nil
}

func (r *ledgerRepository) Save(ctx context.Context, loanID string, seq []domain.Installment) error {
	raw, err := json.Marshal(seq)
	if err != nil {
		return err
	}

	return r.store.Set(ctx, LedgerKey(loanID), raw)
}

func (r *ledgerRepository) Clear(ctx context.Context, loanID string) error {
	return r.store.Delete(ctx, LedgerKey(loanID))
}
