package repository

import (
	"context"
	"encoding/json"

	"github.com/prestamos/ledger-engine/internal/domain"
)

type rosterRepository struct {
	store KVStore
}

func NewRosterRepository(store KVStore) RosterRepository {
	return &rosterRepository{store: store}
}

func (r *rosterRepository) Load(ctx context.Context) ([]*domain.Loan, error) {
	raw, err := r.store.Get(ctx, RosterKey)
	if err != nil {
		return nil, err
	}

	var loans []*domain.Loan
	if err := json.Unmarshal(raw, &loans); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *rosterRepository) Save(ctx context.Context, loans []*domain.Loan) error {
	// The roster is the loan index only: live installment sequences are
	// persisted per loan, so they are stripped before writing.
	stripped := make([]*domain.Loan, len(loans))
	for i, loan := range loans {
		entry := *loan
		entry.Installments = nil
		stripped[i] = &entry
	}

	raw, err := json.Marshal(stripped)
	if err != nil {
		return err
	}

	return r.store.Set(ctx, RosterKey, raw)
}
