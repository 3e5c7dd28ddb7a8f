package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestamos/ledger-engine/internal/domain"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	// Last writer wins.
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte("value")
	require.NoError(t, store.Set(ctx, "k", original))
	original[0] = 'X'

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestLedgerKey(t *testing.T) {
	assert.Equal(t, "pagos_prestamo_loan-1", LedgerKey("loan-1"))
}

func TestLedgerRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(NewMemoryStore())

	paidAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	seq := []domain.Installment{
		{
			ID:            uuid.New(),
			Title:         domain.TitleDownPayment,
			Amount:        decimal.RequireFromString("91.28"),
			Status:        domain.StatusPaid,
			DueDate:       domain.NewDate(2025, time.March, 10),
			PaymentMethod: "Efectivo",
			PaidAt:        &paidAt,
		},
		{
			ID:      uuid.New(),
			Title:   domain.TitleFinal,
			Amount:  decimal.RequireFromString("91.27"),
			Status:  domain.StatusPending,
			DueDate: domain.NewDate(2025, time.April, 10),
		},
	}

	require.NoError(t, repo.Save(ctx, "loan-1", seq))

	loaded, err := repo.Load(ctx, "loan-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for i := range seq {
		assert.Equal(t, seq[i].ID, loaded[i].ID)
		assert.Equal(t, seq[i].Title, loaded[i].Title)
		assert.True(t, seq[i].Amount.Equal(loaded[i].Amount))
		assert.Equal(t, seq[i].Status, loaded[i].Status)
		assert.Equal(t, seq[i].DueDate.String(), loaded[i].DueDate.String())
		assert.Equal(t, seq[i].PaymentMethod, loaded[i].PaymentMethod)
	}
	require.NotNil(t, loaded[0].PaidAt)
	assert.True(t, paidAt.Equal(*loaded[0].PaidAt))
}

func TestLedgerRepository_ClearRemovesRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(NewMemoryStore())

	seq := []domain.Installment{
		{
			ID:      uuid.New(),
			Title:   domain.TitleDownPayment,
			Amount:  decimal.NewFromInt(200),
			Status:  domain.StatusPending,
			DueDate: domain.NewDate(2025, time.March, 10),
		},
	}
	require.NoError(t, repo.Save(ctx, "loan-1", seq))
	require.NoError(t, repo.Clear(ctx, "loan-1"))

	_, err := repo.Load(ctx, "loan-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRosterRepository_RoundTripStripsInstallments(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRosterRepository(store)

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	loans := []*domain.Loan{
		{
			ID:        "loan-1",
			Client:    "Juan Perez",
			Total:     decimal.NewFromInt(182),
			Currency:  domain.CurrencyUSD,
			CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			Installments: []domain.Installment{
				{
					ID:      uuid.New(),
					Title:   domain.TitleDownPayment,
					Amount:  decimal.NewFromInt(182),
					Status:  domain.StatusPending,
					DueDate: domain.NewDate(2025, time.March, 10),
				},
			},
		},
	}

	require.NoError(t, repo.Save(ctx, loans))

	// The caller's slice is not mutated by the strip.
	assert.Len(t, loans[0].Installments, 1)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "loan-1", loaded[0].ID)
	assert.Equal(t, "Juan Perez", loaded[0].Client)
	assert.True(t, loaded[0].Total.Equal(decimal.NewFromInt(182)))
	// Live sequences are persisted per loan, never inside the roster.
	assert.Empty(t, loaded[0].Installments)
}
