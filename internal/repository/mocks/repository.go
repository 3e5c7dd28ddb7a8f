package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/prestamos/ledger-engine/internal/domain"
)

type MockRosterRepository struct {
	mock.Mock
}

func (m *MockRosterRepository) Load(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockRosterRepository) Save(ctx context.Context, loans []*domain.Loan) error {
	args := m.Called(ctx, loans)
	return args.Error(0)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Load(ctx context.Context, loanID string) ([]domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Installment), args.Error(1)
}

func (m *MockLedgerRepository) Save(ctx context.Context, loanID string, seq []domain.Installment) error {
	args := m.Called(ctx, loanID, seq)
	return args.Error(0)
}

func (m *MockLedgerRepository) Clear(ctx context.Context, loanID string) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}
