package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prestamos/ledger-engine/internal/config"
	"github.com/prestamos/ledger-engine/internal/domain"
	"github.com/prestamos/ledger-engine/internal/repository"
	"github.com/prestamos/ledger-engine/internal/validation"
	apperrors "github.com/prestamos/ledger-engine/pkg/errors"
	"github.com/prestamos/ledger-engine/pkg/utils"
)

// LedgerService owns the installment ledger of every loan. Each mutation
// works on a copy of the persisted sequence, revalidates the candidate
// state, checks that the amounts still sum to the loan total, and only then
// commits the write. A failed mutation leaves the stored ledger untouched.
type LedgerService struct {
	rosterRepo repository.RosterRepository
	ledgerRepo repository.LedgerRepository
	validator  *validation.Validator
	step       decimal.Decimal
	epsilon    decimal.Decimal
	seedDemo   bool
	now        func() time.Time
}

func NewLedgerService(
	rosterRepo repository.RosterRepository,
	ledgerRepo repository.LedgerRepository,
	validator *validation.Validator,
	cfg *config.Config,
) *LedgerService {
	return &LedgerService{
		rosterRepo: rosterRepo,
		ledgerRepo: ledgerRepo,
		validator:  validator,
		step:       cfg.GetRebalanceStep(),
		epsilon:    cfg.GetConservationEpsilon(),
		seedDemo:   cfg.Business.SeedDemoData,
		now:        time.Now,
	}
}

// ListLoans returns the roster with each loan's live installment sequence
// merged in. A loan without a persisted ledger keeps whatever installments
// the roster entry itself carried.
func (s *LedgerService) ListLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	for _, loan := range loans {
		seq, err := s.ledgerRepo.Load(ctx, loan.ID)
		if err != nil {
			if errors.Is(err, repository.ErrKeyNotFound) {
				continue
			}
			return nil, apperrors.WrapPersistence(err)
		}
		loan.Installments = seq
	}

	return loans, nil
}

// CreateLoan adds a loan to the roster. Its ledger bootstraps lazily on
// first access.
func (s *LedgerService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if err := s.validator.ValidateRequest(request); err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		ID:        uuid.NewString(),
		Client:    strings.TrimSpace(request.Client),
		Total:     request.Total.Round(2),
		Currency:  request.Currency,
		CreatedAt: s.now(),
	}

	if err := s.validator.ValidateLoan(loan); err != nil {
		return nil, err
	}

	loans, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	loans = append(loans, loan)
	if err := s.rosterRepo.Save(ctx, loans); err != nil {
		return nil, apperrors.WrapPersistence(err)
	}

	return loan, nil
}

// GetLedger returns a loan and its installment sequence. A loan that has
// never been touched gets the bootstrap sequence: one pending down payment
// carrying the full total.
func (s *LedgerService) GetLedger(ctx context.Context, loanID string) (*domain.Loan, []domain.Installment, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	seq, err := s.loadLedger(ctx, loan)
	if err != nil {
		return nil, nil, err
	}

	return loan, seq, nil
}

// Split halves the installment at index and inserts a new pending
// installment right after it carrying the other half. Positional titles are
// reassigned afterwards; the new installment keeps its placeholder title
// until the user renames it. Splitting a paid installment is rejected.
func (s *LedgerService) Split(ctx context.Context, loanID string, index int) ([]domain.Installment, error) {
	return s.mutate(ctx, loanID, func(loan *domain.Loan, seq []domain.Installment) ([]domain.Installment, error) {
		if index < 0 || index >= len(seq) {
			return nil, apperrors.WrapInstallmentNotFound(indexRef(index))
		}

		target := &seq[index]
		if target.IsPaid() {
			return nil, apperrors.WrapClosedInstallment(target.Title)
		}

		half, rest := utils.HalveAmount(target.Amount)
		target.Amount = half

		inserted := domain.Installment{
			ID:      uuid.New(),
			Title:   domain.TitlePlaceholder,
			Amount:  rest,
			Status:  domain.StatusPending,
			DueDate: domain.DateOf(s.now()),
		}

		next := make([]domain.Installment, 0, len(seq)+1)
		next = append(next, seq[:index+1]...)
		next = append(next, inserted)
		next = append(next, seq[index+1:]...)

		domain.Relabel(next, index+1)
		return next, nil
	})
}

// Rebalance shifts one step (a fixed fraction of the loan total) between
// the installment at index and its neighbor: the previous installment, or
// the next one when index is 0. Direction +1 grows the target's share. The
// transfer is zero-sum and rejected when either side is paid or would drop
// to zero or below.
func (s *LedgerService) Rebalance(ctx context.Context, loanID string, index, direction int) ([]domain.Installment, error) {
	if direction != 1 && direction != -1 {
		return nil, apperrors.WrapValidation("direction must be 1 or -1")
	}

	return s.mutate(ctx, loanID, func(loan *domain.Loan, seq []domain.Installment) ([]domain.Installment, error) {
		if index < 0 || index >= len(seq) {
			return nil, apperrors.WrapInstallmentNotFound(indexRef(index))
		}

		neighborIdx := index - 1
		if index == 0 {
			neighborIdx = 1
		}
		if neighborIdx >= len(seq) {
			return nil, apperrors.WrapInstallmentNotFound(indexRef(neighborIdx))
		}

		target := &seq[index]
		neighbor := &seq[neighborIdx]

		if target.IsPaid() {
			return nil, apperrors.WrapClosedInstallment(target.Title)
		}
		if neighbor.IsPaid() {
			return nil, apperrors.WrapClosedInstallment(neighbor.Title)
		}

		delta := loan.Total.Mul(s.step).Round(2)
		if direction < 0 {
			delta = delta.Neg()
		}

		newTarget := target.Amount.Add(delta)
		newNeighbor := neighbor.Amount.Sub(delta)

		if !newTarget.IsPositive() {
			return nil, apperrors.WrapNonPositiveAmount(target.Title)
		}
		if !newNeighbor.IsPositive() {
			return nil, apperrors.WrapNonPositiveAmount(neighbor.Title)
		}

		target.Amount = newTarget
		neighbor.Amount = newNeighbor
		return seq, nil
	})
}

// MarkPaid settles an installment. Installments settle strictly in sequence
// order: the first unpaid predecessor blocks the attempt. Settling is
// irreversible.
func (s *LedgerService) MarkPaid(ctx context.Context, loanID, installmentID, method string) ([]domain.Installment, error) {
	if strings.TrimSpace(method) == "" {
		return nil, apperrors.WrapValidation("payment method is required")
	}

	return s.mutate(ctx, loanID, func(loan *domain.Loan, seq []domain.Installment) ([]domain.Installment, error) {
		index, err := findByID(seq, installmentID)
		if err != nil {
			return nil, err
		}

		target := &seq[index]
		if target.IsPaid() {
			return nil, apperrors.WrapClosedInstallment(target.Title)
		}

		for i := 0; i < index; i++ {
			if !seq[i].IsPaid() {
				return nil, apperrors.WrapOutOfSequence(seq[i].Title)
			}
		}

		paidAt := s.now()
		target.Status = domain.StatusPaid
		target.PaymentMethod = method
		target.PaidAt = &paidAt
		return seq, nil
	})
}

// UpdateTitle renames a pending installment. Paid installments are closed
// to edits.
func (s *LedgerService) UpdateTitle(ctx context.Context, loanID, installmentID, title string) ([]domain.Installment, error) {
	return s.UpdateInstallment(ctx, loanID, installmentID, &title, nil)
}

// UpdateDueDate moves a pending installment's due date. Paid installments
// are closed to edits; no past-date floor is enforced here.
func (s *LedgerService) UpdateDueDate(ctx context.Context, loanID, installmentID string, due domain.Date) ([]domain.Installment, error) {
	return s.UpdateInstallment(ctx, loanID, installmentID, nil, &due)
}

// UpdateInstallment applies a rename, a due date move, or both to a
// pending installment as one mutation: if any part is invalid, nothing is
// written. Paid installments are closed to edits.
func (s *LedgerService) UpdateInstallment(ctx context.Context, loanID, installmentID string, title *string, due *domain.Date) ([]domain.Installment, error) {
	if title == nil && due == nil {
		return nil, apperrors.WrapValidation("title or due date is required")
	}

	return s.mutate(ctx, loanID, func(loan *domain.Loan, seq []domain.Installment) ([]domain.Installment, error) {
		index, err := findByID(seq, installmentID)
		if err != nil {
			return nil, err
		}

		target := &seq[index]
		if target.IsPaid() {
			return nil, apperrors.WrapClosedInstallment(target.Title)
		}

		if title != nil {
			target.Title = *title
		}
		if due != nil {
			target.DueDate = *due
		}
		return seq, nil
	})
}

// ResetLedger clears a loan's persisted sequence and returns the fresh
// bootstrap state.
func (s *LedgerService) ResetLedger(ctx context.Context, loanID string) ([]domain.Installment, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := s.ledgerRepo.Clear(ctx, loanID); err != nil {
		return nil, apperrors.WrapPersistence(err)
	}

	return s.loadLedger(ctx, loan)
}

// PercentageOf renders an amount as its display share of the loan total.
func (s *LedgerService) PercentageOf(amount, total decimal.Decimal) string {
	return utils.FormatPercentage(amount, total)
}

// ConservationReport is one loan's drift between its installment sum and
// its total.
type ConservationReport struct {
	LoanID string
	Client string
	Total  decimal.Decimal
	Sum    decimal.Decimal
	Drift  decimal.Decimal
	OK     bool
}

// AuditConservation recomputes the installment sum of every loan with a
// persisted ledger and reports any drift beyond the tolerated epsilon.
func (s *LedgerService) AuditConservation(ctx context.Context) ([]ConservationReport, error) {
	loans, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]ConservationReport, 0, len(loans))
	for _, loan := range loans {
		seq, err := s.ledgerRepo.Load(ctx, loan.ID)
		if err != nil {
			if errors.Is(err, repository.ErrKeyNotFound) {
				// Nothing persisted yet, nothing can have drifted.
				continue
			}
			return nil, apperrors.WrapPersistence(err)
		}

		sum := domain.SumAmounts(seq)
		drift := sum.Sub(loan.Total).Abs()
		reports = append(reports, ConservationReport{
			LoanID: loan.ID,
			Client: loan.Client,
			Total:  loan.Total,
			Sum:    sum,
			Drift:  drift,
			OK:     !drift.GreaterThan(s.epsilon),
		})
	}

	return reports, nil
}

// mutate runs fn against a copy of the loan's current sequence and commits
// the result only after schema validation and the conservation check pass.
func (s *LedgerService) mutate(
	ctx context.Context,
	loanID string,
	fn func(loan *domain.Loan, seq []domain.Installment) ([]domain.Installment, error),
) ([]domain.Installment, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	current, err := s.loadLedger(ctx, loan)
	if err != nil {
		return nil, err
	}

	next, err := fn(loan, domain.CloneInstallments(current))
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateInstallments(next); err != nil {
		return nil, err
	}

	sum := domain.SumAmounts(next)
	if sum.Sub(loan.Total).Abs().GreaterThan(s.epsilon) {
		return nil, apperrors.WrapConservation(sum.String(), loan.Total.String())
	}

	if err := s.ledgerRepo.Save(ctx, loanID, next); err != nil {
		return nil, apperrors.WrapPersistence(err)
	}

	return next, nil
}

func (s *LedgerService) findLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loans, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	for _, loan := range loans {
		if loan.ID == loanID {
			return loan, nil
		}
	}

	return nil, apperrors.WrapLoanNotFound(loanID)
}

func (s *LedgerService) loadRoster(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.rosterRepo.Load(ctx)
	if err == nil {
		return loans, nil
	}
	if !errors.Is(err, repository.ErrKeyNotFound) {
		return nil, apperrors.WrapPersistence(err)
	}

	if !s.seedDemo {
		return []*domain.Loan{}, nil
	}

	loans = s.demoLoans()
	if err := s.rosterRepo.Save(ctx, loans); err != nil {
		return nil, apperrors.WrapPersistence(err)
	}

	return loans, nil
}

func (s *LedgerService) loadLedger(ctx context.Context, loan *domain.Loan) ([]domain.Installment, error) {
	seq, err := s.ledgerRepo.Load(ctx, loan.ID)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, repository.ErrKeyNotFound) {
		return nil, apperrors.WrapPersistence(err)
	}

	seq = domain.BootstrapInstallments(loan.Total, domain.DateOf(s.now()))

	// Persist the bootstrap so its generated ids stay stable across reads.
	if err := s.ledgerRepo.Save(ctx, loan.ID, seq); err != nil {
		return nil, apperrors.WrapPersistence(err)
	}

	return seq, nil
}

// demoLoans seeds a first-run roster so the app never opens empty.
func (s *LedgerService) demoLoans() []*domain.Loan {
	return []*domain.Loan{
		{
			ID:        uuid.NewString(),
			Client:    "Juan Perez",
			Total:     decimal.NewFromInt(182),
			Currency:  domain.CurrencyUSD,
			CreatedAt: s.now(),
		},
		{
			ID:        uuid.NewString(),
			Client:    "Maria Sosa",
			Total:     decimal.NewFromInt(190),
			Currency:  domain.CurrencyUSD,
			CreatedAt: s.now(),
		},
	}
}

func findByID(seq []domain.Installment, installmentID string) (int, error) {
	for i := range seq {
		if seq[i].ID.String() == installmentID {
			return i, nil
		}
	}
	return 0, apperrors.WrapInstallmentNotFound(installmentID)
}

func indexRef(index int) string {
	return "at index " + strconv.Itoa(index)
}
