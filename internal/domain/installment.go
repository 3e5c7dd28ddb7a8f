package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment status values. The transition is pending -> paid, terminal.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Positional titles assigned after a split. The placeholder marks an
// installment the user has not renamed yet.
const (
	TitleDownPayment = "Anticipo"
	TitlePlaceholder = "Nuevo pago"
	TitleFinal       = "Pago final"
)

// TitleMaxLength bounds user-assigned installment titles.
const TitleMaxLength = 20

// Installment is one scheduled or settled portion of a loan's total.
type Installment struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title" validate:"required,max=20"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status" validate:"required,oneof=pending paid"`
	DueDate       Date            `json:"due_date"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// IsPaid reports whether the installment has been settled.
func (i *Installment) IsPaid() bool {
	return i.Status == StatusPaid
}

// PositionalTitle returns the "Pago N" label for a 1-based position.
func PositionalTitle(position int) string {
	return fmt.Sprintf("Pago %d", position)
}

// BootstrapInstallments returns the initial ledger for a loan: a single
// pending down payment carrying the full total.
func BootstrapInstallments(total decimal.Decimal, due Date) []Installment {
	return []Installment{
		{
			ID:      uuid.New(),
			Title:   TitleDownPayment,
			Amount:  total,
			Status:  StatusPending,
			DueDate: due,
		},
	}
}

// CloneInstallments returns a deep copy of seq. Mutations work on a copy so
// a failed operation leaves the committed ledger untouched.
func CloneInstallments(seq []Installment) []Installment {
	out := make([]Installment, len(seq))
	copy(out, seq)
	for i := range out {
		if seq[i].PaidAt != nil {
			paidAt := *seq[i].PaidAt
			out[i].PaidAt = &paidAt
		}
	}
	return out
}

// SumAmounts returns the total value currently allocated across seq.
func SumAmounts(seq []Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range seq {
		sum = sum.Add(seq[i].Amount)
	}
	return sum
}

// Relabel reassigns positional titles after a split. The first installment
// is always the down payment, the last becomes "Pago final", and the rest
// take "Pago N" by position. The installment at insertedIdx keeps its
// placeholder title until the user renames it, and settled installments are
// never renamed.
func Relabel(seq []Installment, insertedIdx int) {
	for i := range seq {
		if i == insertedIdx || seq[i].IsPaid() {
			continue
		}
		switch {
		case i == 0:
			seq[i].Title = TitleDownPayment
		case i == len(seq)-1:
			seq[i].Title = TitleFinal
		default:
			seq[i].Title = PositionalTitle(i + 1)
		}
	}
}
