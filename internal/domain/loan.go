package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supported currencies.
const (
	CurrencyUSD = "USD"
	CurrencyCOP = "COP"
)

// Loan is a fixed-total obligation owned by a client, decomposed into an
// ordered installment sequence. The order is the payment sequence: an
// installment can only be settled once everything before it is settled,
// and the installment amounts always sum to Total.
type Loan struct {
	ID           string          `json:"id"`
	Client       string          `json:"client" validate:"required"`
	Total        decimal.Decimal `json:"total" validate:"gt=0"`
	Currency     string          `json:"currency" validate:"required,oneof=USD COP"`
	CreatedAt    time.Time       `json:"created_at"`
	Installments []Installment   `json:"installments"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Client   string          `json:"client" validate:"required"`
	Total    decimal.Decimal `json:"total" validate:"gt=0"`
	Currency string          `json:"currency" validate:"required,oneof=USD COP"`
}

type RebalanceRequest struct {
	Direction int `json:"direction" validate:"required,oneof=-1 1"`
}

type PayRequest struct {
	Method string `json:"method" validate:"required"`
}

type UpdateInstallmentRequest struct {
	Title   *string `json:"title,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
}

type LedgerResponse struct {
	LoanID       string            `json:"loan_id"`
	Total        decimal.Decimal   `json:"total"`
	Currency     string            `json:"currency"`
	Installments []InstallmentView `json:"installments"`
}

// InstallmentView decorates an installment with its display share of the
// loan total.
type InstallmentView struct {
	Installment
	Percentage string `json:"percentage"`
}
