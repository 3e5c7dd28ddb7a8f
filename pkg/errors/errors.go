package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrClosedInstallment   = errors.New("installment is already paid")
	ErrOutOfSequence       = errors.New("previous installments must be paid first")
	ErrNonPositiveAmount   = errors.New("installment amount must stay above zero")
	ErrValidationFailed    = errors.New("validation failed")
	ErrConservationBroken  = errors.New("installments no longer sum to the loan total")
	ErrPersistence         = errors.New("persistence operation failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound        = "LOAN_NOT_FOUND"
	ErrCodeInstallmentNotFound = "INSTALLMENT_NOT_FOUND"
	ErrCodeInstallmentClosed   = "INSTALLMENT_CLOSED"
	ErrCodeOutOfSequence       = "OUT_OF_SEQUENCE"
	ErrCodeNonPositiveAmount   = "AMOUNT_NOT_POSITIVE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeConservationBroken  = "CONSERVATION_BROKEN"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInstallmentNotFound(ref string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment %s not found", ref),
		ErrInstallmentNotFound,
	)
}

func WrapClosedInstallment(title string) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentClosed,
		fmt.Sprintf("Installment %q is already paid and cannot be modified", title),
		ErrClosedInstallment,
	)
}

func WrapOutOfSequence(blockingTitle string) *BusinessError {
	return NewBusinessError(
		ErrCodeOutOfSequence,
		fmt.Sprintf("Installment %q must be paid first", blockingTitle),
		ErrOutOfSequence,
	)
}

func WrapNonPositiveAmount(title string) *BusinessError {
	return NewBusinessError(
		ErrCodeNonPositiveAmount,
		fmt.Sprintf("Rebalance would drop installment %q to zero or below", title),
		ErrNonPositiveAmount,
	)
}

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidationFailed,
		message,
		ErrValidationFailed,
	)
}

func WrapConservation(sum, total string) *BusinessError {
	return NewBusinessError(
		ErrCodeConservationBroken,
		fmt.Sprintf("Installments sum to %s but the loan total is %s", sum, total),
		ErrConservationBroken,
	)
}

func WrapPersistence(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePersistence,
		"persistence operation failed",
		errors.Join(ErrPersistence, err),
	)
}
