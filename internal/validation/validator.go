package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prestamos/ledger-engine/internal/domain"
	apperrors "github.com/prestamos/ledger-engine/pkg/errors"
)

// Validator checks candidate loan and installment records against the
// schema rules before they are committed. Validation is fail-fast: the
// first violated constraint produces the single error message surfaced to
// the caller, and the attempted mutation is discarded.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	// Teach the validator to treat decimal.Decimal as a number so numeric
	// tags (gt, gte) apply to money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &Validator{validate: v}
}

// ValidateRequest validates an inbound DTO against its struct tags.
func (v *Validator) ValidateRequest(req interface{}) error {
	if err := v.validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return apperrors.WrapValidation(fieldMessage(errs[0]))
		}
		return apperrors.WrapValidation(err.Error())
	}
	return nil
}

// ValidateLoan checks a loan record against its struct tags, then its
// installment sequence. The explicit client check also rejects
// whitespace-only names, which the required tag lets through.
func (v *Validator) ValidateLoan(loan *domain.Loan) error {
	if strings.TrimSpace(loan.Client) == "" {
		return apperrors.WrapValidation("client is required")
	}
	if err := v.ValidateRequest(loan); err != nil {
		return err
	}
	return v.ValidateInstallments(loan.Installments)
}

// ValidateInstallments checks every installment of a candidate sequence in
// order, stopping at the first violation.
func (v *Validator) ValidateInstallments(seq []domain.Installment) error {
	seen := make(map[uuid.UUID]struct{}, len(seq))

	for i := range seq {
		inst := &seq[i]
		pos := i + 1

		if inst.ID == uuid.Nil {
			return apperrors.WrapValidation(fmt.Sprintf("installment %d: id is missing", pos))
		}
		if _, dup := seen[inst.ID]; dup {
			return apperrors.WrapValidation(fmt.Sprintf("installment %d: duplicate id %s", pos, inst.ID))
		}
		seen[inst.ID] = struct{}{}

		if err := v.validate.Struct(inst); err != nil {
			if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
				return apperrors.WrapValidation(fmt.Sprintf("installment %d: %s", pos, fieldMessage(errs[0])))
			}
			return apperrors.WrapValidation(fmt.Sprintf("installment %d: %v", pos, err))
		}

		if !inst.Amount.IsPositive() {
			return apperrors.WrapValidation(fmt.Sprintf("installment %d: amount must be greater than zero", pos))
		}
		if inst.DueDate.IsZero() {
			return apperrors.WrapValidation(fmt.Sprintf("installment %d: due date is missing", pos))
		}

		// A settled installment always carries its method and timestamp; a
		// pending one never does.
		if inst.IsPaid() {
			if inst.PaymentMethod == "" {
				return apperrors.WrapValidation(fmt.Sprintf("installment %d: paid installment is missing its payment method", pos))
			}
			if inst.PaidAt == nil {
				return apperrors.WrapValidation(fmt.Sprintf("installment %d: paid installment is missing its payment timestamp", pos))
			}
		} else if inst.PaymentMethod != "" || inst.PaidAt != nil {
			return apperrors.WrapValidation(fmt.Sprintf("installment %d: pending installment must not carry payment details", pos))
		}
	}

	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
