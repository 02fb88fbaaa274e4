package errs

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MappingError carries enough detail to render an actionable message for a
// role/account mismatch without re-querying the engine. It matches
// ErrInvalidMapping, ErrAccountNotMapped or ErrInactiveAccount via errors.Is.
type MappingError struct {
	Sentinel       error
	Role           string
	AccountCode    string
	ExpectedNature string
	ActualNature   string
	Category       string
}

func (e *MappingError) Error() string {
	switch {
	case e.Category != "":
		return fmt.Sprintf("%s: role %s is forbidden for %s-category events", e.Sentinel, e.Role, e.Category)
	case e.ExpectedNature != "":
		return fmt.Sprintf("%s: role %s expects a %s account, got %s (%s)",
			e.Sentinel, e.Role, e.ExpectedNature, e.ActualNature, e.AccountCode)
	case e.AccountCode != "":
		return fmt.Sprintf("%s: role %s -> account %s", e.Sentinel, e.Role, e.AccountCode)
	default:
		return fmt.Sprintf("%s: role %s", e.Sentinel, e.Role)
	}
}

func (e *MappingError) Unwrap() error { return e.Sentinel }

// BalanceError reports an unbalanced line set. Matches ErrUnbalanced.
type BalanceError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s: debits %s != credits %s", ErrUnbalanced, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *BalanceError) Unwrap() error { return ErrUnbalanced }

// ConfirmationError lists the warning codes still awaiting explicit
// confirmation. Matches ErrConfirmationRequired.
type ConfirmationError struct {
	Codes []string
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrConfirmationRequired, e.Codes)
}

func (e *ConfirmationError) Unwrap() error { return ErrConfirmationRequired }

// FieldError points at a single offending line or field.
type FieldError struct {
	Sentinel error
	Field    string
	Detail   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Sentinel, e.Field, e.Detail)
}

func (e *FieldError) Unwrap() error { return e.Sentinel }
