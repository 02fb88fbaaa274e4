package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/errs"
)

// Payload is the operation data a business event is evaluated against. Numeric
// fields are selected by rule amount keys; any field may be read by guards.
type Payload map[string]any

// Amount selects a numeric field and returns it quantized to two decimals.
func (p Payload) Amount(key string) (decimal.Decimal, error) {
	v, ok := p[key]
	if !ok {
		return decimal.Zero, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: key, Detail: "amount key missing from payload"}
	}
	switch n := v.(type) {
	case decimal.Decimal:
		return n.Round(2), nil
	case float64:
		return decimal.NewFromFloat(n).Round(2), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: key, Detail: fmt.Sprintf("not a number: %q", n)}
		}
		return d.Round(2), nil
	default:
		return decimal.Zero, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: key, Detail: fmt.Sprintf("unsupported amount type %T", v)}
	}
}

// Has reports whether the payload carries a field.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}
