package ledger

import (
	"strings"

	"github.com/govalues/money"

	"github.com/openbooks/ledger/internal/errs"
)

// ParseCurrency normalizes and validates an ISO 4217 currency code.
func ParseCurrency(code string) (string, error) {
	c, err := money.ParseCurr(strings.TrimSpace(code))
	if err != nil {
		return "", errs.ErrInvalid
	}
	return c.Code(), nil
}
