// Package period gates whether journal entries in a month may be created or
// mutated, and by whom.
package period

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/ledger"
)

// Role is the acting role a period check is evaluated for.
type Role string

const (
	// RoleClerk may only post into fully open periods.
	RoleClerk Role = "clerk"
	// RoleAccountant may additionally post into administratively reopened periods.
	RoleAccountant Role = "accountant"
	// RoleAdmin has the same period rights as an accountant.
	RoleAdmin Role = "admin"
)

// Opener resolves (and lazily creates) the period row for a month inside the
// caller's transaction.
type Opener interface {
	GetOrOpenPeriod(ctx context.Context, tenantID uuid.UUID, year int, month int) (ledger.Period, error)
}

// GetOrOpen resolves the period covering date.
func GetOrOpen(ctx context.Context, op Opener, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	return op.GetOrOpenPeriod(ctx, tenantID, date.Year(), int(date.Month()))
}

// IsOpenFor reports whether the acting role may create or mutate entries in
// the period. Closed periods admit nobody; reopened periods admit accountants
// and admins only.
func IsOpenFor(p ledger.Period, role Role) bool {
	switch p.Status {
	case ledger.PeriodOpen:
		return true
	case ledger.PeriodReopened:
		return role == RoleAccountant || role == RoleAdmin
	default:
		return false
	}
}
