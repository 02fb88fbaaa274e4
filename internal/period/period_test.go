package period

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openbooks/ledger/internal/ledger"
)

func TestIsOpenFor(t *testing.T) {
	cases := []struct {
		status ledger.PeriodStatus
		role   Role
		want   bool
	}{
		{ledger.PeriodOpen, RoleClerk, true},
		{ledger.PeriodOpen, RoleAccountant, true},
		{ledger.PeriodOpen, RoleAdmin, true},
		{ledger.PeriodReopened, RoleClerk, false},
		{ledger.PeriodReopened, RoleAccountant, true},
		{ledger.PeriodReopened, RoleAdmin, true},
		{ledger.PeriodClosed, RoleClerk, false},
		{ledger.PeriodClosed, RoleAccountant, false},
		{ledger.PeriodClosed, RoleAdmin, false},
	}
	for _, tc := range cases {
		got := IsOpenFor(ledger.Period{Status: tc.status}, tc.role)
		assert.Equal(t, tc.want, got, "%s/%s", tc.status, tc.role)
	}
}
