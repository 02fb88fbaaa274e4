package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
)

type fixture struct {
	snap     Snapshot
	accounts map[ledger.RoleTag]ledger.LedgerAccount
}

func saleFixture(t *testing.T) *fixture {
	t.Helper()
	tenant := uuid.New()
	f := &fixture{
		snap: Snapshot{
			Event: ledger.AccountingEvent{
				ID: uuid.New(), TenantID: tenant, Type: "SALE",
				Category: ledger.CategorySale, Active: true,
			},
			Mappings: map[ledger.RoleTag]ledger.AccountTypeMapping{},
			Accounts: map[uuid.UUID]ledger.LedgerAccount{},
		},
		accounts: map[ledger.RoleTag]ledger.LedgerAccount{},
	}
	f.mapRole(dictionary.RoleReceivables, "12.10", ledger.NatureAsset)
	f.mapRole(dictionary.RoleSalesIncome, "70.10", ledger.NatureIncome)
	f.mapRole(dictionary.RoleTaxOutput, "40.10", ledger.NatureLiability)
	f.mapRole(dictionary.RoleDetraction, "10.40", ledger.NatureAsset)

	f.snap.Rules = []ledger.AccountingRule{
		f.rule(1, ledger.SideDebit, dictionary.RoleReceivables, "total", ""),
		f.rule(2, ledger.SideCredit, dictionary.RoleSalesIncome, "base", ""),
		f.rule(3, ledger.SideCredit, dictionary.RoleTaxOutput, "tax", "tax > 0"),
	}
	return f
}

func (f *fixture) mapRole(role ledger.RoleTag, code string, nature ledger.Nature) {
	acc := ledger.LedgerAccount{
		ID: uuid.New(), TenantID: f.snap.Event.TenantID,
		Code: code, Name: string(role), Nature: nature, Active: true,
	}
	f.snap.Accounts[acc.ID] = acc
	f.snap.Mappings[role] = ledger.AccountTypeMapping{
		ID: uuid.New(), TenantID: f.snap.Event.TenantID,
		Role: role, AccountID: acc.ID, Active: true,
	}
	f.accounts[role] = acc
}

func (f *fixture) rule(order int, side ledger.Side, role ledger.RoleTag, amountKey, g string) ledger.AccountingRule {
	return ledger.AccountingRule{
		ID: uuid.New(), TenantID: f.snap.Event.TenantID, EventID: f.snap.Event.ID,
		Order: order, Side: side, Role: role, AmountKey: amountKey, Guard: g, Active: true,
	}
}

func salePayload() Payload {
	return Payload{"base": 100.00, "tax": 18.00, "total": 118.00}
}

func TestEvaluateSaleScenario(t *testing.T) {
	f := saleFixture(t)
	res, err := Evaluate(f.snap, salePayload())
	require.NoError(t, err)

	require.Len(t, res.Lines, 3)
	assert.True(t, res.Balanced)
	assert.Equal(t, "118.00", res.TotalDebit.StringFixed(2))
	assert.Equal(t, "118.00", res.TotalCredit.StringFixed(2))

	assert.Equal(t, f.accounts[dictionary.RoleReceivables].ID, res.Lines[0].AccountID)
	assert.Equal(t, "118.00", res.Lines[0].Debit.StringFixed(2))
	assert.Equal(t, f.accounts[dictionary.RoleSalesIncome].ID, res.Lines[1].AccountID)
	assert.Equal(t, "100.00", res.Lines[1].Credit.StringFixed(2))
	assert.Equal(t, f.accounts[dictionary.RoleTaxOutput].ID, res.Lines[2].AccountID)
	assert.Equal(t, "18.00", res.Lines[2].Credit.StringFixed(2))

	assert.Equal(t, "SALE", res.Trace.EventType)
	assert.Len(t, res.Trace.RuleIDs, 3)
}

func TestEvaluateDeterminism(t *testing.T) {
	f := saleFixture(t)
	first, err := Evaluate(f.snap, salePayload())
	require.NoError(t, err)
	second, err := Evaluate(f.snap, salePayload())
	require.NoError(t, err)

	b1, err := json.Marshal(first.Lines)
	require.NoError(t, err)
	b2, err := json.Marshal(second.Lines)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestEvaluateGuardSkipsRule(t *testing.T) {
	f := saleFixture(t)
	res, err := Evaluate(f.snap, Payload{"base": 100.00, "tax": 0.00, "total": 100.00})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.True(t, res.Balanced)
	assert.Len(t, res.Trace.RuleIDs, 2)
}

func TestEvaluateCategoryGuardViolation(t *testing.T) {
	f := saleFixture(t)
	// A sale-category event must never post to the tax-input role.
	f.mapRole(dictionary.RoleTaxInput, "40.11", ledger.NatureAsset)
	f.snap.Rules = append(f.snap.Rules, f.rule(4, ledger.SideDebit, dictionary.RoleTaxInput, "tax", ""))

	_, err := Evaluate(f.snap, salePayload())
	require.ErrorIs(t, err, errs.ErrInvalidMapping)
}

func TestEvaluateNatureRecheck(t *testing.T) {
	f := saleFixture(t)
	// Remap TAX_OUTPUT to an asset account behind the mapping service's back.
	m := f.snap.Mappings[dictionary.RoleTaxOutput]
	bad := ledger.LedgerAccount{ID: uuid.New(), TenantID: f.snap.Event.TenantID, Code: "10.99", Nature: ledger.NatureAsset, Active: true}
	f.snap.Accounts[bad.ID] = bad
	m.AccountID = bad.ID
	f.snap.Mappings[dictionary.RoleTaxOutput] = m

	_, err := Evaluate(f.snap, salePayload())
	require.ErrorIs(t, err, errs.ErrInvalidMapping)
}

func TestEvaluateUnmappedAndInactive(t *testing.T) {
	f := saleFixture(t)
	delete(f.snap.Mappings, dictionary.RoleSalesIncome)
	_, err := Evaluate(f.snap, salePayload())
	require.ErrorIs(t, err, errs.ErrAccountNotMapped)

	f = saleFixture(t)
	acc := f.accounts[dictionary.RoleSalesIncome]
	acc.Active = false
	f.snap.Accounts[acc.ID] = acc
	_, err = Evaluate(f.snap, salePayload())
	require.ErrorIs(t, err, errs.ErrInactiveAccount)
}

func TestEvaluateUnbalanced(t *testing.T) {
	f := saleFixture(t)
	_, err := Evaluate(f.snap, Payload{"base": 100.00, "tax": 18.00, "total": 120.00})
	require.ErrorIs(t, err, errs.ErrUnbalanced)
	var be *errs.BalanceError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "120.00", be.Debit.StringFixed(2))
	assert.Equal(t, "118.00", be.Credit.StringFixed(2))
}

func TestEvaluateRoundingWithinTolerance(t *testing.T) {
	f := saleFixture(t)
	// Third-decimal inputs quantize per line; a one-cent skew still balances.
	res, err := Evaluate(f.snap, Payload{"base": 100.004, "tax": 18.004, "total": 118.01})
	require.NoError(t, err)
	assert.True(t, res.Balanced)
}

func TestEvaluateWithholdingAdjustment(t *testing.T) {
	f := saleFixture(t)
	p := salePayload()
	p["withholding"] = 11.80

	res, err := Evaluate(f.snap, p)
	require.NoError(t, err)
	require.Len(t, res.Lines, 4)
	assert.Equal(t, "withholding", res.Trace.Adjustment)

	// Receivable reduced, deposit inserted, balance preserved.
	assert.Equal(t, "106.20", res.Lines[0].Debit.StringFixed(2))
	last := res.Lines[3]
	assert.Equal(t, f.accounts[dictionary.RoleDetraction].ID, last.AccountID)
	assert.Equal(t, "11.80", last.Debit.StringFixed(2))
	assert.Equal(t, "118.00", res.TotalDebit.StringFixed(2))
	assert.Equal(t, "118.00", res.TotalCredit.StringFixed(2))
}

func TestEvaluateWithholdingExceedsReceivable(t *testing.T) {
	f := saleFixture(t)
	p := salePayload()
	p["withholding"] = 118.00
	_, err := Evaluate(f.snap, p)
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestEvaluateAllRulesGuardedOff(t *testing.T) {
	f := saleFixture(t)
	for i := range f.snap.Rules {
		f.snap.Rules[i].Guard = "base < 0"
	}
	_, err := Evaluate(f.snap, salePayload())
	require.ErrorIs(t, err, errs.ErrNoActiveRules)
}

func TestEvaluateBadGuard(t *testing.T) {
	f := saleFixture(t)
	f.snap.Rules[0].Guard = "total >"
	_, err := Evaluate(f.snap, salePayload())
	require.Error(t, err)
}

func TestEvaluateGuardEvalErrorNamesSource(t *testing.T) {
	f := saleFixture(t)
	f.snap.Rules[0].Guard = "detraction > 0"
	_, err := Evaluate(f.snap, salePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"detraction > 0"`)
}

func TestPayloadAmount(t *testing.T) {
	p := Payload{"f": 1.005, "s": "2.50", "i": 3, "d": decimal.RequireFromString("4.4"), "bad": []int{1}}

	got, err := p.Amount("s")
	require.NoError(t, err)
	assert.Equal(t, "2.50", got.StringFixed(2))

	got, err = p.Amount("i")
	require.NoError(t, err)
	assert.Equal(t, "3.00", got.StringFixed(2))

	got, err = p.Amount("d")
	require.NoError(t, err)
	assert.Equal(t, "4.40", got.StringFixed(2))

	_, err = p.Amount("missing")
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = p.Amount("bad")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}
