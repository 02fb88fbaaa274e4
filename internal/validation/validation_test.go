package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
)

type builder struct {
	tenant   uuid.UUID
	accounts map[uuid.UUID]ledger.LedgerAccount
	mappings map[ledger.RoleTag]ledger.AccountTypeMapping
}

func newBuilder() *builder {
	return &builder{
		tenant:   uuid.New(),
		accounts: map[uuid.UUID]ledger.LedgerAccount{},
		mappings: map[ledger.RoleTag]ledger.AccountTypeMapping{},
	}
}

func (b *builder) account(code string, nature ledger.Nature) ledger.LedgerAccount {
	a := ledger.LedgerAccount{ID: uuid.New(), TenantID: b.tenant, Code: code, Nature: nature, Active: true}
	b.accounts[a.ID] = a
	return a
}

func (b *builder) mapped(role ledger.RoleTag, code string, nature ledger.Nature) ledger.LedgerAccount {
	a := b.account(code, nature)
	b.mappings[role] = ledger.AccountTypeMapping{ID: uuid.New(), TenantID: b.tenant, Role: role, AccountID: a.ID, Active: true}
	return a
}

func (b *builder) ctx() Context { return NewContext(b.accounts, b.mappings) }

func (b *builder) entry(lines ...ledger.EntryLine) ledger.JournalEntry {
	return ledger.JournalEntry{
		ID:       uuid.New(),
		TenantID: b.tenant,
		Currency: "PEN",
		Origin:   ledger.OriginManual,
		Status:   ledger.StatusDraft,
		Category: ledger.CategoryGeneral,
		Lines:    lines,
	}
}

func debit(a ledger.LedgerAccount, amt string) ledger.EntryLine {
	return ledger.EntryLine{AccountID: a.ID, Debit: decimal.RequireFromString(amt), Credit: decimal.Zero}
}

func credit(a ledger.LedgerAccount, amt string) ledger.EntryLine {
	return ledger.EntryLine{AccountID: a.ID, Debit: decimal.Zero, Credit: decimal.RequireFromString(amt)}
}

func TestCheckEntryValid(t *testing.T) {
	b := newBuilder()
	cash := b.account("10.10", ledger.NatureAsset)
	income := b.account("70.10", ledger.NatureIncome)

	warnings, err := CheckEntry(b.entry(debit(cash, "50.00"), credit(income, "50.00")), b.ctx())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckEntryHardErrors(t *testing.T) {
	b := newBuilder()
	cash := b.account("10.10", ledger.NatureAsset)
	income := b.account("70.10", ledger.NatureIncome)

	t.Run("too few lines", func(t *testing.T) {
		_, err := CheckEntry(b.entry(debit(cash, "50.00")), b.ctx())
		assert.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("unbalanced", func(t *testing.T) {
		_, err := CheckEntry(b.entry(debit(cash, "50.00"), credit(income, "49.50")), b.ctx())
		assert.ErrorIs(t, err, errs.ErrUnbalanced)
	})

	t.Run("both sides set", func(t *testing.T) {
		bad := debit(cash, "50.00")
		bad.Credit = decimal.RequireFromString("50.00")
		_, err := CheckEntry(b.entry(bad, credit(income, "50.00")), b.ctx())
		assert.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("unknown account", func(t *testing.T) {
		ghost := ledger.LedgerAccount{ID: uuid.New()}
		_, err := CheckEntry(b.entry(debit(ghost, "50.00"), credit(income, "50.00")), b.ctx())
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("inactive account", func(t *testing.T) {
		bb := newBuilder()
		incomeB := bb.account("70.10", ledger.NatureIncome)
		frozen := bb.account("10.99", ledger.NatureAsset)
		frozen.Active = false
		bb.accounts[frozen.ID] = frozen
		_, err := CheckEntry(bb.entry(debit(frozen, "50.00"), credit(incomeB, "50.00")), bb.ctx())
		assert.ErrorIs(t, err, errs.ErrInactiveAccount)
	})

	t.Run("three decimal places", func(t *testing.T) {
		_, err := CheckEntry(b.entry(
			ledger.EntryLine{AccountID: cash.ID, Debit: decimal.RequireFromString("50.005"), Credit: decimal.Zero},
			credit(income, "50.01"),
		), b.ctx())
		assert.ErrorIs(t, err, errs.ErrInvalid)
	})
}

func TestCheckEntryTaxSideErrors(t *testing.T) {
	b := newBuilder()
	payables := b.mapped(dictionary.RolePayables, "42.10", ledger.NatureLiability)
	taxInput := b.mapped(dictionary.RoleTaxInput, "40.11", ledger.NatureAsset)

	// Input tax on the credit side is a hard error.
	_, err := CheckEntry(b.entry(debit(payables, "18.00"), credit(taxInput, "18.00")), b.ctx())
	require.ErrorIs(t, err, errs.ErrInvalidMapping)

	bb := newBuilder()
	receivables := bb.mapped(dictionary.RoleReceivables, "12.10", ledger.NatureAsset)
	taxOutput := bb.mapped(dictionary.RoleTaxOutput, "40.10", ledger.NatureLiability)

	// Output tax on the debit side is a hard error.
	_, err = CheckEntry(bb.entry(debit(taxOutput, "18.00"), credit(receivables, "18.00")), bb.ctx())
	require.ErrorIs(t, err, errs.ErrInvalidMapping)
}

func TestWarningTaxWithCash(t *testing.T) {
	b := newBuilder()
	cash := b.mapped(dictionary.RoleCash, "10.10", ledger.NatureAsset)
	taxInput := b.mapped(dictionary.RoleTaxInput, "40.11", ledger.NatureAsset)
	payables := b.mapped(dictionary.RolePayables, "42.10", ledger.NatureLiability)

	e := b.entry(debit(taxInput, "18.00"), debit(cash, "82.00"), credit(payables, "100.00"))
	warnings, err := CheckEntry(e, b.ctx())
	require.NoError(t, err)
	codes := Codes(warnings)
	assert.Contains(t, codes, CodeTaxWithCash)
	assert.Contains(t, codes, CodeManualAutomatedRole)

	// A documented tax line silences the treasury warning.
	e.Lines[0].DocumentRef = "F001-123"
	warnings, err = CheckEntry(e, b.ctx())
	require.NoError(t, err)
	assert.NotContains(t, Codes(warnings), CodeTaxWithCash)
}

func TestWarningEquityOutsideClosing(t *testing.T) {
	b := newBuilder()
	equity := b.account("50.10", ledger.NatureEquity)
	cash := b.account("10.10", ledger.NatureAsset)

	e := b.entry(debit(cash, "100.00"), credit(equity, "100.00"))
	warnings, err := CheckEntry(e, b.ctx())
	require.NoError(t, err)
	assert.Contains(t, Codes(warnings), CodeEquityOutsideClosing)

	e.Category = ledger.CategoryClosing
	warnings, err = CheckEntry(e, b.ctx())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestWarningManualAutomatedRoleEngineExempt(t *testing.T) {
	b := newBuilder()
	taxOutput := b.mapped(dictionary.RoleTaxOutput, "40.10", ledger.NatureLiability)
	receivables := b.mapped(dictionary.RoleReceivables, "12.10", ledger.NatureAsset)

	e := b.entry(debit(receivables, "18.00"), credit(taxOutput, "18.00"))
	e.Lines[1].DocumentRef = "F001-123"
	warnings, err := CheckEntry(e, b.ctx())
	require.NoError(t, err)
	assert.Contains(t, Codes(warnings), CodeManualAutomatedRole)

	e.Origin = ledger.OriginEngine
	warnings, err = CheckEntry(e, b.ctx())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestUnconfirmed(t *testing.T) {
	warnings := []Warning{
		{Code: "a", RequiresConfirmation: true},
		{Code: "b", RequiresConfirmation: false},
		{Code: "c", RequiresConfirmation: true},
	}
	assert.Equal(t, []string{"a", "c"}, Unconfirmed(warnings, nil))
	assert.Equal(t, []string{"c"}, Unconfirmed(warnings, []string{"a"}))
	assert.Empty(t, Unconfirmed(warnings, []string{"a", "c"}))
}
