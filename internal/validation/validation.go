// Package validation runs the two-tier checks applied before an entry is
// created and again before it posts. Hard errors block persistence; soft
// warnings carry stable codes and must be explicitly confirmed to post, but
// never block draft creation.
package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
)

// Warning codes are stable identifiers round-tripped through the confirmation
// flow on Post.
const (
	// CodeTaxWithCash: tax-role accounts mixed with cash/treasury accounts
	// without an originating document.
	CodeTaxWithCash = "tax_role_with_cash"
	// CodeEquityOutsideClosing: equity accounts touched outside a closing entry.
	CodeEquityOutsideClosing = "equity_outside_closing"
	// CodeManualAutomatedRole: manual entries touching engine-managed roles.
	CodeManualAutomatedRole = "manual_automated_role"
)

// Warning is a soft finding. RequiresConfirmation warnings abort Post unless
// their code is in the confirmed set.
type Warning struct {
	Code                 string
	Message              string
	RequiresConfirmation bool
}

// Context carries the reference data the checks resolve lines against.
type Context struct {
	Accounts map[uuid.UUID]ledger.LedgerAccount
	// RoleByAccount inverts the tenant's active mappings.
	RoleByAccount map[uuid.UUID]ledger.RoleTag
}

// NewContext builds a validation context from accounts and active mappings.
func NewContext(accounts map[uuid.UUID]ledger.LedgerAccount, mappings map[ledger.RoleTag]ledger.AccountTypeMapping) Context {
	roles := make(map[uuid.UUID]ledger.RoleTag, len(mappings))
	for role, m := range mappings {
		if m.Active {
			roles[m.AccountID] = role
		}
	}
	return Context{Accounts: accounts, RoleByAccount: roles}
}

// CheckEntry runs both tiers. The returned error is the first hard violation;
// warnings are only meaningful when the error is nil.
func CheckEntry(e ledger.JournalEntry, vc Context) ([]Warning, error) {
	if len(e.Lines) < 2 {
		return nil, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "lines", Detail: "at least 2 lines"}
	}

	for i, ln := range e.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if ln.AccountID == uuid.Nil {
			return nil, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: field, Detail: "account_id required"}
		}
		hasDebit := ln.Debit.IsPositive()
		hasCredit := ln.Credit.IsPositive()
		if ln.Debit.IsNegative() || ln.Credit.IsNegative() {
			return nil, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: field, Detail: "amounts must not be negative"}
		}
		if hasDebit == hasCredit {
			return nil, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: field, Detail: "exactly one of debit or credit must be set"}
		}
		if !ln.Debit.Equal(ledger.Quantize(ln.Debit)) || !ln.Credit.Equal(ledger.Quantize(ln.Credit)) {
			return nil, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: field, Detail: "amounts exceed 2 decimal places"}
		}

		account, ok := vc.Accounts[ln.AccountID]
		if !ok || account.TenantID != e.TenantID {
			return nil, &errs.FieldError{Sentinel: errs.ErrNotFound, Field: field, Detail: "account not found for tenant"}
		}
		if !account.Active {
			return nil, &errs.MappingError{Sentinel: errs.ErrInactiveAccount, AccountCode: account.Code}
		}

		// Tax-role accounts must sit on the side their nature accrues on.
		switch vc.RoleByAccount[ln.AccountID] {
		case dictionary.RoleTaxInput:
			if hasCredit {
				return nil, &errs.MappingError{
					Sentinel:    errs.ErrInvalidMapping,
					Role:        string(dictionary.RoleTaxInput),
					AccountCode: account.Code,
				}
			}
		case dictionary.RoleTaxOutput:
			if hasDebit {
				return nil, &errs.MappingError{
					Sentinel:    errs.ErrInvalidMapping,
					Role:        string(dictionary.RoleTaxOutput),
					AccountCode: account.Code,
				}
			}
		}
	}

	if !e.Balanced() {
		d, c := e.Totals()
		return nil, &errs.BalanceError{Debit: d, Credit: c}
	}

	return collectWarnings(e, vc), nil
}

// collectWarnings runs the soft tier over an entry that already passed the
// hard checks.
func collectWarnings(e ledger.JournalEntry, vc Context) []Warning {
	var warnings []Warning

	var taxUndocumented, treasury, equity, automated bool
	for _, ln := range e.Lines {
		role := vc.RoleByAccount[ln.AccountID]
		switch role {
		case dictionary.RoleTaxInput, dictionary.RoleTaxOutput:
			if ln.DocumentRef == "" {
				taxUndocumented = true
			}
		}
		if dictionary.IsTreasury(role) {
			treasury = true
		}
		if dictionary.IsAutomated(role) {
			automated = true
		}
		if vc.Accounts[ln.AccountID].Nature == ledger.NatureEquity {
			equity = true
		}
	}

	if taxUndocumented && treasury {
		warnings = append(warnings, Warning{
			Code:                 CodeTaxWithCash,
			Message:              "tax accounts mixed with treasury accounts without an originating document",
			RequiresConfirmation: true,
		})
	}
	if equity && e.Category != ledger.CategoryClosing {
		warnings = append(warnings, Warning{
			Code:                 CodeEquityOutsideClosing,
			Message:              "equity accounts touched outside a closing entry",
			RequiresConfirmation: true,
		})
	}
	if automated && e.Origin == ledger.OriginManual {
		warnings = append(warnings, Warning{
			Code:                 CodeManualAutomatedRole,
			Message:              "manual entry touches automatically managed roles",
			RequiresConfirmation: true,
		})
	}
	return warnings
}

// Unconfirmed returns the confirmation-requiring warning codes not present in
// the confirmed set.
func Unconfirmed(warnings []Warning, confirmed []string) []string {
	set := make(map[string]struct{}, len(confirmed))
	for _, c := range confirmed {
		set[c] = struct{}{}
	}
	var missing []string
	for _, w := range warnings {
		if !w.RequiresConfirmation {
			continue
		}
		if _, ok := set[w.Code]; !ok {
			missing = append(missing, w.Code)
		}
	}
	return missing
}

// Codes projects warnings onto their codes, preserving order.
func Codes(warnings []Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Code)
	}
	return out
}
