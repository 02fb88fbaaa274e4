package memory

import (
	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/ledger"
)

// SeedEntry inserts an entry bypassing the lifecycle. Tests use it to stage
// pre-existing state.
func (s *Store) SeedEntry(e ledger.JournalEntry) {
	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()
}

// SeedDev loads a minimal working tenant: a small chart of accounts, the role
// mappings for it, and a SALE_INVOICE event with the standard three-rule set.
// Intended for local development only.
func (s *Store) SeedDev(tenantID uuid.UUID) {
	chart := []struct {
		code   string
		name   string
		nature ledger.Nature
		role   ledger.RoleTag
	}{
		{"10.10", "Cash on hand", ledger.NatureAsset, dictionary.RoleCash},
		{"10.20", "Bank current account", ledger.NatureAsset, dictionary.RoleBank},
		{"10.30", "Detraction deposits", ledger.NatureAsset, dictionary.RoleDetraction},
		{"12.10", "Trade receivables", ledger.NatureAsset, dictionary.RoleReceivables},
		{"40.10", "Sales tax payable", ledger.NatureLiability, dictionary.RoleTaxOutput},
		{"40.20", "Recoverable tax", ledger.NatureAsset, dictionary.RoleTaxInput},
		{"42.10", "Trade payables", ledger.NatureLiability, dictionary.RolePayables},
		{"60.10", "Purchases", ledger.NatureExpense, dictionary.RolePurchasesExpense},
		{"70.10", "Sales revenue", ledger.NatureIncome, dictionary.RoleSalesIncome},
	}
	for _, c := range chart {
		acc := ledger.LedgerAccount{
			ID:       uuid.New(),
			TenantID: tenantID,
			Code:     c.code,
			Name:     c.name,
			Nature:   c.nature,
			Active:   true,
		}
		s.SeedAccount(acc)
		s.SeedMapping(ledger.AccountTypeMapping{
			ID:        uuid.New(),
			TenantID:  tenantID,
			Role:      c.role,
			AccountID: acc.ID,
			Active:    true,
		})
	}

	for _, ev := range devEvents(tenantID) {
		s.SeedEvent(ev.event)
		for _, r := range ev.rules {
			r.ID = uuid.New()
			r.TenantID = tenantID
			r.EventID = ev.event.ID
			r.Active = true
			s.SeedRule(r)
		}
	}
}

type devEvent struct {
	event ledger.AccountingEvent
	rules []ledger.AccountingRule
}

// devEvents is the shared dev catalog: a sale, its purchase mirror and a
// cash collection against receivables.
func devEvents(tenantID uuid.UUID) []devEvent {
	return []devEvent{
		{
			event: ledger.AccountingEvent{
				ID: uuid.New(), TenantID: tenantID,
				Type: "SALE_INVOICE", Name: "Sale invoice",
				Category: ledger.CategorySale, Active: true,
			},
			rules: []ledger.AccountingRule{
				{Order: 1, Side: ledger.SideDebit, Role: dictionary.RoleReceivables, AmountKey: "total"},
				{Order: 2, Side: ledger.SideCredit, Role: dictionary.RoleSalesIncome, AmountKey: "base"},
				{Order: 3, Side: ledger.SideCredit, Role: dictionary.RoleTaxOutput, AmountKey: "tax", Guard: "tax > 0"},
			},
		},
		{
			event: ledger.AccountingEvent{
				ID: uuid.New(), TenantID: tenantID,
				Type: "PURCHASE_INVOICE", Name: "Purchase invoice",
				Category: ledger.CategoryPurchase, Active: true,
			},
			rules: []ledger.AccountingRule{
				{Order: 1, Side: ledger.SideDebit, Role: dictionary.RolePurchasesExpense, AmountKey: "base"},
				{Order: 2, Side: ledger.SideDebit, Role: dictionary.RoleTaxInput, AmountKey: "tax", Guard: "tax > 0"},
				{Order: 3, Side: ledger.SideCredit, Role: dictionary.RolePayables, AmountKey: "total"},
			},
		},
		{
			event: ledger.AccountingEvent{
				ID: uuid.New(), TenantID: tenantID,
				Type: "CASH_RECEIPT", Name: "Cash collection",
				Category: ledger.CategoryCash, Active: true,
			},
			rules: []ledger.AccountingRule{
				{Order: 1, Side: ledger.SideDebit, Role: dictionary.RoleCash, AmountKey: "amount"},
				{Order: 2, Side: ledger.SideCredit, Role: dictionary.RoleReceivables, AmountKey: "amount"},
			},
		},
	}
}
