package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/ledger"
)

// SeedDev inserts a minimal working tenant for local development: a small
// chart of accounts, the role mappings for it, and a SALE_INVOICE event with
// the standard three-rule set. It returns the generated tenant id.
func (s *Store) SeedDev(ctx context.Context) (uuid.UUID, error) {
	tenantID := uuid.New()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

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
		accID := uuid.New()
		if _, err := tx.Exec(ctx, `
			insert into accounts (id, tenant_id, code, name, nature, active)
			values ($1,$2,$3,$4,$5,true)
		`, accID, tenantID, c.code, c.name, c.nature); err != nil {
			return uuid.Nil, err
		}
		if _, err := tx.Exec(ctx, `
			insert into account_type_mappings (id, tenant_id, role, account_id, config, active)
			values ($1,$2,$3,$4,null,true)
		`, uuid.New(), tenantID, c.role, accID); err != nil {
			return uuid.Nil, err
		}
	}

	type devRule struct {
		ord       int
		side      ledger.Side
		role      ledger.RoleTag
		amountKey string
		guard     string
	}
	events := []struct {
		typ      string
		name     string
		category ledger.EventCategory
		rules    []devRule
	}{
		{"SALE_INVOICE", "Sale invoice", ledger.CategorySale, []devRule{
			{1, ledger.SideDebit, dictionary.RoleReceivables, "total", ""},
			{2, ledger.SideCredit, dictionary.RoleSalesIncome, "base", ""},
			{3, ledger.SideCredit, dictionary.RoleTaxOutput, "tax", "tax > 0"},
		}},
		{"PURCHASE_INVOICE", "Purchase invoice", ledger.CategoryPurchase, []devRule{
			{1, ledger.SideDebit, dictionary.RolePurchasesExpense, "base", ""},
			{2, ledger.SideDebit, dictionary.RoleTaxInput, "tax", "tax > 0"},
			{3, ledger.SideCredit, dictionary.RolePayables, "total", ""},
		}},
		{"CASH_RECEIPT", "Cash collection", ledger.CategoryCash, []devRule{
			{1, ledger.SideDebit, dictionary.RoleCash, "amount", ""},
			{2, ledger.SideCredit, dictionary.RoleReceivables, "amount", ""},
		}},
	}
	for _, ev := range events {
		eventID := uuid.New()
		if _, err := tx.Exec(ctx, `
			insert into accounting_events (id, tenant_id, type, name, category, active)
			values ($1,$2,$3,$4,$5,true)
		`, eventID, tenantID, ev.typ, ev.name, ev.category); err != nil {
			return uuid.Nil, err
		}
		for _, r := range ev.rules {
			if _, err := tx.Exec(ctx, `
				insert into accounting_rules (id, tenant_id, event_id, ord, side, role, amount_key, guard, config, active)
				values ($1,$2,$3,$4,$5,$6,$7,$8,null,true)
			`, uuid.New(), tenantID, eventID, r.ord, r.side, r.role, r.amountKey, r.guard); err != nil {
				return uuid.Nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return tenantID, nil
}
