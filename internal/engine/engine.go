// Package engine turns abstract business events into balanced candidate line
// sets by evaluating a tenant's declarative posting rules. Evaluation is a pure
// function over an explicit configuration snapshot, so the same
// (snapshot, payload) pair always yields the same lines.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/dictionary"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/guard"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/trace"
)

// WithholdingKey is the payload field that triggers the withholding adjustment
// on sale-category events.
const WithholdingKey = "withholding"

// Repo is the read surface the snapshot loader needs. Implementations must
// read within the caller's transaction so the snapshot is internally
// consistent.
type Repo interface {
	EventByType(ctx context.Context, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error)
	RulesByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error)
	MappingsByTenant(ctx context.Context, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error)
	AccountsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.LedgerAccount, error)
}

// Snapshot is the active rule/mapping configuration an evaluation runs
// against, captured explicitly so a call can be reproduced in tests.
type Snapshot struct {
	Event    ledger.AccountingEvent
	Rules    []ledger.AccountingRule
	Mappings map[ledger.RoleTag]ledger.AccountTypeMapping
	Accounts map[uuid.UUID]ledger.LedgerAccount
}

// Result is the outcome of a successful evaluation.
type Result struct {
	Lines       []ledger.EntryLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Balanced    bool
	Trace       trace.Trace
}

// LoadSnapshot assembles the configuration snapshot for one (tenant, event)
// pair: the active event, its active rules ordered by rule order, every active
// mapping for the tenant, and the accounts those mappings resolve to.
func LoadSnapshot(ctx context.Context, repo Repo, tenantID uuid.UUID, eventType string) (Snapshot, error) {
	event, err := repo.EventByType(ctx, tenantID, eventType)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("event %q: %w", eventType, errs.ErrEventNotFound)
		}
		return Snapshot{}, err
	}
	if !event.Active {
		return Snapshot{}, fmt.Errorf("event %q inactive: %w", eventType, errs.ErrEventNotFound)
	}

	rules, err := repo.RulesByEvent(ctx, tenantID, event.ID)
	if err != nil {
		return Snapshot{}, err
	}
	active := make([]ledger.AccountingRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return Snapshot{}, fmt.Errorf("event %q: %w", eventType, errs.ErrNoActiveRules)
	}

	mappings, err := repo.MappingsByTenant(ctx, tenantID)
	if err != nil {
		return Snapshot{}, err
	}

	ids := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.AccountID)
	}
	accounts, err := repo.AccountsByIDs(ctx, tenantID, ids)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Event: event, Rules: active, Mappings: mappings, Accounts: accounts}, nil
}

// Evaluate runs the posting rules of the snapshot against the payload and
// returns a balanced candidate line set. Any failure aborts the whole
// evaluation; there are no partial results.
func Evaluate(snap Snapshot, payload Payload) (Result, error) {
	tr := trace.New(snap.Event.Type)
	env := guard.EnvFromPayload(payload)

	lines := make([]ledger.EntryLine, 0, len(snap.Rules))
	for _, rule := range snap.Rules {
		if rule.Guard != "" {
			expr, err := guard.Parse(rule.Guard)
			if err != nil {
				return Result{}, fmt.Errorf("rule %s: %w", rule.ID, err)
			}
			ok, err := expr.EvalBool(env)
			if err != nil {
				return Result{}, fmt.Errorf("rule %s guard %q: %w", rule.ID, expr.Source(), err)
			}
			if !ok {
				continue
			}
		}

		account, err := resolveRole(snap, rule.Role)
		if err != nil {
			return Result{}, err
		}

		amount, err := payload.Amount(rule.AmountKey)
		if err != nil {
			return Result{}, err
		}

		line := ledger.EntryLine{AccountID: account.ID, Debit: decimal.Zero, Credit: decimal.Zero}
		if rule.Side == ledger.SideDebit {
			line.Debit = amount
		} else {
			line.Credit = amount
		}
		lines = append(lines, line)
		tr.RuleIDs = append(tr.RuleIDs, rule.ID)
	}

	if len(lines) == 0 {
		return Result{}, fmt.Errorf("event %q: every rule guarded off: %w", snap.Event.Type, errs.ErrNoActiveRules)
	}

	lines, adjusted, err := applyWithholding(snap, payload, lines)
	if err != nil {
		return Result{}, err
	}
	if adjusted {
		tr.Adjustment = WithholdingKey
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, ln := range lines {
		totalDebit = totalDebit.Add(ln.Debit)
		totalCredit = totalCredit.Add(ln.Credit)
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(ledger.BalanceTolerance) {
		return Result{}, &errs.BalanceError{Debit: totalDebit, Credit: totalCredit}
	}

	return Result{
		Lines:       lines,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Balanced:    true,
		Trace:       tr,
	}, nil
}

// resolveRole applies the category invariant guard, resolves the role through
// the tenant's mappings, and re-checks the mapped account's nature and
// activity (second enforcement layer after mapping-write time).
func resolveRole(snap Snapshot, role ledger.RoleTag) (ledger.LedgerAccount, error) {
	if dictionary.RoleForbidden(snap.Event.Category, role) {
		return ledger.LedgerAccount{}, &errs.MappingError{
			Sentinel: errs.ErrInvalidMapping,
			Role:     string(role),
			Category: string(snap.Event.Category),
		}
	}

	m, ok := snap.Mappings[role]
	if !ok || !m.Active {
		return ledger.LedgerAccount{}, &errs.MappingError{Sentinel: errs.ErrAccountNotMapped, Role: string(role)}
	}
	account, ok := snap.Accounts[m.AccountID]
	if !ok {
		return ledger.LedgerAccount{}, &errs.MappingError{Sentinel: errs.ErrAccountNotMapped, Role: string(role)}
	}
	if !account.Active {
		return ledger.LedgerAccount{}, &errs.MappingError{
			Sentinel:    errs.ErrInactiveAccount,
			Role:        string(role),
			AccountCode: account.Code,
		}
	}
	if expected, ok := dictionary.ExpectedNature(role); ok && account.Nature != expected {
		return ledger.LedgerAccount{}, &errs.MappingError{
			Sentinel:       errs.ErrInvalidMapping,
			Role:           string(role),
			AccountCode:    account.Code,
			ExpectedNature: string(expected),
			ActualNature:   string(account.Nature),
		}
	}
	return account, nil
}

// applyWithholding is the engine's only sanctioned structural rewrite after
// base-rule evaluation: on sale-category events carrying a positive
// "withholding" amount, the receivables debit is reduced by that amount and a
// detraction-deposit debit line is inserted, preserving total balance.
func applyWithholding(snap Snapshot, payload Payload, lines []ledger.EntryLine) ([]ledger.EntryLine, bool, error) {
	if snap.Event.Category != ledger.CategorySale || !payload.Has(WithholdingKey) {
		return lines, false, nil
	}
	amount, err := payload.Amount(WithholdingKey)
	if err != nil {
		return nil, false, err
	}
	if !amount.IsPositive() {
		return lines, false, nil
	}

	receivables, err := resolveRole(snap, dictionary.RoleReceivables)
	if err != nil {
		return nil, false, err
	}
	deposit, err := resolveRole(snap, dictionary.RoleDetraction)
	if err != nil {
		return nil, false, err
	}

	for i := range lines {
		if lines[i].AccountID != receivables.ID || !lines[i].Debit.IsPositive() {
			continue
		}
		if amount.GreaterThanOrEqual(lines[i].Debit) {
			return nil, false, &errs.FieldError{
				Sentinel: errs.ErrInvalid,
				Field:    WithholdingKey,
				Detail:   fmt.Sprintf("withholding %s does not leave a positive receivable (line %s)", amount.StringFixed(2), lines[i].Debit.StringFixed(2)),
			}
		}
		lines[i].Debit = lines[i].Debit.Sub(amount)
		lines = append(lines, ledger.EntryLine{AccountID: deposit.ID, Debit: amount, Credit: decimal.Zero})
		return lines, true, nil
	}
	return nil, false, &errs.FieldError{
		Sentinel: errs.ErrInvalid,
		Field:    WithholdingKey,
		Detail:   "no receivables debit line to adjust",
	}
}
