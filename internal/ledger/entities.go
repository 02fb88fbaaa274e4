package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/meta"
	"github.com/openbooks/ledger/internal/trace"
)

// Side represents the accounting position of an entry line.
type Side string

const (
	// SideDebit records a value on the debit side of an account.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of an account.
	SideCredit Side = "credit"
)

// Nature enumerates the fixed side-of-equation classification of a ledger account.
type Nature string

const (
	// NatureAsset increases on the debit side and holds resources owned by the tenant.
	NatureAsset Nature = "asset"
	// NatureLiability increases on the credit side and tracks obligations.
	NatureLiability Nature = "liability"
	// NatureEquity captures the owner's residual interest in the entity.
	NatureEquity Nature = "equity"
	// NatureIncome represents inflows that increase equity.
	NatureIncome Nature = "income"
	// NatureExpense represents outflows that decrease equity.
	NatureExpense Nature = "expense"
)

// EventCategory groups accounting events by the posting logic they share.
// The category drives the correlative series and the invariant guards applied
// during rule evaluation.
type EventCategory string

const (
	CategoryGeneral  EventCategory = "general"
	CategorySale     EventCategory = "sale"
	CategoryPurchase EventCategory = "purchase"
	CategoryCash     EventCategory = "cash"
	CategoryPayroll  EventCategory = "payroll"
	CategoryClosing  EventCategory = "closing"
)

// RoleTag is an abstract, event-independent label resolved per tenant to one
// concrete ledger account through an AccountTypeMapping.
type RoleTag string

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	// StatusDraft entries are mutable and have no accounting effect.
	StatusDraft EntryStatus = "draft"
	// StatusPosted entries are immutable accounting fact.
	StatusPosted EntryStatus = "posted"
	// StatusReversed is terminal; a reversal entry mirror-cancels the original.
	StatusReversed EntryStatus = "reversed"
	// StatusVoided is terminal for administratively cancelled entries.
	StatusVoided EntryStatus = "voided"
)

// Origin records how a journal entry came to exist.
type Origin string

const (
	// OriginManual entries are keyed in by a user and start life as drafts.
	OriginManual Origin = "manual"
	// OriginEngine entries are produced by the rule engine and post directly.
	OriginEngine Origin = "engine"
)

// PeriodStatus gates whether entries in a period may be created or mutated.
type PeriodStatus string

const (
	PeriodOpen     PeriodStatus = "open"
	PeriodClosed   PeriodStatus = "closed"
	PeriodReopened PeriodStatus = "reopened"
)

// LedgerAccount is an account in a tenant's chart of accounts. Nature is
// immutable once movements exist; accounts are deactivated, never deleted,
// while referenced.
type LedgerAccount struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Code     string
	Name     string
	Nature   Nature
	Active   bool
}

// AccountingEvent defines what kind of operation can be posted for a tenant,
// e.g. "SALE" or "CASH_RECEIPT_TILL". The Type key is unique per tenant.
type AccountingEvent struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Type     string
	Name     string
	Category EventCategory
	Active   bool
}

// AccountingRule is one step of the ordered posting recipe for an event.
// AmountKey selects a numeric field from the operation payload; Guard is an
// optional boolean predicate over the payload (see the guard package).
type AccountingRule struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	EventID   uuid.UUID
	Order     int
	Side      Side
	Role      RoleTag
	AmountKey string
	Guard     string
	Config    meta.Metadata
	Active    bool
}

// AccountTypeMapping binds a role tag to one concrete account for a tenant.
// The role's expected nature is enforced when the mapping is written and again
// when the engine resolves it.
type AccountTypeMapping struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Role      RoleTag
	AccountID uuid.UUID
	Config    meta.Metadata
	Active    bool
}

// JournalEntry is the unit of double-entry record keeping. Lines are owned by
// the entry and are only mutable while the entry is a draft.
type JournalEntry struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Date         time.Time
	PeriodID     uuid.UUID
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Category     EventCategory
	Origin       Origin
	Status       EntryStatus
	Correlative  string
	// EngineMetadata is only populated on engine-generated entries.
	EngineMetadata *trace.Trace
	IntegrityHash  string
	// ReversedEntryID points at the reversal entry once this entry is reversed.
	ReversedEntryID *uuid.UUID
	// ReversesEntryID points back at the original on a reversal entry.
	ReversesEntryID *uuid.UUID

	CreatedBy  string
	CreatedAt  time.Time
	PostedBy   string
	PostedAt   *time.Time
	ReversedAt *time.Time
	VoidedAt   *time.Time

	Lines []EntryLine
}

// EntryLine carries one side of a movement. Exactly one of Debit/Credit is
// nonzero; both are quantized to two decimal places.
type EntryLine struct {
	ID           uuid.UUID
	EntryID      uuid.UUID
	AccountID    uuid.UUID
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Memo         string
	Counterparty string
	CostCenter   string
	// Reconciled marks the line as matched against an external record; such
	// lines block voiding the entry.
	Reconciled bool
	// DocumentRef links the line to an originating business document.
	DocumentRef string
}

// Period is the monthly gate for entry creation and mutation.
type Period struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Year     int
	Month    int
	Status   PeriodStatus
}

// Quantize rounds an amount to the fixed two-decimal scale used across the ledger.
func Quantize(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// BalanceTolerance is the maximum allowed |sum(debits) - sum(credits)| on a
// balanced entry, absorbing per-line rounding.
var BalanceTolerance = decimal.New(1, -2)

// Totals sums the entry's lines per side.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, ln := range e.Lines {
		debit = debit.Add(ln.Debit)
		credit = credit.Add(ln.Credit)
	}
	return debit, credit
}

// Balanced reports whether the entry's debits and credits agree within tolerance.
func (e JournalEntry) Balanced() bool {
	d, c := e.Totals()
	return d.Sub(c).Abs().LessThanOrEqual(BalanceTolerance)
}

// CloneLines returns a deep copy of the entry's lines.
func (e JournalEntry) CloneLines() []EntryLine {
	out := make([]EntryLine, len(e.Lines))
	copy(out, e.Lines)
	return out
}
