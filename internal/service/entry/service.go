// Package entry implements the journal entry lifecycle: drafts, posting,
// reversal, voiding and integrity verification. Every public operation runs
// inside one store transaction; on any error the transaction rolls back and no
// partial entry, line set or correlative survives.
package entry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/digest"
	"github.com/openbooks/ledger/internal/engine"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/metrics"
	"github.com/openbooks/ledger/internal/period"
	"github.com/openbooks/ledger/internal/sequence"
	"github.com/openbooks/ledger/internal/validation"
)

// Tx is one store transaction. It satisfies the read surface of the engine,
// the sequence generator's locker, and the period opener, so a whole lifecycle
// operation sees a single consistent snapshot.
type Tx interface {
	engine.Repo
	sequence.Locker
	period.Opener

	EntryByID(ctx context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error)
	CreateEntry(ctx context.Context, e ledger.JournalEntry) error
	UpdateEntry(ctx context.Context, e ledger.JournalEntry) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store begins transactions and serves plain reads.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	EntryByID(ctx context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error)
	EntriesByTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.JournalEntry, error)
}

// LineInput is one line of a manual entry.
type LineInput struct {
	AccountID    uuid.UUID
	Side         ledger.Side
	Amount       decimal.Decimal
	Memo         string
	Counterparty string
	CostCenter   string
	DocumentRef  string
}

// CreateInput describes a manual draft.
type CreateInput struct {
	TenantID     uuid.UUID
	Date         time.Time
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Category     ledger.EventCategory
	Lines        []LineInput
	Actor        string
	Role         period.Role
}

// UpdateInput replaces the mutable content of a draft. The new date must stay
// within the draft's original month so its correlative series is preserved.
type UpdateInput struct {
	TenantID    uuid.UUID
	EntryID     uuid.UUID
	Date        time.Time
	Description string
	Lines       []LineInput
	Actor       string
	Role        period.Role
}

// PostInput flips a draft to posted. Confirmed lists the warning codes the
// caller has explicitly acknowledged.
type PostInput struct {
	TenantID  uuid.UUID
	EntryID   uuid.UUID
	Confirmed []string
	Actor     string
	Role      period.Role
}

// ReverseInput creates the mirror entry for a posted original.
type ReverseInput struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
	Date     time.Time
	Reason   string
	Actor    string
	Role     period.Role
}

// VoidInput administratively cancels a posted entry.
type VoidInput struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
	Actor    string
}

// ReactivateInput undoes a void.
type ReactivateInput struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
	Actor    string
}

// GenerateInput evaluates a business event and posts the resulting entry.
type GenerateInput struct {
	TenantID     uuid.UUID
	EventType    string
	Date         time.Time
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Payload      engine.Payload
	Actor        string
	Role         period.Role
}

// Service exposes the entry lifecycle.
type Service interface {
	CreateDraft(ctx context.Context, in CreateInput) (ledger.JournalEntry, []validation.Warning, error)
	Update(ctx context.Context, in UpdateInput) (ledger.JournalEntry, []validation.Warning, error)
	Post(ctx context.Context, in PostInput) (ledger.JournalEntry, error)
	Reverse(ctx context.Context, in ReverseInput) (ledger.JournalEntry, error)
	Void(ctx context.Context, in VoidInput) (ledger.JournalEntry, error)
	Reactivate(ctx context.Context, in ReactivateInput) (ledger.JournalEntry, error)
	Generate(ctx context.Context, in GenerateInput) (ledger.JournalEntry, error)
	Verify(ctx context.Context, tenantID, entryID uuid.UUID) (bool, error)
	Get(ctx context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]ledger.JournalEntry, error)
}

type service struct {
	store Store
	rec   audit.Recorder
	log   *slog.Logger
}

// New constructs the lifecycle service.
func New(store Store, rec audit.Recorder, logger *slog.Logger) Service {
	return &service{store: store, rec: rec, log: logger}
}

func (s *service) CreateDraft(ctx context.Context, in CreateInput) (ledger.JournalEntry, []validation.Warning, error) {
	e, err := buildManualEntry(in)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	warnings, err := s.validateInTx(ctx, tx, &e)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	if err := s.resolvePeriod(ctx, tx, &e, in.Role); err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	if err := s.assignCorrelative(ctx, tx, &e); err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	e.IntegrityHash = digest.Compute(e)

	if err := tx.CreateEntry(ctx, e); err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, nil, err
	}

	metrics.EntriesTotal.WithLabelValues(string(e.Status), string(e.Origin)).Inc()
	s.rec.Log(audit.New(e.TenantID, "journal", "create_draft", e.ID, "draft "+e.Correlative, in.Actor, nil))
	return e, warnings, nil
}

func (s *service) Update(ctx context.Context, in UpdateInput) (ledger.JournalEntry, []validation.Warning, error) {
	if in.TenantID == uuid.Nil || in.EntryID == uuid.Nil {
		return ledger.JournalEntry{}, nil, errs.ErrInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := tx.EntryByID(ctx, in.TenantID, in.EntryID)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	if e.Status != ledger.StatusDraft {
		return ledger.JournalEntry{}, nil, fmt.Errorf("entry %s is %s: %w", e.Correlative, e.Status, errs.ErrImmutableEntry)
	}
	if !in.Date.IsZero() {
		if in.Date.Year() != e.Date.Year() || in.Date.Month() != e.Date.Month() {
			return ledger.JournalEntry{}, nil, &errs.FieldError{
				Sentinel: errs.ErrInvalid, Field: "date",
				Detail: "a draft cannot move to another month; create a new draft instead",
			}
		}
		e.Date = in.Date
	}
	if in.Description != "" {
		e.Description = in.Description
	}
	if in.Lines != nil {
		e.Lines = buildLines(e.ID, in.Lines)
	}

	warnings, err := s.validateInTx(ctx, tx, &e)
	if err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	if err := s.resolvePeriod(ctx, tx, &e, in.Role); err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	e.IntegrityHash = digest.Compute(e)

	if err := tx.UpdateEntry(ctx, e); err != nil {
		return ledger.JournalEntry{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, nil, err
	}

	s.rec.Log(audit.New(e.TenantID, "journal", "update_draft", e.ID, "updated draft "+e.Correlative, in.Actor, nil))
	return e, warnings, nil
}

func (s *service) Verify(ctx context.Context, tenantID, entryID uuid.UUID) (bool, error) {
	e, err := s.store.EntryByID(ctx, tenantID, entryID)
	if err != nil {
		return false, err
	}
	ok := digest.Verify(e)
	if !ok {
		s.log.Warn("integrity digest mismatch", "tenant_id", tenantID, "entry_id", entryID, "correlative", e.Correlative)
	}
	return ok, nil
}

func (s *service) Get(ctx context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil || entryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}
	return s.store.EntryByID(ctx, tenantID, entryID)
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID) ([]ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.store.EntriesByTenant(ctx, tenantID)
}

// --- shared helpers ---

func buildManualEntry(in CreateInput) (ledger.JournalEntry, error) {
	if in.TenantID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}
	currency, err := ledger.ParseCurrency(in.Currency)
	if err != nil {
		return ledger.JournalEntry{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "currency", Detail: in.Currency}
	}
	fx := in.ExchangeRate
	if fx.IsZero() {
		fx = decimal.NewFromInt(1)
	}
	if fx.IsNegative() {
		return ledger.JournalEntry{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "exchange_rate", Detail: fx.String()}
	}
	cat := in.Category
	if cat == "" {
		cat = ledger.CategoryGeneral
	}
	date := in.Date
	if date.IsZero() {
		return ledger.JournalEntry{}, &errs.FieldError{Sentinel: errs.ErrInvalid, Field: "date", Detail: "required"}
	}

	id := uuid.New()
	return ledger.JournalEntry{
		ID:           id,
		TenantID:     in.TenantID,
		Date:         date.UTC(),
		Description:  in.Description,
		Currency:     currency,
		ExchangeRate: fx,
		Category:     cat,
		Origin:       ledger.OriginManual,
		Status:       ledger.StatusDraft,
		CreatedBy:    in.Actor,
		CreatedAt:    time.Now().UTC(),
		Lines:        buildLines(id, in.Lines),
	}, nil
}

func buildLines(entryID uuid.UUID, in []LineInput) []ledger.EntryLine {
	lines := make([]ledger.EntryLine, 0, len(in))
	for _, li := range in {
		ln := ledger.EntryLine{
			ID:           uuid.New(),
			EntryID:      entryID,
			AccountID:    li.AccountID,
			Debit:        decimal.Zero,
			Credit:       decimal.Zero,
			Memo:         li.Memo,
			Counterparty: li.Counterparty,
			CostCenter:   li.CostCenter,
			DocumentRef:  li.DocumentRef,
		}
		if li.Side == ledger.SideDebit {
			ln.Debit = ledger.Quantize(li.Amount)
		} else {
			ln.Credit = ledger.Quantize(li.Amount)
		}
		lines = append(lines, ln)
	}
	return lines
}

// validateInTx loads the reference data the entry touches and runs both
// validation tiers.
func (s *service) validateInTx(ctx context.Context, tx Tx, e *ledger.JournalEntry) ([]validation.Warning, error) {
	ids := make([]uuid.UUID, 0, len(e.Lines))
	for _, ln := range e.Lines {
		ids = append(ids, ln.AccountID)
	}
	accounts, err := tx.AccountsByIDs(ctx, e.TenantID, ids)
	if err != nil {
		return nil, err
	}
	mappings, err := tx.MappingsByTenant(ctx, e.TenantID)
	if err != nil {
		return nil, err
	}
	return validation.CheckEntry(*e, validation.NewContext(accounts, mappings))
}

func (s *service) resolvePeriod(ctx context.Context, tx Tx, e *ledger.JournalEntry, role period.Role) error {
	p, err := period.GetOrOpen(ctx, tx, e.TenantID, e.Date)
	if err != nil {
		return err
	}
	if !period.IsOpenFor(p, role) {
		return fmt.Errorf("period %04d-%02d is %s: %w", p.Year, p.Month, p.Status, errs.ErrPeriodClosed)
	}
	e.PeriodID = p.ID
	return nil
}

func (s *service) assignCorrelative(ctx context.Context, tx Tx, e *ledger.JournalEntry) error {
	start := time.Now()
	correlative, err := sequence.Next(ctx, tx, e.TenantID, e.Category, e.Date)
	metrics.SequenceNextSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	e.Correlative = correlative
	return nil
}
