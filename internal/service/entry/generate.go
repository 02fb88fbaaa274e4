package entry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/digest"
	"github.com/openbooks/ledger/internal/engine"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/metrics"
)

// Generate evaluates a business event through the rule engine and persists the
// resulting entry directly as posted. Soft warnings raised by the generated
// lines are recorded in the trace rather than blocking, since the lines are
// derived from configured rules and not from operator input.
func (s *service) Generate(ctx context.Context, in GenerateInput) (ledger.JournalEntry, error) {
	if in.TenantID == uuid.Nil || in.EventType == "" {
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
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap, err := engine.LoadSnapshot(ctx, tx, in.TenantID, in.EventType)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(in.EventType, "error").Inc()
		return ledger.JournalEntry{}, err
	}
	res, err := engine.Evaluate(snap, in.Payload)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(in.EventType, "error").Inc()
		return ledger.JournalEntry{}, err
	}
	metrics.EvaluationsTotal.WithLabelValues(in.EventType, "ok").Inc()

	now := time.Now().UTC()
	tr := res.Trace
	e := ledger.JournalEntry{
		ID:             uuid.New(),
		TenantID:       in.TenantID,
		Date:           date.UTC(),
		Description:    in.Description,
		Currency:       currency,
		ExchangeRate:   fx,
		Category:       snap.Event.Category,
		Origin:         ledger.OriginEngine,
		Status:         ledger.StatusPosted,
		EngineMetadata: &tr,
		CreatedBy:      in.Actor,
		CreatedAt:      now,
		PostedBy:       in.Actor,
		PostedAt:       &now,
	}
	if e.Description == "" {
		e.Description = snap.Event.Name
	}
	for _, ln := range res.Lines {
		ln.ID = uuid.New()
		ln.EntryID = e.ID
		e.Lines = append(e.Lines, ln)
	}

	warnings, err := s.validateInTx(ctx, tx, &e)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	for _, w := range warnings {
		e.EngineMetadata.Warnings = append(e.EngineMetadata.Warnings, w.Code)
	}

	if err := s.resolvePeriod(ctx, tx, &e, in.Role); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := s.assignCorrelative(ctx, tx, &e); err != nil {
		return ledger.JournalEntry{}, err
	}
	e.IntegrityHash = digest.Compute(e)

	if err := tx.CreateEntry(ctx, e); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}

	metrics.EntriesTotal.WithLabelValues(string(e.Status), string(e.Origin)).Inc()
	s.rec.Log(audit.New(e.TenantID, "journal", "generate", e.ID, in.EventType+" -> "+e.Correlative, in.Actor, nil))
	return e, nil
}
