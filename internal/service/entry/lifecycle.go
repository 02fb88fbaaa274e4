package entry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/digest"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/metrics"
	"github.com/openbooks/ledger/internal/validation"
)

func (s *service) Post(ctx context.Context, in PostInput) (ledger.JournalEntry, error) {
	if in.TenantID == uuid.Nil || in.EntryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := tx.EntryByID(ctx, in.TenantID, in.EntryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if e.Status != ledger.StatusDraft {
		return ledger.JournalEntry{}, fmt.Errorf("entry %s is %s: %w", e.Correlative, e.Status, errs.ErrImmutableEntry)
	}

	// Reference data may have changed since the draft was created, so the
	// whole check runs again against the current chart and mappings.
	warnings, err := s.validateInTx(ctx, tx, &e)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if missing := validation.Unconfirmed(warnings, in.Confirmed); len(missing) > 0 {
		return ledger.JournalEntry{}, &errs.ConfirmationError{Codes: missing}
	}
	if err := s.resolvePeriod(ctx, tx, &e, in.Role); err != nil {
		return ledger.JournalEntry{}, err
	}

	now := time.Now().UTC()
	e.Status = ledger.StatusPosted
	e.PostedBy = in.Actor
	e.PostedAt = &now
	e.IntegrityHash = digest.Compute(e)

	if err := tx.UpdateEntry(ctx, e); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}

	metrics.EntriesTotal.WithLabelValues(string(e.Status), string(e.Origin)).Inc()
	s.rec.Log(audit.New(e.TenantID, "journal", "post", e.ID, "posted "+e.Correlative, in.Actor, nil))
	return e, nil
}

// Reverse creates the mirror of a posted entry and marks the original
// reversed. The reversal is born posted; it never passes through draft.
func (s *service) Reverse(ctx context.Context, in ReverseInput) (ledger.JournalEntry, error) {
	if in.TenantID == uuid.Nil || in.EntryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orig, err := tx.EntryByID(ctx, in.TenantID, in.EntryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if orig.ReversedEntryID != nil || orig.Status == ledger.StatusReversed {
		return ledger.JournalEntry{}, fmt.Errorf("entry %s: %w", orig.Correlative, errs.ErrAlreadyReversed)
	}
	if orig.Status != ledger.StatusPosted {
		return ledger.JournalEntry{}, fmt.Errorf("cannot reverse a %s entry: %w", orig.Status, errs.ErrInvalid)
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	desc := "reversal of " + orig.Correlative
	if in.Reason != "" {
		desc += ": " + in.Reason
	}

	now := time.Now().UTC()
	rev := ledger.JournalEntry{
		ID:              uuid.New(),
		TenantID:        orig.TenantID,
		Date:            date.UTC(),
		Description:     desc,
		Currency:        orig.Currency,
		ExchangeRate:    orig.ExchangeRate,
		Category:        orig.Category,
		Origin:          orig.Origin,
		Status:          ledger.StatusPosted,
		ReversesEntryID: &orig.ID,
		CreatedBy:       in.Actor,
		CreatedAt:       now,
		PostedBy:        in.Actor,
		PostedAt:        &now,
	}
	for _, ln := range orig.Lines {
		rev.Lines = append(rev.Lines, ledger.EntryLine{
			ID:           uuid.New(),
			EntryID:      rev.ID,
			AccountID:    ln.AccountID,
			Debit:        ln.Credit,
			Credit:       ln.Debit,
			Memo:         ln.Memo,
			Counterparty: ln.Counterparty,
			CostCenter:   ln.CostCenter,
		})
	}

	if err := s.resolvePeriod(ctx, tx, &rev, in.Role); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := s.assignCorrelative(ctx, tx, &rev); err != nil {
		return ledger.JournalEntry{}, err
	}
	rev.IntegrityHash = digest.Compute(rev)

	orig.Status = ledger.StatusReversed
	orig.ReversedEntryID = &rev.ID
	orig.ReversedAt = &now
	orig.IntegrityHash = digest.Compute(orig)

	if err := tx.CreateEntry(ctx, rev); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.UpdateEntry(ctx, orig); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}

	metrics.EntriesTotal.WithLabelValues(string(rev.Status), string(rev.Origin)).Inc()
	metrics.EntriesTotal.WithLabelValues(string(orig.Status), string(orig.Origin)).Inc()
	s.rec.Log(audit.New(orig.TenantID, "journal", "reverse", orig.ID, orig.Correlative+" reversed by "+rev.Correlative, in.Actor, nil))
	return rev, nil
}

func (s *service) Void(ctx context.Context, in VoidInput) (ledger.JournalEntry, error) {
	if in.TenantID == uuid.Nil || in.EntryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := tx.EntryByID(ctx, in.TenantID, in.EntryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if e.Status != ledger.StatusPosted {
		return ledger.JournalEntry{}, fmt.Errorf("cannot void a %s entry: %w", e.Status, errs.ErrInvalid)
	}
	if e.ReversedEntryID != nil {
		return ledger.JournalEntry{}, fmt.Errorf("entry %s: %w", e.Correlative, errs.ErrAlreadyReversed)
	}
	for _, ln := range e.Lines {
		if ln.Reconciled || ln.DocumentRef != "" {
			return ledger.JournalEntry{}, fmt.Errorf("line %s is tied to an external record: %w", ln.ID, errs.ErrDependentDocument)
		}
	}

	now := time.Now().UTC()
	e.Status = ledger.StatusVoided
	e.VoidedAt = &now
	e.IntegrityHash = digest.Compute(e)

	if err := tx.UpdateEntry(ctx, e); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}

	metrics.EntriesTotal.WithLabelValues(string(e.Status), string(e.Origin)).Inc()
	s.rec.Log(audit.New(e.TenantID, "journal", "void", e.ID, "voided "+e.Correlative, in.Actor, nil))
	return e, nil
}

// Reactivate returns a voided entry to posted. The content was already
// validated when the entry was first posted and has not changed since, so the
// checks do not run again.
func (s *service) Reactivate(ctx context.Context, in ReactivateInput) (ledger.JournalEntry, error) {
	if in.TenantID == uuid.Nil || in.EntryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	e, err := tx.EntryByID(ctx, in.TenantID, in.EntryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if e.Status != ledger.StatusVoided {
		return ledger.JournalEntry{}, fmt.Errorf("cannot reactivate a %s entry: %w", e.Status, errs.ErrInvalid)
	}

	e.Status = ledger.StatusPosted
	e.VoidedAt = nil
	e.IntegrityHash = digest.Compute(e)

	if err := tx.UpdateEntry(ctx, e); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}

	metrics.EntriesTotal.WithLabelValues(string(e.Status), string(e.Origin)).Inc()
	s.rec.Log(audit.New(e.TenantID, "journal", "reactivate", e.ID, "reactivated "+e.Correlative, in.Actor, nil))
	return e, nil
}
