package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/service/entry"
)

// Tx stages writes until Commit. Only one Tx runs at a time; Begin blocks
// until the previous transaction finishes, which is what the correlative
// generator relies on.
type Tx struct {
	s    *Store
	done bool

	newEntries     map[uuid.UUID]ledger.JournalEntry
	updatedEntries map[uuid.UUID]ledger.JournalEntry
	newPeriods     map[uuid.UUID]ledger.Period
}

// Begin starts a transaction.
func (s *Store) Begin(_ context.Context) (entry.Tx, error) {
	s.txmu.Lock()
	return &Tx{
		s:              s,
		newEntries:     make(map[uuid.UUID]ledger.JournalEntry),
		updatedEntries: make(map[uuid.UUID]ledger.JournalEntry),
		newPeriods:     make(map[uuid.UUID]ledger.Period),
	}, nil
}

func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return errs.ErrConflict
	}
	t.s.mu.Lock()
	for id, e := range t.newEntries {
		t.s.entries[id] = e
	}
	for id, e := range t.updatedEntries {
		t.s.entries[id] = e
	}
	for id, p := range t.newPeriods {
		t.s.periods[id] = p
	}
	t.s.mu.Unlock()
	t.done = true
	t.s.txmu.Unlock()
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.txmu.Unlock()
	return nil
}

// --- reads: staged writes shadow committed state ---

func (t *Tx) AccountsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.LedgerAccount, error) {
	return t.s.AccountsByIDs(ctx, tenantID, ids)
}

func (t *Tx) EventByType(ctx context.Context, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error) {
	return t.s.EventByType(ctx, tenantID, eventType)
}

func (t *Tx) RulesByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error) {
	return t.s.RulesByEvent(ctx, tenantID, eventID)
}

func (t *Tx) MappingsByTenant(ctx context.Context, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error) {
	return t.s.MappingsByTenant(ctx, tenantID)
}

func (t *Tx) EntryByID(_ context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	if e, ok := t.updatedEntries[entryID]; ok && e.TenantID == tenantID {
		e.Lines = e.CloneLines()
		return e, nil
	}
	if e, ok := t.newEntries[entryID]; ok && e.TenantID == tenantID {
		e.Lines = e.CloneLines()
		return e, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.entryByIDLocked(tenantID, entryID)
}

func (t *Tx) CreateEntry(_ context.Context, e ledger.JournalEntry) error {
	t.s.mu.RLock()
	_, exists := t.s.entries[e.ID]
	t.s.mu.RUnlock()
	if exists {
		return errs.ErrConflict
	}
	e.Lines = e.CloneLines()
	t.newEntries[e.ID] = e
	return nil
}

func (t *Tx) UpdateEntry(_ context.Context, e ledger.JournalEntry) error {
	if _, ok := t.newEntries[e.ID]; ok {
		e.Lines = e.CloneLines()
		t.newEntries[e.ID] = e
		return nil
	}
	t.s.mu.RLock()
	stored, exists := t.s.entries[e.ID]
	t.s.mu.RUnlock()
	if !exists || stored.TenantID != e.TenantID {
		return errs.ErrNotFound
	}
	e.Lines = e.CloneLines()
	t.updatedEntries[e.ID] = e
	return nil
}

// LockMaxCorrelative implements sequence.Locker. Transactions are fully
// serialized here, so observing the committed maximum plus anything this
// transaction already staged is equivalent to holding the series lock.
func (t *Tx) LockMaxCorrelative(_ context.Context, tenantID uuid.UUID, prefix string) (string, bool, error) {
	t.s.mu.RLock()
	max, ok := t.s.maxCorrelativeLocked(tenantID, prefix)
	t.s.mu.RUnlock()
	for _, e := range t.newEntries {
		if e.TenantID == tenantID && strings.HasPrefix(e.Correlative, prefix) && e.Correlative > max {
			max, ok = e.Correlative, true
		}
	}
	return max, ok, nil
}

// GetOrOpenPeriod implements period.Opener.
func (t *Tx) GetOrOpenPeriod(_ context.Context, tenantID uuid.UUID, year int, month int) (ledger.Period, error) {
	for _, p := range t.newPeriods {
		if p.TenantID == tenantID && p.Year == year && p.Month == month {
			return p, nil
		}
	}
	t.s.mu.RLock()
	for _, p := range t.s.periods {
		if p.TenantID == tenantID && p.Year == year && p.Month == month {
			t.s.mu.RUnlock()
			return p, nil
		}
	}
	t.s.mu.RUnlock()

	p := ledger.Period{
		ID:       uuid.New(),
		TenantID: tenantID,
		Year:     year,
		Month:    month,
		Status:   ledger.PeriodOpen,
	}
	t.newPeriods[p.ID] = p
	return p, nil
}
