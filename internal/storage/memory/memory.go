// Package memory provides an in-memory store used for development and tests.
// Transactions are serialized on a single mutex: writes are staged on the Tx
// and applied atomically on Commit, which also makes the correlative lock
// trivially correct.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
)

// Store is the in-memory implementation of the service and engine
// persistence surfaces.
type Store struct {
	mu sync.RWMutex
	// txmu serializes transactions; only one Tx is live at a time.
	txmu sync.Mutex

	accounts map[uuid.UUID]ledger.LedgerAccount
	events   map[uuid.UUID]ledger.AccountingEvent
	rules    map[uuid.UUID]ledger.AccountingRule
	mappings map[uuid.UUID]ledger.AccountTypeMapping
	periods  map[uuid.UUID]ledger.Period
	entries  map[uuid.UUID]ledger.JournalEntry
	auditLog []audit.Event
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]ledger.LedgerAccount),
		events:   make(map[uuid.UUID]ledger.AccountingEvent),
		rules:    make(map[uuid.UUID]ledger.AccountingRule),
		mappings: make(map[uuid.UUID]ledger.AccountTypeMapping),
		periods:  make(map[uuid.UUID]ledger.Period),
		entries:  make(map[uuid.UUID]ledger.JournalEntry),
	}
}

// Seed helpers for local dev and tests.
func (s *Store) SeedAccount(a ledger.LedgerAccount) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
}

func (s *Store) SeedEvent(ev ledger.AccountingEvent) {
	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()
}

func (s *Store) SeedRule(r ledger.AccountingRule) {
	s.mu.Lock()
	s.rules[r.ID] = r
	s.mu.Unlock()
}

func (s *Store) SeedMapping(m ledger.AccountTypeMapping) {
	s.mu.Lock()
	s.mappings[m.ID] = m
	s.mu.Unlock()
}

func (s *Store) SeedPeriod(p ledger.Period) {
	s.mu.Lock()
	s.periods[p.ID] = p
	s.mu.Unlock()
}

// --- plain reads ---

func (s *Store) AccountsByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountsByIDsLocked(tenantID, ids), nil
}

func (s *Store) accountsByIDsLocked(tenantID uuid.UUID, ids []uuid.UUID) map[uuid.UUID]ledger.LedgerAccount {
	out := make(map[uuid.UUID]ledger.LedgerAccount, len(ids))
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok && acc.TenantID == tenantID {
			out[id] = acc
		}
	}
	return out
}

func (s *Store) AccountByID(_ context.Context, tenantID, accountID uuid.UUID) (ledger.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok || acc.TenantID != tenantID {
		return ledger.LedgerAccount{}, errs.ErrNotFound
	}
	return acc, nil
}

func (s *Store) EventByType(_ context.Context, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventByTypeLocked(tenantID, eventType)
}

func (s *Store) eventByTypeLocked(tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error) {
	for _, ev := range s.events {
		if ev.TenantID == tenantID && ev.Type == eventType {
			return ev, nil
		}
	}
	return ledger.AccountingEvent{}, errs.ErrNotFound
}

func (s *Store) EventsByTenant(_ context.Context, tenantID uuid.UUID) ([]ledger.AccountingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.AccountingEvent, 0)
	for _, ev := range s.events {
		if ev.TenantID == tenantID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) SaveEvent(_ context.Context, ev ledger.AccountingEvent) error {
	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()
	return nil
}

func (s *Store) RulesByEvent(_ context.Context, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rulesByEventLocked(tenantID, eventID), nil
}

func (s *Store) rulesByEventLocked(tenantID, eventID uuid.UUID) []ledger.AccountingRule {
	out := make([]ledger.AccountingRule, 0)
	for _, r := range s.rules {
		if r.TenantID == tenantID && r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *Store) RuleByID(_ context.Context, tenantID, ruleID uuid.UUID) (ledger.AccountingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID]
	if !ok || r.TenantID != tenantID {
		return ledger.AccountingRule{}, errs.ErrNotFound
	}
	return r, nil
}

func (s *Store) SaveRule(_ context.Context, r ledger.AccountingRule) error {
	s.mu.Lock()
	s.rules[r.ID] = r
	s.mu.Unlock()
	return nil
}

func (s *Store) MappingsByTenant(_ context.Context, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mappingsByTenantLocked(tenantID), nil
}

func (s *Store) mappingsByTenantLocked(tenantID uuid.UUID) map[ledger.RoleTag]ledger.AccountTypeMapping {
	out := make(map[ledger.RoleTag]ledger.AccountTypeMapping)
	for _, m := range s.mappings {
		if m.TenantID == tenantID {
			out[m.Role] = m
		}
	}
	return out
}

func (s *Store) SaveMapping(_ context.Context, m ledger.AccountTypeMapping) error {
	s.mu.Lock()
	s.mappings[m.ID] = m
	s.mu.Unlock()
	return nil
}

func (s *Store) EntryByID(_ context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entryByIDLocked(tenantID, entryID)
}

func (s *Store) entryByIDLocked(tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	e, ok := s.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	e.Lines = e.CloneLines()
	return e, nil
}

func (s *Store) EntriesByTenant(_ context.Context, tenantID uuid.UUID) ([]ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.JournalEntry, 0)
	for _, e := range s.entries {
		if e.TenantID == tenantID {
			e.Lines = e.CloneLines()
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Correlative < out[j].Correlative
	})
	return out, nil
}

// SaveAuditEvent implements audit.Sink.
func (s *Store) SaveAuditEvent(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	s.auditLog = append(s.auditLog, e)
	s.mu.Unlock()
	return nil
}

// AuditEvents returns a copy of the recorded audit trail.
func (s *Store) AuditEvents() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

// maxCorrelativeLocked scans committed entries for the highest correlative
// starting with prefix.
func (s *Store) maxCorrelativeLocked(tenantID uuid.UUID, prefix string) (string, bool) {
	max := ""
	for _, e := range s.entries {
		if e.TenantID != tenantID || !strings.HasPrefix(e.Correlative, prefix) {
			continue
		}
		if e.Correlative > max {
			max = e.Correlative
		}
	}
	return max, max != ""
}
