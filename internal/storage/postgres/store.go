// Package postgres provides the pgx-backed store. Migrations that create the
// expected schema live under db/migrations; this package maps between the
// domain entities and SQL rows and runs the necessary statements and
// transactions. Amounts travel as text to keep decimal values exact.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/meta"
	"github.com/openbooks/ledger/internal/service/entry"
)

// querier is the subset of pgx shared by pools and transactions, so the row
// mapping helpers work in both contexts.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Begin starts a database transaction for a lifecycle operation.
func (s *Store) Begin(ctx context.Context) (entry.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// --- accounts ---

func (s *Store) AccountsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.LedgerAccount, error) {
	return accountsByIDs(ctx, s.pool, tenantID, ids)
}

func accountsByIDs(ctx context.Context, q querier, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.LedgerAccount, error) {
	out := make(map[uuid.UUID]ledger.LedgerAccount, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `
		select id, tenant_id, code, name, nature, active
		from accounts
		where tenant_id = $1 and id = any($2)
	`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a ledger.LedgerAccount
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Nature, &a.Active); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (s *Store) AccountByID(ctx context.Context, tenantID, accountID uuid.UUID) (ledger.LedgerAccount, error) {
	var a ledger.LedgerAccount
	err := s.pool.QueryRow(ctx, `
		select id, tenant_id, code, name, nature, active
		from accounts
		where id = $1 and tenant_id = $2
	`, accountID, tenantID).Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Nature, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.LedgerAccount{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.LedgerAccount{}, err
	}
	return a, nil
}

// SaveAccount upserts an account row.
func (s *Store) SaveAccount(ctx context.Context, a ledger.LedgerAccount) error {
	_, err := s.pool.Exec(ctx, `
		insert into accounts (id, tenant_id, code, name, nature, active)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (id) do update set code=$3, name=$4, nature=$5, active=$6
	`, a.ID, a.TenantID, a.Code, a.Name, a.Nature, a.Active)
	return err
}

// --- events and rules ---

func (s *Store) EventByType(ctx context.Context, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error) {
	return eventByType(ctx, s.pool, tenantID, eventType)
}

func eventByType(ctx context.Context, q querier, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error) {
	var ev ledger.AccountingEvent
	err := q.QueryRow(ctx, `
		select id, tenant_id, type, name, category, active
		from accounting_events
		where tenant_id = $1 and type = $2
	`, tenantID, eventType).Scan(&ev.ID, &ev.TenantID, &ev.Type, &ev.Name, &ev.Category, &ev.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.AccountingEvent{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.AccountingEvent{}, err
	}
	return ev, nil
}

func (s *Store) EventsByTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingEvent, error) {
	rows, err := s.pool.Query(ctx, `
		select id, tenant_id, type, name, category, active
		from accounting_events
		where tenant_id = $1
		order by type
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.AccountingEvent, 0)
	for rows.Next() {
		var ev ledger.AccountingEvent
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.Type, &ev.Name, &ev.Category, &ev.Active); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) SaveEvent(ctx context.Context, ev ledger.AccountingEvent) error {
	_, err := s.pool.Exec(ctx, `
		insert into accounting_events (id, tenant_id, type, name, category, active)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (id) do update set name=$4, active=$6
	`, ev.ID, ev.TenantID, ev.Type, ev.Name, ev.Category, ev.Active)
	return err
}

func (s *Store) RulesByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error) {
	return rulesByEvent(ctx, s.pool, tenantID, eventID)
}

func rulesByEvent(ctx context.Context, q querier, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error) {
	rows, err := q.Query(ctx, `
		select id, tenant_id, event_id, ord, side, role, amount_key, guard, config, active
		from accounting_rules
		where tenant_id = $1 and event_id = $2
		order by ord
	`, tenantID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.AccountingRule, 0)
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRule(row pgx.Row) (ledger.AccountingRule, error) {
	var r ledger.AccountingRule
	var cfgBytes []byte
	if err := row.Scan(&r.ID, &r.TenantID, &r.EventID, &r.Order, &r.Side, &r.Role, &r.AmountKey, &r.Guard, &cfgBytes, &r.Active); err != nil {
		return ledger.AccountingRule{}, err
	}
	if len(cfgBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(cfgBytes); err == nil {
			r.Config = m
		}
	}
	return r, nil
}

func (s *Store) RuleByID(ctx context.Context, tenantID, ruleID uuid.UUID) (ledger.AccountingRule, error) {
	r, err := scanRule(s.pool.QueryRow(ctx, `
		select id, tenant_id, event_id, ord, side, role, amount_key, guard, config, active
		from accounting_rules
		where id = $1 and tenant_id = $2
	`, ruleID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.AccountingRule{}, errs.ErrNotFound
	}
	return r, err
}

func (s *Store) SaveRule(ctx context.Context, r ledger.AccountingRule) error {
	cfg, _ := r.Config.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into accounting_rules (id, tenant_id, event_id, ord, side, role, amount_key, guard, config, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		on conflict (id) do update set ord=$4, side=$5, role=$6, amount_key=$7, guard=$8, config=$9, active=$10
	`, r.ID, r.TenantID, r.EventID, r.Order, r.Side, r.Role, r.AmountKey, r.Guard, cfg, r.Active)
	return err
}

// --- mappings ---

func (s *Store) MappingsByTenant(ctx context.Context, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error) {
	return mappingsByTenant(ctx, s.pool, tenantID)
}

func mappingsByTenant(ctx context.Context, q querier, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error) {
	rows, err := q.Query(ctx, `
		select id, tenant_id, role, account_id, config, active
		from account_type_mappings
		where tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[ledger.RoleTag]ledger.AccountTypeMapping)
	for rows.Next() {
		var m ledger.AccountTypeMapping
		var cfgBytes []byte
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Role, &m.AccountID, &cfgBytes, &m.Active); err != nil {
			return nil, err
		}
		if len(cfgBytes) > 0 {
			var md meta.Metadata
			if err := md.UnmarshalJSON(cfgBytes); err == nil {
				m.Config = md
			}
		}
		out[m.Role] = m
	}
	return out, rows.Err()
}

func (s *Store) SaveMapping(ctx context.Context, m ledger.AccountTypeMapping) error {
	cfg, _ := m.Config.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into account_type_mappings (id, tenant_id, role, account_id, config, active)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (id) do update set account_id=$4, config=$5, active=$6
	`, m.ID, m.TenantID, m.Role, m.AccountID, cfg, m.Active)
	return err
}

// --- entries ---

func (s *Store) EntryByID(ctx context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	return entryByID(ctx, s.pool, tenantID, entryID)
}

func (s *Store) EntriesByTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, entrySelect+`
		where tenant_id = $1
		order by date asc, correlative asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]ledger.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		lines, err := linesByEntry(ctx, s.pool, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

// --- audit ---

// SaveAuditEvent implements audit.Sink.
func (s *Store) SaveAuditEvent(ctx context.Context, e audit.Event) error {
	md, _ := e.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into audit_events (id, tenant_id, module, action, entity_id, summary, metadata, actor, at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.TenantID, e.Module, e.Action, e.EntityID, e.Summary, md, e.Actor, e.At)
	return err
}

// decimalText renders a decimal for a numeric column.
func decimalText(d decimal.Decimal) string { return d.String() }
