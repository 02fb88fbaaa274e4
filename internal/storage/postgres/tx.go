package postgres

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openbooks/ledger/internal/ledger"
)

// Tx wraps a pgx.Tx with the read and write surface of a lifecycle operation.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func (t *Tx) AccountsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.LedgerAccount, error) {
	return accountsByIDs(ctx, t.tx, tenantID, ids)
}

func (t *Tx) EventByType(ctx context.Context, tenantID uuid.UUID, eventType string) (ledger.AccountingEvent, error) {
	return eventByType(ctx, t.tx, tenantID, eventType)
}

func (t *Tx) RulesByEvent(ctx context.Context, tenantID, eventID uuid.UUID) ([]ledger.AccountingRule, error) {
	return rulesByEvent(ctx, t.tx, tenantID, eventID)
}

func (t *Tx) MappingsByTenant(ctx context.Context, tenantID uuid.UUID) (map[ledger.RoleTag]ledger.AccountTypeMapping, error) {
	return mappingsByTenant(ctx, t.tx, tenantID)
}

func (t *Tx) EntryByID(ctx context.Context, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	return entryByID(ctx, t.tx, tenantID, entryID)
}

func (t *Tx) CreateEntry(ctx context.Context, e ledger.JournalEntry) error {
	return insertEntry(ctx, t.tx, e)
}

func (t *Tx) UpdateEntry(ctx context.Context, e ledger.JournalEntry) error {
	return updateEntry(ctx, t.tx, e)
}

// LockMaxCorrelative implements sequence.Locker. A transaction-scoped
// advisory lock keyed on (tenant, series prefix) serializes every writer of
// the series, including the first insert of a fresh month, so the maximum
// read below stays the maximum until this transaction commits. The unique
// index on (tenant_id, correlative) remains as a schema-level backstop.
func (t *Tx) LockMaxCorrelative(ctx context.Context, tenantID uuid.UUID, prefix string) (string, bool, error) {
	if _, err := t.tx.Exec(ctx, `select pg_advisory_xact_lock($1)`, seriesLockKey(tenantID, prefix)); err != nil {
		return "", false, err
	}
	var max string
	err := t.tx.QueryRow(ctx, `
		select correlative from journal_entries
		where tenant_id = $1 and correlative like $2 || '%'
		order by correlative desc
		limit 1
	`, tenantID, prefix).Scan(&max)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return max, true, nil
}

// seriesLockKey folds (tenant, series prefix) into the bigint key space of
// postgres advisory locks.
func seriesLockKey(tenantID uuid.UUID, prefix string) int64 {
	h := fnv.New64a()
	h.Write(tenantID[:])
	h.Write([]byte(prefix))
	return int64(h.Sum64())
}

// GetOrOpenPeriod implements period.Opener via insert-on-conflict, so two
// transactions touching a fresh month converge on one row.
func (t *Tx) GetOrOpenPeriod(ctx context.Context, tenantID uuid.UUID, year int, month int) (ledger.Period, error) {
	if _, err := t.tx.Exec(ctx, `
		insert into periods (id, tenant_id, year, month, status)
		values ($1,$2,$3,$4,$5)
		on conflict (tenant_id, year, month) do nothing
	`, uuid.New(), tenantID, year, month, ledger.PeriodOpen); err != nil {
		return ledger.Period{}, err
	}
	var p ledger.Period
	err := t.tx.QueryRow(ctx, `
		select id, tenant_id, year, month, status
		from periods
		where tenant_id = $1 and year = $2 and month = $3
	`, tenantID, year, month).Scan(&p.ID, &p.TenantID, &p.Year, &p.Month, &p.Status)
	return p, err
}
