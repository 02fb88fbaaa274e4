package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/errs"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/trace"
)

// Numeric columns are cast to text on the way out and bound as strings on the
// way in, so amounts never pass through a float.
const entrySelect = `
	select id, tenant_id, date, period_id, description, currency, exchange_rate::text,
	       category, origin, status, correlative, engine_metadata, integrity_hash,
	       reversed_entry_id, reverses_entry_id,
	       created_by, created_at, posted_by, posted_at, reversed_at, voided_at
	from journal_entries
`

func scanEntry(row pgx.Row) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var fx string
	var traceBytes []byte
	if err := row.Scan(
		&e.ID, &e.TenantID, &e.Date, &e.PeriodID, &e.Description, &e.Currency, &fx,
		&e.Category, &e.Origin, &e.Status, &e.Correlative, &traceBytes, &e.IntegrityHash,
		&e.ReversedEntryID, &e.ReversesEntryID,
		&e.CreatedBy, &e.CreatedAt, &e.PostedBy, &e.PostedAt, &e.ReversedAt, &e.VoidedAt,
	); err != nil {
		return ledger.JournalEntry{}, err
	}
	rate, err := decimal.NewFromString(fx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	e.ExchangeRate = rate
	if len(traceBytes) > 0 {
		if tr, err := trace.Unmarshal(traceBytes); err == nil {
			e.EngineMetadata = &tr
		}
	}
	return e, nil
}

func entryByID(ctx context.Context, q querier, tenantID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	e, err := scanEntry(q.QueryRow(ctx, entrySelect+`
		where id = $1 and tenant_id = $2
	`, entryID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	lines, err := linesByEntry(ctx, q, e.ID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	e.Lines = lines
	return e, nil
}

func linesByEntry(ctx context.Context, q querier, entryID uuid.UUID) ([]ledger.EntryLine, error) {
	rows, err := q.Query(ctx, `
		select id, entry_id, account_id, debit::text, credit::text,
		       memo, counterparty, cost_center, reconciled, document_ref
		from entry_lines
		where entry_id = $1
		order by ord
	`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.EntryLine, 0)
	for rows.Next() {
		var ln ledger.EntryLine
		var debit, credit string
		if err := rows.Scan(&ln.ID, &ln.EntryID, &ln.AccountID, &debit, &credit,
			&ln.Memo, &ln.Counterparty, &ln.CostCenter, &ln.Reconciled, &ln.DocumentRef); err != nil {
			return nil, err
		}
		if ln.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if ln.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func insertEntry(ctx context.Context, q querier, e ledger.JournalEntry) error {
	var traceBytes []byte
	if e.EngineMetadata != nil {
		b, err := e.EngineMetadata.Marshal()
		if err != nil {
			return err
		}
		traceBytes = b
	}
	if _, err := q.Exec(ctx, `
		insert into journal_entries
			(id, tenant_id, date, period_id, description, currency, exchange_rate,
			 category, origin, status, correlative, engine_metadata, integrity_hash,
			 reversed_entry_id, reverses_entry_id,
			 created_by, created_at, posted_by, posted_at, reversed_at, voided_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`, e.ID, e.TenantID, e.Date, e.PeriodID, e.Description, e.Currency, decimalText(e.ExchangeRate),
		e.Category, e.Origin, e.Status, e.Correlative, traceBytes, e.IntegrityHash,
		e.ReversedEntryID, e.ReversesEntryID,
		e.CreatedBy, e.CreatedAt, e.PostedBy, e.PostedAt, e.ReversedAt, e.VoidedAt); err != nil {
		return err
	}
	return insertLines(ctx, q, e)
}

func insertLines(ctx context.Context, q querier, e ledger.JournalEntry) error {
	for i, ln := range e.Lines {
		if _, err := q.Exec(ctx, `
			insert into entry_lines
				(id, entry_id, account_id, ord, debit, credit, memo, counterparty, cost_center, reconciled, document_ref)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, ln.ID, e.ID, ln.AccountID, i, decimalText(ln.Debit), decimalText(ln.Credit),
			ln.Memo, ln.Counterparty, ln.CostCenter, ln.Reconciled, ln.DocumentRef); err != nil {
			return err
		}
	}
	return nil
}

func updateEntry(ctx context.Context, q querier, e ledger.JournalEntry) error {
	var traceBytes []byte
	if e.EngineMetadata != nil {
		b, err := e.EngineMetadata.Marshal()
		if err != nil {
			return err
		}
		traceBytes = b
	}
	ct, err := q.Exec(ctx, `
		update journal_entries
		set date=$1, period_id=$2, description=$3, currency=$4, exchange_rate=$5,
		    status=$6, engine_metadata=$7, integrity_hash=$8,
		    reversed_entry_id=$9, posted_by=$10, posted_at=$11, reversed_at=$12, voided_at=$13
		where id=$14 and tenant_id=$15
	`, e.Date, e.PeriodID, e.Description, e.Currency, decimalText(e.ExchangeRate),
		e.Status, traceBytes, e.IntegrityHash,
		e.ReversedEntryID, e.PostedBy, e.PostedAt, e.ReversedAt, e.VoidedAt,
		e.ID, e.TenantID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	// Lines are replaced wholesale; drafts are the only entries whose lines
	// change and their line sets are small.
	if _, err := q.Exec(ctx, `delete from entry_lines where entry_id = $1`, e.ID); err != nil {
		return err
	}
	return insertLines(ctx, q, e)
}
