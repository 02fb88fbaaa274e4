package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/sequence"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	b, err := os.ReadFile(filepath.Join(repoRoot, "db", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func testEntry(tenantID, periodID, accountID uuid.UUID, correlative string) ledger.JournalEntry {
	now := time.Now().UTC()
	e := ledger.JournalEntry{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Date:         now,
		PeriodID:     periodID,
		Description:  "store roundtrip",
		Currency:     "PEN",
		ExchangeRate: decimal.NewFromInt(1),
		Category:     ledger.CategoryGeneral,
		Origin:       ledger.OriginManual,
		Status:       ledger.StatusDraft,
		Correlative:  correlative,
		CreatedBy:    "test",
		CreatedAt:    now,
	}
	e.Lines = []ledger.EntryLine{
		{ID: uuid.New(), EntryID: e.ID, AccountID: accountID, Debit: decimal.RequireFromString("10.00"), Credit: decimal.Zero},
		{ID: uuid.New(), EntryID: e.ID, AccountID: accountID, Debit: decimal.Zero, Credit: decimal.RequireFromString("10.00")},
	}
	return e
}

func TestEntryRoundtrip(t *testing.T) {
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	defer s.Close()
	applyInitSQL(t, s)
	ctx := context.Background()

	tenantID, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	accounts, err := s.MappingsByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	var accountID uuid.UUID
	for _, m := range accounts {
		accountID = m.AccountID
		break
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	p, err := tx.GetOrOpenPeriod(ctx, tenantID, 2025, 8)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	if p.Status != ledger.PeriodOpen {
		t.Fatalf("period status = %s, want open", p.Status)
	}

	if _, ok, err := tx.LockMaxCorrelative(ctx, tenantID, "00-08-"); err != nil || ok {
		t.Fatalf("empty series: ok=%v err=%v", ok, err)
	}

	e := testEntry(tenantID, p.ID, accountID, "00-08-00001")
	if err := tx.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.EntryByID(ctx, tenantID, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Correlative != e.Correlative || len(got.Lines) != 2 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if !got.Lines[0].Debit.Equal(e.Lines[0].Debit) {
		t.Fatalf("debit = %s, want %s", got.Lines[0].Debit, e.Lines[0].Debit)
	}

	tx2, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin 2: %v", err)
	}
	defer func() { _ = tx2.Rollback(ctx) }()
	max, ok, err := tx2.LockMaxCorrelative(ctx, tenantID, "00-08-")
	if err != nil || !ok || max != "00-08-00001" {
		t.Fatalf("lock max = %q ok=%v err=%v", max, ok, err)
	}
}

// Concurrent writers of a fresh series must serialize on the advisory lock,
// first insert included, and come out with consecutive ordinals.
func TestLockMaxCorrelativeSerializesFirstInsert(t *testing.T) {
	dsn := getTestDSN(t)
	s := mustOpen(t, dsn)
	defer s.Close()
	applyInitSQL(t, s)
	ctx := context.Background()

	tenantID, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	accounts, err := s.MappingsByTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	var accountID uuid.UUID
	for _, m := range accounts {
		accountID = m.AccountID
		break
	}

	const writers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Begin(ctx)
			if err != nil {
				errCh <- err
				return
			}
			defer func() { _ = tx.Rollback(ctx) }()
			p, err := tx.GetOrOpenPeriod(ctx, tenantID, 2025, 9)
			if err != nil {
				errCh <- err
				return
			}
			correlative, err := sequence.Next(ctx, tx, tenantID, ledger.CategoryGeneral, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
			if err != nil {
				errCh <- err
				return
			}
			if err := tx.CreateEntry(ctx, testEntry(tenantID, p.ID, accountID, correlative)); err != nil {
				errCh <- err
				return
			}
			errCh <- tx.Commit(ctx)
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("writer: %v", err)
		}
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	max, ok, err := tx.LockMaxCorrelative(ctx, tenantID, "00-09-")
	if err != nil || !ok {
		t.Fatalf("lock max: ok=%v err=%v", ok, err)
	}
	if want := fmt.Sprintf("00-09-%05d", writers); max != want {
		t.Fatalf("series max = %q, want %q", max, want)
	}
}
