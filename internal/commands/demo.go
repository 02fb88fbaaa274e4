package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/config"
	"github.com/openbooks/ledger/internal/ledger"
	"github.com/openbooks/ledger/internal/period"
	"github.com/openbooks/ledger/internal/service/entry"
	"github.com/openbooks/ledger/internal/storage/memory"
)

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a sale through the rule engine against an in-memory store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func runDemo(ctx context.Context) error {
	cfg := config.FromEnv()
	logger := cfg.Logger()
	slog.SetDefault(logger)

	store := memory.New()
	tenantID := uuid.New()
	store.SeedDev(tenantID)

	worker := audit.NewWorker(store, cfg.AuditBuffer, logger)
	worker.Start()
	defer worker.Shutdown()

	entries := entry.New(store, worker, logger)

	generated, err := entries.Generate(ctx, entry.GenerateInput{
		TenantID:    tenantID,
		EventType:   "SALE_INVOICE",
		Description: "demo sale",
		Currency:    "PEN",
		Payload: map[string]any{
			"total": 118.0,
			"base":  100.0,
			"tax":   18.0,
		},
		Actor: "demo",
		Role:  period.RoleClerk,
	})
	if err != nil {
		return err
	}
	printEntry(os.Stdout, generated)

	reversal, err := entries.Reverse(ctx, entry.ReverseInput{
		TenantID: tenantID,
		EntryID:  generated.ID,
		Reason:   "demo reversal",
		Actor:    "demo",
		Role:     period.RoleClerk,
	})
	if err != nil {
		return err
	}
	printEntry(os.Stdout, reversal)

	ok, err := entries.Verify(ctx, tenantID, generated.ID)
	if err != nil {
		return err
	}
	fmt.Printf("integrity check on %s: %v\n", generated.Correlative, ok)
	return nil
}

func printEntry(w *os.File, e ledger.JournalEntry) {
	fmt.Fprintf(w, "%s %s [%s/%s] %s\n", e.Correlative, e.Date.Format("2006-01-02"), e.Origin, e.Status, e.Description)
	for _, ln := range e.Lines {
		fmt.Fprintf(w, "  %s  debit %8s  credit %8s\n", ln.AccountID, ln.Debit.StringFixed(2), ln.Credit.StringFixed(2))
	}
	fmt.Fprintf(w, "  digest %s\n", e.IntegrityHash)
}
