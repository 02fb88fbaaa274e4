package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openbooks/ledger/internal/audit"
	"github.com/openbooks/ledger/internal/config"
	"github.com/openbooks/ledger/internal/ops"
	"github.com/openbooks/ledger/internal/storage/memory"
	pgstore "github.com/openbooks/ledger/internal/storage/postgres"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	logger := cfg.Logger()
	slog.SetDefault(logger)

	var (
		sink    audit.Sink
		ready   ops.ReadyChecker
		closeFn func()
	)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			return err
		}
		closeFn = pg.Close
		if cfg.DevSeed {
			tenantID, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logger.Info("DEV seed (postgres)", "tenant_id", tenantID.String())
			}
		}
		sink, ready = pg, pg
		logger.Info("storage backend: postgres")
	} else {
		store := memory.New()
		if cfg.DevSeed {
			tenantID := uuid.New()
			store.SeedDev(tenantID)
			logger.Info("DEV seed (memory)", "tenant_id", tenantID.String())
		}
		sink = store
		logger.Info("storage backend: memory")
	}

	worker := audit.NewWorker(sink, cfg.AuditBuffer, logger)
	worker.Start()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           ops.New(ready, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}

	worker.Shutdown()
	if closeFn != nil {
		closeFn()
	}
	return nil
}
