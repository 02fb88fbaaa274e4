package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openbooks/ledger/internal/config"
	pgstore "github.com/openbooks/ledger/internal/storage/postgres"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a development tenant into the configured Postgres database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
}

func runSeed(ctx context.Context) error {
	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; seed targets Postgres only")
	}
	pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	tenantID, err := pg.SeedDev(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("seeded tenant %s\n", tenantID)
	return nil
}
