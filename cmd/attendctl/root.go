package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/database"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "attendctl",
		Short: "Maintenance commands for the face attendance service",
		Long: `attendctl reads the same environment (and optional .env file) as the API
server. Use it to rebuild stored embeddings after changing the embedding
provider, or to export attendance records as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newReembedCmd())
	root.AddCommand(newExportCmd())
	return root
}

// env is what every subcommand needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLoggerWithFile(cfg.Environment, cfg.LogFile)

	pool, err := database.NewPGXPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func (e *env) Close() {
	e.pool.Close()
}
