// Package dbconn shares the database flag and pool setup between CLI commands.
package dbconn

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

// AddFlag registers --database-url, falling back to DATABASE_URL at run time.
func AddFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "database-url", "", "Postgres connection string (defaults to $DATABASE_URL)")
}

// Open returns a verified pool for url or $DATABASE_URL.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, errors.New("--database-url or DATABASE_URL is required")
	}
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: url, ApplicationName: "rentboard-cli"})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	return pool, nil
}
