// Package dbtest starts a throwaway PostgreSQL container for store tests.
package dbtest

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-practice/internal/platform/database"
)

const image = "postgres:16-alpine"

// NewPool returns a pool connected to a fresh PostgreSQL container. The test
// is skipped in short mode or when no container runtime is available.
func NewPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	if tt, ok := t.(*testing.T); ok {
		testcontainers.SkipIfProviderIsNotHealthy(tt)
	}

	ctx := t.Context()
	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("practice"),
		postgres.WithUsername("practice"),
		postgres.WithPassword("practice"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	db, err := database.New(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)
	return db.Pool
}
