package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kjannette/chart-cache/internal/db"
	"github.com/kjannette/chart-cache/internal/repository"
)

// SetupPool creates a pgxpool.Pool for integration tests.
// The test is skipped unless TEST_DATABASE_URL is set (env or ../../.env).
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// SQLiteStore opens a fresh chart store in a per-test temp directory with the
// schema already created.
func SQLiteStore(t *testing.T) *repository.SQLiteChartRepo {
	t.Helper()

	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "chart_cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := repository.NewSQLiteChartRepo(gdb)
	t.Cleanup(func() { store.Close() })

	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return store
}
