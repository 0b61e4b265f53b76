// Package dbtest opens a real PostgreSQL pool for repository tests.
// Tests using it are skipped unless DB_HOST is set, the same convention the
// integration tests of the services follow.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/user/snsapp/config"
	"github.com/user/snsapp/db"
)

// NewPool migrates the test database and returns an empty pool-backed schema.
// The pool is closed automatically when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("Skipping test - no database connection configured")
	}

	port, err := strconv.Atoi(envOr("DB_PORT", "5432"))
	require.NoError(t, err)
	cfg := &config.PoolConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     port,
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "postgres"),
		DBName:   envOr("DB_NAME", "snsapp_test"),
		MaxSize:  5,
	}

	require.NoError(t, db.RunMigrations(cfg, migrationsDir(), db.Up))

	pool, err := db.NewPool(cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `TRUNCATE comments, posts, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

// migrationsDir resolves ./migrations relative to this file so tests work from any package.
func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
