// Package db provides database connectivity and migration functionality for snsapp.
// It builds the single connection pool that every repository receives at startup and
// applies the SQL migrations that create the users, posts and comments tables.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	// `time` is used for setting timeouts and connection pool configurations.
	"time"

	// `golang-migrate` runs the versioned SQL files under ./migrations.
	"github.com/golang-migrate/migrate/v4"
	// The postgres database driver registers the "postgres://" scheme with migrate; it talks
	// to the server through `database/sql` and lib/pq.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // For file-based migrations
	_ "github.com/lib/pq"                                // driver for database/sql, needed by migrate's postgres driver
	// `pgxpool` is the connection pool handed to the repositories.
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/config"
)

// NewPool establishes the PostgreSQL connection pool described by cfg.
// The pool is the only shared mutable resource of the application: callers check
// connections out with Acquire and must Release them. Close it on shutdown.
func NewPool(cfg *config.PoolConfig) (*pgxpool.Pool, error) {
	dsn := buildDSN(cfg, url.Values{
		"pool_max_conns":          {strconv.Itoa(cfg.MaxSize)},
		"pool_max_conn_idle_time": {(10 * time.Minute).String()},
		"pool_max_conn_lifetime":  {(30 * time.Minute).String()},
	})

	// `pgxpool.ParseConfig` parses the DSN string into a `pgxpool.Config` struct.
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error parsing DSN for database %s", cfg.DBName), err)
	}

	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	// Use a context with a timeout so an unreachable database fails startup instead of hanging.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error creating pgxpool for database %s", cfg.DBName), err)
	}

	// Verify the connection by pinging
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close() // Clean up on connection failure
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error connecting to the database %s with pgxpool", cfg.DBName), err)
	}

	return pool, nil
}

// MigrationDSN constructs a DSN string from PoolConfig, suitable for golang-migrate.
func MigrationDSN(cfg *config.PoolConfig) string {
	return buildDSN(cfg, nil)
}

// buildDSN escapes the credentials and database name, so passwords may contain any
// character. sslmode=disable is always set; extra adds pool parameters.
func buildDSN(cfg *config.PoolConfig, extra url.Values) string {
	query := url.Values{"sslmode": {"disable"}}
	for k, v := range extra {
		query[k] = v
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Direction selects which way RunMigrations moves the schema.
type Direction int

const (
	// Up applies every pending migration.
	Up Direction = iota
	// Down reverts every applied migration.
	Down
)

// RunMigrations applies (or reverts) the migrations found in migrationsPath.
// Files follow golang-migrate naming: {version}_{title}.up.sql / .down.sql.
func RunMigrations(cfg *config.PoolConfig, migrationsPath string, dir Direction) error {
	m, err := migrate.New("file://"+migrationsPath, MigrationDSN(cfg))
	if err != nil {
		return apperror.NewMigrationError("failed to create migrator", err)
	}
	// m.Close() returns two errors, one for the source and one for the database.
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("Warning: error closing migrator: source=%v database=%v", srcErr, dbErr)
		}
	}()

	switch dir {
	case Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	// `migrate.ErrNoChange` only means the schema is already where we want it.
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewMigrationError("failed to run migrations", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Printf("Database schema at version %d (dirty=%t)", version, dirty)
	}
	return nil
}
