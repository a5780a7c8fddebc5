package clients

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver, testing environments only

	"github.com/netra-io/netra-config/pkg/config"
)

// PostgresOptions tunes the connection pool.
type PostgresOptions struct {
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	PingTimeout time.Duration
}

// DefaultPostgresOptions returns the pool settings used when none are given.
func DefaultPostgresOptions() PostgresOptions {
	return PostgresOptions{
		MaxConns:    20,
		MinConns:    2,
		MaxLifetime: 30 * time.Minute,
		MaxIdleTime: 5 * time.Minute,
		PingTimeout: 10 * time.Second,
	}
}

// OpenPostgres validates the manager's database config, opens a connection
// pool for the resolved URL, and pings it. The testing environment may
// resolve a sqlite URL, which is opened with the sqlite3 driver instead.
func OpenPostgres(ctx context.Context, manager *config.Manager, opts *PostgresOptions) (*sql.DB, error) {
	if err := manager.ValidateDatabaseConfig(); err != nil {
		return nil, err
	}

	dbURL, err := manager.DatabaseURL()
	if err != nil {
		return nil, err
	}

	driver := "postgres"
	dsn := dbURL
	if strings.HasPrefix(dbURL, "sqlite:") || strings.HasPrefix(dbURL, "sqlite3:") || strings.HasPrefix(dbURL, "file:") {
		driver = "sqlite3"
		dsn = strings.TrimPrefix(strings.TrimPrefix(dbURL, "sqlite3:"), "sqlite:")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	options := DefaultPostgresOptions()
	if opts != nil {
		options = *opts
	}
	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MinConns)
	db.SetConnMaxLifetime(options.MaxLifetime)
	db.SetConnMaxIdleTime(options.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, options.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
