package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/phuslu/log"
)

// Connect opens and pings a PostgreSQL connection. The URL is passed in
// explicitly; there is no ambient connection state.
func Connect(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return nil, fmt.Errorf("database URL must start with postgres:// or postgresql://")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	log.Info().Str("host", maskedHost(databaseURL)).Msg("database connected")
	return db, nil
}

// Initialize connects and runs the migrations in one step.
func Initialize(databaseURL string) (*sql.DB, error) {
	db, err := Connect(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// maskedHost keeps the scheme and host of a connection URL, hiding the
// credentials, so the URL is loggable.
func maskedHost(databaseURL string) string {
	if at := strings.LastIndex(databaseURL, "@"); at != -1 {
		scheme := ""
		if idx := strings.Index(databaseURL, "://"); idx != -1 {
			scheme = databaseURL[:idx+3]
		}
		return scheme + "***" + databaseURL[at:]
	}
	return databaseURL
}
