// internal/infra/database/connection.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

var ErrDatabaseURLEmpty = errors.New("database: DATABASE_URL is empty")

type DB struct {
	Client *sql.DB
}

// NewConnection opens a PostgreSQL pool from a libpq URL/DSN and pings it.
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	dsn := strings.TrimSpace(databaseURL)
	if dsn == "" {
		return nil, ErrDatabaseURLEmpty
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	slog.Info("[DB] Connected to PostgreSQL successfully")
	return &DB{Client: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
