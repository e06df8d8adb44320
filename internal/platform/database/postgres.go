package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	maxOpenConns = 20
	maxIdleConns = 10
	connLifetime = 30 * time.Minute

	pingDeadline = 15 * time.Second
	pingInterval = 500 * time.Millisecond
)

// NewPostgres opens a pgx-backed pool and waits for the database to come
// up, so the server can start before Postgres finishes booting.
func NewPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connLifetime)

	deadline := time.Now().Add(pingDeadline)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			_ = db.Close()
			return nil, fmt.Errorf("postgres not reachable: %w", err)
		}
		time.Sleep(pingInterval)
	}
}
