package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// openDatabase establishes a database connection and retries until the instance responds.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	const (
		pingTimeout    = 5 * time.Second
		maxWait        = 30 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)

	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return db, nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		log.Warn().Err(lastErr).Dur("retry_in", backoff).Msg("database not ready")
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", lastErr)
}
