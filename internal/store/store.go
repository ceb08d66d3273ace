package store

import (
	"context"
	"database/sql"
	"sync"
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB

	mu     sync.RWMutex
	schema Schema
}

// New sets up a Store using the provided database handle. Until LoadSchema
// succeeds every optional column is assumed to exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema returns the current column capability snapshot.
func (s *Store) Schema() Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

func (s *Store) setSchema(schema Schema) {
	s.mu.Lock()
	s.schema = schema
	s.mu.Unlock()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullString(value *string) interface{} {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
