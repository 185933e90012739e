// Package kvstore persists JSON documents in a single SQLite table keyed by
// prefixed string ids. The rest of the application depends only on get, set,
// delete and prefix-scan semantics, so any engine providing those four
// operations could back it.
package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store is a key-value view over a SQLite database.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the backing table if it does not exist.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

// Get returns the raw JSON stored under key, or nil when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return get(ctx, s.db, key)
}

// Set marshals value and upserts it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	return set(ctx, s.db, key, value)
}

// Delete removes the record stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return del(ctx, s.db, key)
}

// GetByPrefix returns the raw JSON of every record whose key starts with
// prefix, in unspecified order.
func (s *Store) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	return getByPrefix(ctx, s.db, prefix)
}

// Tx exposes the store operations inside a transaction.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return get(ctx, t.tx, key)
}

func (t *Tx) Set(ctx context.Context, key string, value any) error {
	return set(ctx, t.tx, key, value)
}

func (t *Tx) Delete(ctx context.Context, key string) error {
	return del(ctx, t.tx, key)
}

func (t *Tx) GetByPrefix(ctx context.Context, prefix string) ([]json.RawMessage, error) {
	return getByPrefix(ctx, t.tx, prefix)
}

// Update runs fn inside a single transaction. When fn returns an error the
// transaction is rolled back and the error is returned unchanged, so
// multi-record writes are all-or-nothing.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func get(ctx context.Context, q sqlx.QueryerContext, key string) (json.RawMessage, error) {
	var value []byte
	err := sqlx.GetContext(ctx, q, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting key %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func set(ctx context.Context, e sqlx.ExecerContext, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value for key %s: %w", key, err)
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

func del(ctx context.Context, e sqlx.ExecerContext, key string) error {
	if _, err := e.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

func getByPrefix(ctx context.Context, q sqlx.QueryerContext, prefix string) ([]json.RawMessage, error) {
	var values [][]byte
	err := sqlx.SelectContext(ctx, q, &values, `SELECT value FROM kv WHERE key LIKE ?`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("scanning prefix %s: %w", prefix, err)
	}
	records := make([]json.RawMessage, len(values))
	for i, v := range values {
		records[i] = json.RawMessage(v)
	}
	return records, nil
}
