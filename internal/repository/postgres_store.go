package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore is a Postgres-backed KVStore built on a single records
// table. Writes are upserts, so concurrent writers resolve last-writer-wins
// with no coordination, matching the store contract.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the backing table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv_records (
			kv_key     TEXT PRIMARY KEY,
			kv_value   BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT kv_value
		FROM kv_records
		WHERE kv_key = $1
	`

	var value []byte
	err := s.db.GetContext(ctx, &value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_records (kv_key, kv_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (kv_key) DO UPDATE
		SET kv_value = EXCLUDED.kv_value, updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, key, value, time.Now())
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `
		DELETE FROM kv_records
		WHERE kv_key = $1
	`

	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
