package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Store implements shared.KeyValueStore on the kv_store table.
type Store struct {
	conn  *Connection
	owned bool
}

// Open connects, applies pending migrations and returns a store that owns
// the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(conn).Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn, owned: true}, nil
}

// NewStore wraps an existing, migrated connection.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Get implements shared.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements shared.KeyValueStore.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO kv_store (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

// Remove implements shared.KeyValueStore.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

// MultiRemove implements shared.KeyValueStore with a single statement.
func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.conn.Exec(ctx, `DELETE FROM kv_store WHERE key = ANY($1)`, keys)
	return err
}

// Keys implements shared.KeyValueStore. Keys are returned sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT key FROM kv_store WHERE left(key, length($1)) = $1 ORDER BY key COLLATE "C"`, prefix)
	if err != nil {
		return nil, err
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Close closes the connection when the store opened it.
func (s *Store) Close() error {
	if s.owned {
		s.conn.Close()
	}
	return nil
}
