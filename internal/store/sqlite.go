package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
  k TEXT NOT NULL PRIMARY KEY,
  v TEXT NOT NULL,
  expires_at TEXT NOT NULL DEFAULT ''
);`

// SQLite is a single-node KV backend for deployments without a Redis.
// Writes are idempotent upserts; expiry is enforced on read.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=wal;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Ping() error { return s.db.Ping() }

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT v, expires_at FROM kv WHERE k = ?;`
	var (
		value     string
		expiresAt string
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "select kv")
	}

	if expiresAt != "" {
		deadline, perr := time.Parse(time.RFC3339Nano, expiresAt)
		if perr == nil && time.Now().After(deadline) {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?;`, key)
			return "", ErrNotFound
		}
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	expiresAt := ""
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UTC().Format(time.RFC3339Nano)
	}
	const q = `INSERT INTO kv (k, v, expires_at) VALUES (?, ?, ?)
ON CONFLICT(k) DO UPDATE SET v = excluded.v, expires_at = excluded.expires_at;`
	_, err := s.db.ExecContext(ctx, q, key, value, expiresAt)
	return errors.Wrap(err, "upsert kv")
}

func (s *SQLite) Close() error { return s.db.Close() }
