package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	payload    BLOB NOT NULL,
	stored_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_type_age ON cache_entries (entry_type, stored_at);
CREATE INDEX IF NOT EXISTS idx_cache_user ON cache_entries (user_id);
`

// SQLite is the persistent cache tier, shared between runs. It mirrors the
// memory tier's TTL and per-type eviction semantics on a key-value table.
type SQLite struct {
	db   *sql.DB
	opts Options

	mu     sync.Mutex
	writes int
}

// NewSQLite opens (creating if needed) the persistent tier at path.
// Use ":memory:" for tests.
func NewSQLite(path string, opts Options) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLite{db: db, opts: opts.withDefaults()}, nil
}

// Get returns the payload for key if present and younger than the TTL.
func (s *SQLite) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	cutoff := s.opts.Now().Add(-s.opts.TTL).UnixNano()

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE key = ? AND stored_at > ?`,
		key.String(), cutoff,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return payload, true, nil
}

// Set upserts the entry and evicts the oldest entries of the same type when
// the per-type cap is exceeded. Every pruneEvery writes it also removes a
// batch of expired rows.
func (s *SQLite) Set(ctx context.Context, key Key, payload []byte) error {
	now := s.opts.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, user_id, entry_type, payload, stored_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		key.String(), key.UserID, key.Type, payload, now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	if err := s.evictOverCap(ctx, key.Type); err != nil {
		return err
	}

	s.mu.Lock()
	s.writes++
	prune := s.writes%pruneEvery == 0
	s.mu.Unlock()
	if prune {
		if err := s.pruneExpired(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) evictOverCap(ctx context.Context, entryType string) error {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE entry_type = ?`, entryType,
	).Scan(&count); err != nil {
		return fmt.Errorf("cache count: %w", err)
	}
	excess := count - s.opts.MaxPerType
	if excess <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries WHERE entry_type = ?
			ORDER BY stored_at ASC LIMIT ?)`,
		entryType, excess,
	)
	if err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

func (s *SQLite) pruneExpired(ctx context.Context) error {
	cutoff := s.opts.Now().Add(-s.opts.TTL).UnixNano()
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries WHERE stored_at <= ? LIMIT ?)`,
		cutoff, s.opts.PruneBatch,
	)
	if err != nil {
		return fmt.Errorf("cache prune: %w", err)
	}
	return nil
}

// Delete removes a single entry.
func (s *SQLite) Delete(ctx context.Context, key Key) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SQLite) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key LIKE ? ESCAPE '\'`,
		likeEscape(prefix)+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("cache delete by prefix: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// likeEscape escapes LIKE metacharacters in a literal prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Len reports the number of stored rows, expired or not.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
