// Package store persists notes, pages, flashcards, dictionary entries and
// billing state in a local SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Common store errors
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

const migrations = `
CREATE TABLE IF NOT EXISTS notes (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	page_count      INTEGER NOT NULL DEFAULT 0,
	flashcard_count INTEGER NOT NULL DEFAULT 0,
	favorite        INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_user ON notes (user_id, updated_at);

CREATE TABLE IF NOT EXISTS pages (
	id                 TEXT PRIMARY KEY,
	note_id            TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	ordinal            INTEGER NOT NULL,
	image_path         TEXT NOT NULL DEFAULT '',
	original_text      TEXT NOT NULL DEFAULT '',
	translated_text    TEXT NOT NULL DEFAULT '',
	pinyin             TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'pending',
	error              TEXT NOT NULL DEFAULT '',
	translation_source TEXT NOT NULL DEFAULT '',
	ocr_confidence     REAL NOT NULL DEFAULT 0,
	created_at         INTEGER NOT NULL,
	updated_at         INTEGER NOT NULL,
	UNIQUE (note_id, ordinal)
);
CREATE INDEX IF NOT EXISTS idx_pages_note ON pages (note_id, ordinal);

CREATE TABLE IF NOT EXISTS flashcards (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	note_id          TEXT NOT NULL DEFAULT '',
	front            TEXT NOT NULL,
	back             TEXT NOT NULL DEFAULT '',
	pinyin           TEXT NOT NULL DEFAULT '',
	review_count     INTEGER NOT NULL DEFAULT 0,
	last_reviewed_at INTEGER,
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flashcards_user ON flashcards (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_flashcards_note ON flashcards (note_id);

CREATE TABLE IF NOT EXISTS dictionary (
	word       TEXT PRIMARY KEY,
	pinyin     TEXT NOT NULL DEFAULT '',
	meaning    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'local',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	entitlement TEXT NOT NULL DEFAULT 'free',
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_transactions (
	transaction_id TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	product_id     TEXT NOT NULL DEFAULT '',
	processed_at   INTEGER NOT NULL
);
`

// Store wraps the SQLite connection and exposes typed CRUD methods.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store database at path and runs
// migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	// Referential integrity is off by default in SQLite; enforce it for
	// in-memory databases too so tests exercise the same cascades
	dsn := path + "?_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// migrate runs the embedded schema statements one at a time.
func migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(migrations, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
