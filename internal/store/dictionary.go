package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pikabook/pkg/models"
)

// UpsertDictionaryEntry inserts or refreshes a dictionary entry. Existing
// pinyin and meaning are only overwritten with non-empty values, so an LLM
// result never blanks out hand-edited data.
func (s *Store) UpsertDictionaryEntry(ctx context.Context, entry *models.DictionaryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dictionary (word, pinyin, meaning, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(word) DO UPDATE SET
			pinyin = COALESCE(NULLIF(excluded.pinyin, ''), dictionary.pinyin),
			meaning = COALESCE(NULLIF(excluded.meaning, ''), dictionary.meaning),
			source = excluded.source,
			updated_at = excluded.updated_at`,
		entry.Word, entry.Pinyin, entry.Meaning, entry.Source,
		entry.CreatedAt.UnixNano(), entry.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert dictionary entry: %w", err)
	}
	return nil
}

// LookupWord returns the dictionary entry for word, or ErrNotFound.
func (s *Store) LookupWord(ctx context.Context, word string) (*models.DictionaryEntry, error) {
	var entry models.DictionaryEntry
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT word, pinyin, meaning, source, created_at, updated_at
		 FROM dictionary WHERE word = ?`, word,
	).Scan(&entry.Word, &entry.Pinyin, &entry.Meaning, &entry.Source, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup word: %w", err)
	}
	entry.CreatedAt = time.Unix(0, createdAt)
	entry.UpdatedAt = time.Unix(0, updatedAt)
	return &entry, nil
}
