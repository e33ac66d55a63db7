package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pikabook/pkg/models"
)

// CreateNote inserts a new note.
func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, page_count, flashcard_count, favorite, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.UserID, note.Title, note.PageCount, note.FlashcardCount,
		boolToInt(note.Favorite), note.CreatedAt.UnixNano(), note.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// GetNote returns a note by id.
func (s *Store) GetNote(ctx context.Context, id string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, page_count, flashcard_count, favorite, created_at, updated_at
		 FROM notes WHERE id = ?`, id)
	return scanNote(row)
}

// ListNotes returns a user's notes, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, page_count, flashcard_count, favorite, created_at, updated_at
		 FROM notes WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// UpdateNoteTitle renames a note.
func (s *Store) UpdateNoteTitle(ctx context.Context, id, title string) error {
	return s.touchNote(ctx, id, `UPDATE notes SET title = ?, updated_at = ? WHERE id = ?`, title)
}

// SetNoteFavorite toggles the favorite flag.
func (s *Store) SetNoteFavorite(ctx context.Context, id string, favorite bool) error {
	return s.touchNote(ctx, id, `UPDATE notes SET favorite = ?, updated_at = ? WHERE id = ?`, boolToInt(favorite))
}

// touchNote runs an update statement of the shape (value, updated_at, id) and
// maps a zero-row result to ErrNotFound.
func (s *Store) touchNote(ctx context.Context, id, query string, value any) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNote removes a note and, via foreign keys, its pages.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecountNote refreshes the denormalized page and flashcard counters.
func (s *Store) RecountNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notes SET
			page_count = (SELECT COUNT(*) FROM pages WHERE note_id = notes.id),
			flashcard_count = (SELECT COUNT(*) FROM flashcards WHERE note_id = notes.id),
			updated_at = ?
		 WHERE id = ?`,
		time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("recount note: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var note models.Note
	var favorite int
	var createdAt, updatedAt int64
	err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.PageCount,
		&note.FlashcardCount, &favorite, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	note.Favorite = favorite != 0
	note.CreatedAt = time.Unix(0, createdAt)
	note.UpdatedAt = time.Unix(0, updatedAt)
	return &note, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
