package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pikabook/pkg/models"
)

// CreateFlashcard inserts a new flashcard and bumps the source note's
// flashcard counter when the card belongs to a note.
func (s *Store) CreateFlashcard(ctx context.Context, card *models.FlashCard) error {
	if err := card.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create flashcard: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO flashcards (id, user_id, note_id, front, back, pinyin,
			review_count, last_reviewed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.UserID, card.NoteID, card.Front, card.Back, card.Pinyin,
		card.ReviewCount, timePtrToUnix(card.LastReviewedAt),
		card.CreatedAt.UnixNano(), card.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create flashcard: %w", err)
	}

	if card.NoteID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE notes SET flashcard_count = flashcard_count + 1, updated_at = ? WHERE id = ?`,
			now.UnixNano(), card.NoteID)
		if err != nil {
			return fmt.Errorf("bump note flashcard count: %w", err)
		}
	}

	return tx.Commit()
}

// GetFlashcard returns a flashcard by id.
func (s *Store) GetFlashcard(ctx context.Context, id string) (*models.FlashCard, error) {
	row := s.db.QueryRowContext(ctx, flashcardSelect+` WHERE id = ?`, id)
	return scanFlashcard(row)
}

// ListFlashcards returns a user's flashcards, newest first. noteID narrows to
// one note when non-empty.
func (s *Store) ListFlashcards(ctx context.Context, userID, noteID string) ([]*models.FlashCard, error) {
	query := flashcardSelect + ` WHERE user_id = ?`
	args := []any{userID}
	if noteID != "" {
		query += ` AND note_id = ?`
		args = append(args, noteID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	var cards []*models.FlashCard
	for rows.Next() {
		card, err := scanFlashcard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// RecordReview increments the review counter and stamps the review time.
func (s *Store) RecordReview(ctx context.Context, id string, reviewedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE flashcards SET review_count = review_count + 1, last_reviewed_at = ?, updated_at = ?
		 WHERE id = ?`,
		reviewedAt.UnixNano(), time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("record review: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFlashcard removes a flashcard and decrements the note counter.
func (s *Store) DeleteFlashcard(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	defer tx.Rollback()

	var noteID string
	err = tx.QueryRowContext(ctx, `SELECT note_id FROM flashcards WHERE id = ?`, id).Scan(&noteID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM flashcards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	if noteID != "" {
		_, err = tx.ExecContext(ctx,
			`UPDATE notes SET flashcard_count = MAX(flashcard_count - 1, 0), updated_at = ? WHERE id = ?`,
			time.Now().UnixNano(), noteID)
		if err != nil {
			return fmt.Errorf("drop note flashcard count: %w", err)
		}
	}

	return tx.Commit()
}

const flashcardSelect = `SELECT id, user_id, note_id, front, back, pinyin,
	review_count, last_reviewed_at, created_at, updated_at FROM flashcards`

func scanFlashcard(row rowScanner) (*models.FlashCard, error) {
	var card models.FlashCard
	var lastReviewed sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&card.ID, &card.UserID, &card.NoteID, &card.Front, &card.Back,
		&card.Pinyin, &card.ReviewCount, &lastReviewed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan flashcard: %w", err)
	}
	if lastReviewed.Valid {
		t := time.Unix(0, lastReviewed.Int64)
		card.LastReviewedAt = &t
	}
	card.CreatedAt = time.Unix(0, createdAt)
	card.UpdatedAt = time.Unix(0, updatedAt)
	return &card, nil
}

func timePtrToUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
