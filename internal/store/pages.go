package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pikabook/pkg/models"
)

// CreatePage inserts a new page.
func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	if err := page.Validate(); err != nil {
		return err
	}
	if page.Status == "" {
		page.Status = models.StatusPending
	}
	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (id, note_id, ordinal, image_path, original_text, translated_text,
			pinyin, status, error, translation_source, ocr_confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID, page.NoteID, page.Ordinal, page.ImagePath, page.OriginalText,
		page.TranslatedText, page.Pinyin, string(page.Status), page.Error,
		page.TranslationSource, page.OCRConfidence,
		page.CreatedAt.UnixNano(), page.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

// GetPage returns a page by id.
func (s *Store) GetPage(ctx context.Context, id string) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx, pageSelect+` WHERE id = ?`, id)
	return scanPage(row)
}

// ListPages returns a note's pages in reading order.
func (s *Store) ListPages(ctx context.Context, noteID string) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx, pageSelect+` WHERE note_id = ? ORDER BY ordinal`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// ListPagesByStatus returns all pages in the given status, oldest first.
// Used to requeue failed pages and resume interrupted enrichment.
func (s *Store) ListPagesByStatus(ctx context.Context, status models.ProcessingStatus) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx, pageSelect+` WHERE status = ? ORDER BY updated_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list pages by status: %w", err)
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// UpdatePageText stores the text artifacts produced by the pipeline and moves
// the page to its new status in one statement.
func (s *Store) UpdatePageText(ctx context.Context, page *models.Page) error {
	page.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET original_text = ?, translated_text = ?, pinyin = ?, status = ?,
			error = ?, translation_source = ?, ocr_confidence = ?, updated_at = ?
		 WHERE id = ?`,
		page.OriginalText, page.TranslatedText, page.Pinyin, string(page.Status),
		page.Error, page.TranslationSource, page.OCRConfidence,
		page.UpdatedAt.UnixNano(), page.ID,
	)
	if err != nil {
		return fmt.Errorf("update page text: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPageStatus moves a page to status, recording err (may be empty).
// Completed pages are never moved backwards: a stale worker finishing after a
// retry already completed the page must not clobber it.
func (s *Store) SetPageStatus(ctx context.Context, id string, status models.ProcessingStatus, errMsg string) error {
	if !status.Valid() {
		return models.ErrInvalidStatus
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET status = ?, error = ?, updated_at = ?
		 WHERE id = ? AND (status != 'completed' OR ? = 'completed')`,
		string(status), errMsg, time.Now().UnixNano(), id, string(status),
	)
	if err != nil {
		return fmt.Errorf("set page status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Either missing or completed-and-protected; disambiguate
		if _, getErr := s.GetPage(ctx, id); getErr != nil {
			return getErr
		}
		return nil
	}
	return nil
}

// DeletePage removes a page.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const pageSelect = `SELECT id, note_id, ordinal, image_path, original_text, translated_text,
	pinyin, status, error, translation_source, ocr_confidence, created_at, updated_at FROM pages`

func scanPage(row rowScanner) (*models.Page, error) {
	var page models.Page
	var status string
	var createdAt, updatedAt int64
	err := row.Scan(&page.ID, &page.NoteID, &page.Ordinal, &page.ImagePath,
		&page.OriginalText, &page.TranslatedText, &page.Pinyin, &status,
		&page.Error, &page.TranslationSource, &page.OCRConfidence,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan page: %w", err)
	}
	page.Status = models.ProcessingStatus(status)
	page.CreatedAt = time.Unix(0, createdAt)
	page.UpdatedAt = time.Unix(0, updatedAt)
	return &page, nil
}
