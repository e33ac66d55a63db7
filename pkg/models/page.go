package models

import "time"

// ProcessingStatus tracks a page through the OCR → translate pipeline.
type ProcessingStatus string

const (
	// StatusPending means the page exists but no processing has started.
	StatusPending ProcessingStatus = "pending"

	// StatusExtracting means OCR is running or has produced raw text.
	StatusExtracting ProcessingStatus = "extracting"

	// StatusTranslating means cleaned text is queued for or undergoing
	// translation and pinyin annotation.
	StatusTranslating ProcessingStatus = "translating"

	// StatusCompleted means the page has full original/translated/pinyin text.
	StatusCompleted ProcessingStatus = "completed"

	// StatusFailed means processing gave up on this page; it can be retried.
	StatusFailed ProcessingStatus = "failed"
)

// Valid reports whether s is one of the known processing states.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusExtracting, StatusTranslating, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state of the pipeline.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Page holds the per-image text artifacts of a note.
type Page struct {
	// Core identifiers
	ID      string // Unique page identifier
	NoteID  string // Parent note
	Ordinal int    // Position within the note, starting at 0

	// Source
	ImagePath string // Local path of the photographed page

	// Text artifacts, filled in as the pipeline advances
	OriginalText   string // Cleaned OCR text (Chinese)
	TranslatedText string // Full-page translation
	Pinyin         string // Full-page pinyin transcription

	// Pipeline state
	Status ProcessingStatus // Current processing status
	Error  string           // Last processing error message, if Status is failed

	// Provenance
	TranslationSource string  // "llm", "google", "papago", or "" if untranslated
	OCRConfidence     float32 // Average OCR confidence (0.0-1.0)

	CreatedAt time.Time // Record creation timestamp
	UpdatedAt time.Time // Last update timestamp
}

// Validate checks the minimal integrity constraints on a page.
func (p *Page) Validate() error {
	if p.ID == "" {
		return ErrMissingID
	}
	if p.NoteID == "" {
		return ErrMissingNoteID
	}
	if p.Status != "" && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
