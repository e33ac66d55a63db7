package models

import "time"

// Note is a user-created study note built from one or more photographed pages.
type Note struct {
	// Core identifiers
	ID     string // Unique note identifier
	UserID string // Owning user

	// Content
	Title string // Display title (defaults to first sentence of page one)

	// Denormalized counters maintained by the store
	PageCount      int // Number of pages attached to this note
	FlashcardCount int // Number of flashcards created from this note

	// Flags
	Favorite bool // User-pinned flag

	CreatedAt time.Time // Record creation timestamp
	UpdatedAt time.Time // Last update timestamp
}

// Validate checks the minimal integrity constraints on a note.
func (n *Note) Validate() error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}
