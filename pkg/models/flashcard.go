package models

import "time"

// FlashCard is a front/back study card, usually created from a dictionary
// lookup inside a note.
type FlashCard struct {
	// Core identifiers
	ID     string // Unique flashcard identifier
	UserID string // Owning user
	NoteID string // Source note, empty for standalone cards

	// Card faces
	Front  string // Chinese word or phrase
	Back   string // Translation / meaning
	Pinyin string // Pinyin transcription of the front

	// Review bookkeeping
	ReviewCount    int        // Number of times the card has been reviewed
	LastReviewedAt *time.Time // Time of the most recent review (nil if never)

	CreatedAt time.Time // Record creation timestamp
	UpdatedAt time.Time // Last update timestamp
}

// Validate checks the minimal integrity constraints on a flashcard.
func (f *FlashCard) Validate() error {
	if f.ID == "" {
		return ErrMissingID
	}
	if f.UserID == "" {
		return ErrMissingUserID
	}
	if f.Front == "" {
		return ErrEmptyFront
	}
	return nil
}
