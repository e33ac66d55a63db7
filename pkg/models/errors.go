package models

import "errors"

// Validation errors shared by the model types.
var (
	ErrMissingID            = errors.New("missing id")
	ErrMissingUserID        = errors.New("missing user id")
	ErrMissingNoteID        = errors.New("missing note id")
	ErrMissingPageID        = errors.New("missing page id")
	ErrInvalidStatus        = errors.New("invalid processing status")
	ErrEmptyFront           = errors.New("flashcard front must be non-empty")
	ErrEmptyWord            = errors.New("dictionary word must be non-empty")
	ErrMisalignedSegments   = errors.New("segment, translation and pinyin slices must have equal length")
	ErrMissingTransactionID = errors.New("missing transaction id")
	ErrInvalidEntitlement   = errors.New("invalid entitlement value")
)
