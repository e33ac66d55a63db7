// Package dictionary resolves word lookups through the local store with an
// LLM fallback, caching results so repeated taps on the same word are free.
package dictionary

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"pikabook/internal/cache"
	"pikabook/internal/llm"
	"pikabook/internal/logger"
	"pikabook/internal/store"
	"pikabook/internal/textproc"
	"pikabook/pkg/models"
)

// ErrWordNotFound is returned when neither the store nor the fallback could
// define the word.
var ErrWordNotFound = errors.New("word not found")

// Service looks up words.
type Service struct {
	store *store.Store
	llm   llm.Service // may be nil: lookups then stop at the store
	cache *cache.Manager
	log   zerolog.Logger
}

// NewService builds the lookup service. llmSvc and cacheMgr may be nil.
func NewService(st *store.Store, llmSvc llm.Service, cacheMgr *cache.Manager) *Service {
	return &Service{
		store: st,
		llm:   llmSvc,
		cache: cacheMgr,
		log:   logger.WithComponent("dictionary"),
	}
}

// Lookup resolves word for userID: cache, then store, then the LLM fallback.
// Fallback results are written back to the store with source "llm". Entries
// that arrive without pinyin get the local transcription.
func (s *Service) Lookup(ctx context.Context, userID, word string) (*models.DictionaryEntry, error) {
	const op = "Lookup"

	if word == "" {
		return nil, models.ErrEmptyWord
	}

	key := cache.DictKey(userID, word)
	if s.cache != nil {
		var cached models.DictionaryEntry
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	entry, err := s.store.LookupWord(ctx, word)
	switch {
	case err == nil:
		// Found locally
	case errors.Is(err, store.ErrNotFound):
		entry, err = s.defineViaLLM(ctx, word)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if entry.Pinyin == "" {
		entry.Pinyin = textproc.Pinyin(entry.Word)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, entry); err != nil {
			s.log.Warn().Err(err).Str("word", word).Msg("Failed to cache dictionary entry")
		}
	}
	return entry, nil
}

func (s *Service) defineViaLLM(ctx context.Context, word string) (*models.DictionaryEntry, error) {
	if s.llm == nil {
		return nil, ErrWordNotFound
	}

	entry, err := s.llm.DefineWord(ctx, word)
	if err != nil {
		return nil, fmt.Errorf("%w: llm fallback failed: %v", ErrWordNotFound, err)
	}

	if err := s.store.UpsertDictionaryEntry(ctx, entry); err != nil {
		// Lookup still succeeded; losing the write-back only costs a
		// repeat LLM call later
		s.log.Warn().Err(err).Str("word", word).Msg("Failed to persist LLM definition")
	}
	return entry, nil
}
