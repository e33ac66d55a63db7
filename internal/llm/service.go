// Package llm turns cleaned, segmented Chinese text into aligned
// translation and pinyin using an OpenAI chat-completion model.
//
// The model is prompt-engineered to return a strict JSON array with one
// object per input segment. Responses are re-validated (array length must
// match the segment count) and the request is retried a bounded number of
// times before the caller falls back to machine translation.
package llm

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"pikabook/internal/logger"
	"pikabook/pkg/models"
)

// Service translates segments and defines single words.
type Service interface {
	// TranslatePage translates and pinyin-annotates the segments of one
	// page, returning aligned ProcessedText.
	TranslatePage(ctx context.Context, noteID, pageID string, segments []string) (*models.ProcessedText, error)

	// DefineWord returns a dictionary entry for a single word.
	DefineWord(ctx context.Context, word string) (*models.DictionaryEntry, error)
}

// ChatClient is the slice of the OpenAI client the service needs; tests
// inject a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config tunes the translation service.
type Config struct {
	Model       string  // Chat model name
	Temperature float32 // Sampling temperature, low for extraction work
	MaxRetries  int     // Attempts before giving up on a page
	TargetLang  string  // BCP-47-ish target language code (e.g. "ko", "en")
}

type service struct {
	client ChatClient
	config Config
	log    zerolog.Logger
}

// NewService creates the translator with an OpenAI client from environment.
func NewService(ctx context.Context) (Service, error) {
	const op = "NewService"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY environment variable is required", op)
	}

	config := Config{
		Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature: parseFloatEnv("OPENAI_TEMPERATURE", 0.1),
		MaxRetries:  parseIntEnv("LLM_MAX_RETRIES", 3),
		TargetLang:  getEnv("TRANSLATE_TARGET_LANG", "ko"),
	}

	return NewServiceWithClient(openai.NewClient(apiKey), config), nil
}

// NewServiceWithClient creates the translator with explicit dependencies (for testing).
func NewServiceWithClient(client ChatClient, config Config) Service {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.TargetLang == "" {
		config.TargetLang = "ko"
	}
	return &service{
		client: client,
		config: config,
		log:    logger.WithComponent("llm"),
	}
}

// TranslatePage translates and pinyin-annotates the segments of one page.
func (s *service) TranslatePage(ctx context.Context, noteID, pageID string, segments []string) (*models.ProcessedText, error) {
	const op = "TranslatePage"

	if len(segments) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSegments)
	}

	s.log.Info().
		Str("note_id", noteID).
		Str("page_id", pageID).
		Int("segments", len(segments)).
		Str("model", s.config.Model).
		Msg("Starting page translation")

	prompt := buildPagePrompt(segments)

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: pageSystemPrompt(s.config.TargetLang)},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens: 4000,
		})
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", s.config.MaxRetries).
				Msg("Chat completion request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = ErrEmptyResponse
			continue
		}

		rows, err := parseSegmentArray(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Failed to parse model response, retrying")
			continue
		}

		if len(rows) != len(segments) {
			lastErr = fmt.Errorf("%w: sent %d segments, got %d rows", ErrMisalignedResponse, len(segments), len(rows))
			s.log.Warn().
				Int("want", len(segments)).
				Int("got", len(rows)).
				Int("attempt", attempt).
				Msg("Model returned misaligned array, retrying")
			continue
		}

		processed := &models.ProcessedText{
			NoteID:       noteID,
			PageID:       pageID,
			Segments:     make([]string, len(rows)),
			Translations: make([]string, len(rows)),
			Pinyin:       make([]string, len(rows)),
			Source:       "llm",
			ProcessedAt:  time.Now(),
		}
		for i, row := range rows {
			// Keep our own segmentation as the original text; the model
			// occasionally rewrites hanzi it was only asked to annotate
			processed.Segments[i] = segments[i]
			processed.Translations[i] = row.Translated
			processed.Pinyin[i] = row.Pinyin
		}

		s.log.Info().
			Str("page_id", pageID).
			Int("attempt", attempt).
			Msg("Page translation completed")
		return processed, nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, s.config.MaxRetries, lastErr)
}

// DefineWord returns a dictionary entry for a single word.
func (s *service) DefineWord(ctx context.Context, word string) (*models.DictionaryEntry, error) {
	const op = "DefineWord"

	if word == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrEmptyWord)
	}

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: wordSystemPrompt(s.config.TargetLang)},
				{Role: openai.ChatMessageRoleUser, Content: word},
			},
			MaxTokens: 300,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = ErrEmptyResponse
			continue
		}

		entry, err := parseWordEntry(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			continue
		}
		entry.Word = word
		entry.Source = models.DictSourceLLM
		return entry, nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, s.config.MaxRetries, lastErr)
}

// Helper functions for environment parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
