// Package tts synthesizes speech for Chinese text via the OpenAI speech API.
// Clips are content-addressed: the same text, voice and model always map to
// the same file under the audio cache directory, so repeated playback never
// re-synthesizes.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"pikabook/internal/cache"
	"pikabook/internal/config"
	"pikabook/internal/logger"
)

var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("tts: empty text")

	// ErrSynthesisFailed wraps speech API failures.
	ErrSynthesisFailed = errors.New("tts: synthesis failed")
)

// SpeechClient is the slice of the OpenAI client the service needs.
// Satisfied by *openai.Client.
type SpeechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// Config holds TTS settings.
type Config struct {
	Voice    string // OpenAI voice name (e.g. "alloy")
	Model    string // Speech model (e.g. "tts-1")
	AudioDir string // Directory for synthesized clips
}

// Service synthesizes and caches speech clips.
type Service struct {
	client SpeechClient
	cache  *cache.Manager // may be nil: file existence still dedupes
	config Config
	log    zerolog.Logger
}

// NewService builds a TTS service from the application config.
func NewService(cfg *config.Config, cacheMgr *cache.Manager) (*Service, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("tts: OpenAI API key is required")
	}
	client := openai.NewClient(cfg.OpenAIAPIKey)
	return NewServiceWithClient(client, cacheMgr, Config{
		Voice:    cfg.TTSVoice,
		Model:    cfg.TTSModel,
		AudioDir: cfg.AudioCacheDir,
	})
}

// NewServiceWithClient builds a TTS service around an existing client.
// Used by tests to inject a fake.
func NewServiceWithClient(client SpeechClient, cacheMgr *cache.Manager, cfg Config) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tts: client is required")
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = "audio-cache"
	}
	return &Service{
		client: client,
		cache:  cacheMgr,
		config: cfg,
		log:    logger.WithComponent("tts"),
	}, nil
}

// Speak returns the path of an MP3 clip for text, synthesizing it on first
// use. userID scopes the cache entry so PurgeUser can drop a user's clips.
func (s *Service) Speak(ctx context.Context, userID, text string) (string, error) {
	const op = "Speak"

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}

	hash := s.contentHash(text)
	clipPath := filepath.Join(s.config.AudioDir, hash+".mp3")
	key := cache.TTSKey(userID, hash, s.config.Voice)

	if s.clipExists(ctx, key, clipPath) {
		s.log.Debug().Str("clip", clipPath).Msg("Serving cached clip")
		return clipPath, nil
	}

	audio, err := s.synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrSynthesisFailed, err)
	}

	if err := os.MkdirAll(s.config.AudioDir, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.WriteFile(clipPath, audio, 0o644); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(clipPath)); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache clip path")
		}
	}

	s.log.Info().
		Str("clip", clipPath).
		Int("bytes", len(audio)).
		Msg("Clip synthesized")
	return clipPath, nil
}

// synthesize calls the speech API and drains the audio stream.
func (s *Service) synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("empty audio stream")
	}
	return audio, nil
}

// clipExists reports whether a usable clip is already on disk. The cache
// entry alone is not enough: the file may have been pruned externally.
func (s *Service) clipExists(ctx context.Context, key cache.Key, clipPath string) bool {
	if _, err := os.Stat(clipPath); err != nil {
		return false
	}
	if s.cache != nil {
		// Refresh the entry so TTL-based pruning sees recent use
		if err := s.cache.Set(ctx, key, []byte(clipPath)); err != nil {
			s.log.Warn().Err(err).Msg("Failed to refresh clip cache entry")
		}
	}
	return true
}

// contentHash derives the clip's content address from text, voice and model.
func (s *Service) contentHash(text string) string {
	h := sha256.Sum256([]byte(s.config.Model + "|" + s.config.Voice + "|" + text))
	return hex.EncodeToString(h[:])
}
