package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"pikabook/internal/logger"
)

// Config is the process-wide configuration, loaded from the environment.
type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32
	LLMMaxRetries     int

	// Google Cloud Configuration
	GoogleCloudProject  string
	GoogleCloudLocation string
	OCRProvider         string // "vision" or "documentai"
	OCRProcessorID      string // Document AI OCR processor ID, when OCRProvider is "documentai"

	// Translation fallback configuration
	TranslateTargetLang string
	PapagoClientID      string
	PapagoClientSecret  string

	// Local storage
	StorePath     string // SQLite database for notes/pages/flashcards
	CachePath     string // SQLite database for the persistent cache tier
	AudioCacheDir string // Directory for synthesized TTS audio

	// Cache tuning
	CacheTTL        time.Duration
	CacheMaxPerType int
	CachePruneBatch int

	// Pipeline tuning
	PipelineWorkers int

	// TTS Configuration
	TTSVoice string
	TTSModel string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:   getFloatEnv("OPENAI_TEMPERATURE", 0.1),
		LLMMaxRetries:       getIntEnv("LLM_MAX_RETRIES", 3),
		GoogleCloudProject:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation: getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		OCRProvider:         getEnv("OCR_PROVIDER", "vision"),
		OCRProcessorID:      getEnv("OCR_PROCESSOR_ID", ""),
		TranslateTargetLang: getEnv("TRANSLATE_TARGET_LANG", "ko"),
		PapagoClientID:      getEnv("PAPAGO_CLIENT_ID", ""),
		PapagoClientSecret:  getEnv("PAPAGO_CLIENT_SECRET", ""),
		StorePath:           getEnv("STORE_PATH", "pikabook.db"),
		CachePath:           getEnv("CACHE_PATH", "pikabook-cache.db"),
		AudioCacheDir:       getEnv("AUDIO_CACHE_DIR", "audio-cache"),
		CacheTTL:            getDurationEnv("CACHE_TTL", 24*time.Hour),
		CacheMaxPerType:     getIntEnv("CACHE_MAX_PER_TYPE", 200),
		CachePruneBatch:     getIntEnv("CACHE_PRUNE_BATCH", 50),
		PipelineWorkers:     getIntEnv("PIPELINE_WORKERS", 2),
		TTSVoice:            getEnv("TTS_VOICE", "alloy"),
		TTSModel:            getEnv("TTS_MODEL", "tts-1"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:           getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.OCRProvider != "vision" && c.OCRProvider != "documentai" {
		return fmt.Errorf("OCR_PROVIDER must be \"vision\" or \"documentai\", got %q", c.OCRProvider)
	}
	if c.OCRProvider == "documentai" && c.OCRProcessorID == "" {
		return fmt.Errorf("OCR_PROCESSOR_ID is required when OCR_PROVIDER is documentai")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.CacheMaxPerType <= 0 {
		return fmt.Errorf("CACHE_MAX_PER_TYPE must be positive")
	}
	if c.PipelineWorkers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
