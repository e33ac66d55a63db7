// Package ocr extracts text from photographed book pages.
//
// Two providers are supported: Google Cloud Vision document text detection
// (the default) and a Google Document AI OCR processor. Both are driven by
// credentials from the environment.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID
//
// API Limitations:
//   - Maximum image size: 20MB for synchronous processing
//   - Supported formats: JPEG, PNG, WebP
//   - Dense CJK text is handled by DOCUMENT_TEXT_DETECTION, which preserves
//     reading order across columns and returns per-symbol confidence
package ocr

import (
	"context"
	"io"
	"time"
)

// Service defines the interface for OCR text extraction providers.
type Service interface {
	// ProcessImage extracts text from a photographed page.
	// Returns the raw text in reading order.
	ProcessImage(ctx context.Context, image io.Reader) (string, error)

	// ProcessImageWithMetadata extracts text with additional metadata.
	// Returns detailed results including confidence and detected languages.
	ProcessImageWithMetadata(ctx context.Context, image io.Reader) (*Result, error)

	// Close releases the underlying API client.
	Close() error
}

// Result contains the results of OCR processing with metadata.
type Result struct {
	// Text is the extracted text content in reading order.
	Text string `json:"text"`

	// Confidence is the average confidence across all detected text (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// LanguageCodes contains the languages detected in the image.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

const (
	// MaxImageSizeBytes is the maximum image size for synchronous processing (20MB)
	MaxImageSizeBytes = 20 * 1024 * 1024
)

// sniffImageFormat validates magic bytes and returns the MIME type, or "" for
// unsupported data.
func sniffImageFormat(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	return ""
}
