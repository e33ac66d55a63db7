package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"pikabook/internal/logger"
)

// DocumentAIConfig holds configuration for the Document AI OCR provider.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string

	// ProcessorVersion pins a specific processor version. Empty uses the default.
	ProcessorVersion string

	// Timeout is the maximum time to wait for processing. Default: 60 seconds.
	Timeout time.Duration
}

// DocumentAIService implements Service using a Google Document AI OCR processor.
// Compared to Vision it handles skewed photos of spreads better, at the cost
// of per-page pricing.
type DocumentAIService struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIService creates the provider with credentials from environment.
// Requires GOOGLE_CLOUD_PROJECT and OCR_PROCESSOR_ID; GOOGLE_CLOUD_LOCATION
// defaults to "us".
func NewDocumentAIService(ctx context.Context) (Service, error) {
	const op = "NewDocumentAIService"

	config := DocumentAIConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    os.Getenv("GOOGLE_CLOUD_LOCATION"),
		ProcessorID: os.Getenv("OCR_PROCESSOR_ID"),
		Timeout:     60 * time.Second,
	}

	if config.ProjectID == "" {
		return nil, WrapError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapError(op, ErrInvalidConfiguration, "OCR_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption

	// Regional endpoints are required outside the "us" multi-region
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIServiceWithConfig creates the provider with explicit config and client (for testing).
func NewDocumentAIServiceWithConfig(config DocumentAIConfig, client *documentai.DocumentProcessorClient) Service {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &DocumentAIService{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// ProcessImage extracts text from a photographed page.
func (p *DocumentAIService) ProcessImage(ctx context.Context, image io.Reader) (string, error) {
	result, err := p.ProcessImageWithMetadata(ctx, image)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessImageWithMetadata extracts text with confidence metadata.
func (p *DocumentAIService) ProcessImageWithMetadata(ctx context.Context, image io.Reader) (*Result, error) {
	const op = "ProcessImageWithMetadata"
	startTime := time.Now()

	imgBytes, err := io.ReadAll(image)
	if err != nil {
		return nil, WrapError(op, err, "failed to read image data")
	}

	if len(imgBytes) > MaxImageSizeBytes {
		return nil, WrapError(op, ErrImageTooLarge, fmt.Sprintf("file size: %d bytes", len(imgBytes)))
	}

	mimeType := sniffImageFormat(imgBytes)
	if mimeType == "" {
		return nil, WrapError(op, ErrUnsupportedFormat, "unrecognized image header")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  imgBytes,
				MimeType: mimeType,
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, p.handleProcessingError(op, err)
	}

	if resp.Document == nil {
		return nil, WrapError(op, ErrOCRFailed, "no document in response")
	}

	result, err := p.extractText(resp.Document)
	if err != nil {
		return nil, WrapError(op, err, "failed to extract text")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	return result, nil
}

// processorName constructs the full processor resource name.
func (p *DocumentAIService) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to package errors.
func (p *DocumentAIService) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapError(op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapError(op, ErrUnsupportedFormat, "image format not supported or corrupted")
	case strings.Contains(errStr, "context deadline exceeded"):
		return WrapError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return WrapError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// extractText reads the OCR text and page-level confidence from the document.
func (p *DocumentAIService) extractText(doc *documentaipb.Document) (*Result, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyPage
	}

	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)

	for _, page := range doc.Pages {
		for _, lang := range page.DetectedLanguages {
			if lang.LanguageCode != "" {
				languageSet[lang.LanguageCode] = true
			}
		}
		for _, block := range page.Blocks {
			if block.Layout != nil && block.Layout.Confidence > 0 {
				confidenceSum += block.Layout.Confidence
				confidenceCount++
			}
		}
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	var languages []string
	for lang := range languageSet {
		languages = append(languages, lang)
	}

	p.log.Debug().
		Int("text_length", len(doc.Text)).
		Float32("confidence", avgConfidence).
		Msg("Document AI OCR completed")

	return &Result{
		Text:          doc.Text,
		Confidence:    avgConfidence,
		LanguageCodes: languages,
	}, nil
}

// Close closes the underlying Document AI client.
func (p *DocumentAIService) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
