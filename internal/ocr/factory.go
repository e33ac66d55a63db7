package ocr

import (
	"context"
	"fmt"
)

// New creates the OCR provider named by the OCR_PROVIDER config value.
func New(ctx context.Context, provider string) (Service, error) {
	switch provider {
	case "", "vision":
		return NewVisionService(ctx)
	case "documentai":
		return NewDocumentAIService(ctx)
	default:
		return nil, WrapError("New", ErrInvalidConfiguration, fmt.Sprintf("unknown provider %q", provider))
	}
}
