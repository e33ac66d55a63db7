package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrImageTooLarge is returned when the image exceeds the maximum file size limit.
	// Both Vision and Document AI have a 20MB limit for synchronous processing.
	ErrImageTooLarge = errors.New("image size exceeds the maximum limit (20MB)")

	// ErrUnsupportedFormat is returned when the data is not a JPEG, PNG or WebP image.
	ErrUnsupportedFormat = errors.New("unsupported image format (expected JPEG, PNG or WebP)")

	// ErrOCRFailed is returned when the provider fails to process the image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrEmptyPage is returned when the image contains no readable text.
	ErrEmptyPage = errors.New("page contains no readable text")

	// ErrInvalidConfiguration is returned when provider configuration is incomplete.
	ErrInvalidConfiguration = errors.New("invalid OCR provider configuration")
)

// Error wraps errors with additional context about the OCR processing failure.
type Error struct {
	// Op is the operation that failed (e.g., "ProcessImage", "NewVisionService").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error as an ocr.Error if it isn't already one.
func WrapError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *Error
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return &Error{Op: op, Err: err, Details: details}
}
