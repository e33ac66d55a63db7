package llm

import "errors"

// Common translation service errors
var (
	// ErrNoSegments is returned when a page has nothing to translate.
	ErrNoSegments = errors.New("no segments to translate")

	// ErrEmptyResponse is returned when the model returns no usable content.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMalformedResponse is returned when the model response is not the
	// requested JSON shape.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrMisalignedResponse is returned when the response array length does
	// not match the number of input segments.
	ErrMisalignedResponse = errors.New("model response does not align with input segments")
)
