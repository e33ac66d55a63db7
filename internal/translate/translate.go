// Package translate provides the machine-translation fallback chain used
// when the LLM path fails or is disabled: Google Cloud Translation v3 first,
// then Papago. Providers translate segment slices and preserve alignment.
package translate

import (
	"context"
	"errors"
	"fmt"
)

// Common translation errors
var (
	// ErrNoSegments is returned when there is nothing to translate.
	ErrNoSegments = errors.New("no segments to translate")

	// ErrTranslationFailed is returned when a provider call fails.
	ErrTranslationFailed = errors.New("translation failed")

	// ErrMisaligned is returned when a provider returns the wrong number of
	// translations for the input.
	ErrMisaligned = errors.New("provider returned misaligned translations")

	// ErrAllProvidersFailed is returned when every provider in the chain failed.
	ErrAllProvidersFailed = errors.New("all translation providers failed")
)

// Translator translates a slice of segments, returning one translation per
// input segment, in order.
type Translator interface {
	// Translate converts segments from Chinese to the configured target
	// language. The returned slice always has len(segments) elements.
	Translate(ctx context.Context, segments []string) ([]string, error)

	// Name identifies the provider in logs and provenance fields.
	Name() string
}

// Chain tries each provider in order, returning the first success and the
// name of the provider that produced it.
type Chain struct {
	providers []Translator
}

// NewChain builds a fallback chain. Nil providers are skipped so callers can
// pass optional providers unconditionally.
func NewChain(providers ...Translator) *Chain {
	chain := &Chain{}
	for _, p := range providers {
		if p != nil {
			chain.providers = append(chain.providers, p)
		}
	}
	return chain
}

// Len returns the number of configured providers.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Translate runs the chain.
func (c *Chain) Translate(ctx context.Context, segments []string) ([]string, string, error) {
	if len(segments) == 0 {
		return nil, "", ErrNoSegments
	}
	if len(c.providers) == 0 {
		return nil, "", ErrAllProvidersFailed
	}

	var lastErr error
	for _, provider := range c.providers {
		translations, err := provider.Translate(ctx, segments)
		if err != nil {
			lastErr = err
			continue
		}
		if len(translations) != len(segments) {
			lastErr = fmt.Errorf("%w: %s sent %d, got %d", ErrMisaligned, provider.Name(), len(segments), len(translations))
			continue
		}
		return translations, provider.Name(), nil
	}
	return nil, "", fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
}
