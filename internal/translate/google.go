package translate

import (
	"context"
	"fmt"
	"os"

	translation "cloud.google.com/go/translate/apiv3"
	"cloud.google.com/go/translate/apiv3/translatepb"
	"google.golang.org/api/option"
)

// GoogleTranslator translates through the Cloud Translation v3 API.
type GoogleTranslator struct {
	client     *translation.TranslationClient
	parent     string
	targetLang string
}

// NewGoogleTranslator creates the provider with credentials from environment.
// Requires GOOGLE_CLOUD_PROJECT.
func NewGoogleTranslator(ctx context.Context, targetLang string) (*GoogleTranslator, error) {
	const op = "NewGoogleTranslator"

	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("%s: GOOGLE_CLOUD_PROJECT is required", op)
	}

	var clientOptions []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := translation.NewTranslationClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create translation client: %w", op, err)
	}

	return &GoogleTranslator{
		client:     client,
		parent:     fmt.Sprintf("projects/%s/locations/global", project),
		targetLang: targetLang,
	}, nil
}

// Name identifies the provider.
func (g *GoogleTranslator) Name() string { return "google" }

// Translate converts segments from Chinese to the target language.
func (g *GoogleTranslator) Translate(ctx context.Context, segments []string) ([]string, error) {
	const op = "Translate"

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	resp, err := g.client.TranslateText(ctx, &translatepb.TranslateTextRequest{
		Parent:             g.parent,
		Contents:           segments,
		MimeType:           "text/plain",
		SourceLanguageCode: "zh-CN",
		TargetLanguageCode: g.targetLang,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrTranslationFailed, err)
	}

	if len(resp.Translations) != len(segments) {
		return nil, fmt.Errorf("%s: %w: got %d translations", op, ErrMisaligned, len(resp.Translations))
	}

	translations := make([]string, len(resp.Translations))
	for i, t := range resp.Translations {
		translations[i] = t.TranslatedText
	}
	return translations, nil
}

// Close closes the underlying client.
func (g *GoogleTranslator) Close() error {
	return g.client.Close()
}
