package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const papagoEndpoint = "https://papago.apigw.ntruss.com/nmt/v1/translation"

// PapagoTranslator translates through the Naver Papago NMT REST endpoint.
// Papago only accepts one text per request, so segments are joined with
// newlines and split back, relying on Papago preserving line structure.
type PapagoTranslator struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	targetLang   string
	endpoint     string
}

// NewPapagoTranslator creates the provider. Returns a nil Translator (not an
// error) when credentials are absent, so the chain constructor can skip it.
func NewPapagoTranslator(clientID, clientSecret, targetLang string) Translator {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &PapagoTranslator{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		targetLang:   targetLang,
		endpoint:     papagoEndpoint,
	}
}

// NewPapagoTranslatorWithEndpoint creates the provider against a custom
// endpoint (for testing).
func NewPapagoTranslatorWithEndpoint(clientID, clientSecret, targetLang, endpoint string) *PapagoTranslator {
	return &PapagoTranslator{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		targetLang:   targetLang,
		endpoint:     endpoint,
	}
}

// Name identifies the provider.
func (p *PapagoTranslator) Name() string { return "papago" }

type papagoRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

type papagoResponse struct {
	Message struct {
		Result struct {
			TranslatedText string `json:"translatedText"`
		} `json:"result"`
	} `json:"message"`
}

// Translate converts segments from Chinese to the target language.
func (p *PapagoTranslator) Translate(ctx context.Context, segments []string) ([]string, error) {
	const op = "Translate"

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	body, err := json.Marshal(papagoRequest{
		Source: "zh-CN",
		Target: p.targetLang,
		Text:   strings.Join(segments, "\n"),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", p.clientID)
	req.Header.Set("X-NCP-APIGW-API-KEY", p.clientSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrTranslationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%s: %w: status %d: %s", op, ErrTranslationFailed, resp.StatusCode, snippet)
	}

	var parsed papagoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrTranslationFailed, err)
	}

	lines := strings.Split(parsed.Message.Result.TranslatedText, "\n")
	if len(lines) != len(segments) {
		return nil, fmt.Errorf("%s: %w: sent %d lines, got %d", op, ErrMisaligned, len(segments), len(lines))
	}
	return lines, nil
}
