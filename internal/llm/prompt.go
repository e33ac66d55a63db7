package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"pikabook/pkg/models"
)

// langName maps target codes to the names used in prompts. Unknown codes are
// passed through unchanged; the model copes.
func langName(code string) string {
	switch code {
	case "ko":
		return "Korean"
	case "en":
		return "English"
	case "ja":
		return "Japanese"
	default:
		return code
	}
}

func pageSystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You translate Chinese reading material for language learners.

You will receive a numbered list of Chinese sentences. For EVERY sentence return:
- "translated": a natural %s translation
- "pinyin": tone-marked Hanyu Pinyin (nǐ hǎo style, NOT ni3 hao3)

Return ONLY a JSON array, one object per input sentence, in the same order:
[{"original": "...", "translated": "...", "pinyin": "..."}, ...]

Rules:
- The array length MUST equal the number of input sentences, even when a
  sentence looks like noise; translate noise as best you can
- Keep punctuation in the pinyin aligned with the original
- No trailing commas, no text before or after the JSON array, no code fences`,
		langName(targetLang))
}

func buildPagePrompt(segments []string) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Translate these %d sentences:\n\n", len(segments)))
	for i, seg := range segments {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, seg))
	}
	return prompt.String()
}

func wordSystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a Chinese-%s dictionary. For the given Chinese word return ONLY a JSON object:
{"pinyin": "tone-marked pinyin", "meaning": "concise %s meaning"}
No text before or after the JSON.`, langName(targetLang), langName(targetLang))
}

// segmentRow is one element of the model's page response.
type segmentRow struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
	Pinyin     string `json:"pinyin"`
}

// parseSegmentArray parses the model's JSON array response. Code fences are
// stripped first; models add them no matter how firmly told not to.
func parseSegmentArray(content string) ([]segmentRow, error) {
	cleaned := stripCodeFence(content)

	var rows []segmentRow
	if err := json.Unmarshal([]byte(cleaned), &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResponse
	}
	return rows, nil
}

// parseWordEntry parses the model's dictionary response.
func parseWordEntry(content string) (*models.DictionaryEntry, error) {
	cleaned := stripCodeFence(content)

	var row struct {
		Pinyin  string `json:"pinyin"`
		Meaning string `json:"meaning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if row.Meaning == "" {
		return nil, fmt.Errorf("%w: empty meaning", ErrMalformedResponse)
	}
	return &models.DictionaryEntry{Pinyin: row.Pinyin, Meaning: row.Meaning}, nil
}

// stripCodeFence removes a wrapping ```json ... ``` fence, if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
