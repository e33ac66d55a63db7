package models

import "time"

// Dictionary entry sources, recorded so cached lookups can be ranked and
// re-fetched selectively.
const (
	DictSourceLocal = "local" // Bundled/imported dictionary data
	DictSourceLLM   = "llm"   // Generated by the LLM fallback
	DictSourceUser  = "user"  // Hand-edited by the user
)

// DictionaryEntry is a single word lookup result.
type DictionaryEntry struct {
	Word    string // Chinese word (simplified)
	Pinyin  string // Tone-marked pinyin
	Meaning string // Translation / definition
	Source  string // One of the DictSource constants

	CreatedAt time.Time // Record creation timestamp
	UpdatedAt time.Time // Last update timestamp
}

// Validate checks the minimal integrity constraints on a dictionary entry.
func (d *DictionaryEntry) Validate() error {
	if d.Word == "" {
		return ErrEmptyWord
	}
	return nil
}
