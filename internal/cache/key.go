// Package cache provides the layered result cache for the note pipeline: a
// TTL-bounded in-memory tier in front of a persistent SQLite tier, both keyed
// by composite string keys namespaced per user.
package cache

import (
	"fmt"
	"strings"
)

// Cache entry types. The per-type item cap is enforced independently for
// each type so a flood of TTS clips cannot evict processed pages.
const (
	TypeProcessedText = "processed_text"
	TypeTranslation   = "translation"
	TypeDictionary    = "dictionary"
	TypeTTS           = "tts"
)

// Key identifies one cached artifact. The empty fields of narrower artifacts
// (a dictionary entry has no note or page) serialize as "-" so keys stay
// parseable and pattern-matchable.
type Key struct {
	UserID string
	NoteID string
	PageID string
	Mode   string // Display/data mode the artifact was produced for
	Type   string // One of the Type constants
}

// String renders the composite key:
//
//	u:{user}:note:{note}:page:{page}:mode:{mode}:type:{type}
func (k Key) String() string {
	return fmt.Sprintf("u:%s:note:%s:page:%s:mode:%s:type:%s",
		field(k.UserID), field(k.NoteID), field(k.PageID), field(k.Mode), field(k.Type))
}

func field(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func unfield(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

// ParseKey parses a composite key string back into its parts.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 10 || parts[0] != "u" || parts[2] != "note" ||
		parts[4] != "page" || parts[6] != "mode" || parts[8] != "type" {
		return Key{}, fmt.Errorf("malformed cache key: %q", s)
	}
	return Key{
		UserID: unfield(parts[1]),
		NoteID: unfield(parts[3]),
		PageID: unfield(parts[5]),
		Mode:   unfield(parts[7]),
		Type:   unfield(parts[9]),
	}, nil
}

// PageKey builds the key for a page-level artifact.
func PageKey(userID, noteID, pageID, mode, entryType string) Key {
	return Key{UserID: userID, NoteID: noteID, PageID: pageID, Mode: mode, Type: entryType}
}

// DictKey builds the key for a cached dictionary lookup.
func DictKey(userID, word string) Key {
	return Key{UserID: userID, PageID: word, Type: TypeDictionary}
}

// TTSKey builds the key for a cached TTS clip, keyed by content hash + voice.
func TTSKey(userID, contentHash, voice string) Key {
	return Key{UserID: userID, PageID: contentHash, Mode: voice, Type: TypeTTS}
}

// UserPrefix returns the pattern prefix covering every key of one user.
func UserPrefix(userID string) string {
	return fmt.Sprintf("u:%s:", field(userID))
}

// NotePrefix returns the pattern prefix covering every artifact of one note.
func NotePrefix(userID, noteID string) string {
	return fmt.Sprintf("u:%s:note:%s:", field(userID), field(noteID))
}

// PagePrefix returns the pattern prefix covering every artifact of one page.
func PagePrefix(userID, noteID, pageID string) string {
	return fmt.Sprintf("u:%s:note:%s:page:%s:", field(userID), field(noteID), field(pageID))
}
