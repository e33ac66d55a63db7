package textproc

import "strings"

// Sentence terminators and the trailing marks allowed to follow them.
var (
	terminators runeSet = newRuneSet("。！？；…")
	trailing    runeSet = newRuneSet("”’』」》）〕】!?\"'")
	softBreaks  runeSet = newRuneSet("，、")
)

type runeSet map[rune]struct{}

func newRuneSet(s string) runeSet {
	set := make(runeSet, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

func (m runeSet) has(r rune) bool {
	_, ok := m[r]
	return ok
}

// maxUnterminatedRunes bounds how long a sentence may grow without a
// terminator before it is split on the next comma-class mark. OCR of
// dialogue-heavy pages sometimes loses the closing punctuation entirely.
const maxUnterminatedRunes = 60

// Segment splits cleaned page text into sentences. Terminators (。！？；…)
// stay attached to their sentence, as do closing quotes and brackets that
// follow them. Newlines always end the current sentence. A run longer than
// maxUnterminatedRunes with no terminator is split at the next comma.
func Segment(text string) []string {
	var segments []string
	var current []rune

	flush := func() {
		s := strings.TrimSpace(string(current))
		if s != "" {
			segments = append(segments, s)
		}
		current = current[:0]
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			flush()
			continue
		}

		current = append(current, r)

		if terminators.has(r) {
			// Pull trailing closers into the same sentence
			for i+1 < len(runes) && trailing.has(runes[i+1]) {
				i++
				current = append(current, runes[i])
			}
			flush()
			continue
		}

		if softBreaks.has(r) && len(current) > maxUnterminatedRunes {
			flush()
		}
	}
	flush()

	return segments
}
