package textproc

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// pinyinArgs is shared; tone-marked output matches what the LLM produces so
// the two paths render identically.
var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.Tone
	return a
}()

// Pinyin returns the tone-marked pinyin transcription of s. Han characters
// are transcribed and separated by spaces; non-Han runs (latin words,
// numbers, punctuation) pass through unchanged. Used as the local fallback
// when the LLM did not supply pinyin for a segment.
func Pinyin(s string) string {
	var b strings.Builder
	var latin []rune
	first := true

	writeSep := func() {
		if !first {
			b.WriteByte(' ')
		}
		first = false
	}

	flushLatin := func() {
		if len(latin) == 0 {
			return
		}
		token := strings.TrimSpace(string(latin))
		latin = latin[:0]
		if token == "" {
			return
		}
		writeSep()
		b.WriteString(token)
	}

	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			flushLatin()
			syllables := pinyin.SinglePinyin(r, pinyinArgs)
			writeSep()
			if len(syllables) > 0 {
				b.WriteString(syllables[0])
			} else {
				b.WriteRune(r)
			}
			continue
		}
		latin = append(latin, r)
	}
	flushLatin()

	return b.String()
}

// PinyinAll transcribes every segment, preserving slice alignment.
func PinyinAll(segments []string) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = Pinyin(s)
	}
	return out
}
