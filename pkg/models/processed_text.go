package models

import "time"

// ProcessedText is the segment-aligned result of running a page through the
// clean → segment → translate pipeline. The three text slices are parallel:
// Segments[i], Translations[i] and Pinyin[i] always describe the same sentence.
type ProcessedText struct {
	NoteID string // Parent note
	PageID string // Parent page

	Segments     []string // Original sentences, in reading order
	Translations []string // Per-sentence translations
	Pinyin       []string // Per-sentence tone-marked pinyin

	// Display preferences carried alongside the text so the caller can
	// restore the last view mode without a second lookup.
	ShowPinyin      bool // Render pinyin under each sentence
	ShowTranslation bool // Render the translation under each sentence
	FullTextMode    bool // Render the page as one block instead of sentences

	Source      string    // Provider that produced the translations
	ProcessedAt time.Time // When the pipeline finished this page
}

// Aligned reports whether the three parallel slices have matching lengths.
func (p *ProcessedText) Aligned() bool {
	return len(p.Segments) == len(p.Translations) && len(p.Segments) == len(p.Pinyin)
}

// Validate checks the minimal integrity constraints on processed text.
func (p *ProcessedText) Validate() error {
	if p.PageID == "" {
		return ErrMissingPageID
	}
	if !p.Aligned() {
		return ErrMisalignedSegments
	}
	return nil
}

// JoinedOriginal returns the full original text with segments separated by
// newlines, for full-text display and TTS input.
func (p *ProcessedText) JoinedOriginal() string {
	return joinSegments(p.Segments)
}

// JoinedTranslation returns the full translated text.
func (p *ProcessedText) JoinedTranslation() string {
	return joinSegments(p.Translations)
}

// JoinedPinyin returns the full pinyin transcription.
func (p *ProcessedText) JoinedPinyin() string {
	return joinSegments(p.Pinyin)
}

func joinSegments(segs []string) string {
	switch len(segs) {
	case 0:
		return ""
	case 1:
		return segs[0]
	}
	n := 0
	for _, s := range segs {
		n += len(s) + 1
	}
	out := make([]byte, 0, n)
	for i, s := range segs {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, s...)
	}
	return string(out)
}
