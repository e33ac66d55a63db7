// Package workflow orchestrates the note creation pipeline: OCR → clean →
// segment on import (quick create), then LLM translation with machine
// fallback in the background (enrich). Pages surface immediately with their
// original text; translations stream in as workers finish.
package workflow

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pikabook/internal/cache"
	"pikabook/internal/llm"
	"pikabook/internal/logger"
	"pikabook/internal/ocr"
	"pikabook/internal/store"
	"pikabook/internal/textproc"
	"pikabook/pkg/models"
)

// FallbackTranslator is the machine-translation chain the enrich phase uses
// when the LLM fails. Satisfied by *translate.Chain.
type FallbackTranslator interface {
	Translate(ctx context.Context, segments []string) (translations []string, source string, err error)
}

// Config tunes the workflow.
type Config struct {
	Workers  int    // Enrichment worker count
	DataMode string // Cache mode tag for processed text (e.g. "original")
}

// Workflow wires the pipeline stages together.
type Workflow struct {
	ocr      ocr.Service
	llm      llm.Service        // may be nil: enrich goes straight to fallback
	fallback FallbackTranslator // may be nil: LLM failure fails the page
	store    *store.Store
	cache    *cache.Manager
	config   Config
	log      zerolog.Logger
}

// New builds a workflow. llmSvc and fallback may be nil, but not both.
func New(ocrSvc ocr.Service, llmSvc llm.Service, fallback FallbackTranslator, st *store.Store, cacheMgr *cache.Manager, config Config) (*Workflow, error) {
	if ocrSvc == nil {
		return nil, fmt.Errorf("workflow: OCR service is required")
	}
	if st == nil {
		return nil, fmt.Errorf("workflow: store is required")
	}
	if llmSvc == nil && fallback == nil {
		return nil, fmt.Errorf("workflow: need an LLM service or a fallback translator")
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.DataMode == "" {
		config.DataMode = "original"
	}
	return &Workflow{
		ocr:      ocrSvc,
		llm:      llmSvc,
		fallback: fallback,
		store:    st,
		cache:    cacheMgr,
		config:   config,
		log:      logger.WithComponent("workflow"),
	}, nil
}

// QuickCreate runs the pre-LLM phase: OCR, clean and segment every image,
// create the note and its pages in one pass, and leave each page in
// StatusTranslating ready for Enrich. A page whose OCR produces no text is
// marked failed; the note itself is always created so failed pages can be
// retried in place.
func (w *Workflow) QuickCreate(ctx context.Context, userID string, imagePaths []string) (*models.Note, error) {
	const op = "QuickCreate"

	if len(imagePaths) == 0 {
		return nil, fmt.Errorf("%s: no images given", op)
	}

	note := &models.Note{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	if err := w.store.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	readable := 0
	for i, imagePath := range imagePaths {
		page := &models.Page{
			ID:        uuid.NewString(),
			NoteID:    note.ID,
			Ordinal:   i,
			ImagePath: imagePath,
			Status:    models.StatusExtracting,
		}
		if err := w.store.CreatePage(ctx, page); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := w.extractPage(ctx, page); err != nil {
			w.log.Warn().
				Err(err).
				Str("page_id", page.ID).
				Str("image", imagePath).
				Msg("Page extraction failed")
			if serr := w.store.SetPageStatus(ctx, page.ID, models.StatusFailed, err.Error()); serr != nil {
				return nil, fmt.Errorf("%s: %w", op, serr)
			}
			continue
		}
		readable++

		// First readable sentence titles the note
		if note.Title == "" {
			if segments := textproc.Segment(page.OriginalText); len(segments) > 0 {
				note.Title = segments[0]
				if err := w.store.UpdateNoteTitle(ctx, note.ID, note.Title); err != nil {
					return nil, fmt.Errorf("%s: %w", op, err)
				}
			}
		}
	}

	if err := w.store.RecountNote(ctx, note.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	w.log.Info().
		Str("note_id", note.ID).
		Int("pages", len(imagePaths)).
		Int("readable", readable).
		Msg("Quick create finished")

	return w.store.GetNote(ctx, note.ID)
}

// extractPage runs OCR + clean on one page and stores the original text,
// moving the page to StatusTranslating.
func (w *Workflow) extractPage(ctx context.Context, page *models.Page) error {
	file, err := os.Open(page.ImagePath)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	result, err := w.ocr.ProcessImageWithMetadata(ctx, file)
	if err != nil {
		return err
	}

	cleaned := textproc.Clean(result.Text, textproc.DefaultCleanOptions())
	if cleaned == "" {
		return ocr.ErrEmptyPage
	}

	page.OriginalText = cleaned
	page.OCRConfidence = result.Confidence
	page.Status = models.StatusTranslating
	return w.store.UpdatePageText(ctx, page)
}

// Enrich runs the post-LLM phase for every translating page of a note,
// fanning pages out over the worker pool. One failing page never aborts the
// others; the returned error wraps the first failure, if any.
func (w *Workflow) Enrich(ctx context.Context, userID, noteID string) error {
	const op = "Enrich"

	pages, err := w.store.ListPages(ctx, noteID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pool := NewWorkerPool(w.config.Workers, len(pages))
	pool.Start(ctx)

	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup

	for _, page := range pages {
		if page.Status != models.StatusTranslating {
			continue
		}
		page := page
		wg.Add(1)
		err := pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			if err := w.enrichPage(ctx, userID, page); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return err
			}
			return nil
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	pool.Close()

	if firstErr != nil {
		return fmt.Errorf("%s: %w", op, firstErr)
	}
	return nil
}

// ProcessPage retries one page end to end: failed pages are re-extracted,
// translating pages just re-enriched. Completed pages are left alone unless
// force is set.
func (w *Workflow) ProcessPage(ctx context.Context, userID, pageID string, force bool) error {
	const op = "ProcessPage"

	page, err := w.store.GetPage(ctx, pageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if page.Status == models.StatusCompleted && !force {
		return nil
	}

	if page.OriginalText == "" || page.Status == models.StatusFailed {
		if err := w.extractPage(ctx, page); err != nil {
			_ = w.store.SetPageStatus(ctx, page.ID, models.StatusFailed, err.Error())
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if force && w.cache != nil {
		// Drop the stale artifact so enrichment recomputes
		_, _ = w.cache.InvalidatePage(ctx, userID, page.NoteID, page.ID)
	}

	if err := w.enrichPage(ctx, userID, page); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// enrichPage translates one page: cache first, LLM next, machine fallback
// last. The result is written to cache and store, and the page completed.
func (w *Workflow) enrichPage(ctx context.Context, userID string, page *models.Page) error {
	key := cache.PageKey(userID, page.NoteID, page.ID, w.config.DataMode, cache.TypeProcessedText)

	// An unexpired cached artifact short-circuits the LLM entirely
	if w.cache != nil {
		var cached models.ProcessedText
		if ok, err := w.cache.GetJSON(ctx, key, &cached); err == nil && ok && cached.Aligned() {
			w.log.Debug().Str("page_id", page.ID).Msg("Serving processed text from cache")
			return w.persistProcessed(ctx, page, &cached)
		}
	}

	segments := textproc.Segment(page.OriginalText)
	if len(segments) == 0 {
		err := fmt.Errorf("page %s has no segments", page.ID)
		_ = w.store.SetPageStatus(ctx, page.ID, models.StatusFailed, err.Error())
		return err
	}

	processed, err := w.translateSegments(ctx, page, segments)
	if err != nil {
		_ = w.store.SetPageStatus(ctx, page.ID, models.StatusFailed, err.Error())
		return err
	}

	if w.cache != nil {
		if err := w.cache.SetJSON(ctx, key, processed); err != nil {
			w.log.Warn().Err(err).Str("page_id", page.ID).Msg("Failed to cache processed text")
		}
	}

	return w.persistProcessed(ctx, page, processed)
}

// translateSegments produces aligned ProcessedText via the LLM, falling back
// to the machine chain plus local pinyin.
func (w *Workflow) translateSegments(ctx context.Context, page *models.Page, segments []string) (*models.ProcessedText, error) {
	if w.llm != nil {
		processed, err := w.llm.TranslatePage(ctx, page.NoteID, page.ID, segments)
		if err == nil {
			return processed, nil
		}
		w.log.Warn().
			Err(err).
			Str("page_id", page.ID).
			Msg("LLM translation failed, trying machine fallback")
	}

	if w.fallback == nil {
		return nil, fmt.Errorf("no translation path available for page %s", page.ID)
	}

	translations, source, err := w.fallback.Translate(ctx, segments)
	if err != nil {
		return nil, err
	}

	return &models.ProcessedText{
		NoteID:       page.NoteID,
		PageID:       page.ID,
		Segments:     segments,
		Translations: translations,
		Pinyin:       textproc.PinyinAll(segments),
		Source:       source,
		ProcessedAt:  time.Now(),
	}, nil
}

// persistProcessed writes the aligned text back to the page record and
// completes it.
func (w *Workflow) persistProcessed(ctx context.Context, page *models.Page, processed *models.ProcessedText) error {
	if err := processed.Validate(); err != nil {
		return err
	}

	page.OriginalText = processed.JoinedOriginal()
	page.TranslatedText = processed.JoinedTranslation()
	page.Pinyin = processed.JoinedPinyin()
	page.TranslationSource = processed.Source
	page.Status = models.StatusCompleted
	page.Error = ""

	if err := w.store.UpdatePageText(ctx, page); err != nil {
		return err
	}

	w.log.Info().
		Str("page_id", page.ID).
		Str("source", processed.Source).
		Int("segments", len(processed.Segments)).
		Msg("Page enriched")
	return nil
}
