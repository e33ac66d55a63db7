package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pikabook/internal/cache"
	"pikabook/internal/ocr"
	"pikabook/internal/store"
	"pikabook/pkg/models"
)

// fakeOCR returns scripted text per image path basename.
type fakeOCR struct {
	texts map[string]string // basename -> text; missing means ErrEmptyPage
}

func (f *fakeOCR) ProcessImage(ctx context.Context, image io.Reader) (string, error) {
	result, err := f.ProcessImageWithMetadata(ctx, image)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (f *fakeOCR) ProcessImageWithMetadata(_ context.Context, image io.Reader) (*ocr.Result, error) {
	// The workflow hands us an *os.File; key the script off its name
	name := "?"
	if file, ok := image.(*os.File); ok {
		name = filepath.Base(file.Name())
	}
	text, ok := f.texts[name]
	if !ok {
		return nil, ocr.ErrEmptyPage
	}
	return &ocr.Result{Text: text, Confidence: 0.95}, nil
}

func (f *fakeOCR) Close() error { return nil }

// fakeLLM translates every segment to "T:<segment>".
type fakeLLM struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeLLM) TranslatePage(_ context.Context, noteID, pageID string, segments []string) (*models.ProcessedText, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	processed := &models.ProcessedText{
		NoteID:       noteID,
		PageID:       pageID,
		Segments:     segments,
		Translations: make([]string, len(segments)),
		Pinyin:       make([]string, len(segments)),
		Source:       "llm",
		ProcessedAt:  time.Now(),
	}
	for i, seg := range segments {
		processed.Translations[i] = "T:" + seg
		processed.Pinyin[i] = "P:" + seg
	}
	return processed, nil
}

func (f *fakeLLM) DefineWord(context.Context, string) (*models.DictionaryEntry, error) {
	panic("not used")
}

// fakeFallback translates every segment to "F:<segment>".
type fakeFallback struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeFallback) Translate(_ context.Context, segments []string) ([]string, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = "F:" + seg
	}
	return out, "google", nil
}

// writeImages creates dummy image files and returns their paths.
func writeImages(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644))
	}
	return paths
}

type fixture struct {
	workflow *Workflow
	store    *store.Store
	cache    *cache.Manager
	llm      *fakeLLM
	fallback *fakeFallback
}

func newFixture(t *testing.T, texts map[string]string) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mgr := cache.NewManager(cache.NewMemory(cache.Options{TTL: time.Hour}), nil)
	llmSvc := &fakeLLM{}
	fallback := &fakeFallback{}

	w, err := New(&fakeOCR{texts: texts}, llmSvc, fallback, st, mgr, Config{Workers: 2})
	require.NoError(t, err)

	return &fixture{workflow: w, store: st, cache: mgr, llm: llmSvc, fallback: fallback}
}

func TestQuickCreateBuildsPendingPages(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"a.jpg": "他们到了北京。天气很好。",
		"b.jpg": "第二页的内容。",
	})
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg", "b.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "他们到了北京。", note.Title)
	assert.Equal(t, 2, note.PageCount)

	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	for _, page := range pages {
		assert.Equal(t, models.StatusTranslating, page.Status)
		assert.NotEmpty(t, page.OriginalText)
		assert.Empty(t, page.TranslatedText, "quick create must not translate")
	}
}

func TestQuickCreateUnreadableImageFailsOnlyThatPage(t *testing.T) {
	fx := newFixture(t, map[string]string{"good.jpg": "可以读的页。"})
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "good.jpg", "blank.jpg"))
	require.NoError(t, err)

	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, models.StatusTranslating, pages[0].Status)
	assert.Equal(t, models.StatusFailed, pages[1].Status)
	assert.NotEmpty(t, pages[1].Error)
}

func TestEnrichCompletesPagesViaLLM(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.jpg": "他来了。她走了。"})
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg"))
	require.NoError(t, err)
	require.NoError(t, fx.workflow.Enrich(ctx, "u1", note.ID))

	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	page := pages[0]
	assert.Equal(t, models.StatusCompleted, page.Status)
	assert.Equal(t, "T:他来了。\nT:她走了。", page.TranslatedText)
	assert.Equal(t, "llm", page.TranslationSource)
	assert.Equal(t, 0, fx.fallback.calls)
}

func TestEnrichFallsBackWhenLLMFails(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.jpg": "你好。"})
	fx.llm.err = errors.New("model overloaded")
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg"))
	require.NoError(t, err)
	require.NoError(t, fx.workflow.Enrich(ctx, "u1", note.ID))

	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	page := pages[0]
	assert.Equal(t, models.StatusCompleted, page.Status)
	assert.Equal(t, "F:你好。", page.TranslatedText)
	assert.Equal(t, "google", page.TranslationSource)
	assert.NotEmpty(t, page.Pinyin, "fallback path fills pinyin locally")
}

func TestEnrichMarksPageFailedWhenAllPathsFail(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.jpg": "你好。"})
	fx.llm.err = errors.New("model overloaded")
	fx.fallback.err = errors.New("quota exhausted")
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg"))
	require.NoError(t, err)
	require.Error(t, fx.workflow.Enrich(ctx, "u1", note.ID))

	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, pages[0].Status)
}

func TestEnrichOneFailingPageDoesNotAbortOthers(t *testing.T) {
	fx := newFixture(t, map[string]string{
		"a.jpg": "好的一页。",
		"b.jpg": "另一页。",
	})
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg", "b.jpg"))
	require.NoError(t, err)

	// Poison one page so it has no segmentable text
	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	poisoned := pages[1]
	poisoned.OriginalText = ""
	require.NoError(t, fx.store.UpdatePageText(ctx, poisoned))

	require.Error(t, fx.workflow.Enrich(ctx, "u1", note.ID))

	pages, err = fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, pages[0].Status)
	assert.Equal(t, models.StatusFailed, pages[1].Status)
}

func TestEnrichServesFromCacheWithoutLLM(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.jpg": "你好。"})
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg"))
	require.NoError(t, err)
	require.NoError(t, fx.workflow.Enrich(ctx, "u1", note.ID))
	firstCalls := fx.llm.calls

	// Knock the page back to translating; the cached artifact must satisfy
	// the re-run without another LLM call
	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	page := pages[0]
	page.Status = models.StatusTranslating
	page.TranslatedText = ""
	require.NoError(t, fx.store.UpdatePageText(ctx, page))

	require.NoError(t, fx.workflow.Enrich(ctx, "u1", note.ID))
	assert.Equal(t, firstCalls, fx.llm.calls, "cached page must not touch the LLM")
}

// blockingLLM parks every translation until the context is canceled, the
// way a slow provider call behaves when the user hits Ctrl-C.
type blockingLLM struct{}

func (b *blockingLLM) TranslatePage(ctx context.Context, noteID, pageID string, segments []string) (*models.ProcessedText, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingLLM) DefineWord(context.Context, string) (*models.DictionaryEntry, error) {
	panic("not used")
}

func TestEnrichReturnsWhenContextCanceled(t *testing.T) {
	texts := map[string]string{}
	names := make([]string, 5)
	for i := range names {
		names[i] = fmt.Sprintf("p%d.jpg", i)
		texts[names[i]] = "第一句话。"
	}

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	mgr := cache.NewManager(cache.NewMemory(cache.Options{TTL: time.Hour}), nil)

	// One worker so queued pages pile up behind the blocked one
	w, err := New(&fakeOCR{texts: texts}, &blockingLLM{}, nil, st, mgr, Config{Workers: 1})
	require.NoError(t, err)

	note, err := w.QuickCreate(context.Background(), "u1", writeImages(t, names...))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Enrich(ctx, "u1", note.ID)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Enrich did not return after context cancellation")
	}
}

func TestProcessPageRetriesFailedPage(t *testing.T) {
	fx := newFixture(t, map[string]string{"good.jpg": "可以读的页。"})
	ctx := context.Background()

	// blank.jpg fails extraction during quick create
	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "blank.jpg"))
	require.NoError(t, err)
	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	page := pages[0]
	require.Equal(t, models.StatusFailed, page.Status)

	// The user retakes the photo; now OCR succeeds
	fx.workflow.ocr.(*fakeOCR).texts["blank.jpg"] = "重拍的页。"

	require.NoError(t, fx.workflow.ProcessPage(ctx, "u1", page.ID, false))

	got, err := fx.store.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "T:重拍的页。", got.TranslatedText)
}

func TestProcessPageSkipsCompletedWithoutForce(t *testing.T) {
	fx := newFixture(t, map[string]string{"a.jpg": "你好。"})
	ctx := context.Background()

	note, err := fx.workflow.QuickCreate(ctx, "u1", writeImages(t, "a.jpg"))
	require.NoError(t, err)
	require.NoError(t, fx.workflow.Enrich(ctx, "u1", note.ID))
	completedCalls := fx.llm.calls

	pages, err := fx.store.ListPages(ctx, note.ID)
	require.NoError(t, err)
	require.NoError(t, fx.workflow.ProcessPage(ctx, "u1", pages[0].ID, false))
	assert.Equal(t, completedCalls, fx.llm.calls)
}

func TestNewRejectsMissingTranslationPath(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = New(&fakeOCR{}, nil, nil, st, nil, Config{})
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "fallback")
}
