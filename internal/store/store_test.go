package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pikabook/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedNote(t *testing.T, s *Store, id, userID string) *models.Note {
	t.Helper()
	note := &models.Note{ID: id, UserID: userID, Title: "测试笔记"}
	require.NoError(t, s.CreateNote(context.Background(), note))
	return note
}

func TestNoteRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")

	got, err := s.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "测试笔记", got.Title)
	assert.False(t, got.Favorite)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetNoteMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetNote(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNotesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	seedNote(t, s, "n2", "u1")
	seedNote(t, s, "other", "u2")
	require.NoError(t, s.UpdateNoteTitle(ctx, "n1", "改了"))

	notes, err := s.ListNotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n1", notes[0].ID, "the updated note sorts first")
}

func TestSetNoteFavorite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	require.NoError(t, s.SetNoteFavorite(ctx, "n1", true))

	got, err := s.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, got.Favorite)

	assert.ErrorIs(t, s.SetNoteFavorite(ctx, "missing", true), ErrNotFound)
}

func TestPageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	page := &models.Page{ID: "p1", NoteID: "n1", Ordinal: 0, Status: models.StatusPending}
	require.NoError(t, s.CreatePage(ctx, page))

	require.NoError(t, s.SetPageStatus(ctx, "p1", models.StatusExtracting, ""))

	page.OriginalText = "你好。"
	page.TranslatedText = "안녕하세요."
	page.Pinyin = "nǐ hǎo."
	page.Status = models.StatusCompleted
	page.TranslationSource = "llm"
	require.NoError(t, s.UpdatePageText(ctx, page))

	got, err := s.GetPage(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "你好。", got.OriginalText)
}

func TestCompletedPageStatusDoesNotMoveBackwards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "p1", NoteID: "n1", Status: models.StatusCompleted}))

	// A stale worker reporting failure must not clobber the completed page
	require.NoError(t, s.SetPageStatus(ctx, "p1", models.StatusFailed, "late failure"))

	got, err := s.GetPage(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestDeleteNoteCascadesToPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "p1", NoteID: "n1", Ordinal: 0}))
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "p2", NoteID: "n1", Ordinal: 1}))

	require.NoError(t, s.DeleteNote(ctx, "n1"))

	_, err := s.GetPage(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	pages, err := s.ListPages(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestListPagesByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "p1", NoteID: "n1", Ordinal: 0, Status: models.StatusFailed}))
	require.NoError(t, s.CreatePage(ctx, &models.Page{ID: "p2", NoteID: "n1", Ordinal: 1, Status: models.StatusCompleted}))

	failed, err := s.ListPagesByStatus(ctx, models.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "p1", failed[0].ID)
}

func TestFlashcardCounterMaintenance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	card := &models.FlashCard{ID: "f1", UserID: "u1", NoteID: "n1", Front: "你好", Back: "hello"}
	require.NoError(t, s.CreateFlashcard(ctx, card))

	note, err := s.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, note.FlashcardCount)

	require.NoError(t, s.DeleteFlashcard(ctx, "f1"))
	note, err = s.GetNote(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 0, note.FlashcardCount)
}

func TestRecordReview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedNote(t, s, "n1", "u1")
	require.NoError(t, s.CreateFlashcard(ctx, &models.FlashCard{ID: "f1", UserID: "u1", NoteID: "n1", Front: "你好"}))

	reviewedAt := time.Now()
	require.NoError(t, s.RecordReview(ctx, "f1", reviewedAt))
	require.NoError(t, s.RecordReview(ctx, "f1", reviewedAt.Add(time.Hour)))

	card, err := s.GetFlashcard(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, card.ReviewCount)
	require.NotNil(t, card.LastReviewedAt)
}

func TestDictionaryUpsertPreservesExistingFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDictionaryEntry(ctx, &models.DictionaryEntry{
		Word: "你好", Pinyin: "nǐ hǎo", Meaning: "hello", Source: models.DictSourceLocal,
	}))

	// Re-upsert with an empty meaning must keep the old one
	require.NoError(t, s.UpsertDictionaryEntry(ctx, &models.DictionaryEntry{
		Word: "你好", Pinyin: "", Meaning: "", Source: models.DictSourceLLM,
	}))

	got, err := s.LookupWord(ctx, "你好")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Meaning)
	assert.Equal(t, "nǐ hǎo", got.Pinyin)
	assert.Equal(t, models.DictSourceLLM, got.Source)
}

func TestEntitlementDefaultsToFree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ent, err := s.GetEntitlement(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementFree, ent)

	require.NoError(t, s.SetEntitlement(ctx, "u1", models.EntitlementTrial))
	ent, err = s.GetEntitlement(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementTrial, ent)
}

func TestMarkTransactionProcessedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.MarkTransactionProcessed(ctx, "tx1", "u1", "premium.monthly")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkTransactionProcessed(ctx, "tx1", "u1", "premium.monthly")
	require.NoError(t, err)
	assert.False(t, again)

	ids, err := s.LoadProcessedTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx1"}, ids)
}
