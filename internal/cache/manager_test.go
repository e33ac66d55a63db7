package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTier wraps a tier and counts Get calls, so tests can assert which
// tier served a read.
type countingTier struct {
	Tier
	gets int
}

func (c *countingTier) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	c.gets++
	return c.Tier.Get(ctx, key)
}

func newTestManager(t *testing.T, clock *fakeClock) (*Manager, *countingTier) {
	t.Helper()
	opts := Options{TTL: time.Hour, Now: clock.Now}
	persistent, err := NewSQLite(":memory:", opts)
	require.NoError(t, err)
	counted := &countingTier{Tier: persistent}
	m := NewManager(NewMemory(opts), counted)
	t.Cleanup(func() { m.Close() })
	return m, counted
}

func TestManagerMemoryHitSkipsPersistentTier(t *testing.T) {
	clock := newFakeClock()
	m, persistent := newTestManager(t, clock)
	ctx := context.Background()

	key := pageKeyN(1)
	require.NoError(t, m.Set(ctx, key, []byte("v")))

	got, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 0, persistent.gets, "a live memory entry must not touch the persistent tier")
}

func TestManagerFallsThroughAndBackfills(t *testing.T) {
	clock := newFakeClock()
	opts := Options{TTL: time.Hour, Now: clock.Now}
	sqlTier, err := NewSQLite(":memory:", opts)
	require.NoError(t, err)
	counted := &countingTier{Tier: sqlTier}
	mem := NewMemory(opts)
	m := NewManager(mem, counted)
	t.Cleanup(func() { m.Close() })
	ctx := context.Background()

	// Seed only the persistent tier, simulating a fresh process
	key := pageKeyN(1)
	require.NoError(t, sqlTier.Set(ctx, key, []byte("v")))

	_, ok, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, counted.gets)

	// Second read is served from the backfilled memory tier
	_, ok, err = m.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, counted.gets)
}

func TestManagerDeleteByPrefixHitsBothTiers(t *testing.T) {
	clock := newFakeClock()
	m, _ := newTestManager(t, clock)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, PageKey("u1", "n1", "p1", "original", TypeProcessedText), []byte("a")))
	require.NoError(t, m.Set(ctx, PageKey("u1", "n1", "p2", "original", TypeProcessedText), []byte("b")))

	removed, err := m.InvalidateNote(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	memLen, persistLen, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, memLen)
	assert.Equal(t, 0, persistLen)
}

func TestManagerPurgeUserIsNamespaced(t *testing.T) {
	clock := newFakeClock()
	m, _ := newTestManager(t, clock)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, PageKey("u1", "n1", "p1", "original", TypeProcessedText), []byte("a")))
	require.NoError(t, m.Set(ctx, PageKey("u2", "n1", "p1", "original", TypeProcessedText), []byte("b")))

	_, err := m.PurgeUser(ctx, "u1")
	require.NoError(t, err)

	_, ok, _ := m.Get(ctx, PageKey("u1", "n1", "p1", "original", TypeProcessedText))
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, PageKey("u2", "n1", "p1", "original", TypeProcessedText))
	assert.True(t, ok, "another user's entries must survive a purge")
}

func TestManagerJSONRoundTrip(t *testing.T) {
	clock := newFakeClock()
	m, _ := newTestManager(t, clock)
	ctx := context.Background()

	type payload struct {
		Segments []string `json:"segments"`
	}
	key := pageKeyN(1)
	require.NoError(t, m.SetJSON(ctx, key, payload{Segments: []string{"你好。"}}))

	var got payload
	ok, err := m.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"你好。"}, got.Segments)
}

func TestManagerUndecodableEntryBecomesMiss(t *testing.T) {
	clock := newFakeClock()
	m, _ := newTestManager(t, clock)
	ctx := context.Background()

	key := pageKeyN(1)
	require.NoError(t, m.Set(ctx, key, []byte("{not json")))

	var got map[string]any
	ok, err := m.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	// The poisoned entry was dropped from both tiers
	_, ok, _ = m.Get(ctx, key)
	assert.False(t, ok)
}
