package cache

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"pikabook/internal/logger"
)

// Manager layers the memory tier in front of the persistent tier: reads fall
// through memory to the persistent store (backfilling memory on a hit),
// writes and invalidations go to both.
type Manager struct {
	memory     Tier
	persistent Tier
	log        zerolog.Logger
}

// NewManager builds the layered cache. persistent may be nil, leaving a
// memory-only cache (used in tests and by the dictionary CLI).
func NewManager(memory, persistent Tier) *Manager {
	return &Manager{
		memory:     memory,
		persistent: persistent,
		log:        logger.WithComponent("cache"),
	}
}

// Get returns the payload for key from the fastest tier holding a live copy.
// A memory hit never touches the persistent tier.
func (m *Manager) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	payload, ok, err := m.memory.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return payload, true, nil
	}

	if m.persistent == nil {
		return nil, false, nil
	}

	payload, ok, err = m.persistent.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	// Backfill the memory tier so the next read stays local
	if err := m.memory.Set(ctx, key, payload); err != nil {
		m.log.Warn().Err(err).Str("key", key.String()).Msg("Failed to backfill memory tier")
	}
	return payload, true, nil
}

// Set writes the payload through both tiers.
func (m *Manager) Set(ctx context.Context, key Key, payload []byte) error {
	if err := m.memory.Set(ctx, key, payload); err != nil {
		return err
	}
	if m.persistent == nil {
		return nil
	}
	return m.persistent.Set(ctx, key, payload)
}

// GetJSON unmarshals a cached value into v.
func (m *Manager) GetJSON(ctx context.Context, key Key, v any) (bool, error) {
	payload, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		// A payload that no longer unmarshals is treated as a miss and
		// dropped, so a schema change cannot wedge a key forever
		m.log.Warn().Err(err).Str("key", key.String()).Msg("Dropping undecodable cache entry")
		_ = m.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON marshals v and writes it through both tiers.
func (m *Manager) SetJSON(ctx context.Context, key Key, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, payload)
}

// Delete removes a single entry from both tiers.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.memory.Delete(ctx, key); err != nil {
		return err
	}
	if m.persistent == nil {
		return nil
	}
	return m.persistent.Delete(ctx, key)
}

// DeleteByPrefix removes matching entries from both tiers and returns the
// count removed from the persistent tier (the authoritative one).
func (m *Manager) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	n, err := m.memory.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if m.persistent == nil {
		return n, nil
	}
	return m.persistent.DeleteByPrefix(ctx, prefix)
}

// InvalidateNote drops every cached artifact of a note.
func (m *Manager) InvalidateNote(ctx context.Context, userID, noteID string) (int, error) {
	return m.DeleteByPrefix(ctx, NotePrefix(userID, noteID))
}

// InvalidatePage drops every cached artifact of a page.
func (m *Manager) InvalidatePage(ctx context.Context, userID, noteID, pageID string) (int, error) {
	return m.DeleteByPrefix(ctx, PagePrefix(userID, noteID, pageID))
}

// PurgeUser drops every cached artifact of a user, and nothing else.
func (m *Manager) PurgeUser(ctx context.Context, userID string) (int, error) {
	return m.DeleteByPrefix(ctx, UserPrefix(userID))
}

// Stats reports entry counts per tier.
func (m *Manager) Stats(ctx context.Context) (memoryLen, persistentLen int, err error) {
	memoryLen, err = m.memory.Len(ctx)
	if err != nil {
		return 0, 0, err
	}
	if m.persistent == nil {
		return memoryLen, 0, nil
	}
	persistentLen, err = m.persistent.Len(ctx)
	return memoryLen, persistentLen, err
}

// Close closes both tiers.
func (m *Manager) Close() error {
	err := m.memory.Close()
	if m.persistent != nil {
		if perr := m.persistent.Close(); err == nil {
			err = perr
		}
	}
	return err
}
