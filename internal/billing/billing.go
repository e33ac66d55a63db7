// Package billing applies platform purchase events exactly once. Purchase
// notifications arrive at-least-once (redeliveries, restored transactions),
// so every event passes through an idempotency guard keyed by transaction ID
// before it may change a user's entitlement.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pikabook/internal/logger"
	"pikabook/pkg/models"
)

// Store is the persistence surface the guard needs. Satisfied by
// *store.Store.
type Store interface {
	LoadProcessedTransactions(ctx context.Context) ([]string, error)
	SetEntitlement(ctx context.Context, userID string, entitlement models.Entitlement) error
	MarkTransactionProcessed(ctx context.Context, transactionID, userID, productID string) (bool, error)
	GetEntitlement(ctx context.Context, userID string) (models.Entitlement, error)
}

var (
	// ErrDuplicateTransaction marks a redelivered event whose transaction
	// was already applied. Safe to drop.
	ErrDuplicateTransaction = errors.New("billing: transaction already processed")

	// ErrCooldownActive marks a retry arriving before the cooldown since
	// the last failed attempt has elapsed.
	ErrCooldownActive = errors.New("billing: retry cooldown active")

	// ErrTransactionParked marks a transaction that exhausted its attempts
	// and needs manual review.
	ErrTransactionParked = errors.New("billing: transaction parked after repeated failures")
)

const (
	maxAttempts     = 3
	attemptCooldown = 5 * time.Minute
)

// Options tunes the guard. The zero value is fine outside tests.
type Options struct {
	Now func() time.Time // Clock override for tests
}

type attemptState struct {
	count int
	last  time.Time
}

// Guard is the idempotent purchase processor. The processed-transaction set
// is held in memory for fast rejection and mirrored to the store so the
// guard survives restarts.
type Guard struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger

	mu        sync.Mutex
	processed map[string]struct{}
	attempts  map[string]*attemptState
}

// NewGuard builds a guard warmed with every transaction the store has already
// recorded, so redeliveries arriving after a restart are still rejected.
func NewGuard(ctx context.Context, st Store, opts Options) (*Guard, error) {
	if st == nil {
		return nil, fmt.Errorf("billing: store is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ids, err := st.LoadProcessedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing: warm processed set: %w", err)
	}
	processed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		processed[id] = struct{}{}
	}

	return &Guard{
		store:     st,
		now:       now,
		log:       logger.WithComponent("billing"),
		processed: processed,
		attempts:  make(map[string]*attemptState),
	}, nil
}

// Apply processes one purchase event. The first delivery grants the event's
// entitlement and records the transaction; any later delivery with the same
// transaction ID returns ErrDuplicateTransaction without touching the user.
//
// Failed applications may be retried up to maxAttempts times with
// attemptCooldown between attempts, measured from the last attempt. A
// transaction that exhausts its attempts is parked.
func (g *Guard) Apply(ctx context.Context, event *models.PurchaseEvent) error {
	const op = "Apply"

	if err := event.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := g.admit(event.TransactionID); err != nil {
		return err
	}

	entitlement := event.Entitlement
	if event.ExpiresAt != nil && event.ExpiresAt.Before(g.now()) {
		// A restored transaction for a lapsed subscription grants nothing
		entitlement = models.EntitlementFree
	}

	if err := g.store.SetEntitlement(ctx, event.UserID, entitlement); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	inserted, err := g.store.MarkTransactionProcessed(ctx, event.TransactionID, event.UserID, event.ProductID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	g.mu.Lock()
	g.processed[event.TransactionID] = struct{}{}
	delete(g.attempts, event.TransactionID)
	g.mu.Unlock()

	if !inserted {
		// The store already knew this transaction; the entitlement write
		// above was idempotent, so this is only worth a log line.
		g.log.Warn().
			Str("transaction_id", event.TransactionID).
			Msg("Transaction was already durable, memory set was stale")
	}

	g.log.Info().
		Str("transaction_id", event.TransactionID).
		Str("user_id", event.UserID).
		Str("entitlement", string(entitlement)).
		Msg("Purchase applied")
	return nil
}

// admit checks the idempotency set and the retry budget, recording the
// attempt when the event may proceed.
func (g *Guard) admit(transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, done := g.processed[transactionID]; done {
		return ErrDuplicateTransaction
	}

	state, ok := g.attempts[transactionID]
	if !ok {
		g.attempts[transactionID] = &attemptState{count: 1, last: g.now()}
		return nil
	}
	if state.count >= maxAttempts {
		return ErrTransactionParked
	}
	if g.now().Sub(state.last) < attemptCooldown {
		return ErrCooldownActive
	}
	state.count++
	state.last = g.now()
	return nil
}

// Entitlement returns the user's current entitlement.
func (g *Guard) Entitlement(ctx context.Context, userID string) (models.Entitlement, error) {
	return g.store.GetEntitlement(ctx, userID)
}

// Processed reports whether a transaction has already been applied.
func (g *Guard) Processed(transactionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.processed[transactionID]
	return ok
}
