package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pikabook/internal/store"
	"pikabook/pkg/models"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// faultStore wraps the real store and lets tests fail entitlement writes.
type faultStore struct {
	*store.Store
	entitlementErr error
}

func (f *faultStore) SetEntitlement(ctx context.Context, userID string, e models.Entitlement) error {
	if f.entitlementErr != nil {
		return f.entitlementErr
	}
	return f.Store.SetEntitlement(ctx, userID, e)
}

func newGuard(t *testing.T) (*Guard, *faultStore, *fakeClock) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	fs := &faultStore{Store: st}
	clock := newFakeClock()
	guard, err := NewGuard(context.Background(), fs, Options{Now: clock.now})
	require.NoError(t, err)
	return guard, fs, clock
}

func premiumEvent(txID, userID string) *models.PurchaseEvent {
	return &models.PurchaseEvent{
		TransactionID: txID,
		UserID:        userID,
		ProductID:     "premium.monthly",
		Entitlement:   models.EntitlementPremium,
		PurchasedAt:   time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestApplyGrantsEntitlementOnce(t *testing.T) {
	guard, _, _ := newGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))

	entitlement, err := guard.Entitlement(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementPremium, entitlement)
	assert.True(t, guard.Processed("tx-1"))
}

func TestApplyRejectsRedelivery(t *testing.T) {
	guard, _, _ := newGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))
	err := guard.Apply(ctx, premiumEvent("tx-1", "u1"))
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
}

func TestGuardWarmsProcessedSetFromStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	guard, err := NewGuard(ctx, st, Options{})
	require.NoError(t, err)
	require.NoError(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))

	// Simulate a restart on the same database
	restarted, err := NewGuard(ctx, st, Options{})
	require.NoError(t, err)
	assert.True(t, restarted.Processed("tx-1"))
	assert.ErrorIs(t, restarted.Apply(ctx, premiumEvent("tx-1", "u1")), ErrDuplicateTransaction)
}

func TestApplyRetryObeysCooldown(t *testing.T) {
	guard, fs, clock := newGuard(t)
	ctx := context.Background()
	fs.entitlementErr = errors.New("platform outage")

	require.Error(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))

	// Immediate retry is held off
	clock.advance(time.Minute)
	assert.ErrorIs(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")), ErrCooldownActive)

	// After the cooldown the retry goes through and succeeds
	clock.advance(5 * time.Minute)
	fs.entitlementErr = nil
	require.NoError(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))

	entitlement, err := guard.Entitlement(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementPremium, entitlement)
}

func TestApplyParksAfterThreeFailedAttempts(t *testing.T) {
	guard, fs, clock := newGuard(t)
	ctx := context.Background()
	fs.entitlementErr = errors.New("platform outage")

	for i := 0; i < 3; i++ {
		require.Error(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))
		clock.advance(6 * time.Minute)
	}

	// Even with the fault cleared the transaction stays parked
	fs.entitlementErr = nil
	assert.ErrorIs(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")), ErrTransactionParked)
}

func TestApplyCooldownMeasuredFromLastAttempt(t *testing.T) {
	guard, fs, clock := newGuard(t)
	ctx := context.Background()
	fs.entitlementErr = errors.New("platform outage")

	require.Error(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))
	clock.advance(6 * time.Minute)
	require.Error(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")))

	// 4 minutes since the SECOND attempt: still cooling down even though
	// 10 minutes have passed since the first
	clock.advance(4 * time.Minute)
	assert.ErrorIs(t, guard.Apply(ctx, premiumEvent("tx-1", "u1")), ErrCooldownActive)
}

func TestApplyLapsedSubscriptionGrantsFree(t *testing.T) {
	guard, _, clock := newGuard(t)
	ctx := context.Background()

	expired := clock.now().Add(-24 * time.Hour)
	event := premiumEvent("tx-old", "u1")
	event.ExpiresAt = &expired

	require.NoError(t, guard.Apply(ctx, event))

	entitlement, err := guard.Entitlement(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementFree, entitlement)
}

func TestApplyRejectsInvalidEvent(t *testing.T) {
	guard, _, _ := newGuard(t)
	ctx := context.Background()

	err := guard.Apply(ctx, &models.PurchaseEvent{UserID: "u1", Entitlement: models.EntitlementPremium})
	assert.ErrorIs(t, err, models.ErrMissingTransactionID)
}

func TestEntitlementDefaultsToFree(t *testing.T) {
	guard, _, _ := newGuard(t)

	entitlement, err := guard.Entitlement(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementFree, entitlement)
}
