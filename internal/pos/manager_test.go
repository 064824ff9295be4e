package pos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store *memoryStore) *SessionManager {
	return NewSessionManager(NewCatalogLoader(store), newTestOrchestrator(store), nil, nil)
}

func TestSessionManager_OneSessionPerOperator(t *testing.T) {
	store := storeWithDiscounts(productA(), productB())
	m := newTestManager(store)
	ctx := context.Background()

	first, err := m.Get(ctx, 3)
	require.NoError(t, err)
	again, err := m.Get(ctx, 3)
	require.NoError(t, err)
	other, err := m.Get(ctx, 4)
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
	assert.Equal(t, uint(3), first.OperatorID())
	assert.Equal(t, 2, first.Snapshot().Len())

	_, err = first.Add(productA().ID, ModeUnit)
	require.NoError(t, err)
	assert.Empty(t, other.Summary().Lines, "carts are per operator")
}

func TestSessionManager_RequiresOperator(t *testing.T) {
	m := newTestManager(newMemoryStore(productA()))

	_, err := m.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoOperator)
}

func TestSessionManager_Reset(t *testing.T) {
	m := newTestManager(storeWithDiscounts(productA()))
	ctx := context.Background()

	s, err := m.Get(ctx, 3)
	require.NoError(t, err)
	_, err = s.Add(productA().ID, ModeUnit)
	require.NoError(t, err)

	m.Reset(3)
	m.Reset(99)

	fresh, err := m.Get(ctx, 3)
	require.NoError(t, err)
	assert.NotSame(t, s, fresh)
	assert.Empty(t, fresh.Summary().Lines)
}

func TestSessionManager_CatalogFailureRetriesOnNextGet(t *testing.T) {
	store := newMemoryStore(productA())
	store.fetchErr = errors.New("connection refused")
	m := newTestManager(store)

	_, err := m.Get(context.Background(), 3)
	require.ErrorIs(t, err, ErrCatalogUnavailable)

	store.fetchErr = nil
	s, err := m.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Snapshot().Len())
}

func TestSessionManager_EvictsIdleSessions(t *testing.T) {
	store := storeWithDiscounts(productA(), productB())
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager(NewCatalogLoader(store), newTestOrchestrator(store), nil, nil,
		WithIdleTimeout(time.Hour), WithManagerClock(func() time.Time { return now }))
	ctx := context.Background()

	stale, err := m.Get(ctx, 3)
	require.NoError(t, err)
	_, err = stale.Add(productA().ID, ModeUnit)
	require.NoError(t, err)

	now = now.Add(40 * time.Minute)
	_, err = m.Get(ctx, 4)
	require.NoError(t, err)
	assert.Zero(t, m.EvictIdle(), "nobody idle for an hour yet")

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, m.EvictIdle())
	assert.Equal(t, 1, m.Len())

	fresh, err := m.Get(ctx, 3)
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.Empty(t, fresh.Summary().Lines)
}

func TestSessionManager_KeepsSessionWithCheckoutInFlight(t *testing.T) {
	store := storeWithDiscounts(productB())
	store.saleGate = make(chan struct{})
	store.saleEntered = make(chan struct{}, 1)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager(NewCatalogLoader(store), newTestOrchestrator(store), nil, nil,
		WithIdleTimeout(time.Minute), WithManagerClock(func() time.Time { return now }))
	ctx := context.Background()

	s, err := m.Get(ctx, 3)
	require.NoError(t, err)
	_, err = s.Add(productB().ID, ModeUnit)
	require.NoError(t, err)
	require.NoError(t, s.SetPayment(PaymentCard, decimal.Zero))

	done := make(chan error, 1)
	go func() {
		_, err := s.Checkout(ctx)
		done <- err
	}()
	<-store.saleEntered

	now = now.Add(time.Hour)
	assert.Zero(t, m.EvictIdle())
	assert.Equal(t, 1, m.Len())

	close(store.saleGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, m.EvictIdle())
}

func TestSessionManager_NoIdleTimeoutKeepsSessions(t *testing.T) {
	m := newTestManager(storeWithDiscounts(productA()))
	_, err := m.Get(context.Background(), 3)
	require.NoError(t, err)

	assert.Zero(t, m.EvictIdle())
	assert.Equal(t, 1, m.Len())
}
