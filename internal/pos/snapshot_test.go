package pos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot_JoinsActiveDiscounts(t *testing.T) {
	a := productA()
	b := productB()
	b.Discounts = nil

	discounts := []Discount{
		{ID: 1, ProductID: b.ID, Percentage: dec("20"), Active: true},
		{ID: 2, ProductID: b.ID, Percentage: dec("90"), Active: false},
		{ID: 3, ProductID: 404, Percentage: dec("10"), Active: true},
	}
	snap := NewSnapshot(3, time.Unix(100, 0), []Product{a, b}, discounts)

	assert.Equal(t, uint64(3), snap.Version())
	assert.Equal(t, 2, snap.Len())

	got, ok := snap.Product(b.ID)
	require.True(t, ok)
	require.Len(t, got.Discounts, 1)
	assert.Equal(t, uint(1), got.Discounts[0].ID)

	got, ok = snap.Product(a.ID)
	require.True(t, ok)
	assert.Empty(t, got.Discounts)

	_, ok = snap.Product(404)
	assert.False(t, ok)
}

func TestSnapshot_IsNotMutatedThroughReturnedValues(t *testing.T) {
	b := productB()
	snap := NewSnapshot(1, time.Now(), []Product{b}, b.Discounts)

	got, _ := snap.Product(b.ID)
	got.Stock = 0
	got.Discounts[0].Percentage = dec("99")

	again, _ := snap.Product(b.ID)
	assert.Equal(t, 40, again.Stock)
	assertDecimal(t, "20", again.Discounts[0].Percentage)

	list := snap.Products()
	list[0].Name = "changed"
	again, _ = snap.Product(b.ID)
	assert.Equal(t, "Alcohol en gel", again.Name)
}

func TestSnapshot_NilIsEmpty(t *testing.T) {
	var snap *Snapshot
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, uint64(0), snap.Version())
	assert.Nil(t, snap.Products())
	_, ok := snap.Product(1)
	assert.False(t, ok)
}

func TestCatalogLoader_VersionsIncrease(t *testing.T) {
	store := newMemoryStore(productA(), productB())
	loader := NewCatalogLoader(store)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first.Len())
	assert.Greater(t, second.Version(), first.Version())
	assert.NotSame(t, first, second)
}

func TestCatalogLoader_SkipsProductsWithoutStock(t *testing.T) {
	empty := productB()
	empty.ID = 3
	empty.Stock = 0
	store := newMemoryStore(productA(), empty)

	snap, err := NewCatalogLoader(store).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
}

func TestCatalogLoader_SourceError(t *testing.T) {
	store := newMemoryStore()
	store.fetchErr = errors.New("connection refused")

	_, err := NewCatalogLoader(store).Load(context.Background())
	require.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

// gatedSource blocks product fetches until release is closed and records the context state
// each fetch saw when it resumed.
type gatedSource struct {
	*memoryStore
	entered chan struct{}
	release chan struct{}
	seen    chan error
}

func (g *gatedSource) FetchSellableProducts(ctx context.Context) ([]Product, error) {
	g.entered <- struct{}{}
	<-g.release
	g.seen <- ctx.Err()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.memoryStore.FetchSellableProducts(ctx)
}

func TestCatalogLoader_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &gatedSource{
		memoryStore: newMemoryStore(productA()),
		entered:     make(chan struct{}, 2),
		release:     make(chan struct{}),
		seen:        make(chan error, 2),
	}
	loader := NewCatalogLoader(src)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := loader.Load(leaderCtx)
		leaderErr <- err
	}()
	<-src.entered

	type result struct {
		snap *Snapshot
		err  error
	}
	joined := make(chan result, 1)
	go func() {
		snap, err := loader.Load(context.Background())
		joined <- result{snap, err}
	}()

	cancel()
	err := <-leaderErr
	require.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	close(src.release)
	res := <-joined
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.snap.Len())
	assert.NoError(t, <-src.seen, "the shared fetch outlives the caller that started it")
}
