package pos

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshot is an immutable view of the sellable catalog taken at one point in time.
// A refresh builds a new Snapshot; existing ones are never modified.
type Snapshot struct {
	version  uint64
	loadedAt time.Time
	products []Product
	index    map[uint]int
}

// NewSnapshot joins products with their active discounts by product id.
// Discounts for unknown products and inactive discounts are dropped.
func NewSnapshot(version uint64, loadedAt time.Time, products []Product, discounts []Discount) *Snapshot {
	s := &Snapshot{
		version:  version,
		loadedAt: loadedAt,
		products: make([]Product, 0, len(products)),
		index:    make(map[uint]int, len(products)),
	}

	for _, p := range products {
		if _, dup := s.index[p.ID]; dup {
			continue
		}
		p.Discounts = nil
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}

	for _, d := range discounts {
		if !d.Active {
			continue
		}
		i, ok := s.index[d.ProductID]
		if !ok {
			continue
		}
		s.products[i].Discounts = append(s.products[i].Discounts, d)
	}

	return s
}

func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Product looks up a product by id.
func (s *Snapshot) Product(id uint) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Product{}, false
	}
	return copyProduct(s.products[i]), true
}

// Products returns the catalog in source order.
func (s *Snapshot) Products() []Product {
	if s == nil {
		return nil
	}
	out := make([]Product, len(s.products))
	for i, p := range s.products {
		out[i] = copyProduct(p)
	}
	return out
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}

func copyProduct(p Product) Product {
	if p.Discounts != nil {
		p.Discounts = append([]Discount(nil), p.Discounts...)
	}
	return p
}

// DefaultLoadTimeout bounds one shared catalog fetch.
const DefaultLoadTimeout = 10 * time.Second

// CatalogLoader builds snapshots from a CatalogSource. Concurrent loads share one fetch.
type CatalogLoader struct {
	source  CatalogSource
	version atomic.Uint64
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
}

func NewCatalogLoader(source CatalogSource) *CatalogLoader {
	return &CatalogLoader{
		source:  source,
		timeout: DefaultLoadTimeout,
		now:     time.Now,
	}
}

// Load fetches products and discounts and returns a new snapshot with the next version.
//
// The shared fetch is detached from the caller's cancellation so one abandoned request does
// not fail every load that joined it; it runs under its own timeout instead. A caller whose
// ctx ends first stops waiting and gets ErrCatalogUnavailable wrapping ctx.Err().
func (l *CatalogLoader) Load(ctx context.Context) (*Snapshot, error) {
	ch := l.group.DoChan("catalog", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.fetch(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (l *CatalogLoader) fetch(ctx context.Context) (*Snapshot, error) {
	products, err := l.source.FetchSellableProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch products: %v", ErrCatalogUnavailable, err)
	}
	discounts, err := l.source.FetchActiveDiscounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch discounts: %v", ErrCatalogUnavailable, err)
	}
	return NewSnapshot(l.version.Add(1), l.now(), products, discounts), nil
}
