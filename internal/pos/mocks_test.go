package pos

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// memoryStore implements every port over in-memory maps.
type memoryStore struct {
	mu        sync.Mutex
	products  map[uint]Product
	discounts []Discount

	rows      []SaleRow
	audits    []AuditEntry
	calls     []string
	fetches   int
	saleErr   error
	stockErrs map[uint]error
	auditErr  error
	fetchErr  error

	// saleGate, when set, blocks SubmitSaleRows until it is closed; saleEntered is signalled first.
	saleGate    chan struct{}
	saleEntered chan struct{}
}

func newMemoryStore(products ...Product) *memoryStore {
	m := &memoryStore{
		products:  make(map[uint]Product),
		stockErrs: make(map[uint]error),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *memoryStore) FetchSellableProducts(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if p.Stock > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) FetchActiveDiscounts(context.Context) ([]Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Discount
	for _, d := range m.discounts {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryStore) SubmitSaleRows(_ context.Context, rows []SaleRow) error {
	if m.saleEntered != nil {
		m.saleEntered <- struct{}{}
	}
	if m.saleGate != nil {
		<-m.saleGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "sale")
	if m.saleErr != nil {
		return m.saleErr
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memoryStore) DeductStock(_ context.Context, productID uint, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "stock")
	if err := m.stockErrs[productID]; err != nil {
		return err
	}
	p, ok := m.products[productID]
	if !ok {
		return errors.New("product not found")
	}
	if p.Stock < quantity {
		return errors.New("stock conflict")
	}
	p.Stock -= quantity
	m.products[productID] = p
	return nil
}

func (m *memoryStore) RecordAudit(_ context.Context, operatorID uint, action, module, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "audit")
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audits = append(m.audits, AuditEntry{OperatorID: operatorID, Action: action, Module: module, Details: details})
	return nil
}

func (m *memoryStore) stock(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memoryStore) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// atomicStore records commits instead of applying them piecewise.
type atomicStore struct {
	*memoryStore
	commits []SaleCommit
	err     error
}

func (a *atomicStore) CommitSale(_ context.Context, commit SaleCommit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "commit")
	if a.err != nil {
		return a.err
	}
	a.commits = append(a.commits, commit)
	return nil
}

// Fixtures used across the tests.

// productA has boxes of 10 units and 25 units on hand.
func productA() Product {
	return Product{
		ID:          1,
		Name:        "Ibuprofeno 400mg",
		Stock:       25,
		UnitsPerBox: 10,
		BoxPrice:    dec("9000"),
		UnitPrice:   dec("1000"),
	}
}

// productB is sold only by unit at 1000 with an active 20% discount.
func productB() Product {
	return Product{
		ID:          2,
		Name:        "Alcohol en gel",
		Stock:       40,
		UnitsPerBox: 1,
		UnitPrice:   dec("1000"),
		Discounts:   []Discount{{ID: 7, ProductID: 2, Percentage: dec("20"), Active: true}},
	}
}
