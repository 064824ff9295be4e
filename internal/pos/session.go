package pos

import (
	"context"
	"fmt"
	"sync"

	"pharmacy-pos/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Session is one operator's point-of-sale state: the catalog snapshot, the cart, per-product
// sale-mode preferences and the payment being collected.
//
// Mutations are serialized; each one reads stock and writes the cart under the same lock.
// While a checkout is in flight every mutation is rejected with ErrCheckoutInProgress.
type Session struct {
	mu           sync.Mutex
	operatorID   uint
	loader       *CatalogLoader
	checkout     *Orchestrator
	policy       DiscountPolicy
	logger       *zap.Logger
	snapshot     *Snapshot
	cart         *Cart
	modes        map[uint]SaleMode
	payment      PaymentMethod
	cashReceived decimal.Decimal
	processing   bool
}

func NewSession(operatorID uint, loader *CatalogLoader, checkout *Orchestrator, policy DiscountPolicy, logger *zap.Logger) *Session {
	if policy == nil {
		policy = MaxPercentageFirst
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		operatorID: operatorID,
		loader:     loader,
		checkout:   checkout,
		policy:     policy,
		logger:     logger.With(zap.Uint("operator_id", operatorID)),
		cart:       NewCart(),
		modes:      make(map[uint]SaleMode),
		payment:    PaymentCash,
	}
}

func (s *Session) OperatorID() uint {
	return s.operatorID
}

// Processing reports whether a checkout is in flight.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Refresh loads a new catalog snapshot and replaces the current one.
func (s *Session) Refresh(ctx context.Context) error {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Version() >= s.snapshot.Version() {
		s.snapshot = snap
	}
	return nil
}

// EnsureLoaded loads the catalog if the session has none yet.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.snapshot != nil
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// CatalogItem is a product as the register shows it: with what the cart has not yet taken.
type CatalogItem struct {
	Product        Product  `json:"product"`
	SaleMode       SaleMode `json:"sale_mode"`
	EffectiveStock int      `json:"effective_stock"`
	BoxesAvailable int      `json:"boxes_available"`
	Quote          Quote    `json:"quote"`
}

func (s *Session) Catalog() []CatalogItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.snapshot.Products()
	items := make([]CatalogItem, 0, len(products))
	for _, p := range products {
		mode := s.modeFor(p)
		items = append(items, CatalogItem{
			Product:        p,
			SaleMode:       mode,
			EffectiveStock: EffectiveStock(p, s.cart),
			BoxesAvailable: BoxesAvailable(p, s.cart),
			Quote:          Resolve(p, mode, s.policy),
		})
	}
	return items
}

// SetSaleMode records the mode new additions of a product default to.
func (s *Session) SetSaleMode(productID uint, mode SaleMode) (SaleMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.snapshot.Product(productID)
	if !ok {
		return "", ErrProductNotFound
	}
	effective := EffectiveMode(p, mode)
	s.modes[productID] = effective
	return effective, nil
}

func (s *Session) modeFor(p Product) SaleMode {
	if m, ok := s.modes[p.ID]; ok {
		return EffectiveMode(p, m)
	}
	return ModeUnit
}

// Add adds one item of a product. An empty mode uses the product's sale-mode preference.
func (s *Session) Add(productID uint, mode SaleMode) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return Line{}, ErrCheckoutInProgress
	}
	p, ok := s.snapshot.Product(productID)
	if !ok {
		return Line{}, ErrProductNotFound
	}
	if mode == "" {
		mode = s.modeFor(p)
	}

	line, err := s.cart.Add(p, mode, s.policy)
	if err != nil {
		metrics.CartRejections.WithLabelValues("add").Inc()
		return Line{}, err
	}
	if line.Quantity == 1 && line.FinalPrice.IsZero() {
		s.logger.Warn("zero-priced line added to cart",
			zap.Uint("product_id", p.ID), zap.String("mode", string(line.Mode)))
	}
	return line, nil
}

// UpdateQuantity changes the quantity of a line by delta; reaching zero removes it.
func (s *Session) UpdateQuantity(productID uint, mode SaleMode, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return ErrCheckoutInProgress
	}
	err := s.cart.UpdateQuantity(s.stockView(productID, mode), mode, delta)
	if err != nil && IsRejection(err) {
		metrics.CartRejections.WithLabelValues("update").Inc()
	}
	return err
}

// SwitchLineMode moves a line between box and unit mode, repricing it.
func (s *Session) SwitchLineMode(productID uint, from, to SaleMode) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return Line{}, ErrCheckoutInProgress
	}
	p, ok := s.snapshot.Product(productID)
	if !ok {
		return Line{}, ErrProductNotFound
	}
	line, err := s.cart.SwitchMode(p, from, to, s.policy)
	if err != nil {
		if IsRejection(err) {
			metrics.CartRejections.WithLabelValues("switch").Inc()
		}
		return Line{}, err
	}
	s.modes[productID] = line.Mode
	return line, nil
}

// stockView returns the product as the current snapshot knows it. A product that dropped out
// of the catalog has no sellable stock left, so its cart line is judged against zero.
func (s *Session) stockView(productID uint, mode SaleMode) Product {
	if p, ok := s.snapshot.Product(productID); ok {
		return p
	}
	if l, ok := s.cart.Line(productID, mode); ok {
		p := l.Product
		p.Stock = 0
		return p
	}
	return Product{ID: productID}
}

func (s *Session) Remove(productID uint, mode SaleMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return ErrCheckoutInProgress
	}
	s.cart.Remove(productID, mode)
	return nil
}

// Clear empties the cart.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return ErrCheckoutInProgress
	}
	s.cart.Clear()
	return nil
}

// SetPayment sets the payment method and, for cash, the amount handed over.
func (s *Session) SetPayment(method PaymentMethod, cashReceived decimal.Decimal) error {
	if _, err := ParsePaymentMethod(string(method)); err != nil {
		return err
	}
	if cashReceived.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeCash, cashReceived.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return ErrCheckoutInProgress
	}
	s.payment = method
	s.cashReceived = cashReceived
	return nil
}

// Summary is the cart as shown before checkout.
type Summary struct {
	Lines           []Line          `json:"lines"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CashReceived    decimal.Decimal `json:"cash_received"`
	ChangeDue       decimal.Decimal `json:"change_due"`
	CanCheckout     bool            `json:"can_checkout"`
	Processing      bool            `json:"processing"`
	SnapshotVersion uint64          `json:"snapshot_version"`
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.cart.Total()
	change, covered := ChangeDue(s.payment, s.cashReceived, total)
	return Summary{
		Lines:           s.cart.Lines(),
		Total:           total,
		PaymentMethod:   s.payment,
		CashReceived:    s.cashReceived,
		ChangeDue:       change,
		CanCheckout:     !s.cart.IsEmpty() && covered && !s.processing,
		Processing:      s.processing,
		SnapshotVersion: s.snapshot.Version(),
	}
}

// Checkout commits the cart. The cart and cash received are cleared and the catalog is
// reloaded only when the sale was recorded; on error the cart is kept for a retry.
func (s *Session) Checkout(ctx context.Context) (*Receipt, error) {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	req := CheckoutRequest{
		OperatorID:    s.operatorID,
		Lines:         s.cart.Lines(),
		PaymentMethod: s.payment,
		CashReceived:  s.cashReceived,
	}
	if _, _, err := s.checkout.Validate(req); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.processing = true
	s.mu.Unlock()

	receipt, err := s.checkout.Checkout(ctx, req)

	s.mu.Lock()
	s.processing = false
	if err == nil {
		s.cart.Clear()
		s.cashReceived = decimal.Zero
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if rerr := s.Refresh(ctx); rerr != nil {
		s.logger.Warn("catalog refresh after checkout failed", zap.Error(rerr))
	}
	return receipt, nil
}
