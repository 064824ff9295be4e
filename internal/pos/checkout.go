package pos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmacy-pos/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	AuditActionSale = "SALE"
	AuditModulePOS  = "POS"
)

// CheckoutMode selects how a checkout is written to the store.
type CheckoutMode string

const (
	// CheckoutAtomic writes rows, stock and audit in one store transaction when the store
	// supports it.
	CheckoutAtomic CheckoutMode = "atomic"
	// CheckoutSequential submits rows, then deducts stock line by line, then audits.
	CheckoutSequential CheckoutMode = "sequential"
)

func ParseCheckoutMode(s string) (CheckoutMode, error) {
	switch m := CheckoutMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return CheckoutAtomic, nil
	case CheckoutAtomic, CheckoutSequential:
		return m, nil
	default:
		return "", fmt.Errorf("unknown checkout mode %q", s)
	}
}

// SaleRow is one persisted line of a checkout. All rows of a checkout share TransactionID.
// The line's pricing is stored with it so the receipt can be printed again as it was.
type SaleRow struct {
	TransactionID      string
	ProductID          uint
	Quantity           int
	UnitsPerBox        int
	OriginalPrice      decimal.Decimal
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	Total              decimal.Decimal
	PaymentMethod      PaymentMethod
	CashReceived       decimal.Decimal
	Change             decimal.Decimal
	IsUnitSale         bool
	OperatorID         uint
	CreatedAt          time.Time
}

type CheckoutRequest struct {
	OperatorID    uint
	Lines         []Line
	PaymentMethod PaymentMethod
	CashReceived  decimal.Decimal
}

type ReceiptLine struct {
	ProductID          uint            `json:"product_id"`
	Name               string          `json:"name"`
	Mode               SaleMode        `json:"mode"`
	Quantity           int             `json:"quantity"`
	UnitsPerBox        int             `json:"units_per_box"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Subtotal           decimal.Decimal `json:"subtotal"`
}

// StockFailure records a deduction that did not go through after the sale was recorded.
type StockFailure struct {
	ProductID uint   `json:"product_id"`
	Units     int    `json:"units"`
	Reason    string `json:"reason"`
}

type Receipt struct {
	TransactionID string          `json:"transaction_id"`
	Ticket        string          `json:"ticket"`
	OperatorID    uint            `json:"operator_id"`
	Lines         []ReceiptLine   `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CashReceived  decimal.Decimal `json:"cash_received"`
	Change        decimal.Decimal `json:"change"`
	IssuedAt      time.Time       `json:"issued_at"`
	StockFailures []StockFailure  `json:"stock_failures,omitempty"`
	AuditFailed   bool            `json:"audit_failed,omitempty"`
}

// Consistent reports whether every stock deduction and the audit entry were recorded.
func (r *Receipt) Consistent() bool {
	return len(r.StockFailures) == 0 && !r.AuditFailed
}

// Orchestrator commits a cart as a sale.
type Orchestrator struct {
	sales  SaleSink
	stock  StockSink
	audit  AuditSink
	atomic AtomicCommitter
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Orchestrator)

// WithAtomicCommitter makes checkouts go through a single store transaction.
func WithAtomicCommitter(c AtomicCommitter) Option {
	return func(o *Orchestrator) { o.atomic = c }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func NewOrchestrator(sales SaleSink, stock StockSink, audit AuditSink, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		sales:  sales,
		stock:  stock,
		audit:  audit,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the checkout preconditions and returns the total due and the change.
// No sink is called.
func (o *Orchestrator) Validate(req CheckoutRequest) (decimal.Decimal, decimal.Decimal, error) {
	if len(req.Lines) == 0 {
		return decimal.Zero, decimal.Zero, ErrEmptyCart
	}
	if req.OperatorID == 0 {
		return decimal.Zero, decimal.Zero, ErrNoOperator
	}
	if _, err := ParsePaymentMethod(string(req.PaymentMethod)); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	total := LinesTotal(req.Lines)
	change, ok := ChangeDue(req.PaymentMethod, req.CashReceived, total)
	if !ok {
		return total, decimal.Zero, fmt.Errorf("%w: total %s, received %s",
			ErrInsufficientCash, total.StringFixed(2), req.CashReceived.StringFixed(2))
	}
	return total, change, nil
}

// Checkout records the sale described by req and returns its receipt.
//
// A nil error means the sale rows were written. In sequential mode stock deductions and
// the audit entry run after that point and are not rolled back; failures are reported on
// the receipt instead.
func (o *Orchestrator) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	started := time.Now()
	defer func() { metrics.CheckoutDuration.Observe(time.Since(started).Seconds()) }()

	total, change, err := o.Validate(req)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	cash := req.CashReceived
	if req.PaymentMethod != PaymentCash {
		cash = total
	}

	txID := o.newID()
	receipt := &Receipt{
		TransactionID: txID,
		Ticket:        TicketNumber(txID),
		OperatorID:    req.OperatorID,
		Lines:         make([]ReceiptLine, 0, len(req.Lines)),
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		CashReceived:  cash,
		Change:        change,
		IssuedAt:      o.now(),
	}

	rows := make([]SaleRow, 0, len(req.Lines))
	deductions := make([]StockDeduction, 0, len(req.Lines))
	for _, l := range req.Lines {
		rows = append(rows, SaleRow{
			TransactionID:      txID,
			ProductID:          l.Product.ID,
			Quantity:           l.Quantity,
			UnitsPerBox:        l.UnitsPerBox,
			OriginalPrice:      l.OriginalPrice,
			UnitPrice:          l.FinalPrice,
			DiscountPercentage: l.DiscountPercentage,
			Total:              l.Subtotal(),
			PaymentMethod:      req.PaymentMethod,
			CashReceived:       cash,
			Change:             change,
			IsUnitSale:         l.Mode == ModeUnit,
			OperatorID:         req.OperatorID,
			CreatedAt:          receipt.IssuedAt,
		})
		deductions = append(deductions, StockDeduction{ProductID: l.Product.ID, Units: l.Units()})
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			ProductID:          l.Product.ID,
			Name:               l.Product.Name,
			Mode:               l.Mode,
			Quantity:           l.Quantity,
			UnitsPerBox:        l.UnitsPerBox,
			OriginalPrice:      l.OriginalPrice,
			UnitPrice:          l.FinalPrice,
			DiscountPercentage: l.DiscountPercentage,
			Subtotal:           l.Subtotal(),
		})
	}

	audit := AuditEntry{
		OperatorID: req.OperatorID,
		Action:     AuditActionSale,
		Module:     AuditModulePOS,
		Details: fmt.Sprintf("ticket %s total %s lines %d",
			receipt.Ticket, total.StringFixed(2), len(req.Lines)),
	}

	log := o.logger.With(
		zap.String("transaction_id", txID),
		zap.Uint("operator_id", req.OperatorID),
		zap.Int("lines", len(req.Lines)),
		zap.String("total", total.StringFixed(2)),
	)

	if o.atomic != nil {
		err := o.atomic.CommitSale(ctx, SaleCommit{Rows: rows, Deductions: deductions, Audit: audit})
		if err != nil {
			log.Error("atomic sale commit failed", zap.Error(err))
			metrics.CheckoutsTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
		}
		log.Info("sale committed", zap.String("mode", string(CheckoutAtomic)))
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultCommitted).Inc()
		return receipt, nil
	}

	if err := o.sales.SubmitSaleRows(ctx, rows); err != nil {
		log.Error("sale rows rejected", zap.Error(err))
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	// Rows are recorded from here on; the sale stands even if the steps below fail.
	for _, d := range deductions {
		if err := o.stock.DeductStock(ctx, d.ProductID, d.Units); err != nil {
			log.Error("stock deduction failed after sale was recorded",
				zap.Uint("product_id", d.ProductID), zap.Int("units", d.Units), zap.Error(err))
			metrics.StockDeductionFailures.Inc()
			receipt.StockFailures = append(receipt.StockFailures, StockFailure{
				ProductID: d.ProductID,
				Units:     d.Units,
				Reason:    err.Error(),
			})
		}
	}

	if err := o.audit.RecordAudit(ctx, audit.OperatorID, audit.Action, audit.Module, audit.Details); err != nil {
		log.Warn("audit entry not recorded", zap.Error(err))
		receipt.AuditFailed = true
	}

	if receipt.Consistent() {
		log.Info("sale committed", zap.String("mode", string(CheckoutSequential)))
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultCommitted).Inc()
	} else {
		log.Warn("sale committed with inconsistencies",
			zap.Int("stock_failures", len(receipt.StockFailures)), zap.Bool("audit_failed", receipt.AuditFailed))
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultPartial).Inc()
	}
	return receipt, nil
}

// TicketNumber is the short, printable form of a transaction id.
func TicketNumber(txID string) string {
	id := strings.ReplaceAll(txID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}
