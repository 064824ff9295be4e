package pos

import "context"

// CatalogSource supplies the products and discounts a snapshot is built from.
type CatalogSource interface {
	// FetchSellableProducts returns products with stock > 0.
	FetchSellableProducts(ctx context.Context) ([]Product, error)
	// FetchActiveDiscounts returns discounts flagged active.
	FetchActiveDiscounts(ctx context.Context) ([]Discount, error)
}

// SaleSink persists the rows of one checkout as a single batch.
type SaleSink interface {
	SubmitSaleRows(ctx context.Context, rows []SaleRow) error
}

// StockSink adjusts on-hand stock. A positive quantity decreases stock, a negative one
// increases it.
type StockSink interface {
	DeductStock(ctx context.Context, productID uint, quantity int) error
}

// AuditSink records operator actions.
type AuditSink interface {
	RecordAudit(ctx context.Context, operatorID uint, action, module, details string) error
}

// AtomicCommitter is implemented by stores that can insert the sale rows, decrement stock
// and write the audit entry in one unit of work.
type AtomicCommitter interface {
	CommitSale(ctx context.Context, commit SaleCommit) error
}

// SaleCommit is everything a checkout writes.
type SaleCommit struct {
	Rows       []SaleRow
	Deductions []StockDeduction
	Audit      AuditEntry
}

// StockDeduction is a stock decrement in smallest units.
type StockDeduction struct {
	ProductID uint
	Units     int
}

type AuditEntry struct {
	OperatorID uint
	Action     string
	Module     string
	Details    string
}
