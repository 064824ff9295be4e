package database

import (
	"context"
	"fmt"
	"time"

	"pharmacy-pos/internal/models"
	"pharmacy-pos/internal/pos"

	"github.com/shopspring/decimal"
)

// SalesReport sums up the sales recorded in a time range.
type SalesReport struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int64           `json:"transactions"`
	TopSelling   []TopSeller     `json:"top_selling"`
}

type TopSeller struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// GetSalesReport calculates revenue, checkout count and the five best sellers between from and to.
func (s *Store) GetSalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	report := SalesReport{From: from, To: to}
	db := s.db.WithContext(ctx)

	// COALESCE gives 0 instead of NULL when nothing was sold
	err := db.Model(&models.Sale{}).
		Select("COALESCE(SUM(total), 0), COUNT(DISTINCT transaction_id)").
		Where("created_at BETWEEN ? AND ?", from, to).
		Row().
		Scan(&report.Revenue, &report.Transactions)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}

	err = db.Table("sales").
		Select("sales.product_id AS product_id, products.name AS product_name, SUM(sales.total) AS revenue").
		Joins("JOIN products ON sales.product_id = products.id").
		Where("sales.created_at BETWEEN ? AND ?", from, to).
		Group("sales.product_id, products.name").
		Order("revenue DESC").
		Limit(5).
		Scan(&report.TopSelling).Error
	if err != nil {
		return nil, fmt.Errorf("top sellers: %w", err)
	}
	if report.TopSelling == nil {
		report.TopSelling = []TopSeller{}
	}
	return &report, nil
}

// LoadReceipt rebuilds the receipt of a recorded checkout from its sale rows.
func (s *Store) LoadReceipt(ctx context.Context, transactionID string) (*pos.Receipt, error) {
	var rows []models.Sale
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("transaction_id = ?", transactionID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load sale rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}

	first := rows[0]
	receipt := &pos.Receipt{
		TransactionID: transactionID,
		Ticket:        pos.TicketNumber(transactionID),
		OperatorID:    first.OperatorID,
		Lines:         make([]pos.ReceiptLine, 0, len(rows)),
		PaymentMethod: pos.PaymentMethod(first.PaymentMethod),
		CashReceived:  first.CashReceived,
		Change:        first.Change,
		IssuedAt:      first.CreatedAt,
	}

	total := decimal.Zero
	for _, r := range rows {
		receipt.Lines = append(receipt.Lines, receiptLine(r))
		total = total.Add(r.Total)
	}
	receipt.Total = total
	return receipt, nil
}

// receiptLine prints a sale row with the pricing it was sold at. Rows that predate the
// pricing columns fall back to the product's current box size and the average unit price.
func receiptLine(r models.Sale) pos.ReceiptLine {
	line := pos.ReceiptLine{
		ProductID:          r.ProductID,
		Name:               r.Product.Name,
		Mode:               pos.ModeBox,
		Quantity:           r.Quantity,
		UnitsPerBox:        r.UnitsPerBox,
		OriginalPrice:      r.OriginalPrice,
		UnitPrice:          r.UnitPrice,
		DiscountPercentage: r.DiscountPercentage,
		Subtotal:           r.Total,
	}
	if r.IsUnitSale {
		line.Mode = pos.ModeUnit
	}
	if line.UnitsPerBox < 1 {
		line.UnitsPerBox = 1
		if !r.IsUnitSale && r.Product.UnitsPerBox > 1 {
			line.UnitsPerBox = r.Product.UnitsPerBox
		}
	}
	if line.UnitPrice.IsZero() && r.Quantity > 0 {
		line.UnitPrice = r.Total.Div(decimal.NewFromInt(int64(r.Quantity))).Round(2)
	}
	if line.OriginalPrice.IsZero() {
		line.OriginalPrice = line.UnitPrice
	}
	return line
}
