package database

import (
	"context"
	"fmt"
	"math"

	"pharmacy-pos/internal/models"
	"pharmacy-pos/internal/pos"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmitSaleRows inserts all rows of a checkout in one statement.
func (s *Store) SubmitSaleRows(ctx context.Context, rows []pos.SaleRow) error {
	if len(rows) == 0 {
		return nil
	}
	return insertSales(s.db.WithContext(ctx), rows)
}

func insertSales(tx *gorm.DB, rows []pos.SaleRow) error {
	sales := make([]models.Sale, 0, len(rows))
	for _, r := range rows {
		sales = append(sales, toSaleModel(r))
	}
	if err := tx.Omit(clause.Associations).Create(&sales).Error; err != nil {
		return fmt.Errorf("insert sale rows: %w", err)
	}
	return nil
}

// DeductStock takes quantity units off a product. The decrement only applies when enough
// stock is on hand; a negative quantity puts stock back unless the result would overflow.
func (s *Store) DeductStock(ctx context.Context, productID uint, quantity int) error {
	return deductStock(s.db.WithContext(ctx), productID, quantity)
}

func deductStock(tx *gorm.DB, productID uint, quantity int) error {
	if quantity == 0 {
		return nil
	}

	q := tx.Model(&models.Product{}).Where("id = ? AND stock >= ?", productID, quantity)
	if quantity < 0 {
		// Putting stock back must not push the column past what it can hold.
		q = q.Where("stock <= ?", math.MaxInt64+int64(quantity))
	}
	res := q.UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("deduct stock of product %d: %w", productID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return fmt.Errorf("deduct stock of product %d: %w", productID, err)
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return fmt.Errorf("product %d, %d units: %w", productID, quantity, ErrStockConflict)
}

// RecordAudit appends an audit log entry.
func (s *Store) RecordAudit(ctx context.Context, operatorID uint, action, module, details string) error {
	return insertAudit(s.db.WithContext(ctx), pos.AuditEntry{
		OperatorID: operatorID,
		Action:     action,
		Module:     module,
		Details:    details,
	})
}

func insertAudit(tx *gorm.DB, e pos.AuditEntry) error {
	entry := models.AuditLog{
		OperatorID: e.OperatorID,
		Action:     e.Action,
		Module:     e.Module,
		Details:    e.Details,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// CommitSale writes the rows, the guarded stock decrements and the audit entry in one
// transaction. Nothing is kept if any step fails.
func (s *Store) CommitSale(ctx context.Context, commit pos.SaleCommit) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertSales(tx, commit.Rows); err != nil {
			return err
		}
		for _, d := range commit.Deductions {
			if err := deductStock(tx, d.ProductID, d.Units); err != nil {
				return err
			}
		}
		return insertAudit(tx, commit.Audit)
	})
	if err != nil {
		s.log.Warn("sale transaction rolled back", zap.Int("rows", len(commit.Rows)), zap.Error(err))
		return err
	}
	return nil
}

func toSaleModel(r pos.SaleRow) models.Sale {
	return models.Sale{
		TransactionID: r.TransactionID,
		ProductID:     r.ProductID,
		Quantity:      r.Quantity,

		UnitsPerBox:        r.UnitsPerBox,
		OriginalPrice:      r.OriginalPrice,
		UnitPrice:          r.UnitPrice,
		DiscountPercentage: r.DiscountPercentage,

		Total:         r.Total,
		PaymentMethod: string(r.PaymentMethod),
		CashReceived:  r.CashReceived,
		Change:        r.Change,
		IsUnitSale:    r.IsUnitSale,
		OperatorID:    r.OperatorID,
		CreatedAt:     r.CreatedAt,
	}
}
