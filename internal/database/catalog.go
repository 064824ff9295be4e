package database

import (
	"context"
	"fmt"

	"pharmacy-pos/internal/models"
	"pharmacy-pos/internal/pos"
)

// FetchSellableProducts returns every product with stock on hand, by name.
func (s *Store) FetchSellableProducts(ctx context.Context) ([]pos.Product, error) {
	var rows []models.Product
	err := s.db.WithContext(ctx).
		Where("stock > ?", 0).
		Order("name, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	out := make([]pos.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, toPosProduct(r))
	}
	return out, nil
}

func (s *Store) FetchActiveDiscounts(ctx context.Context) ([]pos.Discount, error) {
	var rows []models.Discount
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch discounts: %w", err)
	}

	out := make([]pos.Discount, 0, len(rows))
	for _, r := range rows {
		out = append(out, toPosDiscount(r))
	}
	return out, nil
}

func toPosProduct(m models.Product) pos.Product {
	upb := m.UnitsPerBox
	if upb < 1 {
		upb = 1
	}
	p := pos.Product{
		ID:          m.ID,
		Name:        m.Name,
		Barcode:     m.Barcode,
		Category:    m.Category,
		Stock:       m.Stock,
		UnitsPerBox: upb,
		BoxPrice:    m.BoxPrice,
		UnitPrice:   m.UnitPrice,
	}
	if m.Discount != nil {
		p.Discounts = []pos.Discount{toPosDiscount(*m.Discount)}
	}
	return p
}

func toPosDiscount(m models.Discount) pos.Discount {
	return pos.Discount{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Percentage: m.Percentage,
		Active:     m.Active,
	}
}
