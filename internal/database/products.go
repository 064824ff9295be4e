package database

import (
	"context"
	"errors"
	"fmt"

	"pharmacy-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductPatch carries the fields of a partial product update. Nil fields are left alone.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Barcode     *string          `json:"barcode"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
	UnitsPerBox *int             `json:"units_per_box"`
	BoxPrice    *decimal.Decimal `json:"box_price"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

func (p ProductPatch) columns() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Barcode != nil {
		cols["barcode"] = *p.Barcode
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Stock != nil {
		cols["stock"] = *p.Stock
	}
	if p.UnitsPerBox != nil {
		cols["units_per_box"] = *p.UnitsPerBox
	}
	if p.BoxPrice != nil {
		cols["box_price"] = *p.BoxPrice
	}
	if p.UnitPrice != nil {
		cols["unit_price"] = *p.UnitPrice
	}
	return cols
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Discount").Order("name, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Preload("Discount").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.UnitsPerBox < 1 {
		p.UnitsPerBox = 1
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// UpdateProduct applies patch and returns the updated product.
func (s *Store) UpdateProduct(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	cols := patch.columns()
	if len(cols) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, fmt.Errorf("update product %d: %w", id, res.Error)
		}
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product and its discount. Products with recorded sales stay.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sold int64
		if err := tx.Model(&models.Sale{}).Where("product_id = ?", id).Count(&sold).Error; err != nil {
			return fmt.Errorf("count sales of product %d: %w", id, err)
		}
		if sold > 0 {
			return fmt.Errorf("product %d: %w", id, ErrProductInUse)
		}

		if err := tx.Where("product_id = ?", id).Delete(&models.Discount{}).Error; err != nil {
			return fmt.Errorf("delete discount of product %d: %w", id, err)
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete product %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// UpsertDiscount sets the product's single discount row.
func (s *Store) UpsertDiscount(ctx context.Context, productID uint, percentage decimal.Decimal, active bool) (*models.Discount, error) {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("find product %d: %w", productID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	d := models.Discount{ProductID: productID, Percentage: percentage, Active: active}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "active", "updated_at"}),
	}).Create(&d).Error
	if err != nil {
		return nil, fmt.Errorf("upsert discount of product %d: %w", productID, err)
	}

	var saved models.Discount
	if err := db.Where("product_id = ?", productID).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload discount of product %d: %w", productID, err)
	}
	return &saved, nil
}
