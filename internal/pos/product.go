package pos

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SaleMode is the unit a cart line is sold in.
type SaleMode string

const (
	ModeUnit SaleMode = "unit"
	ModeBox  SaleMode = "box"
)

// ParseSaleMode accepts "unit" or "box" (case-insensitive).
func ParseSaleMode(s string) (SaleMode, error) {
	switch SaleMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeUnit:
		return ModeUnit, nil
	case ModeBox:
		return ModeBox, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSaleMode, s)
	}
}

func (m SaleMode) String() string {
	return string(m)
}

// Product is a sellable catalog entry. Stock is counted in the smallest sellable unit.
type Product struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Barcode     string          `json:"barcode,omitempty"`
	Category    string          `json:"category,omitempty"`
	Stock       int             `json:"stock"`
	UnitsPerBox int             `json:"units_per_box"`
	BoxPrice    decimal.Decimal `json:"box_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discounts   []Discount      `json:"discounts,omitempty"`
}

// HasBoxes reports whether the product is packaged in boxes of more than one unit.
func (p Product) HasBoxes() bool {
	return p.UnitsPerBox > 1
}

// Discount is a percentage discount attached to a single product.
type Discount struct {
	ID         uint            `json:"id"`
	ProductID  uint            `json:"product_id"`
	Percentage decimal.Decimal `json:"percentage"`
	Active     bool            `json:"active"`
}

// unitsFor converts a quantity factor for the given mode into stock units.
func unitsFor(mode SaleMode, unitsPerBox int) int {
	if mode == ModeBox && unitsPerBox > 1 {
		return unitsPerBox
	}
	return 1
}
