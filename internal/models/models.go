package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User - An operator of the register (or an admin)
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`                            // Never return this in JSON
	Role         string    `gorm:"size:20;not null" json:"role"` // 'admin', 'cashier'
	CreatedAt    time.Time `json:"created_at"`
}

// Product - The Inventory. Stock is counted in single units, never boxes.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Barcode     string          `gorm:"size:64;index" json:"barcode"`
	Category    string          `gorm:"size:100" json:"category"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	UnitsPerBox int             `gorm:"not null;default:1" json:"units_per_box"`
	BoxPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"box_price"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	Discount    *Discount       `gorm:"foreignKey:ProductID" json:"discount,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Discount - At most one per product
type Discount struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ProductID  uint            `gorm:"uniqueIndex;not null" json:"product_id"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Active     bool            `gorm:"not null" json:"active"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Sale - One row per cart line. Rows of the same checkout share TransactionID.
type Sale struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	TransactionID string  `gorm:"size:36;index;not null" json:"transaction_id"`
	ProductID     uint    `gorm:"index;not null" json:"product_id"`
	Product       Product `json:"product"` // Preload product details
	Quantity      int     `gorm:"not null" json:"quantity"`

	// Pricing as sold. Rows written before these columns existed have zero values.
	UnitsPerBox        int             `gorm:"not null;default:0" json:"units_per_box"`
	OriginalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"original_price"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`

	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod string          `gorm:"size:20;not null" json:"payment_method"`
	CashReceived  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cash_received"`
	Change        decimal.Decimal `gorm:"column:change_due;type:decimal(12,2);not null" json:"change"`
	IsUnitSale    bool            `gorm:"not null" json:"is_unit_sale"`
	OperatorID    uint            `gorm:"index;not null" json:"operator_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditLog - Who did what, and when
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OperatorID uint      `gorm:"index" json:"operator_id"`
	Action     string    `gorm:"size:50;not null" json:"action"`
	Module     string    `gorm:"size:50;not null" json:"module"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// All returns every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Discount{},
		&Sale{},
		&AuditLog{},
	}
}
