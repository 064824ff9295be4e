package pos

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrLineNotFound         = errors.New("cart line not found")
	ErrProductNotFound      = errors.New("product not in catalog")
	ErrInvalidSaleMode      = errors.New("invalid sale mode")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInsufficientCash     = errors.New("cash received is less than total due")
	ErrNegativeCash         = errors.New("cash received cannot be negative")
	ErrNoOperator           = errors.New("no authenticated operator")
	ErrCheckoutInProgress   = errors.New("checkout already in progress")
	ErrCommitFailed         = errors.New("sale could not be committed")
	ErrCatalogUnavailable   = errors.New("catalog could not be loaded")
)

// StockError is returned when a cart mutation would reserve more units than the product has.
type StockError struct {
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d units, %d available",
		e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsRejection reports whether err is a validation rejection: the operator can fix the input
// and nothing was changed.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrLineNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInvalidSaleMode) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientCash) ||
		errors.Is(err, ErrNegativeCash) ||
		errors.Is(err, ErrCheckoutInProgress)
}
