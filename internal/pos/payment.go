package pos

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

// ChangeDue returns cashReceived - total for cash payments and whether the payment covers
// the total. Non-cash payments always cover the total with no change.
func ChangeDue(method PaymentMethod, cashReceived, total decimal.Decimal) (decimal.Decimal, bool) {
	if method != PaymentCash {
		return decimal.Zero, true
	}
	change := cashReceived.Sub(total)
	if change.IsNegative() {
		return decimal.Zero, false
	}
	return change, true
}
