package pos

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountPolicy selects the discount that applies to a product, if any.
type DiscountPolicy func(discounts []Discount) (Discount, bool)

// MaxPercentageFirst picks the active discount with the highest percentage; on a tie the
// earliest one wins.
func MaxPercentageFirst(discounts []Discount) (Discount, bool) {
	return pickMax(discounts, false)
}

// MaxPercentageLast is MaxPercentageFirst with ties going to the latest discount.
func MaxPercentageLast(discounts []Discount) (Discount, bool) {
	return pickMax(discounts, true)
}

func pickMax(discounts []Discount, lastWins bool) (Discount, bool) {
	var best Discount
	found := false
	for _, d := range discounts {
		if !d.Active {
			continue
		}
		cmp := d.Percentage.Cmp(best.Percentage)
		if !found || cmp > 0 || (lastWins && cmp == 0) {
			best = d
			found = true
		}
	}
	return best, found
}

// PolicyFor maps a tie-break name ("first" or "last") to a policy.
func PolicyFor(tieBreak string) (DiscountPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(tieBreak)) {
	case "", "first":
		return MaxPercentageFirst, nil
	case "last":
		return MaxPercentageLast, nil
	default:
		return nil, fmt.Errorf("unknown discount tie-break %q", tieBreak)
	}
}

// EffectiveMode forces unit mode for products that are not packaged in boxes.
func EffectiveMode(p Product, requested SaleMode) SaleMode {
	if !p.HasBoxes() {
		return ModeUnit
	}
	if requested == ModeBox {
		return ModeBox
	}
	return ModeUnit
}

// BasePrice is the undiscounted price of one item sold in mode.
func BasePrice(p Product, mode SaleMode) decimal.Decimal {
	if mode == ModeBox {
		return p.BoxPrice
	}
	return p.UnitPrice
}

// Quote is the resolved mode and prices for adding a product to the cart.
type Quote struct {
	Mode               SaleMode        `json:"mode"`
	UnitsPerBox        int             `json:"units_per_box"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// Resolve prices product p in the requested mode. A zero base price is not an error.
func Resolve(p Product, requested SaleMode, policy DiscountPolicy) Quote {
	if policy == nil {
		policy = MaxPercentageFirst
	}
	mode := EffectiveMode(p, requested)
	base := BasePrice(p, mode)

	q := Quote{
		Mode:          mode,
		UnitsPerBox:   max(p.UnitsPerBox, 1),
		OriginalPrice: base,
		FinalPrice:    base,
	}
	if d, ok := policy(p.Discounts); ok {
		q.DiscountPercentage = d.Percentage
		q.FinalPrice = base.Mul(decimal.NewFromInt(1).Sub(d.Percentage.Div(hundred))).Round(2)
	}
	return q
}
