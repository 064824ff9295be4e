package pos

import (
	"math"

	"github.com/shopspring/decimal"
)

// Line is one (product, mode) entry in the cart. Prices are frozen when the line is created
// or its mode is switched.
type Line struct {
	Product            Product         `json:"product"`
	Mode               SaleMode        `json:"mode"`
	Quantity           int             `json:"quantity"`
	UnitsPerBox        int             `json:"units_per_box"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// Factor is the number of stock units one quantity of this line consumes.
func (l Line) Factor() int {
	return unitsFor(l.Mode, l.UnitsPerBox)
}

// Units is the number of stock units the line reserves.
func (l Line) Units() int {
	return l.Quantity * l.Factor()
}

func (l Line) Subtotal() decimal.Decimal {
	return l.FinalPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the ordered set of lines of one POS session. It is not safe for concurrent use;
// the owning Session serializes access.
type Cart struct {
	lines []Line
}

func NewCart() *Cart {
	return &Cart{}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Line returns the line for (productID, mode).
func (c *Cart) Line(productID uint, mode SaleMode) (Line, bool) {
	i := c.find(productID, mode)
	if i < 0 {
		return Line{}, false
	}
	return c.lines[i], true
}

func (c *Cart) find(productID uint, mode SaleMode) int {
	for i, l := range c.lines {
		if l.Product.ID == productID && l.Mode == mode {
			return i
		}
	}
	return -1
}

// Add puts one more item of p into the cart in the requested mode (forced to unit for
// products without boxes). It increments an existing line or creates a new one priced
// from the policy. The cart is left untouched when stock would be exceeded.
func (c *Cart) Add(p Product, requested SaleMode, policy DiscountPolicy) (Line, error) {
	mode := EffectiveMode(p, requested)
	need := unitsFor(mode, p.UnitsPerBox)
	reserved := ReservedUnits(c, p.ID)

	if reserved+need > p.Stock {
		return Line{}, &StockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   need,
			Available:   EffectiveStock(p, c),
		}
	}

	if i := c.find(p.ID, mode); i >= 0 {
		c.lines[i].Quantity++
		return c.lines[i], nil
	}

	q := Resolve(p, mode, policy)
	line := Line{
		Product:            copyProduct(p),
		Mode:               q.Mode,
		Quantity:           1,
		UnitsPerBox:        q.UnitsPerBox,
		OriginalPrice:      q.OriginalPrice,
		FinalPrice:         q.FinalPrice,
		DiscountPercentage: q.DiscountPercentage,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// UpdateQuantity changes a line's quantity by delta. A resulting quantity of zero or less
// removes the line. Increases are checked against p.Stock together with every other line
// for the same product.
func (c *Cart) UpdateQuantity(p Product, mode SaleMode, delta int) error {
	i := c.find(p.ID, mode)
	if i < 0 {
		return ErrLineNotFound
	}
	line := c.lines[i]

	if delta <= -line.Quantity {
		c.removeAt(i)
		return nil
	}

	if delta > 0 {
		// Bound the quantity by what stock allows before multiplying, so a huge delta
		// cannot wrap around.
		room := p.Stock - (ReservedUnits(c, p.ID) - line.Units())
		if room < 0 || delta > room/line.Factor()-line.Quantity {
			return &StockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   unitsCapped(delta, line.Factor()),
				Available:   EffectiveStock(p, c),
			}
		}
	}

	c.lines[i].Quantity += delta
	return nil
}

// unitsCapped is qty*factor, saturating at math.MaxInt.
func unitsCapped(qty, factor int) int {
	if factor > 0 && qty > math.MaxInt/factor {
		return math.MaxInt
	}
	return qty * factor
}

// SwitchMode moves the line (p, from) to the requested mode and reprices it. If a line in
// the target mode already exists the quantities are merged into it.
func (c *Cart) SwitchMode(p Product, from, to SaleMode, policy DiscountPolicy) (Line, error) {
	i := c.find(p.ID, from)
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	src := c.lines[i]
	target := EffectiveMode(p, to)
	if target == src.Mode {
		return src, nil
	}

	q := Resolve(p, target, policy)
	after := ReservedUnits(c, p.ID) - src.Units() + src.Quantity*unitsFor(target, q.UnitsPerBox)
	if after > p.Stock {
		return Line{}, &StockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   src.Quantity * unitsFor(target, q.UnitsPerBox),
			Available:   p.Stock - (ReservedUnits(c, p.ID) - src.Units()),
		}
	}

	switched := Line{
		Product:            copyProduct(p),
		Mode:               q.Mode,
		Quantity:           src.Quantity,
		UnitsPerBox:        q.UnitsPerBox,
		OriginalPrice:      q.OriginalPrice,
		FinalPrice:         q.FinalPrice,
		DiscountPercentage: q.DiscountPercentage,
	}

	if j := c.find(p.ID, target); j >= 0 {
		switched.Quantity += c.lines[j].Quantity
		c.lines[j] = switched
		c.removeAt(i)
		return switched, nil
	}

	c.lines[i] = switched
	return switched, nil
}

// Remove drops the (productID, mode) line if present.
func (c *Cart) Remove(productID uint, mode SaleMode) {
	if i := c.find(productID, mode); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of final price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	return LinesTotal(c.lines)
}

// LinesTotal sums the subtotals of lines.
func LinesTotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}
