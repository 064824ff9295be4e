package pos

// ReservedUnits is the number of stock units of productID promised to lines in the cart,
// counting box lines at their units-per-box.
func ReservedUnits(c *Cart, productID uint) int {
	if c == nil {
		return 0
	}
	reserved := 0
	for _, l := range c.lines {
		if l.Product.ID == productID {
			reserved += l.Units()
		}
	}
	return reserved
}

// EffectiveStock is the product's on-hand stock minus what the cart reserves, never below zero.
func EffectiveStock(p Product, c *Cart) int {
	free := p.Stock - ReservedUnits(c, p.ID)
	if free < 0 {
		return 0
	}
	return free
}

// BoxesAvailable is how many whole boxes can still be added. Products without boxes report
// their effective stock.
func BoxesAvailable(p Product, c *Cart) int {
	free := EffectiveStock(p, c)
	if !p.HasBoxes() {
		return free
	}
	return free / p.UnitsPerBox
}
