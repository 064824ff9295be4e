package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservedUnits_SumsBoxAndUnitLines(t *testing.T) {
	cart := NewCart()
	a := productA()

	_, err := cart.Add(a, ModeBox, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = cart.Add(a, ModeUnit, nil)
		require.NoError(t, err)
	}
	_, err = cart.Add(productB(), ModeUnit, nil)
	require.NoError(t, err)

	assert.Equal(t, 13, ReservedUnits(cart, a.ID))
	assert.Equal(t, 1, ReservedUnits(cart, productB().ID))
	assert.Equal(t, 0, ReservedUnits(cart, 99))
	assert.Equal(t, 0, ReservedUnits(nil, a.ID))

	sum := 0
	for _, l := range cart.Lines() {
		if l.Product.ID == a.ID {
			sum += l.Quantity * l.Factor()
		}
	}
	assert.Equal(t, sum, ReservedUnits(cart, a.ID))
}

func TestEffectiveStock_NeverNegative(t *testing.T) {
	cart := NewCart()
	a := productA()
	_, err := cart.Add(a, ModeBox, nil)
	require.NoError(t, err)
	_, err = cart.Add(a, ModeBox, nil)
	require.NoError(t, err)

	// The catalog now reports less stock than the cart already holds.
	a.Stock = 5
	assert.Equal(t, 0, EffectiveStock(a, cart))
	assert.Equal(t, 0, BoxesAvailable(a, cart))
}

func TestBoxesAvailable_ProductWithoutBoxesReportsUnits(t *testing.T) {
	b := productB()
	assert.Equal(t, 40, BoxesAvailable(b, NewCart()))
}

func TestLedger_MixedModeScenario(t *testing.T) {
	cart := NewCart()
	a := productA()

	_, err := cart.Add(a, ModeBox, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, EffectiveStock(a, cart))
	assert.Equal(t, 1, BoxesAvailable(a, cart))

	for i := 0; i < 5; i++ {
		_, err = cart.Add(a, ModeUnit, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, EffectiveStock(a, cart))

	// Exactly ten units are free, so one more box fits.
	_, err = cart.Add(a, ModeBox, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, EffectiveStock(a, cart))

	before := cart.Lines()
	_, err = cart.Add(a, ModeBox, nil)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, before, cart.Lines())

	_, err = cart.Add(a, ModeUnit, nil)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 25, ReservedUnits(cart, a.ID))
}
