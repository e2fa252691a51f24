package engine

import (
	"math"

	"nifty-meanrev/internal/types"
)

// size returns the quantity one allocation unit buys at price and whether
// the current cash covers it.
func (e *Engine) size(price float64) (int, types.SkipReason, bool) {
	qty := int(math.Floor(e.unit / price))
	if qty <= 0 {
		return 0, types.SkipZeroQty, false
	}
	if price*float64(qty) > e.cash {
		return qty, types.SkipInsufficient, false
	}
	return qty, "", true
}
