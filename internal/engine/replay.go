package engine

import (
	"fmt"

	"nifty-meanrev/internal/types"
)

// Replay recomputes the cash balance after each action of a log. Purchases
// debit price x qty and sells credit price x qty; realized P&L is already
// part of the sell proceeds and is not added again.
func Replay(capital float64, actions []types.Action) ([]float64, error) {
	if capital < 0 {
		return nil, fmt.Errorf("%w: capital %.2f is negative", types.ErrInvalidState, capital)
	}
	cash := capital
	out := make([]float64, 0, len(actions))
	for i, a := range actions {
		switch a.Kind {
		case types.ActionBuy, types.ActionAverage:
			cash -= a.Value()
		case types.ActionSell:
			cash += a.Value()
		default:
			return nil, fmt.Errorf("%w: action %d has unknown kind %q", types.ErrInvalidState, i, a.Kind)
		}
		if cash < -1e-6 {
			return nil, fmt.Errorf("%w: cash %.2f negative after action %d (%s %s)", types.ErrInvalidState, cash, i, a.Kind, a.Symbol)
		}
		out = append(out, cash)
	}
	return out, nil
}
