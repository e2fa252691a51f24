package engine

import (
	"context"

	"nifty-meanrev/internal/types"
)

// exit sells the first held symbol, in lexical order, trading at or above
// (100+TakeProfitPct)% of its average buy price. At most one sell per date.
func (e *Engine) exit(ctx context.Context, snap types.Snapshot, res *types.StepResult) error {
	for _, s := range e.book.Held() {
		price, ok := snap.Prices[s]
		if !ok {
			continue
		}
		avg, err := e.book.AverageBuyPrice(s)
		if err != nil {
			return err
		}
		if atOrAbove(price, avg*(100+e.p.TakeProfitPct)/100) {
			return e.sell(ctx, snap, s, price, res)
		}
	}
	return nil
}
