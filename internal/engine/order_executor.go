package engine

import (
	"context"

	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/types"
)

// buy sizes and applies a BUY or AVERAGE. It returns false when the trade
// was skipped for quantity or cash.
func (e *Engine) buy(ctx context.Context, snap types.Snapshot, kind types.ActionKind, symbol string, price float64, res *types.StepResult) (bool, error) {
	qty, reason, ok := e.size(price)
	if !ok {
		res.Skipped = append(res.Skipped, types.SkippedTrade{Symbol: symbol, Kind: kind, Price: price, Reason: reason})
		logger.Risk(ctx, symbol, string(reason),
			"action", string(kind),
			"price", price,
			"qty", qty,
			"cash", e.cash,
		)
		return false, nil
	}
	if err := e.book.OpenOrAdd(symbol, price, qty); err != nil {
		return false, err
	}
	e.cash -= price * float64(qty)
	e.record(ctx, types.Action{
		Date:     types.Day(snap.Date),
		Kind:     kind,
		Symbol:   symbol,
		Price:    price,
		Qty:      qty,
		Exchange: snap.Exchange[symbol],
	}, res)
	return true, nil
}

// sell closes the whole position in symbol at price.
func (e *Engine) sell(ctx context.Context, snap types.Snapshot, symbol string, price float64, res *types.StepResult) error {
	qty := e.book.Quantity(symbol)
	pnl, err := e.book.CloseAll(symbol, price)
	if err != nil {
		return err
	}
	e.cash += price * float64(qty)
	e.record(ctx, types.Action{
		Date:     types.Day(snap.Date),
		Kind:     types.ActionSell,
		Symbol:   symbol,
		Price:    price,
		Qty:      qty,
		PnL:      types.Float(pnl),
		Exchange: snap.Exchange[symbol],
	}, res)
	return nil
}

func (e *Engine) record(ctx context.Context, a types.Action, res *types.StepResult) {
	a.CashAfter = e.cash
	e.log = append(e.log, a)
	res.Actions = append(res.Actions, a)
	logger.Info(ctx, "Action executed",
		"date", a.Date.Format(types.DateLayout),
		"action", string(a.Kind),
		"symbol", a.Symbol,
		"price", a.Price,
		"qty", a.Qty,
		"pnl", a.PnL.String(),
		"cash", e.cash,
	)
}
