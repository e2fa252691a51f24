package brokerobs

import (
	"context"
	"time"

	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/trace"
	"nifty-meanrev/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) LTP(ctx context.Context, exchange string, symbols []string) (map[string]float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.LTP")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching LTP", "exchange", exchange, "count", len(symbols))

	prices, err := ob.broker.LTP(ctx, exchange, symbols)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch LTP", err, "exchange", exchange)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "LTP fetched", "exchange", exchange, "requested", len(symbols), "quoted", len(prices))
	return prices, nil
}

func (ob *observableBroker) Holdings(ctx context.Context) ([]types.Holding, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Holdings")
	defer span.End()

	hs, err := ob.broker.Holdings(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch holdings", err)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Holdings fetched", "count", len(hs))
	return hs, nil
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"exchange", req.Exchange,
		"side", req.Side,
		"qty", req.Qty,
		"tag", req.Tag,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

func (ob *observableBroker) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.Close, error) {
	ctx, span := trace.StartSpan(ctx, "broker.DailyCloses")
	defer span.End()

	closes, err := ob.broker.DailyCloses(ctx, symbol, from, to)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch daily closes", err,
			"symbol", symbol,
			"from", from.Format(types.DateLayout),
			"to", to.Format(types.DateLayout),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Daily closes fetched", "symbol", symbol, "count", len(closes))
	return closes, nil
}
