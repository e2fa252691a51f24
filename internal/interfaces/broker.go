package interfaces

import (
	"context"
	"time"

	"nifty-meanrev/internal/types"
)

// CloseSource returns daily closing prices for one symbol in [from, to].
type CloseSource interface {
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.Close, error)
}

// Quoter returns last traded prices keyed by symbol. Symbols without a
// quote on the exchange are absent from the map.
type Quoter interface {
	LTP(ctx context.Context, exchange string, symbols []string) (map[string]float64, error)
}

type Broker interface {
	CloseSource
	Quoter

	Holdings(ctx context.Context) ([]types.Holding, error)

	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}
