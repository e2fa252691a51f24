package zerodha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"nifty-meanrev/internal/api"
	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/types"
)

const (
	// GetLTP accepts up to 1000 instruments per call.
	ltpBatchSize = 500
	// Kite serves at most 2000 daily candles per request.
	historyChunkDays = 1500
	orderTagMaxLen   = 20
)

var ist = time.FixedZone("IST", 19800)

type Params struct {
	Mode        string
	APIKey      string
	AccessToken string
	Exchange    string
}

// kiteAPI is the part of the Kite Connect client the adapter calls.
type kiteAPI interface {
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetHoldings() (kiteconnect.Holdings, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

type Zerodha struct {
	p       Params
	kc      kiteAPI
	mapper  *instrumentMapper
	limiter *api.RateLimiter
}

var _ interfaces.Broker = (*Zerodha)(nil)

var errNoCredentials = errors.New("missing API key/access token")

func NewZerodha(p Params) *Zerodha {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return newWithClient(p, kc)
}

func newWithClient(p Params, kc kiteAPI) *Zerodha {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	return &Zerodha{
		p:      p,
		kc:     kc,
		mapper: newInstrumentMapper(),
		// Kite allows three historical requests a second.
		limiter: api.NewRateLimiter(3, 350*time.Millisecond),
	}
}

func (z *Zerodha) hasCredentials() bool {
	return z.p.APIKey != "" && z.p.AccessToken != ""
}

// LTP quotes symbols on one exchange in batches.
func (z *Zerodha) LTP(ctx context.Context, exchange string, symbols []string) (map[string]float64, error) {
	if !z.hasCredentials() {
		return nil, errNoCredentials
	}
	out := make(map[string]float64, len(symbols))
	for start := 0; start < len(symbols); start += ltpBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+ltpBatchSize, len(symbols))
		keys := make([]string, 0, end-start)
		for _, s := range symbols[start:end] {
			keys = append(keys, instrumentKey(exchange, s))
		}
		if err := z.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		quotes, err := z.kc.GetLTP(keys...)
		if err != nil {
			return nil, fmt.Errorf("kite ltp %s: %w", exchange, err)
		}
		for _, s := range symbols[start:end] {
			if q, ok := quotes[instrumentKey(exchange, s)]; ok && q.LastPrice > 0 {
				out[s] = q.LastPrice
			}
		}
	}
	return out, nil
}

// Holdings lists delivery holdings with a positive quantity.
func (z *Zerodha) Holdings(ctx context.Context) ([]types.Holding, error) {
	if !z.hasCredentials() {
		return nil, errNoCredentials
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := z.kc.GetHoldings()
	if err != nil {
		return nil, fmt.Errorf("kite holdings: %w", err)
	}
	out := make([]types.Holding, 0, len(hs))
	for _, h := range hs {
		if h.Quantity <= 0 {
			continue
		}
		out = append(out, types.Holding{
			Symbol:   h.Tradingsymbol,
			Exchange: h.Exchange,
			Qty:      h.Quantity,
			AvgPrice: h.AveragePrice,
		})
	}
	return out, nil
}

// PlaceOrder sends a CNC market order. In DRY_RUN mode nothing is sent and
// a simulated id is returned.
func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if z.p.Mode == "DRY_RUN" {
		return types.OrderResp{
			OrderID: "SIM-" + uuid.NewString(),
			Status:  "SIMULATED",
			Message: "dry-run",
		}, nil
	}
	if !z.hasCredentials() {
		return types.OrderResp{}, errNoCredentials
	}
	if req.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("order qty %d: %w", req.Qty, types.ErrInvalidState)
	}
	if err := ctx.Err(); err != nil {
		return types.OrderResp{}, err
	}

	exchange := req.Exchange
	if exchange == "" {
		exchange = z.p.Exchange
	}
	side := kiteconnect.TransactionTypeBuy
	if req.Side == string(types.ActionSell) {
		side = kiteconnect.TransactionTypeSell
	}
	tag := req.Tag
	if len(tag) > orderTagMaxLen {
		tag = tag[:orderTagMaxLen]
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        exchange,
		Tradingsymbol:   req.Symbol,
		TransactionType: side,
		Product:         kiteconnect.ProductCNC,
		OrderType:       kiteconnect.OrderTypeMarket,
		Validity:        kiteconnect.ValidityDay,
		Quantity:        req.Qty,
		Tag:             tag,
	})
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("kite place order %s %s: %w", req.Side, req.Symbol, err)
	}
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

// DailyCloses reads day candles for symbol on the configured exchange.
func (z *Zerodha) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.Close, error) {
	if !z.hasCredentials() {
		return nil, errNoCredentials
	}
	token, err := z.token(ctx, z.p.Exchange, symbol)
	if err != nil {
		return nil, err
	}

	first, last := types.Day(from), types.Day(to)
	var out []types.Close
	for chunk := first; !chunk.After(last); chunk = chunk.AddDate(0, 0, historyChunkDays) {
		chunkEnd := chunk.AddDate(0, 0, historyChunkDays-1)
		if chunkEnd.After(last) {
			chunkEnd = last
		}
		if err := z.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		candles, err := z.kc.GetHistoricalData(token, "day",
			time.Date(chunk.Year(), chunk.Month(), chunk.Day(), 0, 0, 0, 0, ist),
			time.Date(chunkEnd.Year(), chunkEnd.Month(), chunkEnd.Day(), 23, 59, 59, 0, ist),
			false, false)
		if err != nil {
			return nil, fmt.Errorf("kite history %s: %w", symbol, err)
		}
		for _, c := range candles {
			if c.Close <= 0 {
				continue
			}
			out = append(out, types.Close{Date: types.Day(c.Date.Time.In(ist)), Price: c.Close})
		}
	}
	logger.Debug(ctx, "Fetched daily closes", "symbol", symbol, "source", "kite", "count", len(out))
	return out, nil
}

func (z *Zerodha) token(ctx context.Context, exchange, symbol string) (int, error) {
	if !z.mapper.isLoaded(exchange) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		instruments, err := z.kc.GetInstrumentsByExchange(exchange)
		if err != nil {
			return 0, fmt.Errorf("kite instruments %s: %w", exchange, err)
		}
		z.mapper.load(exchange, instruments)
		logger.Debug(ctx, "Loaded instruments", "exchange", exchange, "count", len(instruments))
	}
	token, ok := z.mapper.getToken(exchange, symbol)
	if !ok {
		return 0, fmt.Errorf("no instrument token for %s: %w", instrumentKey(exchange, symbol), types.ErrMissingData)
	}
	return token, nil
}
