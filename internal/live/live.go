// Package live runs the strategy once for today against broker quotes and
// persists the result for the next run.
package live

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"nifty-meanrev/internal/engine"
	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/metrics"
	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/report"
	"nifty-meanrev/internal/tradelog"
	"nifty-meanrev/internal/types"
	"nifty-meanrev/internal/universe"
)

// Exchanges quoted for buys unless a single exchange is configured.
var Exchanges = []string{"NSE", "BSE"}

type Options struct {
	Params   engine.Params
	Universe []string
	// History supplies the moving averages; only dates before Today count.
	History        *matrix.Matrix
	StatePath      string
	Exchange       string
	SingleExchange bool
	Save           bool
	Today          time.Time
	Metrics        *metrics.Recorder
}

type Runner struct {
	broker interfaces.Broker
	quotes interfaces.Quoter
	opts   Options
}

// Report is the outcome of one run.
type Report struct {
	RunID         string
	Date          time.Time
	Seeded        bool
	NoHistory     []string
	Result        *types.StepResult
	Orders        []types.OrderResp
	FailedOrders  []string
	Summary       *report.Summary
	Cash          float64
	HoldingsValue float64
	Realized      float64
	Total         float64
	Saved         bool
}

// New builds a runner. quotes may be nil, in which case the broker quotes.
func New(broker interfaces.Broker, quotes interfaces.Quoter, opts Options) *Runner {
	if quotes == nil {
		quotes = broker
	}
	if opts.Exchange == "" {
		opts.Exchange = "NSE"
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now().In(time.FixedZone("IST", 19800))
	}
	return &Runner{broker: broker, quotes: quotes, opts: opts}
}

func (r *Runner) Run(ctx context.Context) (*Report, error) {
	op := logger.StartOperation(ctx, "live.Run")
	today := types.Day(r.opts.Today)
	rep := &Report{RunID: uuid.NewString(), Date: today}
	for _, sym := range r.opts.Universe {
		if r.opts.History == nil || !r.opts.History.HasSymbol(sym) {
			rep.NoHistory = append(rep.NoHistory, sym)
		}
	}
	if len(rep.NoHistory) > 0 {
		logger.Warn(ctx, "Symbols without price history cannot be bought", "symbols", rep.NoHistory)
	}

	st, found, err := LoadState(r.opts.StatePath)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	if !found {
		st = r.seed(ctx)
		rep.Seeded = true
	}

	eng, err := engine.Resume(r.opts.Params, st.Engine)
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("resume engine: %w", err)
	}
	before := eng.Book().Clone()

	quotes, err := r.quote(ctx, eng.Book(), st.Exchange)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	snap := engine.FromLive(r.opts.History, today, quotes, r.opts.Params.Window)
	for _, sym := range r.opts.Universe {
		p, hasP := snap.Prices[sym]
		ma, hasMA := snap.MA[sym]
		logger.Debug(ctx, "Quote", "symbol", sym, "price", p, "has_price", hasP, "ma", ma, "has_ma", hasMA, "exchange", snap.Exchange[sym])
	}

	res, err := engine.Observe(eng).Step(ctx, snap)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	rep.Result = res
	r.opts.Metrics.ObserveStep(res)

	if r.opts.Save {
		r.execute(ctx, rep, res, snap, before, st.Exchange)
	} else {
		for _, a := range res.Actions {
			logger.Info(ctx, "Dry pass, order not sent",
				"action", a.Kind, "symbol", a.Symbol, "exchange", a.Exchange, "qty", a.Qty, "price", a.Price)
		}
	}

	priced := matrix.NewBuilder()
	for sym, p := range snap.Prices {
		_ = priced.Set(sym, today, p)
	}
	priced.AddDate(today)
	sum, err := report.Build(r.opts.Params.Capital, today, today, eng.Cash(), eng.Book(), priced.Build())
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	rep.Summary = sum
	rep.Cash = eng.Cash()
	rep.HoldingsValue = sum.TotalHoldings
	rep.Realized = eng.Book().TotalRealized()
	rep.Total = sum.PortfolioValue
	r.opts.Metrics.ObserveSummary(sum)
	for _, sym := range sum.Unpriced {
		logger.Warn(ctx, "Held symbol has no quote, left out of holdings value", "symbol", sym)
	}

	logger.Info(ctx, "Live portfolio summary",
		"date", today.Format(types.DateLayout),
		"run_id", rep.RunID,
		"cash", rep.Cash,
		"holdings_value", rep.HoldingsValue,
		"realized_pnl", rep.Realized,
		"total", rep.Total,
	)

	if r.opts.Save {
		if len(rep.FailedOrders) > 0 {
			err := fmt.Errorf("%d orders failed, state not saved: %w", len(rep.FailedOrders), types.ErrInvalidState)
			op.EndWithError(err)
			return rep, err
		}
		st.RunID = rep.RunID
		st.Updated = time.Now().UTC()
		st.Engine = eng.Export()
		if err := SaveState(r.opts.StatePath, st); err != nil {
			op.EndWithError(err)
			return rep, fmt.Errorf("save state: %w", err)
		}
		rep.Saved = true
		logger.Info(ctx, "Live state saved", "path", r.opts.StatePath)
	} else {
		logger.Info(ctx, "Dry pass, state not saved", "path", r.opts.StatePath)
	}

	op.End("actions", len(res.Actions), "saved", rep.Saved)
	return rep, nil
}

// seed starts from capital and the broker's holdings inside the universe.
// A broker failure leaves the book empty.
func (r *Runner) seed(ctx context.Context) *State {
	st := &State{
		Engine:   engine.State{Cash: r.opts.Params.Capital},
		Exchange: map[string]string{},
	}
	holdings, err := r.broker.Holdings(ctx)
	if err != nil {
		logger.Warn(ctx, "Could not fetch holdings, starting with an empty book", "error", err)
		return st
	}

	held := make([]string, 0, len(holdings))
	bySym := make(map[string]types.Holding, len(holdings))
	for _, h := range holdings {
		held = append(held, h.Symbol)
		bySym[h.Symbol] = h
	}
	book := portfolio.NewBook()
	for _, sym := range universe.Filter(held, r.opts.Universe) {
		h := bySym[sym]
		if err := book.OpenOrAdd(sym, h.AvgPrice, h.Qty); err != nil {
			logger.Warn(ctx, "Skipping holding", "symbol", sym, "error", err)
			continue
		}
		if h.Exchange != "" {
			st.Exchange[sym] = h.Exchange
		}
	}
	st.Engine.Book = book.Snapshot()
	logger.Info(ctx, "Seeded book from broker holdings", "held", len(book.Held()), "broker_holdings", len(holdings))
	return st
}

// quote prices unheld symbols on the cheapest exchange and held symbols
// on the exchange they were bought on.
func (r *Runner) quote(ctx context.Context, book *portfolio.Book, boughtOn map[string]string) ([]types.Quote, error) {
	exchanges := Exchanges
	if r.opts.SingleExchange {
		exchanges = []string{r.opts.Exchange}
	}

	symbols := append([]string(nil), r.opts.Universe...)
	for _, s := range book.Held() {
		if !slices.Contains(symbols, s) {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	byExchange := make(map[string]map[string]float64, len(exchanges))
	var errs []error
	for _, ex := range exchanges {
		prices, err := r.quotes.LTP(ctx, ex, symbols)
		if err != nil {
			logger.Warn(ctx, "Quotes unavailable", "exchange", ex, "error", err)
			errs = append(errs, err)
			continue
		}
		byExchange[ex] = prices
	}
	if len(byExchange) == 0 {
		return nil, fmt.Errorf("no quotes from %v: %w", exchanges, errors.Join(errs...))
	}

	out := make([]types.Quote, 0, len(symbols))
	for _, sym := range symbols {
		if ex, ok := boughtOn[sym]; ok && book.Has(sym) {
			if p, ok := byExchange[ex][sym]; ok {
				out = append(out, types.Quote{Symbol: sym, Exchange: ex, Price: p})
			}
			continue
		}
		best := types.Quote{Symbol: sym}
		for _, ex := range exchanges {
			p, ok := byExchange[ex][sym]
			if !ok || p <= 0 {
				continue
			}
			if best.Price == 0 || p < best.Price {
				best.Price, best.Exchange = p, ex
			}
		}
		if best.Price > 0 {
			out = append(out, best)
		}
	}
	return out, nil
}

// execute sends one order per action and logs each with the account
// state right after it. Only runs whose state is saved trade, so the
// persisted cash and lots always match what the broker filled.
func (r *Runner) execute(ctx context.Context, rep *Report, res *types.StepResult, snap types.Snapshot, shadow *portfolio.Book, boughtOn map[string]string) {
	for _, a := range res.Actions {
		ex := snap.Exchange[a.Symbol]
		if ex == "" {
			ex = r.opts.Exchange
		}
		side := "BUY"
		if a.Kind == types.ActionSell {
			side = "SELL"
		}
		resp, err := r.broker.PlaceOrder(ctx, types.OrderReq{
			Symbol:   a.Symbol,
			Exchange: ex,
			Side:     side,
			Qty:      a.Qty,
			Tag:      "meanrev-" + string(a.Kind),
		})
		if err != nil {
			logger.ErrorWithErr(ctx, "Order failed", err, "symbol", a.Symbol, "action", a.Kind, "qty", a.Qty)
			rep.FailedOrders = append(rep.FailedOrders, a.Symbol)
		} else {
			rep.Orders = append(rep.Orders, resp)
			logger.Trade(ctx, a.Symbol, side, a.Qty, a.Price, resp.OrderID, "action", a.Kind, "exchange", ex)
		}

		switch a.Kind {
		case types.ActionSell:
			_, _ = shadow.CloseAll(a.Symbol, a.Price)
			delete(boughtOn, a.Symbol)
		default:
			_ = shadow.OpenOrAdd(a.Symbol, a.Price, a.Qty)
			if _, ok := boughtOn[a.Symbol]; !ok {
				boughtOn[a.Symbol] = ex
			}
		}
		holdings := value(shadow, snap.Prices)
		pnl, _ := a.PnL.Get()
		if err := tradelog.Append(tradelog.Entry{
			Date:          a.Date.Format(types.DateLayout),
			RunID:         rep.RunID,
			Action:        string(a.Kind),
			Symbol:        a.Symbol,
			Exchange:      ex,
			Qty:           a.Qty,
			Price:         a.Price,
			PnL:           pnl,
			OrderID:       resp.OrderID,
			Cash:          a.CashAfter,
			HoldingsValue: holdings,
			TotalValue:    a.CashAfter + holdings,
		}); err != nil {
			logger.ErrorWithErr(ctx, "Trade log write failed", err, "symbol", a.Symbol)
		}
	}
}

func value(book *portfolio.Book, prices map[string]float64) float64 {
	total := 0.0
	for _, s := range book.Held() {
		if p, ok := prices[s]; ok {
			total += p * float64(book.Quantity(s))
		}
	}
	return total
}
