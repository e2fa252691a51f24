package engine

import (
	"context"
	"fmt"
	"time"

	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/types"
)

// Engine owns the cash balance, position book and action log of one run.
// It is not safe for concurrent use; independent runs need independent engines.
type Engine struct {
	p    Params
	unit float64
	cash float64
	book *portfolio.Book
	log  []types.Action
	last time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

// State is the part of an engine carried across live runs.
type State struct {
	Cash     float64         `json:"cash"`
	Book     portfolio.State `json:"book"`
	LastDate time.Time       `json:"last_date,omitempty"`
}

// New starts an engine with an empty book and cash equal to capital.
func New(p Params) (*Engine, error) {
	return Resume(p, State{Cash: p.Capital})
}

// Resume continues from a persisted state.
func Resume(p Params, st State) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if st.Cash < 0 {
		return nil, fmt.Errorf("%w: cash %.2f is negative", types.ErrInvalidState, st.Cash)
	}
	book, err := portfolio.Restore(st.Book)
	if err != nil {
		return nil, err
	}
	return &Engine{
		p:    p,
		unit: p.unit(),
		cash: st.Cash,
		book: book,
		last: st.LastDate,
	}, nil
}

func (e *Engine) Cash() float64 { return e.cash }
func (e *Engine) Book() *portfolio.Book { return e.book }
func (e *Engine) Params() Params { return e.p }
func (e *Engine) Actions() []types.Action { return append([]types.Action(nil), e.log...) }

func (e *Engine) Export() State {
	return State{Cash: e.cash, Book: e.book.Snapshot(), LastDate: e.last}
}

// Step runs one date: entries, then averaging only if nothing was bought,
// then at most one exit.
func (e *Engine) Step(ctx context.Context, snap types.Snapshot) (*types.StepResult, error) {
	date := types.Day(snap.Date)
	if !e.last.IsZero() && !date.After(e.last) {
		return nil, fmt.Errorf("%w: date %s is not after %s", types.ErrInvalidState,
			date.Format(types.DateLayout), e.last.Format(types.DateLayout))
	}

	res := &types.StepResult{Date: date}
	ranking := rank(snap, e.book)
	logger.Debug(ctx, "Snapshot ranked",
		"date", date.Format(types.DateLayout),
		"prices", len(snap.Prices),
		"averages", len(snap.MA),
		"candidates", len(ranking),
	)

	buys, err := e.enter(ctx, snap, ranking, res)
	if err != nil {
		return nil, err
	}
	if buys == 0 {
		if err := e.averageDown(ctx, snap, res); err != nil {
			return nil, err
		}
	}
	if err := e.exit(ctx, snap, res); err != nil {
		return nil, err
	}

	e.last = date
	res.Cash = e.cash
	return res, nil
}

// enter buys up to MaxBuysPerDay of the most fallen unheld symbols.
// Entries at or above the moving average are never taken.
func (e *Engine) enter(ctx context.Context, snap types.Snapshot, ranking []candidate, res *types.StepResult) (int, error) {
	buys := 0
	for _, c := range ranking {
		if buys >= e.p.MaxBuysPerDay || c.deviation >= 0 {
			break
		}
		ok, err := e.buy(ctx, snap, types.ActionBuy, c.symbol, c.price, res)
		if err != nil {
			return buys, err
		}
		if ok {
			buys++
		}
	}
	return buys, nil
}

// averageDown adds to the held symbol with the largest drop below
// (100-AverageDownPct)% of its average buy price.
func (e *Engine) averageDown(ctx context.Context, snap types.Snapshot, res *types.StepResult) error {
	var best string
	var bestDrop, bestPrice float64
	for _, s := range e.book.Held() {
		price, ok := snap.Prices[s]
		if !ok {
			continue
		}
		avg, err := e.book.AverageBuyPrice(s)
		if err != nil {
			return err
		}
		if !below(price, avg*(100-e.p.AverageDownPct)/100) {
			continue
		}
		// Held() is sorted, so a strict comparison keeps the lexically first on ties.
		if drop := avg - price; best == "" || drop > bestDrop {
			best, bestDrop, bestPrice = s, drop, price
		}
	}
	if best == "" {
		return nil
	}
	_, err := e.buy(ctx, snap, types.ActionAverage, best, bestPrice, res)
	return err
}
