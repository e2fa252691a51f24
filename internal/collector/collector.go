// Package collector appends newly published daily closes to the stored
// price matrix.
package collector

import (
	"context"
	"math"
	"time"

	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/types"
)

type Collector struct {
	src interfaces.CloseSource
}

func New(src interfaces.CloseSource) *Collector {
	return &Collector{src: src}
}

// Result describes one update. Matrix is the merged matrix, or the
// existing one unchanged when NewDates is zero.
type Result struct {
	Matrix   *matrix.Matrix
	From, To time.Time
	NewDates int
	Failed   []string
}

// Range is the fetch window for an update run on today: the day after the
// last stored date (or fetchStart when nothing is stored) up to the day
// before today.
func Range(existing *matrix.Matrix, fetchStart, today time.Time) (time.Time, time.Time) {
	from := types.Day(fetchStart)
	if existing != nil {
		if last, ok := existing.LastDate(); ok {
			from = last.AddDate(0, 0, 1)
		}
	}
	return from, types.Day(today).AddDate(0, 0, -1)
}

// Update fetches closes for symbols over Range and merges them into
// existing. A symbol whose fetch fails is kept with missing cells.
func (c *Collector) Update(ctx context.Context, existing *matrix.Matrix, symbols []string, fetchStart, today time.Time) (*Result, error) {
	from, to := Range(existing, fetchStart, today)
	res := &Result{Matrix: existing, From: from, To: to}
	if to.Before(from) {
		logger.Info(ctx, "Price matrix already up to date", "last", to.Format(types.DateLayout))
		return res, nil
	}

	logger.Info(ctx, "Fetching daily closes",
		"from", from.Format(types.DateLayout),
		"to", to.Format(types.DateLayout),
		"symbols", len(symbols),
	)

	b := matrix.NewBuilder()
	dates := map[time.Time]bool{}
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.AddSymbol(sym)

		closes, err := c.src.DailyCloses(ctx, sym, from, to)
		if err != nil {
			logger.Warn(ctx, "No closes for symbol", "symbol", sym, "error", err)
			res.Failed = append(res.Failed, sym)
			continue
		}
		for _, cl := range closes {
			d := types.Day(cl.Date)
			if d.Before(from) || d.After(to) {
				continue
			}
			if err := b.Set(sym, d, round2(cl.Price)); err != nil {
				logger.Warn(ctx, "Dropping bad close", "symbol", sym, "date", d.Format(types.DateLayout), "error", err)
				continue
			}
			dates[d] = true
		}
	}

	res.NewDates = len(dates)
	if res.NewDates == 0 {
		logger.Info(ctx, "No new trading days")
		return res, nil
	}
	res.Matrix = existing.Merge(b.Build())
	logger.Info(ctx, "Price matrix updated", "new_dates", res.NewDates, "failed", len(res.Failed))
	return res, nil
}

// Run loads the stored matrix, updates it and saves it when new dates
// arrived.
func (c *Collector) Run(ctx context.Context, store interfaces.PriceStore, symbols []string, fetchStart, today time.Time) (*Result, error) {
	existing, err := store.Load()
	if err != nil {
		return nil, err
	}
	res, err := c.Update(ctx, existing, symbols, fetchStart, today)
	if err != nil {
		return nil, err
	}
	if res.NewDates == 0 {
		return res, nil
	}
	if err := store.Save(res.Matrix); err != nil {
		return nil, err
	}
	return res, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
