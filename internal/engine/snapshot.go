package engine

import (
	"time"

	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/ta"
	"nifty-meanrev/internal/types"
)

// FromMatrix builds the snapshot for date index i. The moving average
// includes the price of that date.
func FromMatrix(m *matrix.Matrix, i, window int) types.Snapshot {
	snap := types.Snapshot{
		Date:   m.Date(i),
		Prices: make(map[string]float64),
		MA:     make(map[string]float64),
	}
	for _, s := range m.Symbols() {
		series := m.Series(s)
		if v, ok := series[i].Get(); ok {
			snap.Prices[s] = v
		}
		if ma, ok := ta.MovingAverage(series, i, window); ok {
			snap.MA[s] = ma
		}
	}
	return snap
}

// FromLive builds today's snapshot from live quotes. Moving averages come
// from history dated strictly before date.
func FromLive(history *matrix.Matrix, date time.Time, quotes []types.Quote, window int) types.Snapshot {
	date = types.Day(date)
	snap := types.Snapshot{
		Date:     date,
		Prices:   make(map[string]float64, len(quotes)),
		MA:       make(map[string]float64),
		Exchange: make(map[string]string, len(quotes)),
	}
	for _, q := range quotes {
		if q.Price <= 0 {
			continue
		}
		snap.Prices[q.Symbol] = q.Price
		snap.Exchange[q.Symbol] = q.Exchange
	}
	if history == nil {
		return snap
	}
	upto := -1
	for i, d := range history.Dates() {
		if d.Before(date) {
			upto = i
		}
	}
	if upto < 0 {
		return snap
	}
	for _, s := range history.Symbols() {
		if ma, ok := ta.MovingAverage(history.Series(s), upto, window); ok {
			snap.MA[s] = ma
		}
	}
	return snap
}
