// Package report reconciles the end state of a run into a P&L summary.
package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/types"
)

// InstrumentSummary is one row per symbol that was ever exited or is still held.
// HoldingsValue and UnrealizedPnL are absent when a held symbol has no price
// on or before the horizon end.
type InstrumentSummary struct {
	Symbol        string          `json:"symbol"`
	RealizedPnL   float64         `json:"realized_pnl"`
	Quantity      int             `json:"qty"`
	AvgPrice      types.NullFloat `json:"avg_price"`
	LastPrice     types.NullFloat `json:"last_price"`
	HoldingsValue types.NullFloat `json:"holdings_value"`
	UnrealizedPnL types.NullFloat `json:"unrealized_pnl"`
}

type Summary struct {
	Start           time.Time           `json:"start"`
	End             time.Time           `json:"end"`
	Days            int                 `json:"days"`
	Capital         float64             `json:"capital"`
	Instruments     []InstrumentSummary `json:"instruments"`
	TotalRealized   float64             `json:"total_realized_pnl"`
	TotalHoldings   float64             `json:"total_holdings_value"`
	TotalUnrealized float64             `json:"total_unrealized_pnl"`
	CashLeft        float64             `json:"cash_left"`
	PortfolioValue  float64             `json:"portfolio_value"`
	CAGR            types.NullFloat     `json:"cagr"`
	Unpriced        []string            `json:"unpriced,omitempty"`
}

// Build values the book at the last present price on or before end.
// Realized P&L is already inside cash, so the portfolio value is
// cash plus holdings value.
func Build(capital float64, start, end time.Time, cash float64, book *portfolio.Book, prices *matrix.Matrix) (*Summary, error) {
	start, end = types.Day(start), types.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", types.ErrInvalidState,
			end.Format(types.DateLayout), start.Format(types.DateLayout))
	}
	s := &Summary{
		Start:    start,
		End:      end,
		Days:     int(end.Sub(start).Hours() / 24),
		Capital:  capital,
		CashLeft: cash,
	}

	symbols := map[string]struct{}{}
	for _, sym := range book.Held() {
		symbols[sym] = struct{}{}
	}
	for _, sym := range book.RealizedSymbols() {
		symbols[sym] = struct{}{}
	}
	ordered := make([]string, 0, len(symbols))
	for sym := range symbols {
		ordered = append(ordered, sym)
	}
	sort.Strings(ordered)

	for _, sym := range ordered {
		row := InstrumentSummary{Symbol: sym}
		if v, ok := book.Realized(sym); ok {
			row.RealizedPnL = v
			s.TotalRealized += v
		}
		if book.Has(sym) {
			row.Quantity = book.Quantity(sym)
			avg, err := book.AverageBuyPrice(sym)
			if err != nil {
				return nil, err
			}
			row.AvgPrice = types.Float(avg)
			last, ok := lastPrice(prices, sym, end)
			if ok {
				value := last * float64(row.Quantity)
				unrealized := value - avg*float64(row.Quantity)
				row.LastPrice = types.Float(last)
				row.HoldingsValue = types.Float(value)
				row.UnrealizedPnL = types.Float(unrealized)
				s.TotalHoldings += value
				s.TotalUnrealized += unrealized
			} else {
				s.Unpriced = append(s.Unpriced, sym)
			}
		}
		s.Instruments = append(s.Instruments, row)
	}

	s.PortfolioValue = s.CashLeft + s.TotalHoldings
	s.CAGR = CAGR(s.PortfolioValue, capital, s.Days)
	return s, nil
}

func lastPrice(m *matrix.Matrix, sym string, end time.Time) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, _, ok := m.LastPresent(sym, end)
	return v, ok
}

// CAGR is (final/capital)^(365/days) - 1, undefined for non-positive days or capital.
func CAGR(final, capital float64, days int) types.NullFloat {
	if days <= 0 || capital <= 0 || final < 0 {
		return types.NullFloat{}
	}
	v := math.Pow(final/capital, 365/float64(days)) - 1
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return types.NullFloat{}
	}
	return types.Float(v)
}
