// Package matrix holds daily closing prices indexed by symbol and date.
// A Matrix is immutable once built; missing cells are explicit.
package matrix

import (
	"fmt"
	"math"
	"sort"
	"time"

	"nifty-meanrev/internal/types"
)

type Matrix struct {
	symbols []string
	dates   []time.Time
	symIdx  map[string]int
	dateIdx map[time.Time]int
	cells   [][]types.NullFloat // [symbol][date]
}

// Builder accumulates cells in any order and produces a Matrix with
// sorted symbols and ascending unique dates.
type Builder struct {
	symbols map[string]struct{}
	dates   map[time.Time]struct{}
	values  map[string]map[time.Time]float64
}

func NewBuilder() *Builder {
	return &Builder{
		symbols: make(map[string]struct{}),
		dates:   make(map[time.Time]struct{}),
		values:  make(map[string]map[time.Time]float64),
	}
}

// AddSymbol registers a symbol even if it never receives a price.
func (b *Builder) AddSymbol(symbol string) {
	b.symbols[symbol] = struct{}{}
}

// AddDate registers a date even if no symbol has a price on it.
func (b *Builder) AddDate(d time.Time) {
	b.dates[types.Day(d)] = struct{}{}
}

// Set records a present price. Non-positive or non-finite prices are rejected.
func (b *Builder) Set(symbol string, d time.Time, price float64) error {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price %v for %s on %s", types.ErrInvalidState, price, symbol, d.Format(types.DateLayout))
	}
	d = types.Day(d)
	b.AddSymbol(symbol)
	b.AddDate(d)
	row := b.values[symbol]
	if row == nil {
		row = make(map[time.Time]float64)
		b.values[symbol] = row
	}
	row[d] = price
	return nil
}

func (b *Builder) Build() *Matrix {
	m := &Matrix{
		symIdx:  make(map[string]int, len(b.symbols)),
		dateIdx: make(map[time.Time]int, len(b.dates)),
	}
	for s := range b.symbols {
		m.symbols = append(m.symbols, s)
	}
	sort.Strings(m.symbols)
	for d := range b.dates {
		m.dates = append(m.dates, d)
	}
	sort.Slice(m.dates, func(i, j int) bool { return m.dates[i].Before(m.dates[j]) })
	for i, s := range m.symbols {
		m.symIdx[s] = i
	}
	for i, d := range m.dates {
		m.dateIdx[d] = i
	}
	m.cells = make([][]types.NullFloat, len(m.symbols))
	for i, s := range m.symbols {
		row := make([]types.NullFloat, len(m.dates))
		for d, v := range b.values[s] {
			row[m.dateIdx[d]] = types.Float(v)
		}
		m.cells[i] = row
	}
	return m
}

func (m *Matrix) Symbols() []string {
	return append([]string(nil), m.symbols...)
}

func (m *Matrix) Dates() []time.Time {
	return append([]time.Time(nil), m.dates...)
}

func (m *Matrix) NumDates() int { return len(m.dates) }

func (m *Matrix) Date(i int) time.Time { return m.dates[i] }

func (m *Matrix) HasSymbol(symbol string) bool {
	_, ok := m.symIdx[symbol]
	return ok
}

// IndexOf returns the position of d in the date axis.
func (m *Matrix) IndexOf(d time.Time) (int, bool) {
	i, ok := m.dateIdx[types.Day(d)]
	return i, ok
}

// LastDate returns the newest date, or false for an empty matrix.
func (m *Matrix) LastDate() (time.Time, bool) {
	if len(m.dates) == 0 {
		return time.Time{}, false
	}
	return m.dates[len(m.dates)-1], true
}

// At returns the cell for symbol at date index i.
func (m *Matrix) At(symbol string, i int) types.NullFloat {
	si, ok := m.symIdx[symbol]
	if !ok || i < 0 || i >= len(m.dates) {
		return types.NullFloat{}
	}
	return m.cells[si][i]
}

// Price returns the present price for symbol on d or ErrMissingData.
func (m *Matrix) Price(symbol string, d time.Time) (float64, error) {
	i, ok := m.IndexOf(d)
	if !ok {
		return 0, fmt.Errorf("%w: no date %s", types.ErrMissingData, d.Format(types.DateLayout))
	}
	v, ok := m.At(symbol, i).Get()
	if !ok {
		return 0, fmt.Errorf("%w: no price for %s on %s", types.ErrMissingData, symbol, d.Format(types.DateLayout))
	}
	return v, nil
}

// Series returns the full row for symbol; nil when unknown.
func (m *Matrix) Series(symbol string) []types.NullFloat {
	si, ok := m.symIdx[symbol]
	if !ok {
		return nil
	}
	return m.cells[si]
}

// LastPresent finds the most recent present price on or before upto.
func (m *Matrix) LastPresent(symbol string, upto time.Time) (float64, time.Time, bool) {
	row := m.Series(symbol)
	upto = types.Day(upto)
	for i := len(m.dates) - 1; i >= 0; i-- {
		if m.dates[i].After(upto) {
			continue
		}
		if v, ok := row[i].Get(); ok {
			return v, m.dates[i], true
		}
	}
	return 0, time.Time{}, false
}

// Slice returns a matrix restricted to dates in [from, to]. Zero bounds are open.
func (m *Matrix) Slice(from, to time.Time) *Matrix {
	b := NewBuilder()
	for _, s := range m.symbols {
		b.AddSymbol(s)
	}
	for i, d := range m.dates {
		if !from.IsZero() && d.Before(types.Day(from)) {
			continue
		}
		if !to.IsZero() && d.After(types.Day(to)) {
			continue
		}
		b.AddDate(d)
		for si, s := range m.symbols {
			if v, ok := m.cells[si][i].Get(); ok {
				_ = b.Set(s, d, v)
			}
		}
	}
	return b.Build()
}

// Merge returns a new matrix with the union of both axes. Present cells of
// other win over cells of m.
func (m *Matrix) Merge(other *Matrix) *Matrix {
	b := NewBuilder()
	for _, src := range []*Matrix{m, other} {
		if src == nil {
			continue
		}
		for _, s := range src.symbols {
			b.AddSymbol(s)
		}
		for i, d := range src.dates {
			b.AddDate(d)
			for si, s := range src.symbols {
				if v, ok := src.cells[si][i].Get(); ok {
					_ = b.Set(s, d, v)
				}
			}
		}
	}
	return b.Build()
}
