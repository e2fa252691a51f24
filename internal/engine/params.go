package engine

import (
	"fmt"

	"nifty-meanrev/internal/types"
)

// Params are the fixed rules of a run.
type Params struct {
	Capital         float64
	Window          int
	AllocationUnits int
	MaxBuysPerDay   int
	AverageDownPct  float64
	TakeProfitPct   float64
}

func DefaultParams(capital float64) Params {
	return Params{
		Capital:         capital,
		Window:          20,
		AllocationUnits: 40,
		MaxBuysPerDay:   2,
		AverageDownPct:  3,
		TakeProfitPct:   5,
	}
}

func (p Params) Validate() error {
	if p.Capital < 0 {
		return fmt.Errorf("%w: capital %.2f is negative", types.ErrInvalidState, p.Capital)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", types.ErrInvalidState, p.Window)
	}
	if p.AllocationUnits <= 0 {
		return fmt.Errorf("%w: allocation_units must be positive, got %d", types.ErrInvalidState, p.AllocationUnits)
	}
	if p.MaxBuysPerDay < 0 {
		return fmt.Errorf("%w: max_buys_per_day must not be negative", types.ErrInvalidState)
	}
	if p.AverageDownPct <= 0 || p.AverageDownPct >= 100 {
		return fmt.Errorf("%w: average_down_pct must be between 0-100, got %.2f", types.ErrInvalidState, p.AverageDownPct)
	}
	if p.TakeProfitPct <= 0 {
		return fmt.Errorf("%w: take_profit_pct must be positive, got %.2f", types.ErrInvalidState, p.TakeProfitPct)
	}
	return nil
}

// unit is the fixed per-trade allocation, derived once from initial capital.
func (p Params) unit() float64 {
	return p.Capital / float64(p.AllocationUnits)
}
