// Package backtest replays a price matrix through the strategy engine.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nifty-meanrev/internal/engine"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/metrics"
	"nifty-meanrev/internal/report"
	"nifty-meanrev/internal/types"
)

type Options struct {
	Params engine.Params
	// Start and End bound the simulated horizon, inclusive. Zero values
	// default to the first and last matrix dates.
	Start, End time.Time
	// IncludeHistory lets prices before Start seed the moving averages.
	// Otherwise the matrix is cut to [Start, End] before the run.
	IncludeHistory bool
	Metrics        *metrics.Recorder
}

type Result struct {
	RunID   string
	Actions []types.Action
	Summary *report.Summary
	Steps   int
}

// Run simulates every date of the horizon in ascending order. The context is
// checked between dates only.
func Run(ctx context.Context, m *matrix.Matrix, opts Options) (*Result, error) {
	start, end, err := horizon(m, opts.Start, opts.End)
	if err != nil {
		return nil, err
	}
	data := m.Slice(start, end)
	if opts.IncludeHistory {
		data = m.Slice(time.Time{}, end)
	}

	eng, err := engine.New(opts.Params)
	if err != nil {
		return nil, err
	}
	observed := engine.Observe(eng)

	runID := uuid.NewString()
	timer := logger.StartOperation(ctx, "backtest.Run",
		"run_id", runID,
		"start", start.Format(types.DateLayout),
		"end", end.Format(types.DateLayout),
		"symbols", len(data.Symbols()),
	)
	ctx = timer.GetContext()

	steps := 0
	for i := 0; i < data.NumDates(); i++ {
		if data.Date(i).Before(start) {
			continue
		}
		if err := ctx.Err(); err != nil {
			timer.EndWithError(err)
			return nil, err
		}
		res, err := observed.Step(ctx, engine.FromMatrix(data, i, opts.Params.Window))
		if err != nil {
			timer.EndWithError(err, "date", data.Date(i).Format(types.DateLayout))
			return nil, err
		}
		opts.Metrics.ObserveStep(res)
		steps++
	}

	summary, err := report.Build(opts.Params.Capital, start, end, observed.Cash(), observed.Book(), data)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	opts.Metrics.ObserveSummary(summary)

	logger.Info(ctx, "Backtest complete",
		"run_id", runID,
		"steps", steps,
		"actions", len(observed.Actions()),
		"cash_left", summary.CashLeft,
		"portfolio_value", summary.PortfolioValue,
		"cagr", report.FormatCAGR(summary.CAGR),
	)
	timer.End("steps", steps)

	return &Result{
		RunID:   runID,
		Actions: observed.Actions(),
		Summary: summary,
		Steps:   steps,
	}, nil
}

func horizon(m *matrix.Matrix, start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		dates := m.Dates()
		if len(dates) == 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: price matrix has no dates", types.ErrMissingData)
		}
		if start.IsZero() {
			start = dates[0]
		}
		if end.IsZero() {
			end = dates[len(dates)-1]
		}
	}
	start, end = types.Day(start), types.Day(end)
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end date %s before start date %s", types.ErrInvalidState,
			end.Format(types.DateLayout), start.Format(types.DateLayout))
	}
	return start, end, nil
}
