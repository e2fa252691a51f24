package engineobs

import (
	"context"
	"time"

	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/trace"
	"nifty-meanrev/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context, snap types.Snapshot) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()
	date := snap.Date.Format(types.DateLayout)

	logger.DebugSkip(ctx, 1, "Starting strategy step",
		"date", date,
		"prices", len(snap.Prices),
	)

	result, err := oe.engine.Step(ctx, snap)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Strategy step failed", err,
			"date", date,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if len(result.Actions) > 0 || len(result.Skipped) > 0 {
		logger.InfoSkip(ctx, 1, "Strategy step completed",
			"date", date,
			"actions", len(result.Actions),
			"skipped", len(result.Skipped),
			"cash", result.Cash,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return result, nil
}

func (oe *observableEngine) Cash() float64 { return oe.engine.Cash() }

func (oe *observableEngine) Book() *portfolio.Book { return oe.engine.Book() }

func (oe *observableEngine) Actions() []types.Action { return oe.engine.Actions() }
