package interfaces

import (
	"context"

	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/types"
)

// Engine applies the strategy to one date at a time, in ascending date order.
type Engine interface {
	Step(ctx context.Context, snap types.Snapshot) (*types.StepResult, error)
	Cash() float64
	Book() *portfolio.Book
	Actions() []types.Action
}
