package engineobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-meanrev/internal/portfolio"
	"nifty-meanrev/internal/types"
)

type fakeEngine struct {
	res   *types.StepResult
	err   error
	calls int
	book  *portfolio.Book
}

func (f *fakeEngine) Step(ctx context.Context, snap types.Snapshot) (*types.StepResult, error) {
	f.calls++
	return f.res, f.err
}
func (f *fakeEngine) Cash() float64 { return 42 }
func (f *fakeEngine) Book() *portfolio.Book { return f.book }
func (f *fakeEngine) Actions() []types.Action { return f.res.Actions }

func TestWrapForwards(t *testing.T) {
	d := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	inner := &fakeEngine{
		res:  &types.StepResult{Date: d, Actions: []types.Action{{Date: d, Kind: types.ActionBuy, Symbol: "TCS", Price: 90, Qty: 27}}},
		book: portfolio.NewBook(),
	}
	eng := Wrap(inner)

	res, err := eng.Step(context.Background(), types.Snapshot{Date: d})
	require.NoError(t, err)
	assert.Same(t, inner.res, res)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 42.0, eng.Cash())
	assert.Same(t, inner.book, eng.Book())
	assert.Len(t, eng.Actions(), 1)
}

func TestWrapReturnsError(t *testing.T) {
	boom := errors.New("boom")
	eng := Wrap(&fakeEngine{err: boom, res: &types.StepResult{}})

	res, err := eng.Step(context.Background(), types.Snapshot{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
}
