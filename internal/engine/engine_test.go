package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time { return t0.AddDate(0, 0, n) }

func snapAt(n int, prices, mas map[string]float64) types.Snapshot {
	if mas == nil {
		mas = map[string]float64{}
	}
	return types.Snapshot{Date: dayN(n), Prices: prices, MA: mas}
}

func newEngine(t *testing.T, capital float64) *Engine {
	t.Helper()
	eng, err := New(DefaultParams(capital))
	require.NoError(t, err)
	return eng
}

func step(t *testing.T, eng *Engine, s types.Snapshot) *types.StepResult {
	t.Helper()
	res, err := eng.Step(context.Background(), s)
	require.NoError(t, err)
	return res
}

func TestSingleInstrumentBuysOnDip(t *testing.T) {
	b := matrix.NewBuilder()
	for i := 1; i <= 25; i++ {
		price := 100.0
		if i >= 21 {
			price = 90
		}
		require.NoError(t, b.Set("RELIANCE", dayN(i), price))
	}
	m := b.Build()
	eng := newEngine(t, 100000)

	var actions []types.Action
	for i := 0; i < m.NumDates(); i++ {
		res := step(t, eng, FromMatrix(m, i, 20))
		if i < 19 {
			assert.Empty(t, res.Actions, "day %d", i+1)
		}
		actions = append(actions, res.Actions...)
	}

	require.Len(t, actions, 1)
	a := actions[0]
	assert.Equal(t, types.ActionBuy, a.Kind)
	assert.Equal(t, dayN(21), a.Date)
	assert.Equal(t, 90.0, a.Price)
	assert.Equal(t, int(math.Floor((100000.0/40)/90)), a.Qty)
	assert.Equal(t, 27, a.Qty)
	assert.InDelta(t, 100000-27*90.0, eng.Cash(), 1e-9)
}

func TestTakeProfitBoundary(t *testing.T) {
	eng := newEngine(t, 100000)
	res := step(t, eng, snapAt(1, map[string]float64{"TCS": 100}, map[string]float64{"TCS": 110}))
	require.Len(t, res.Actions, 1)
	require.Equal(t, 25, res.Actions[0].Qty)

	res = step(t, eng, snapAt(2, map[string]float64{"TCS": 104.99}, nil))
	assert.Empty(t, res.Actions)

	res = step(t, eng, snapAt(3, map[string]float64{"TCS": 105}, nil))
	require.Len(t, res.Actions, 1)
	sell := res.Actions[0]
	assert.Equal(t, types.ActionSell, sell.Kind)
	pnl, ok := sell.PnL.Get()
	require.True(t, ok)
	assert.InDelta(t, (105.0-100.0)*25, pnl, 0.005)
	assert.False(t, eng.Book().Has("TCS"))
	assert.InDelta(t, 100000+125.0, eng.Cash(), 1e-9)
}

func TestAverageDownBoundaryIsExclusive(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(1, map[string]float64{"TCS": 100}, map[string]float64{"TCS": 110}))

	res := step(t, eng, snapAt(2, map[string]float64{"TCS": 97}, nil))
	assert.Empty(t, res.Actions)

	res = step(t, eng, snapAt(3, map[string]float64{"TCS": 96.99}, nil))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, types.ActionAverage, res.Actions[0].Kind)
	assert.Equal(t, 25, res.Actions[0].Qty)
	assert.Equal(t, 50, eng.Book().Quantity("TCS"))
}

func TestAtMostTwoBuysMostFallenFirst(t *testing.T) {
	eng := newEngine(t, 100000)
	prices := map[string]float64{"A": 90, "B": 80, "C": 95, "D": 120}
	mas := map[string]float64{"A": 100, "B": 100, "C": 100, "D": 100}
	res := step(t, eng, snapAt(1, prices, mas))

	require.Len(t, res.Actions, 2)
	assert.Equal(t, "B", res.Actions[0].Symbol)
	assert.Equal(t, "A", res.Actions[1].Symbol)
}

func TestRankingTieBreaksBySymbol(t *testing.T) {
	eng := newEngine(t, 100000)
	prices := map[string]float64{"ZEEL": 90, "INFY": 90, "ACC": 90}
	mas := map[string]float64{"ZEEL": 100, "INFY": 100, "ACC": 100}
	res := step(t, eng, snapAt(1, prices, mas))

	require.Len(t, res.Actions, 2)
	assert.Equal(t, "ACC", res.Actions[0].Symbol)
	assert.Equal(t, "INFY", res.Actions[1].Symbol)
}

func TestNoEntryAtOrAboveAverage(t *testing.T) {
	eng := newEngine(t, 100000)
	res := step(t, eng, snapAt(1, map[string]float64{"A": 100, "B": 101}, map[string]float64{"A": 100, "B": 100}))
	assert.Empty(t, res.Actions)
}

func TestSkippedCandidateDoesNotConsumeBuySlot(t *testing.T) {
	eng := newEngine(t, 100000)
	// EXPENSIVE costs more than one allocation unit so its quantity is zero.
	prices := map[string]float64{"EXPENSIVE": 5000, "B": 90, "C": 95}
	mas := map[string]float64{"EXPENSIVE": 10000, "B": 100, "C": 100}
	res := step(t, eng, snapAt(1, prices, mas))

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, types.SkipZeroQty, res.Skipped[0].Reason)
	require.Len(t, res.Actions, 2)
	assert.Equal(t, "B", res.Actions[0].Symbol)
	assert.Equal(t, "C", res.Actions[1].Symbol)
}

func TestInsufficientCashSkips(t *testing.T) {
	eng, err := Resume(DefaultParams(100000), State{Cash: 1000})
	require.NoError(t, err)
	res := step(t, eng, snapAt(1, map[string]float64{"A": 90}, map[string]float64{"A": 100}))
	assert.Empty(t, res.Actions)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, types.SkipInsufficient, res.Skipped[0].Reason)
	assert.Equal(t, 1000.0, eng.Cash())
}

func TestNoAveragingOnBuyDay(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(1, map[string]float64{"A": 100}, map[string]float64{"A": 110}))

	res := step(t, eng, snapAt(2,
		map[string]float64{"A": 80, "B": 90},
		map[string]float64{"A": 110, "B": 100},
	))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, types.ActionBuy, res.Actions[0].Kind)
	assert.Equal(t, "B", res.Actions[0].Symbol)
}

func TestAveragingPicksLargestDrop(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(1,
		map[string]float64{"A": 100, "B": 200},
		map[string]float64{"A": 110, "B": 220},
	))

	res := step(t, eng, snapAt(2, map[string]float64{"A": 90, "B": 190}, nil))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, types.ActionAverage, res.Actions[0].Kind)
	assert.Equal(t, "A", res.Actions[0].Symbol, "A dropped 10 while B dropped 10 too; tie goes to A")

	res = step(t, eng, snapAt(3, map[string]float64{"A": 94, "B": 150}, nil))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "B", res.Actions[0].Symbol)
}

func TestOneSellPerDay(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(1,
		map[string]float64{"B": 100, "A": 100},
		map[string]float64{"B": 110, "A": 110},
	))
	res := step(t, eng, snapAt(2, map[string]float64{"A": 120, "B": 120}, nil))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "A", res.Actions[0].Symbol)

	res = step(t, eng, snapAt(3, map[string]float64{"B": 120}, nil))
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "B", res.Actions[0].Symbol)
}

func TestHeldWithoutPriceIsIgnored(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(1, map[string]float64{"A": 100}, map[string]float64{"A": 110}))
	res := step(t, eng, snapAt(2, map[string]float64{}, nil))
	assert.Empty(t, res.Actions)
	assert.True(t, eng.Book().Has("A"))
}

func TestStepRejectsNonAscendingDates(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(2, nil, nil))
	_, err := eng.Step(context.Background(), snapAt(2, nil, nil))
	assert.ErrorIs(t, err, types.ErrInvalidState)
	_, err = eng.Step(context.Background(), snapAt(1, nil, nil))
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestCapitalEdgeCases(t *testing.T) {
	_, err := New(DefaultParams(-1))
	assert.ErrorIs(t, err, types.ErrInvalidState)

	eng := newEngine(t, 0)
	res := step(t, eng, snapAt(1, map[string]float64{"A": 90}, map[string]float64{"A": 100}))
	assert.Empty(t, res.Actions)
	assert.Equal(t, 0.0, eng.Cash())
}

func TestResumeRoundTrip(t *testing.T) {
	eng := newEngine(t, 100000)
	step(t, eng, snapAt(1, map[string]float64{"A": 100}, map[string]float64{"A": 110}))

	again, err := Resume(eng.Params(), eng.Export())
	require.NoError(t, err)
	assert.Equal(t, eng.Cash(), again.Cash())
	assert.Equal(t, 25, again.Book().Quantity("A"))

	_, err = again.Step(context.Background(), snapAt(1, nil, nil))
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func randomMatrix(t *testing.T, seed int64, symbols, days int) *matrix.Matrix {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	b := matrix.NewBuilder()
	for s := 0; s < symbols; s++ {
		sym := string(rune('A'+s)) + "STOCK"
		b.AddSymbol(sym)
		price := 50 + rng.Float64()*1000
		for d := 0; d < days; d++ {
			b.AddDate(dayN(d))
			price *= 1 + (rng.Float64()-0.5)*0.08
			if rng.Float64() < 0.05 {
				continue
			}
			require.NoError(t, b.Set(sym, dayN(d), math.Round(price*100)/100))
		}
	}
	return b.Build()
}

func TestInvariantsOnRandomData(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		m := randomMatrix(t, seed, 12, 300)
		eng := newEngine(t, 200000)

		for i := 0; i < m.NumDates(); i++ {
			snap := FromMatrix(m, i, 20)
			res := step(t, eng, snap)

			counts := map[types.ActionKind]int{}
			for _, a := range res.Actions {
				counts[a.Kind]++
				if a.Kind == types.ActionSell {
					pnl, ok := a.PnL.Get()
					require.True(t, ok)
					assert.Greater(t, pnl, 0.0)
				} else {
					assert.False(t, a.PnL.Valid)
				}
			}
			assert.LessOrEqual(t, counts[types.ActionBuy], 2)
			assert.LessOrEqual(t, counts[types.ActionAverage], 1)
			assert.False(t, counts[types.ActionBuy] > 0 && counts[types.ActionAverage] > 0)
			assert.LessOrEqual(t, counts[types.ActionSell], 1)
			assert.GreaterOrEqual(t, eng.Cash(), 0.0)
		}

		actions := eng.Actions()
		require.NotEmpty(t, actions, "seed %d", seed)
		cash, err := Replay(200000, actions)
		require.NoError(t, err)
		for i, a := range actions {
			assert.InDelta(t, a.CashAfter, cash[i], 1e-6)
		}
		assert.InDelta(t, eng.Cash(), cash[len(cash)-1], 1e-6)
	}
}

func TestReplayRejectsOverspend(t *testing.T) {
	_, err := Replay(100, []types.Action{{Kind: types.ActionBuy, Symbol: "A", Price: 60, Qty: 2}})
	assert.ErrorIs(t, err, types.ErrInvalidState)

	_, err = Replay(-1, nil)
	assert.ErrorIs(t, err, types.ErrInvalidState)

	cash, err := Replay(1000, []types.Action{
		{Kind: types.ActionBuy, Price: 100, Qty: 5},
		{Kind: types.ActionAverage, Price: 90, Qty: 5},
		{Kind: types.ActionSell, Price: 110, Qty: 10, PnL: types.Float(150)},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{500, 50, 1150}, cash)
}

func TestFromLiveUsesPriorHistory(t *testing.T) {
	b := matrix.NewBuilder()
	for i := 1; i <= 3; i++ {
		require.NoError(t, b.Set("A", dayN(i), float64(i*10)))
	}
	hist := b.Build()

	snap := FromLive(hist, dayN(3), []types.Quote{{Symbol: "A", Exchange: "BSE", Price: 5}, {Symbol: "B", Price: 0}}, 2)
	assert.Equal(t, map[string]float64{"A": 5}, snap.Prices)
	assert.Equal(t, "BSE", snap.Exchange["A"])
	assert.Equal(t, map[string]float64{"A": 15}, snap.MA)

	snap = FromLive(hist, dayN(1), nil, 1)
	assert.Empty(t, snap.MA)
}
