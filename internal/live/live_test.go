package live

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-meanrev/internal/engine"
	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/tradelog"
	"nifty-meanrev/internal/types"
)

func day(s string) time.Time {
	t, _ := time.Parse(types.DateLayout, s)
	return t
}

type fakeBroker struct {
	prices   map[string]map[string]float64 // exchange -> symbol -> price
	ltpErr   map[string]error
	holdings []types.Holding
	holdErr  error
	orderErr error
	orders   []types.OrderReq
}

func (f *fakeBroker) LTP(ctx context.Context, exchange string, symbols []string) (map[string]float64, error) {
	if err := f.ltpErr[exchange]; err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, s := range symbols {
		if p, ok := f.prices[exchange][s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func (f *fakeBroker) Holdings(ctx context.Context) ([]types.Holding, error) {
	return f.holdings, f.holdErr
}

func (f *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return types.OrderResp{}, f.orderErr
	}
	return types.OrderResp{OrderID: "SIM-1", Status: "SIMULATED"}, nil
}

func (f *fakeBroker) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.Close, error) {
	return nil, nil
}

// history holds 20 closes at 100 for every symbol, 2025-06-01..20.
func history(t *testing.T, symbols ...string) *matrix.Matrix {
	t.Helper()
	b := matrix.NewBuilder()
	for _, s := range symbols {
		for d := 0; d < 20; d++ {
			require.NoError(t, b.Set(s, day("2025-06-01").AddDate(0, 0, d), 100))
		}
	}
	return b.Build()
}

func options(t *testing.T, today string) Options {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	return Options{
		Params:    engine.DefaultParams(100000),
		Universe:  []string{"INFY", "TCS"},
		History:   history(t, "INFY", "TCS"),
		StatePath: filepath.Join(t.TempDir(), "state.json"),
		Exchange:  "NSE",
		Save:      true,
		Today:     day(today),
	}
}

func TestRunBuysOnCheaperExchangeAndSaves(t *testing.T) {
	opts := options(t, "2025-06-25")
	brk := &fakeBroker{prices: map[string]map[string]float64{
		"NSE": {"INFY": 90, "TCS": 101},
		"BSE": {"INFY": 89, "TCS": 102},
	}}

	rep, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Seeded)
	assert.True(t, rep.Saved)
	require.Len(t, rep.Result.Actions, 1)
	a := rep.Result.Actions[0]
	assert.Equal(t, types.ActionBuy, a.Kind)
	assert.Equal(t, "INFY", a.Symbol)
	assert.Equal(t, 89.0, a.Price)
	assert.Equal(t, 28, a.Qty) // floor(2500 / 89)

	require.Len(t, brk.orders, 1)
	assert.Equal(t, types.OrderReq{Symbol: "INFY", Exchange: "BSE", Side: "BUY", Qty: 28, Tag: "meanrev-BUY"}, brk.orders[0])

	assert.InDelta(t, 100000-28*89, rep.Cash, 1e-9)
	assert.InDelta(t, 28*89, rep.HoldingsValue, 1e-9)
	assert.InDelta(t, 100000, rep.Total, 1e-9)

	st, ok, err := LoadState(opts.StatePath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "BSE", st.Exchange["INFY"])
	assert.Equal(t, rep.RunID, st.RunID)
	assert.Equal(t, day("2025-06-25"), st.Engine.LastDate)

	entries, err := tradelog.ReadDay(time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BSE", entries[0].Exchange)
	assert.Equal(t, "SIM-1", entries[0].OrderID)
	assert.InDelta(t, 100000, entries[0].TotalValue, 1e-9)
}

func TestRunSellsOnExchangeBoughtOn(t *testing.T) {
	opts := options(t, "2025-06-25")
	brk := &fakeBroker{prices: map[string]map[string]float64{
		"NSE": {"INFY": 90, "TCS": 101},
		"BSE": {"INFY": 89, "TCS": 102},
	}}
	_, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)

	// NSE is above the target but INFY was bought on BSE, where it is not
	opts.Today = day("2025-06-26")
	brk.prices = map[string]map[string]float64{
		"NSE": {"INFY": 95, "TCS": 101},
		"BSE": {"INFY": 93, "TCS": 102},
	}
	rep, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Result.Actions)

	opts.Today = day("2025-06-27")
	brk.prices["BSE"]["INFY"] = 94
	rep, err = New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Result.Actions, 1)
	a := rep.Result.Actions[0]
	assert.Equal(t, types.ActionSell, a.Kind)
	assert.Equal(t, 94.0, a.Price)
	pnl, ok := a.PnL.Get()
	require.True(t, ok)
	assert.InDelta(t, 28*5, pnl, 1e-9)
	assert.Equal(t, "BSE", brk.orders[len(brk.orders)-1].Exchange)
	assert.Equal(t, "SELL", brk.orders[len(brk.orders)-1].Side)

	st, _, err := LoadState(opts.StatePath)
	require.NoError(t, err)
	assert.NotContains(t, st.Exchange, "INFY")
	assert.InDelta(t, 100000+28*5, st.Engine.Cash, 1e-9)
}

func TestRunSeedsFromHoldingsInUniverse(t *testing.T) {
	opts := options(t, "2025-06-25")
	opts.Save = false
	brk := &fakeBroker{
		prices: map[string]map[string]float64{
			"NSE": {"INFY": 101, "TCS": 101, "GOLDBEES": 60},
			"BSE": {"INFY": 102, "TCS": 101.5},
		},
		holdings: []types.Holding{
			{Symbol: "TCS", Exchange: "NSE", Qty: 10, AvgPrice: 120},
			{Symbol: "GOLDBEES", Exchange: "NSE", Qty: 5, AvgPrice: 55},
		},
	}

	rep, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)

	// nothing below its average, so TCS (101 < 0.97 x 120) is averaged down
	require.Len(t, rep.Result.Actions, 1)
	a := rep.Result.Actions[0]
	assert.Equal(t, types.ActionAverage, a.Kind)
	assert.Equal(t, "TCS", a.Symbol)
	assert.Equal(t, 101.0, a.Price)
	assert.Equal(t, "NSE", a.Exchange)

	assert.False(t, rep.Saved)
	_, ok, err := LoadState(opts.StatePath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunWithoutSaveSendsNoOrders(t *testing.T) {
	opts := options(t, "2025-06-25")
	opts.Save = false
	brk := &fakeBroker{prices: map[string]map[string]float64{
		"NSE": {"INFY": 90, "TCS": 101},
		"BSE": {"INFY": 89, "TCS": 102},
	}}

	for i := 0; i < 2; i++ {
		rep, err := New(brk, nil, opts).Run(context.Background())
		require.NoError(t, err)
		assert.True(t, rep.Seeded)
		assert.False(t, rep.Saved)
		require.Len(t, rep.Result.Actions, 1)
		assert.Equal(t, "INFY", rep.Result.Actions[0].Symbol)
		assert.Empty(t, rep.Orders)
	}

	assert.Empty(t, brk.orders)
	entries, err := tradelog.ReadDay(time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, ok, err := LoadState(opts.StatePath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunReportsSymbolsWithoutHistory(t *testing.T) {
	opts := options(t, "2025-06-25")
	opts.Universe = []string{"INFY", "TCS", "WIPRO"}
	brk := &fakeBroker{prices: map[string]map[string]float64{
		"NSE": {"INFY": 101, "TCS": 101, "WIPRO": 50},
		"BSE": {},
	}}
	rep, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"WIPRO"}, rep.NoHistory)
	assert.Empty(t, rep.Result.Actions)
}

func TestRunHoldingsFailureStartsEmpty(t *testing.T) {
	opts := options(t, "2025-06-25")
	brk := &fakeBroker{
		prices:  map[string]map[string]float64{"NSE": {"INFY": 101}, "BSE": {}},
		holdErr: errors.New("token expired"),
	}
	rep, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Result.Actions)
	assert.Equal(t, 100000.0, rep.Cash)
}

func TestRunSingleExchange(t *testing.T) {
	opts := options(t, "2025-06-25")
	opts.SingleExchange = true
	brk := &fakeBroker{
		prices: map[string]map[string]float64{"NSE": {"INFY": 90}},
		ltpErr: map[string]error{"BSE": errors.New("must not be called")},
	}
	rep, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Result.Actions, 1)
	assert.Equal(t, 90.0, rep.Result.Actions[0].Price)
}

func TestRunNoQuotes(t *testing.T) {
	opts := options(t, "2025-06-25")
	brk := &fakeBroker{ltpErr: map[string]error{
		"NSE": errors.New("down"),
		"BSE": errors.New("down"),
	}}
	_, err := New(brk, nil, opts).Run(context.Background())
	assert.ErrorContains(t, err, "no quotes")
}

func TestRunFailedOrderBlocksSave(t *testing.T) {
	opts := options(t, "2025-06-25")
	brk := &fakeBroker{
		prices:   map[string]map[string]float64{"NSE": {"INFY": 90}, "BSE": {}},
		orderErr: errors.New("rejected"),
	}
	rep, err := New(brk, nil, opts).Run(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidState)
	require.NotNil(t, rep)
	assert.Equal(t, []string{"INFY"}, rep.FailedOrders)

	_, ok, err := LoadState(opts.StatePath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunSameDayTwiceAfterSave(t *testing.T) {
	opts := options(t, "2025-06-25")
	brk := &fakeBroker{prices: map[string]map[string]float64{"NSE": {"INFY": 101}, "BSE": {}}}
	_, err := New(brk, nil, opts).Run(context.Background())
	require.NoError(t, err)

	_, err = New(brk, nil, opts).Run(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestSaveLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st := &State{
		RunID:    "r1",
		Engine:   engine.State{Cash: 5},
		Exchange: map[string]string{"INFY": "NSE"},
	}
	require.NoError(t, SaveState(path, st))

	got, ok, err := LoadState(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, 5.0, got.Engine.Cash)
	assert.Equal(t, "NSE", got.Exchange["INFY"])
}
