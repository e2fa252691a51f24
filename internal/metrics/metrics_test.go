package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-meanrev/internal/report"
	"nifty-meanrev/internal/types"
)

func TestObserveStep(t *testing.T) {
	r := New("backtest")
	r.ObserveStep(&types.StepResult{
		Actions: []types.Action{
			{Kind: types.ActionBuy},
			{Kind: types.ActionBuy},
			{Kind: types.ActionSell, PnL: types.Float(50)},
		},
		Skipped: []types.SkippedTrade{{Kind: types.ActionAverage, Reason: types.SkipInsufficient}},
		Cash:    1234,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ActionsTotal.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActionsTotal.WithLabelValues("SELL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SkippedTotal.WithLabelValues("AVERAGE", "INSUFFICIENT_CASH")))
	assert.Equal(t, 50.0, testutil.ToFloat64(r.RealizedPnL))
	assert.Equal(t, 1234.0, testutil.ToFloat64(r.Cash))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StepsTotal))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveStep(&types.StepResult{})
	r.ObserveSummary(&report.Summary{})
	assert.NoError(t, r.WriteTextfile("ignored"))
}

func TestWriteTextfile(t *testing.T) {
	r := New("live")
	r.ObserveSummary(&report.Summary{CashLeft: 10, TotalHoldings: 5, PortfolioValue: 15})
	path := filepath.Join(t.TempDir(), "meanrev.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `meanrev_portfolio_value{mode="live"} 15`)
	assert.Contains(t, string(b), `meanrev_cagr{mode="live"} NaN`)
}

func TestRegistryIsPerRun(t *testing.T) {
	a, b := New("backtest"), New("backtest")
	a.ObserveStep(&types.StepResult{Actions: []types.Action{{Kind: types.ActionBuy}}})

	n, err := testutil.GatherAndCount(a.Registry(), "meanrev_actions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(b.Registry(), "meanrev_actions_total")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var none *Recorder
	assert.Nil(t, none.Registry())
}
