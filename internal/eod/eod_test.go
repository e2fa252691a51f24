package eod

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-meanrev/internal/charges"
	"nifty-meanrev/internal/tradelog"
)

func writeLog(t *testing.T, day time.Time, lines string) {
	t.Helper()
	p := tradelog.DailyPath(day)
	require.NoError(t, os.WriteFile(p, []byte(lines), 0o644))
}

func TestSummarizeDayWritesPerSymbolRows(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)
	day := time.Date(2025, 7, 1, 15, 0, 0, 0, time.FixedZone("IST", 19800))
	writeLog(t, day, `{"action":"BUY","symbol":"INFY","qty":10,"price":100}
{"action":"AVERAGE","symbol":"INFY","qty":10,"price":90}
{"action":"SELL","symbol":"TCS","qty":5,"price":200,"pnl":50}
`)

	path, err := NewSummarizer(charges.DefaultRates()).SummarizeDay(day)
	require.NoError(t, err)
	assert.Equal(t, eodCSVPath(day), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "symbol,buy_qty,buy_avg,sell_qty,sell_avg,realized_pnl,charges,net_pnl,gross_buy_value,gross_sell_value")
	assert.Contains(t, out, "INFY,20,95.0000,0,0.0000,0.00,")
	assert.Contains(t, out, "TCS,0,0.0000,5,200.0000,50.00,")
	assert.Contains(t, out, "TOTAL,,,,,50.00,")
}

func TestSummarizeDayWithoutTrades(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	path, err := NewSummarizer(charges.DefaultRates()).SummarizeDay(time.Now())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestAggregateChargesAndSkipsUnknownActions(t *testing.T) {
	entries := []tradelog.Entry{
		{Action: "SELL", Symbol: "ITC", Qty: 100, Price: 400, PnL: 500},
		{Action: "HOLD", Symbol: "ITC", Qty: 1, Price: 1},
		{Action: "HOLD", Symbol: "SBIN", Qty: 1, Price: 1},
	}
	aggs := aggregate(entries, charges.DefaultRates())
	require.Len(t, aggs, 1)
	assert.Equal(t, 100, aggs[0].SellQty)
	assert.Equal(t, 500.0, aggs[0].RealizedPnL)
	// STT 40 + DP 15.93 + txn 1.188 + SEBI 0.04 + GST 0.22104
	assert.Equal(t, "57.38", aggs[0].Charges.StringFixed(2))
}
