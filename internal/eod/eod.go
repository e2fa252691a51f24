package eod

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"nifty-meanrev/internal/charges"
	"nifty-meanrev/internal/tradelog"
	"nifty-meanrev/internal/types"
)

type aggRow struct {
	Symbol      string
	BuyQty      int
	BuyValue    float64
	SellQty     int
	SellValue   float64
	RealizedPnL float64
	Charges     decimal.Decimal
}

type csvRow struct {
	Symbol      string `csv:"symbol"`
	BuyQty      string `csv:"buy_qty"`
	BuyAvg      string `csv:"buy_avg"`
	SellQty     string `csv:"sell_qty"`
	SellAvg     string `csv:"sell_avg"`
	RealizedPnL string `csv:"realized_pnl"`
	Charges     string `csv:"charges"`
	NetPnL      string `csv:"net_pnl"`
	BuyValue    string `csv:"gross_buy_value"`
	SellValue   string `csv:"gross_sell_value"`
}

type eodSummarizer struct {
	rates charges.Rates
}

func istNow() time.Time { return time.Now().In(time.FixedZone("IST", 19800)) }

func eodCSVPath(t time.Time) string {
	return filepath.Join(tradelog.LogDir(), "eod", t.Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates the day's trade log by symbol and writes it as
// CSV. A day without trades yields an empty path and no file.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	entries, err := tradelog.ReadDay(t)
	if err != nil {
		return "", err
	}
	aggs := aggregate(entries, s.rates)
	if len(aggs) == 0 {
		return "", nil
	}

	outPath := eodCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := gocsv.Marshal(rows(aggs), out); err != nil {
		return "", fmt.Errorf("write eod summary: %w", err)
	}
	return outPath, nil
}

func (s *eodSummarizer) SummarizeToday() (string, error) { return s.SummarizeDay(istNow()) }

func aggregate(entries []tradelog.Entry, r charges.Rates) []*aggRow {
	byKey := map[string]*aggRow{}
	for _, e := range entries {
		row := byKey[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			byKey[e.Symbol] = row
		}
		value := float64(e.Qty) * e.Price
		kind := types.ActionKind(e.Action)
		switch kind {
		case types.ActionBuy, types.ActionAverage:
			row.BuyQty += e.Qty
			row.BuyValue += value
		case types.ActionSell:
			row.SellQty += e.Qty
			row.SellValue += value
			row.RealizedPnL += e.PnL
		default:
			continue
		}
		c := charges.Compute(types.Action{Kind: kind, Symbol: e.Symbol, Price: e.Price, Qty: e.Qty}, r)
		row.Charges = row.Charges.Add(c.Total)
	}

	out := make([]*aggRow, 0, len(byKey))
	for _, r := range byKey {
		if r.BuyQty > 0 || r.SellQty > 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func rows(aggs []*aggRow) []*csvRow {
	var totalBuy, totalSell, totalPnL float64
	totalCharges := decimal.Zero
	out := make([]*csvRow, 0, len(aggs)+1)
	for _, r := range aggs {
		var buyAvg, sellAvg float64
		if r.BuyQty > 0 {
			buyAvg = r.BuyValue / float64(r.BuyQty)
		}
		if r.SellQty > 0 {
			sellAvg = r.SellValue / float64(r.SellQty)
		}
		ch, _ := r.Charges.Float64()
		out = append(out, &csvRow{
			Symbol:      r.Symbol,
			BuyQty:      fmt.Sprint(r.BuyQty),
			BuyAvg:      fmt.Sprintf("%.4f", buyAvg),
			SellQty:     fmt.Sprint(r.SellQty),
			SellAvg:     fmt.Sprintf("%.4f", sellAvg),
			RealizedPnL: fmt.Sprintf("%.2f", r.RealizedPnL),
			Charges:     r.Charges.StringFixed(2),
			NetPnL:      fmt.Sprintf("%.2f", r.RealizedPnL-ch),
			BuyValue:    fmt.Sprintf("%.2f", r.BuyValue),
			SellValue:   fmt.Sprintf("%.2f", r.SellValue),
		})
		totalBuy += r.BuyValue
		totalSell += r.SellValue
		totalPnL += r.RealizedPnL
		totalCharges = totalCharges.Add(r.Charges)
	}
	tc, _ := totalCharges.Float64()
	out = append(out, &csvRow{
		Symbol:      "TOTAL",
		RealizedPnL: fmt.Sprintf("%.2f", totalPnL),
		Charges:     totalCharges.StringFixed(2),
		NetPnL:      fmt.Sprintf("%.2f", totalPnL-tc),
		BuyValue:    fmt.Sprintf("%.2f", totalBuy),
		SellValue:   fmt.Sprintf("%.2f", totalSell),
	})
	return out
}
