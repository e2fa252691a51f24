// Package charges computes statutory transaction costs over an action log.
package charges

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"nifty-meanrev/internal/types"
)

// Rates are fractions of turnover unless noted.
type Rates struct {
	StampDutyBuy float64
	STTSell      float64
	TxnCharge    float64
	SEBIPerCrore float64 // rupees per crore of turnover
	GST          float64 // on txn + SEBI charges
	DPPerSell    float64 // flat rupees per sell
	Brokerage    float64
}

func DefaultRates() Rates {
	return Rates{
		StampDutyBuy: 0.00015,
		STTSell:      0.001,
		TxnCharge:    0.0000297,
		SEBIPerCrore: 10,
		GST:          0.18,
		DPPerSell:    15.93,
	}
}

// Charge breaks down the costs of one action. Components are rounded to
// paise; Total is the rounded sum of the unrounded components.
type Charge struct {
	Action    types.Action
	Turnover  decimal.Decimal
	Brokerage decimal.Decimal
	STT       decimal.Decimal
	Txn       decimal.Decimal
	SEBI      decimal.Decimal
	GST       decimal.Decimal
	StampDuty decimal.Decimal
	DP        decimal.Decimal
	Total     decimal.Decimal
}

var crore = decimal.NewFromInt(10_000_000)

// Compute prices one action. BUY and AVERAGE both pay stamp duty;
// SELL pays STT and the DP charge.
func Compute(a types.Action, r Rates) Charge {
	turnover := decimal.NewFromFloat(a.Price).Mul(decimal.NewFromInt(int64(a.Qty)))
	brokerage := turnover.Mul(decimal.NewFromFloat(r.Brokerage))
	txn := turnover.Mul(decimal.NewFromFloat(r.TxnCharge))
	sebi := turnover.Mul(decimal.NewFromFloat(r.SEBIPerCrore)).Div(crore)
	gst := txn.Add(sebi).Mul(decimal.NewFromFloat(r.GST))
	stt, stamp, dp := decimal.Zero, decimal.Zero, decimal.Zero

	switch a.Kind {
	case types.ActionBuy, types.ActionAverage:
		stamp = turnover.Mul(decimal.NewFromFloat(r.StampDutyBuy))
	case types.ActionSell:
		stt = turnover.Mul(decimal.NewFromFloat(r.STTSell))
		dp = decimal.NewFromFloat(r.DPPerSell)
	}
	total := brokerage.Add(txn).Add(sebi).Add(gst).Add(stt).Add(stamp).Add(dp)

	return Charge{
		Action:    a,
		Turnover:  turnover.Round(2),
		Brokerage: brokerage.Round(2),
		STT:       stt.Round(2),
		Txn:       txn.Round(2),
		SEBI:      sebi.Round(2),
		GST:       gst.Round(2),
		StampDuty: stamp.Round(2),
		DP:        dp.Round(2),
		Total:     total.Round(2),
	}
}

// Report is the per-action breakdown plus column totals of the rounded values.
type Report struct {
	Rows   []Charge
	Totals Charge
}

func Build(actions []types.Action, r Rates) *Report {
	rep := &Report{Rows: make([]Charge, 0, len(actions))}
	for _, a := range actions {
		c := Compute(a, r)
		rep.Rows = append(rep.Rows, c)
		t := &rep.Totals
		t.Turnover = t.Turnover.Add(c.Turnover)
		t.Brokerage = t.Brokerage.Add(c.Brokerage)
		t.STT = t.STT.Add(c.STT)
		t.Txn = t.Txn.Add(c.Txn)
		t.SEBI = t.SEBI.Add(c.SEBI)
		t.GST = t.GST.Add(c.GST)
		t.StampDuty = t.StampDuty.Add(c.StampDuty)
		t.DP = t.DP.Add(c.DP)
		t.Total = t.Total.Add(c.Total)
	}
	return rep
}

type chargeRow struct {
	Date      string `csv:"Date"`
	Action    string `csv:"Action"`
	Stock     string `csv:"Stock"`
	Price     string `csv:"Price"`
	Qty       string `csv:"Qty"`
	PnL       string `csv:"PnL"`
	Turnover  string `csv:"Turnover"`
	Brokerage string `csv:"Brokerage"`
	STT       string `csv:"STT"`
	Txn       string `csv:"Txn Charges"`
	SEBI      string `csv:"SEBI Charges"`
	GST       string `csv:"GST"`
	StampDuty string `csv:"Stamp Duty"`
	DP        string `csv:"DP Charges"`
	Total     string `csv:"Total Charges"`
}

func row(c Charge) *chargeRow {
	return &chargeRow{
		Turnover:  c.Turnover.StringFixed(2),
		Brokerage: c.Brokerage.StringFixed(2),
		STT:       c.STT.StringFixed(2),
		Txn:       c.Txn.StringFixed(2),
		SEBI:      c.SEBI.StringFixed(2),
		GST:       c.GST.StringFixed(2),
		StampDuty: c.StampDuty.StringFixed(2),
		DP:        c.DP.StringFixed(2),
		Total:     c.Total.StringFixed(2),
	}
}

// WriteCSV writes the action columns, the charge columns and a TOTAL row.
func WriteCSV(w io.Writer, rep *Report) error {
	rows := make([]*chargeRow, 0, len(rep.Rows)+1)
	for _, c := range rep.Rows {
		r := row(c)
		a := c.Action
		r.Date = a.Date.Format(types.DateLayout)
		r.Action = string(a.Kind)
		r.Stock = a.Symbol
		r.Price = decimal.NewFromFloat(a.Price).StringFixed(2)
		r.Qty = decimal.NewFromInt(int64(a.Qty)).String()
		if v, ok := a.PnL.Get(); ok {
			r.PnL = decimal.NewFromFloat(v).StringFixed(2)
		}
		rows = append(rows, r)
	}
	total := row(rep.Totals)
	total.Date = "TOTAL"
	rows = append(rows, total)
	return gocsv.Marshal(rows, w)
}
