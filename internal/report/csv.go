package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"

	"nifty-meanrev/internal/types"
)

// actionRow cells are preformatted so gocsv never walks into NullFloat and
// floats keep full precision.
type actionRow struct {
	Date     string `csv:"Date"`
	Action   string `csv:"Action"`
	Stock    string `csv:"Stock"`
	Price    string `csv:"Price"`
	Qty      string `csv:"Qty"`
	PnL      string `csv:"PnL"`
	Exchange string `csv:"Exchange"`
	CashLeft string `csv:"Cash Left"`
}

type summaryRow struct {
	Stock         string `csv:"Stock"`
	RealizedPnL   string `csv:"Realized PnL"`
	HoldingsValue string `csv:"Holdings Value"`
	Qty           string `csv:"Qty"`
	UnrealizedPnL string `csv:"Unrealized PnL"`
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func money(v float64) string { return strconv.FormatFloat(round2(v), 'f', 2, 64) }

func nullMoney(v types.NullFloat) string {
	if !v.Valid {
		return ""
	}
	return money(v.Value)
}

func exact(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteActions writes the row-per-action table without rounding, so
// ReadActions returns the same actions.
func WriteActions(w io.Writer, actions []types.Action) error {
	rows := make([]*actionRow, 0, len(actions))
	for _, a := range actions {
		row := &actionRow{
			Date:     a.Date.Format(types.DateLayout),
			Action:   string(a.Kind),
			Stock:    a.Symbol,
			Price:    exact(a.Price),
			Qty:      strconv.Itoa(a.Qty),
			Exchange: a.Exchange,
			CashLeft: exact(a.CashAfter),
		}
		if v, ok := a.PnL.Get(); ok {
			row.PnL = exact(v)
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(rows, w)
}

// ReadActions parses a table written by WriteActions. Extra columns are ignored.
func ReadActions(r io.Reader) ([]types.Action, error) {
	var rows []*actionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse action log: %w", err)
	}
	out := make([]types.Action, 0, len(rows))
	for i, row := range rows {
		d, err := dateparse.ParseAny(row.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+1, row.Date, err)
		}
		kind := types.ActionKind(row.Action)
		switch kind {
		case types.ActionBuy, types.ActionAverage, types.ActionSell:
		default:
			return nil, fmt.Errorf("%w: row %d has unknown action %q", types.ErrInvalidState, i+1, row.Action)
		}
		a := types.Action{Date: types.Day(d), Kind: kind, Symbol: row.Stock, Exchange: row.Exchange}
		if a.Price, err = strconv.ParseFloat(strings.TrimSpace(row.Price), 64); err != nil {
			return nil, fmt.Errorf("row %d: bad price %q: %w", i+1, row.Price, err)
		}
		if a.Qty, err = strconv.Atoi(strings.TrimSpace(row.Qty)); err != nil {
			return nil, fmt.Errorf("row %d: bad qty %q: %w", i+1, row.Qty, err)
		}
		pnl, ok, err := types.ParseNullable(row.PnL)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad pnl %q: %w", i+1, row.PnL, err)
		}
		if ok {
			a.PnL = types.Float(pnl)
		}
		if cash, ok, err := types.ParseNullable(row.CashLeft); err != nil {
			return nil, fmt.Errorf("row %d: bad cash %q: %w", i+1, row.CashLeft, err)
		} else if ok {
			a.CashAfter = cash
		}
		out = append(out, a)
	}
	return out, nil
}

// WriteSummary writes one row per instrument followed by the TOTAL,
// CASH LEFT, PORTFOLIO VALUE and CAGR footer rows.
func WriteSummary(w io.Writer, s *Summary) error {
	rows := make([]*summaryRow, 0, len(s.Instruments)+4)
	for _, in := range s.Instruments {
		rows = append(rows, &summaryRow{
			Stock:         in.Symbol,
			RealizedPnL:   money(in.RealizedPnL),
			HoldingsValue: nullMoney(in.HoldingsValue),
			Qty:           strconv.Itoa(in.Quantity),
			UnrealizedPnL: nullMoney(in.UnrealizedPnL),
		})
	}
	rows = append(rows,
		&summaryRow{Stock: "TOTAL", RealizedPnL: money(s.TotalRealized), HoldingsValue: money(s.TotalHoldings), UnrealizedPnL: money(s.TotalUnrealized)},
		&summaryRow{Stock: "CASH LEFT", UnrealizedPnL: money(s.CashLeft)},
		&summaryRow{Stock: "PORTFOLIO VALUE", UnrealizedPnL: money(s.PortfolioValue)},
		&summaryRow{Stock: "CAGR", UnrealizedPnL: FormatCAGR(s.CAGR)},
	)
	return gocsv.Marshal(rows, w)
}

// FormatCAGR renders a percentage with two decimals or "undefined".
func FormatCAGR(c types.NullFloat) string {
	if !c.Valid {
		return "undefined"
	}
	return fmt.Sprintf("%.2f%%", c.Value*100)
}

func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteFiles writes the action log, summary table and optional JSON result.
// Empty paths are skipped.
func WriteFiles(logPath, summaryPath, jsonPath string, actions []types.Action, s *Summary) error {
	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{logPath, func(w io.Writer) error { return WriteActions(w, actions) }},
		{summaryPath, func(w io.Writer) error { return WriteSummary(w, s) }},
		{jsonPath, func(w io.Writer) error { return WriteJSON(w, s) }},
	}
	for _, wr := range writers {
		if wr.path == "" {
			continue
		}
		if err := writeFile(wr.path, wr.write); err != nil {
			return fmt.Errorf("write %s: %w", wr.path, err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadActionsFile is ReadActions over a file path.
func ReadActionsFile(path string) ([]types.Action, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadActions(f)
}

