package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"nifty-meanrev/internal/bootstrap"
	"nifty-meanrev/internal/charges"
	"nifty-meanrev/internal/engine"
	"nifty-meanrev/internal/report"
	"nifty-meanrev/internal/store"
	"nifty-meanrev/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	in := flag.String("in", "", "action log CSV (defaults to backtest.log_path)")
	out := flag.String("out", "", "write the charges CSV here instead of stdout")
	flag.Parse()

	rates := charges.DefaultRates()
	capital := 0.0
	path := *in
	if cfg, err := store.LoadConfig(*configPath); err == nil {
		rates = cfg.ChargeRates()
		capital = cfg.Capital
		if path == "" {
			path = cfg.Backtest.LogPath
		}
	}
	if path == "" {
		fmt.Println("Error: -in is required")
		flag.Usage()
		os.Exit(1)
	}

	actions, err := report.ReadActionsFile(path)
	bootstrap.Must(err)
	if capital > 0 {
		checkCash(capital, actions)
	}
	rep := charges.Build(actions, rates)

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		bootstrap.Must(err)
		defer f.Close()
		w = f
	}
	bootstrap.Must(charges.WriteCSV(w, rep))
	if *out != "" {
		fmt.Printf("Charges for %d actions: %s (written to %s)\n", len(actions), rep.Totals.Total.StringFixed(2), *out)
	}
}

// checkCash replays the log from capital and reports rows whose cash column
// disagrees with the replayed balance.
func checkCash(capital float64, actions []types.Action) {
	cash, err := engine.Replay(capital, actions)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: action log does not replay:", err)
		return
	}
	for i, a := range actions {
		if math.Abs(cash[i]-a.CashAfter) > 0.01 {
			fmt.Fprintf(os.Stderr, "Warning: row %d (%s %s) cash %.2f, replay gives %.2f\n",
				i+1, a.Kind, a.Symbol, a.CashAfter, cash[i])
		}
	}
}
