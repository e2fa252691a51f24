package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nifty-meanrev/internal/backtest"
	"nifty-meanrev/internal/bootstrap"
	"nifty-meanrev/internal/metrics"
	"nifty-meanrev/internal/report"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	includeHistory := flag.Bool("include-history", false, "let prices before the start date seed the moving averages")
	flag.Parse()

	bootstrap.Must(bootstrap.InitializeSystem("backtest"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer bootstrap.Shutdown(context.Background())

	cfg, err := bootstrap.LoadConfig(ctx, *configPath)
	bootstrap.Must(err)

	ps, closeStore, err := bootstrap.PriceStore(cfg)
	bootstrap.Must(err)
	defer closeStore()

	m, err := ps.Load()
	bootstrap.Must(err)
	if m == nil {
		fmt.Fprintln(os.Stderr, "No price data; run fetch first")
		os.Exit(1)
	}

	start, end := cfg.BacktestRange()
	rec := metrics.New("backtest")
	res, err := backtest.Run(ctx, m, backtest.Options{
		Params:         cfg.StrategyParams(),
		Start:          start,
		End:            end,
		IncludeHistory: cfg.Backtest.IncludeHistory || *includeHistory,
		Metrics:        rec,
	})
	bootstrap.Must(err)

	bootstrap.Must(report.WriteFiles(cfg.Backtest.LogPath, cfg.Backtest.SummaryPath, cfg.Backtest.ResultPath, res.Actions, res.Summary))
	bootstrap.Must(rec.WriteTextfile(cfg.Metrics.TextfilePath))

	s := res.Summary
	fmt.Printf("Run %s: %d days, %d actions\n", res.RunID, res.Steps, len(res.Actions))
	fmt.Printf("Realized P&L:   %.2f\n", s.TotalRealized)
	fmt.Printf("Holdings value: %.2f\n", s.TotalHoldings)
	fmt.Printf("Cash left:      %.2f\n", s.CashLeft)
	fmt.Printf("Portfolio:      %.2f\n", s.PortfolioValue)
	fmt.Printf("CAGR:           %s\n", report.FormatCAGR(s.CAGR))
	fmt.Println("Action log written:", cfg.Backtest.LogPath)
}
