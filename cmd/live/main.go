package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nifty-meanrev/internal/bootstrap"
	"nifty-meanrev/internal/eod"
	"nifty-meanrev/internal/live"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/metrics"
	"nifty-meanrev/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	save := flag.Bool("save", false, "send orders and persist the updated state")
	flag.Parse()

	bootstrap.Must(bootstrap.InitializeSystem("live"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer bootstrap.Shutdown(context.Background())

	cfg, err := bootstrap.LoadConfig(ctx, *configPath)
	bootstrap.Must(err)
	bootstrap.InitializeEOD(cfg)
	bootstrap.CompressOldLogs(ctx, cfg.Live.RetentionDays)

	symbols, err := bootstrap.Universe(ctx, cfg)
	bootstrap.Must(err)

	ps, closeStore, err := bootstrap.PriceStore(cfg)
	bootstrap.Must(err)
	defer closeStore()
	history, err := ps.Load()
	bootstrap.Must(err)
	if history == nil {
		fmt.Fprintln(os.Stderr, "No price history; run fetch first")
		os.Exit(1)
	}

	brk := bootstrap.InitializeBroker(ctx, cfg)
	rec := metrics.New("live")
	runner := live.New(brk, bootstrap.Quoter(cfg, brk), live.Options{
		Params:         cfg.StrategyParams(),
		Universe:       symbols,
		History:        history,
		StatePath:      cfg.Live.StatePath,
		Exchange:       cfg.Exchange,
		SingleExchange: cfg.Live.SingleExchange,
		Save:           cfg.Live.Save || *save,
		Metrics:        rec,
	})

	rep, err := runner.Run(ctx)
	if rep != nil {
		printReport(rep)
	}
	if p, eodErr := eod.SummarizeToday(); eodErr == nil && p != "" {
		fmt.Println("EOD CSV written:", p)
	}
	if mErr := rec.WriteTextfile(cfg.Metrics.TextfilePath); mErr != nil {
		logger.Warn(ctx, "Failed to write metrics textfile", "error", mErr)
	}
	bootstrap.Must(err)
}

func printReport(rep *live.Report) {
	fmt.Printf("Live run %s for %s\n", rep.RunID, rep.Date.Format(types.DateLayout))
	if rep.Seeded {
		fmt.Println("No saved state; seeded from broker holdings")
	}
	if rep.Result != nil {
		for _, a := range rep.Result.Actions {
			fmt.Printf("  %-7s %-12s %-3s qty=%d @ %.2f\n", a.Kind, a.Symbol, a.Exchange, a.Qty, a.Price)
		}
		if len(rep.Result.Actions) == 0 {
			fmt.Println("  no actions")
		}
	}
	for _, sym := range rep.FailedOrders {
		fmt.Println("  order failed:", sym)
	}
	fmt.Printf("Cash: %.2f  Holdings: %.2f  Realized: %.2f  Total: %.2f\n",
		rep.Cash, rep.HoldingsValue, rep.Realized, rep.Total)
	if !rep.Saved {
		fmt.Println("Preview only: no orders sent, state not saved (pass -save to trade)")
	}
}
