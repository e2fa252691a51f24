package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nifty-meanrev/internal/bootstrap"
	"nifty-meanrev/internal/collector"
	"nifty-meanrev/internal/logger"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	bootstrap.Must(bootstrap.InitializeSystem("fetch"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer bootstrap.Shutdown(context.Background())

	cfg, err := bootstrap.LoadConfig(ctx, *configPath)
	bootstrap.Must(err)

	symbols, err := bootstrap.Universe(ctx, cfg)
	bootstrap.Must(err)

	ps, closeStore, err := bootstrap.PriceStore(cfg)
	bootstrap.Must(err)
	defer closeStore()

	src := bootstrap.CloseSource(cfg, bootstrap.InitializeBroker(ctx, cfg))
	res, err := collector.New(src).Run(ctx, ps, symbols, cfg.FetchStart(), time.Now().In(ist))
	bootstrap.Must(err)

	if res.NewDates == 0 {
		fmt.Println("Price matrix already up to date")
		return
	}
	if len(res.Failed) > 0 {
		logger.Warn(ctx, "Some symbols failed to download", "symbols", res.Failed)
	}
	fmt.Printf("Added %d dates (%s to %s) for %d symbols\n",
		res.NewDates, res.From.Format("2006-01-02"), res.To.Format("2006-01-02"), len(symbols))
}
