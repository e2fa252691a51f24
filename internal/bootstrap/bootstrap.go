// Package bootstrap wires configuration, logging, tracing and data sources
// for the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"nifty-meanrev/internal/broker/brokerobs"
	"nifty-meanrev/internal/broker/zerodha"
	"nifty-meanrev/internal/eod"
	"nifty-meanrev/internal/eod/eodobs"
	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/pricestore"
	"nifty-meanrev/internal/store"
	"nifty-meanrev/internal/trace"
	"nifty-meanrev/internal/tradelog"
	"nifty-meanrev/internal/universe"
	"nifty-meanrev/internal/yahoo"
)

func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// InitializeSystem loads .env, then initializes the tracer and logger for
// the named command.
func InitializeSystem(command string) error {
	_ = godotenv.Load()

	if err := trace.Init(command); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// Shutdown flushes the tracer and logger.
func Shutdown(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shut down tracer: %v\n", err)
	}
	logger.Sync()
}

func LoadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// PriceStore opens the configured matrix store. closeFn releases it.
func PriceStore(cfg *store.Config) (s interfaces.PriceStore, closeFn func() error, err error) {
	if cfg.Data.Store == "SQLITE" {
		ps, err := pricestore.Open(cfg.Data.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return ps, ps.Close, nil
	}
	return matrix.FileStore{Path: cfg.Data.MatrixPath}, func() error { return nil }, nil
}

// InitializeBroker returns the Kite adapter wrapped with observability.
func InitializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	brk := zerodha.NewZerodha(zerodha.Params{
		Mode:        cfg.Mode,
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
	})
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	return brokerobs.Wrap(brk)
}

// CloseSource picks where daily closes come from.
func CloseSource(cfg *store.Config, brk interfaces.Broker) interfaces.CloseSource {
	if cfg.Data.Source == "KITE" {
		return brk
	}
	return yahoo.New(yahoo.WithExchange(cfg.Exchange))
}

// Quoter picks where live prices come from.
func Quoter(cfg *store.Config, brk interfaces.Broker) interfaces.Quoter {
	if cfg.Live.QuoteSource == "YAHOO" {
		return yahoo.New()
	}
	return brk
}

// Universe resolves the tradable symbols from config.
func Universe(ctx context.Context, cfg *store.Config) ([]string, error) {
	if cfg.Universe.Source == "STATIC" {
		return universe.Normalize(cfg.Universe.Static), nil
	}
	return universe.New(universe.WithStatic(cfg.Universe.Static)).Fetch(ctx)
}

// InitializeEOD wraps the default EOD summarizer with observability.
func InitializeEOD(cfg *store.Config) {
	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer(cfg.ChargeRates())))
}

func CompressOldLogs(ctx context.Context, retentionDays int) {
	if err := tradelog.CompressOlder(retentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}
