package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/pricestore"
	"nifty-meanrev/internal/store"
	"nifty-meanrev/internal/yahoo"
)

func config(t *testing.T) *store.Config {
	t.Helper()
	cfg, err := store.LoadConfig(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestPriceStoreSelection(t *testing.T) {
	cfg := config(t)
	s, closeFn, err := PriceStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, matrix.FileStore{}, s)
	assert.NoError(t, closeFn())

	cfg.Data.Store = "SQLITE"
	cfg.Data.SQLitePath = filepath.Join(t.TempDir(), "prices.db")
	s, closeFn, err = PriceStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &pricestore.Store{}, s)
	assert.NoError(t, closeFn())
}

func TestSourceSelection(t *testing.T) {
	cfg := config(t)
	brk := InitializeBroker(context.Background(), cfg)

	assert.IsType(t, &yahoo.Source{}, CloseSource(cfg, brk))
	cfg.Data.Source = "KITE"
	assert.Same(t, brk, CloseSource(cfg, brk))

	assert.Same(t, brk, Quoter(cfg, brk))
	cfg.Live.QuoteSource = "YAHOO"
	assert.IsType(t, &yahoo.Source{}, Quoter(cfg, brk))
}

func TestStaticUniverse(t *testing.T) {
	cfg := config(t)
	cfg.Universe.Source = "STATIC"
	cfg.Universe.Static = []string{"tcs", " INFY", "TCS"}
	got, err := Universe(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"INFY", "TCS"}, got)
}
