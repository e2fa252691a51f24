package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"

	"nifty-meanrev/internal/charges"
	"nifty-meanrev/internal/engine"
	"nifty-meanrev/internal/types"
)

type Config struct {
	Mode     string  `yaml:"mode"`
	Exchange string  `yaml:"exchange"`
	Capital  float64 `yaml:"capital"`
	Universe struct {
		Source string   `yaml:"source"`
		Static []string `yaml:"static"`
	} `yaml:"universe"`
	Strategy struct {
		Window          int     `yaml:"window"`
		AllocationUnits int     `yaml:"allocation_units"`
		MaxBuysPerDay   int     `yaml:"max_buys_per_day"`
		AverageDownPct  float64 `yaml:"average_down_pct"`
		TakeProfitPct   float64 `yaml:"take_profit_pct"`
	} `yaml:"strategy"`
	Backtest struct {
		Start          string `yaml:"start"`
		End            string `yaml:"end"`
		IncludeHistory bool   `yaml:"include_history"`
		LogPath        string `yaml:"log_path"`
		SummaryPath    string `yaml:"summary_path"`
		ResultPath     string `yaml:"result_path"`
	} `yaml:"backtest"`
	Data struct {
		MatrixPath string `yaml:"matrix_path"`
		Store      string `yaml:"store"`
		SQLitePath string `yaml:"sqlite_path"`
		Source     string `yaml:"source"`
		FetchStart string `yaml:"fetch_start"`
	} `yaml:"data"`
	Live struct {
		StatePath      string `yaml:"state_path"`
		SingleExchange bool   `yaml:"single_exchange"`
		QuoteSource    string `yaml:"quote_source"`
		Save           bool   `yaml:"save"`
		RetentionDays  int    `yaml:"retention_days"`
	} `yaml:"live"`
	Charges struct {
		StampDutyBuy float64 `yaml:"stamp_duty_buy"`
		STTSell      float64 `yaml:"stt_sell"`
		TxnCharge    float64 `yaml:"txn_charge"`
		SEBIPerCrore float64 `yaml:"sebi_per_crore"`
		GST          float64 `yaml:"gst"`
		DPPerSell    float64 `yaml:"dp_per_sell"`
		Brokerage    float64 `yaml:"brokerage"`
	} `yaml:"charges"`
	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Exchange != "NSE" && c.Exchange != "BSE" {
		return fmt.Errorf("invalid exchange '%s': must be 'NSE' or 'BSE'", c.Exchange)
	}
	if c.Capital < 0 {
		return fmt.Errorf("capital must not be negative, got %.2f", c.Capital)
	}
	if c.Universe.Source != "NIFTY50" && c.Universe.Source != "STATIC" {
		return fmt.Errorf("universe.source must be 'NIFTY50' or 'STATIC', got '%s'", c.Universe.Source)
	}
	if c.Universe.Source == "STATIC" && len(c.Universe.Static) == 0 {
		return errors.New("universe.static cannot be empty when universe.source is STATIC")
	}
	if err := c.StrategyParams().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if c.Data.Store != "CSV" && c.Data.Store != "SQLITE" {
		return fmt.Errorf("data.store must be 'CSV' or 'SQLITE', got '%s'", c.Data.Store)
	}
	if c.Data.Source != "KITE" && c.Data.Source != "YAHOO" {
		return fmt.Errorf("data.source must be 'KITE' or 'YAHOO', got '%s'", c.Data.Source)
	}
	if c.Live.QuoteSource != "KITE" && c.Live.QuoteSource != "YAHOO" {
		return fmt.Errorf("live.quote_source must be 'KITE' or 'YAHOO', got '%s'", c.Live.QuoteSource)
	}
	for name, v := range map[string]string{
		"backtest.start":   c.Backtest.Start,
		"backtest.end":     c.Backtest.End,
		"data.fetch_start": c.Data.FetchStart,
	} {
		if _, err := parseDate(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	start, _ := parseDate(c.Backtest.Start)
	end, _ := parseDate(c.Backtest.End)
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("backtest.end %s is before backtest.start %s", c.Backtest.End, c.Backtest.Start)
	}
	return nil
}

// StrategyParams maps the strategy section onto engine parameters.
func (c *Config) StrategyParams() engine.Params {
	return engine.Params{
		Capital:         c.Capital,
		Window:          c.Strategy.Window,
		AllocationUnits: c.Strategy.AllocationUnits,
		MaxBuysPerDay:   c.Strategy.MaxBuysPerDay,
		AverageDownPct:  c.Strategy.AverageDownPct,
		TakeProfitPct:   c.Strategy.TakeProfitPct,
	}
}

func (c *Config) ChargeRates() charges.Rates {
	return charges.Rates{
		StampDutyBuy: c.Charges.StampDutyBuy,
		STTSell:      c.Charges.STTSell,
		TxnCharge:    c.Charges.TxnCharge,
		SEBIPerCrore: c.Charges.SEBIPerCrore,
		GST:          c.Charges.GST,
		DPPerSell:    c.Charges.DPPerSell,
		Brokerage:    c.Charges.Brokerage,
	}
}

// BacktestRange returns the configured horizon; zero values mean unbounded.
func (c *Config) BacktestRange() (time.Time, time.Time) {
	start, _ := parseDate(c.Backtest.Start)
	end, _ := parseDate(c.Backtest.End)
	return start, end
}

func (c *Config) FetchStart() time.Time {
	d, _ := parseDate(c.Data.FetchStart)
	return d
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, err
	}
	return types.Day(t), nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Capital == 0 {
		c.Capital = 200000
	}
	if c.Universe.Source == "" {
		c.Universe.Source = "NIFTY50"
	}

	d := engine.DefaultParams(c.Capital)
	if c.Strategy.Window == 0 {
		c.Strategy.Window = d.Window
	}
	if c.Strategy.AllocationUnits == 0 {
		c.Strategy.AllocationUnits = d.AllocationUnits
	}
	if c.Strategy.MaxBuysPerDay == 0 {
		c.Strategy.MaxBuysPerDay = d.MaxBuysPerDay
	}
	if c.Strategy.AverageDownPct == 0 {
		c.Strategy.AverageDownPct = d.AverageDownPct
	}
	if c.Strategy.TakeProfitPct == 0 {
		c.Strategy.TakeProfitPct = d.TakeProfitPct
	}

	if c.Backtest.LogPath == "" {
		c.Backtest.LogPath = "output/portfolio_log.csv"
	}
	if c.Backtest.SummaryPath == "" {
		c.Backtest.SummaryPath = "output/final_result.csv"
	}

	if c.Data.MatrixPath == "" {
		c.Data.MatrixPath = "data/nifty50_closing_prices.csv"
	}
	if c.Data.Store == "" {
		c.Data.Store = "CSV"
	}
	if c.Data.SQLitePath == "" {
		c.Data.SQLitePath = "data/prices.db"
	}
	if c.Data.Source == "" {
		c.Data.Source = "YAHOO"
	}
	if c.Data.FetchStart == "" {
		c.Data.FetchStart = "2025-06-01"
	}

	if c.Live.StatePath == "" {
		c.Live.StatePath = "data/live_state.json"
	}
	if c.Live.QuoteSource == "" {
		c.Live.QuoteSource = "KITE"
	}
	if c.Live.RetentionDays == 0 {
		c.Live.RetentionDays = 30
	}

	if c.Charges.StampDutyBuy == 0 {
		c.Charges.StampDutyBuy = 0.00015
	}
	if c.Charges.STTSell == 0 {
		c.Charges.STTSell = 0.001
	}
	if c.Charges.TxnCharge == 0 {
		c.Charges.TxnCharge = 0.0000297
	}
	if c.Charges.SEBIPerCrore == 0 {
		c.Charges.SEBIPerCrore = 10
	}
	if c.Charges.GST == 0 {
		c.Charges.GST = 0.18
	}
	if c.Charges.DPPerSell == 0 {
		c.Charges.DPPerSell = 15.93
	}
}
