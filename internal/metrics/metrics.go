// Package metrics provides Prometheus instrumentation for strategy runs.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nifty-meanrev/internal/report"
	"nifty-meanrev/internal/types"
)

// Recorder holds one run's metrics in its own registry. A nil Recorder
// ignores every call.
type Recorder struct {
	reg *prometheus.Registry

	// ActionsTotal counts executed actions, partitioned by kind.
	ActionsTotal *prometheus.CounterVec
	// SkippedTotal counts trades dropped for quantity or cash.
	SkippedTotal *prometheus.CounterVec
	// StepsTotal counts processed dates.
	StepsTotal prometheus.Counter
	// RealizedPnL and RealizedLoss split the P&L of SELL actions by sign.
	RealizedPnL  prometheus.Counter
	RealizedLoss prometheus.Counter

	Cash           prometheus.Gauge
	HoldingsValue  prometheus.Gauge
	PortfolioValue prometheus.Gauge
	CAGR           prometheus.Gauge
}

func New(mode string) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := prometheus.Labels{"mode": mode}
	return &Recorder{
		reg: reg,
		ActionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "meanrev_actions_total",
			Help:        "Total number of executed strategy actions",
			ConstLabels: labels,
		}, []string{"action"}),
		SkippedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "meanrev_skipped_trades_total",
			Help:        "Trades skipped by sizing or cash checks",
			ConstLabels: labels,
		}, []string{"action", "reason"}),
		StepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name:        "meanrev_steps_total",
			Help:        "Dates processed by the engine",
			ConstLabels: labels,
		}),
		RealizedPnL: f.NewCounter(prometheus.CounterOpts{
			Name:        "meanrev_realized_profit_total",
			Help:        "Cumulative realized profit of exits",
			ConstLabels: labels,
		}),
		RealizedLoss: f.NewCounter(prometheus.CounterOpts{
			Name:        "meanrev_realized_loss_total",
			Help:        "Cumulative realized loss of exits, as a positive number",
			ConstLabels: labels,
		}),
		Cash: f.NewGauge(prometheus.GaugeOpts{
			Name:        "meanrev_cash",
			Help:        "Cash balance after the last step",
			ConstLabels: labels,
		}),
		HoldingsValue: f.NewGauge(prometheus.GaugeOpts{
			Name:        "meanrev_holdings_value",
			Help:        "Mark-to-market value of open positions",
			ConstLabels: labels,
		}),
		PortfolioValue: f.NewGauge(prometheus.GaugeOpts{
			Name:        "meanrev_portfolio_value",
			Help:        "Cash plus holdings value",
			ConstLabels: labels,
		}),
		CAGR: f.NewGauge(prometheus.GaugeOpts{
			Name:        "meanrev_cagr",
			Help:        "Annualized return; NaN when undefined",
			ConstLabels: labels,
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) ObserveStep(res *types.StepResult) {
	if r == nil || res == nil {
		return
	}
	r.StepsTotal.Inc()
	for _, a := range res.Actions {
		r.ActionsTotal.WithLabelValues(string(a.Kind)).Inc()
		if pnl, ok := a.PnL.Get(); ok {
			if pnl >= 0 {
				r.RealizedPnL.Add(pnl)
			} else {
				r.RealizedLoss.Add(-pnl)
			}
		}
	}
	for _, s := range res.Skipped {
		r.SkippedTotal.WithLabelValues(string(s.Kind), string(s.Reason)).Inc()
	}
	r.Cash.Set(res.Cash)
}

// ObserveSummary sets the end-of-run gauges. An undefined CAGR is exported as NaN.
func (r *Recorder) ObserveSummary(s *report.Summary) {
	if r == nil || s == nil {
		return
	}
	r.Cash.Set(s.CashLeft)
	r.HoldingsValue.Set(s.TotalHoldings)
	r.PortfolioValue.Set(s.PortfolioValue)
	if v, ok := s.CAGR.Get(); ok {
		r.CAGR.Set(v)
	} else {
		r.CAGR.Set(math.NaN())
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
