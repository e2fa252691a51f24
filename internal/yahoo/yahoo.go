// Package yahoo reads daily closes and last prices from the Yahoo Finance
// chart API.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"nifty-meanrev/internal/api"
	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/types"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

var ist = time.FixedZone("IST", 19800)

type Source struct {
	client   *api.Client
	baseURL  string
	exchange string
}

var (
	_ interfaces.CloseSource = (*Source)(nil)
	_ interfaces.Quoter      = (*Source)(nil)
)

type Option func(*Source)

// WithBaseURL points the source at another chart endpoint.
func WithBaseURL(u string) Option {
	return func(s *Source) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		s.baseURL = u
	}
}

// WithExchange selects the listing DailyCloses reads (NSE or BSE).
func WithExchange(ex string) Option {
	return func(s *Source) { s.exchange = ex }
}

func New(opts ...Option) *Source {
	s := &Source{
		client: api.NewClient(
			api.WithTimeout(20*time.Second),
			api.WithHeaders(api.YahooFinanceHeaders()),
			api.WithRateLimit(api.NewRateLimiter(5, 250*time.Millisecond)),
			api.WithRetry(api.DefaultRetryConfig()),
		),
		baseURL:  defaultBaseURL,
		exchange: "NSE",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ticker maps an exchange symbol to its Yahoo ticker.
func Ticker(symbol, exchange string) string {
	if exchange == "BSE" {
		return symbol + ".BO"
	}
	return symbol + ".NS"
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *Source) chart(ctx context.Context, ticker string, q url.Values) (*chartResponse, error) {
	resp, err := s.client.GET(ctx, s.baseURL+url.PathEscape(ticker)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var cr chartResponse
	if err := resp.ParseJSON(&cr); err != nil {
		return nil, err
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", ticker, cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, types.ErrMissingData)
	}
	return &cr, nil
}

// DailyCloses returns the non-null daily closes of symbol between from and
// to inclusive, dated by the IST trading day.
func (s *Source) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]types.Close, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(istMidnight(from).Unix()))
	q.Set("period2", fmt.Sprint(istMidnight(to).AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")

	cr, err := s.chart(ctx, Ticker(symbol, s.exchange), q)
	if err != nil {
		return nil, err
	}
	res := cr.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := res.Indicators.Quote[0].Close

	first, last := types.Day(from), types.Day(to)
	out := make([]types.Close, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		p := *closes[i]
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		d := types.Day(time.Unix(ts, 0).In(ist))
		if d.Before(first) || d.After(last) {
			continue
		}
		// Yahoo may repeat the last session as a live bar; keep the latest.
		if n := len(out); n > 0 && out[n-1].Date.Equal(d) {
			out[n-1].Price = p
			continue
		}
		out = append(out, types.Close{Date: d, Price: p})
	}
	logger.Debug(ctx, "Fetched daily closes", "symbol", symbol, "source", "yahoo", "count", len(out))
	return out, nil
}

// LTP returns the regular market price for each symbol on exchange.
// Symbols that fail to resolve are logged and left out.
func (s *Source) LTP(ctx context.Context, exchange string, symbols []string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1m")

	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cr, err := s.chart(ctx, Ticker(sym, exchange), q)
		if err != nil {
			logger.Warn(ctx, "No quote", "symbol", sym, "exchange", exchange, "error", err)
			continue
		}
		if p := cr.Chart.Result[0].Meta.RegularMarketPrice; p > 0 {
			out[sym] = p
		}
	}
	return out, nil
}

func istMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ist)
}
