// Package universe resolves the Nifty 50 constituent list.
package universe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocarina/gocsv"
	"github.com/gocolly/colly/v2"

	"nifty-meanrev/internal/api"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/types"
)

const (
	NiftyIndicesURL = "https://www.niftyindices.com/IndexConstituent/ind_nifty50list.csv"
	WikipediaURL    = "https://en.wikipedia.org/wiki/NIFTY_50"
)

type Fetcher struct {
	client  *api.Client
	csvURL  string
	wikiURL string
	static  []string
	timeout time.Duration
}

type Option func(*Fetcher)

func WithCSVURL(u string) Option { return func(f *Fetcher) { f.csvURL = u } }

func WithWikiURL(u string) Option { return func(f *Fetcher) { f.wikiURL = u } }

// WithStatic sets the list used when both remote sources fail.
func WithStatic(symbols []string) Option { return func(f *Fetcher) { f.static = symbols } }

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: api.NewClient(
			api.WithTimeout(10*time.Second),
			api.WithHeaders(api.BrowserHeaders()),
			api.WithRetry(api.DefaultRetryConfig()),
		),
		csvURL:  NiftyIndicesURL,
		wikiURL: WikipediaURL,
		timeout: 15 * time.Second,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch tries the niftyindices constituent CSV, then the Wikipedia
// constituents table, then the static list.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	syms, err := f.fromCSV(ctx)
	if err == nil {
		logger.Info(ctx, "Universe resolved", "source", "niftyindices", "count", len(syms))
		return syms, nil
	}
	logger.Warn(ctx, "Constituent CSV unavailable, trying Wikipedia", "error", err)

	syms, err = f.fromWikipedia(ctx)
	if err == nil {
		logger.Info(ctx, "Universe resolved", "source", "wikipedia", "count", len(syms))
		return syms, nil
	}
	logger.Warn(ctx, "Wikipedia constituents unavailable, using static list", "error", err)

	if len(f.static) == 0 {
		return nil, fmt.Errorf("no constituent source available: %w", types.ErrMissingData)
	}
	return Normalize(f.static), nil
}

type constituent struct {
	Company  string `csv:"Company Name"`
	Industry string `csv:"Industry"`
	Symbol   string `csv:"Symbol"`
	Series   string `csv:"Series"`
	ISIN     string `csv:"ISIN Code"`
}

func (f *Fetcher) fromCSV(ctx context.Context) ([]string, error) {
	resp, err := f.client.GET(ctx, f.csvURL)
	if err != nil {
		return nil, err
	}
	var rows []*constituent
	if err := gocsv.UnmarshalBytes(resp.Body, &rows); err != nil {
		return nil, fmt.Errorf("parse constituent csv: %w", err)
	}
	syms := make([]string, 0, len(rows))
	for _, r := range rows {
		syms = append(syms, r.Symbol)
	}
	syms = Normalize(syms)
	if len(syms) == 0 {
		return nil, errors.New("constituent csv has no symbols")
	}
	return syms, nil
}

func (f *Fetcher) fromWikipedia(ctx context.Context) ([]string, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(f.wikiURL)),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.timeout)
	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
	})

	var syms []string
	c.OnHTML("table.wikitable", func(e *colly.HTMLElement) {
		if len(syms) > 0 {
			return
		}
		syms = symbolColumn(e.DOM)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("scrape %s: %w", r.Request.URL, err)
	})

	if err := c.Visit(f.wikiURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", f.wikiURL, err)
	}
	c.Wait()
	if scrapeErr != nil {
		return nil, scrapeErr
	}

	syms = Normalize(syms)
	if len(syms) == 0 {
		return nil, errors.New("no constituents table found")
	}
	return syms, nil
}

// symbolColumn reads the column headed "Symbol" from a table, or nil when
// the table has no such header.
func symbolColumn(table *goquery.Selection) []string {
	col := -1
	table.Find("tr").First().Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(th.Text()), "symbol") {
			col = i
			return false
		}
		return true
	})
	if col < 0 {
		return nil
	}

	var out []string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cell := tr.Children().Eq(col)
		if cell.Length() == 0 {
			return
		}
		out = append(out, cell.Text())
	})
	return out
}

// Normalize trims, upper-cases, drops exchange prefixes and duplicates,
// and sorts.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if i := strings.LastIndex(s, ":"); i >= 0 {
			s = strings.TrimSpace(s[i+1:])
		}
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Filter keeps the symbols of in that belong to universe.
func Filter(in []string, universe []string) []string {
	set := make(map[string]bool, len(universe))
	for _, s := range universe {
		set[s] = true
	}
	var out []string
	for _, s := range in {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
