package eod

import (
	"time"

	"nifty-meanrev/internal/charges"
	"nifty-meanrev/internal/interfaces"
)

var defaultSummarizer interfaces.EodSummarizer = NewSummarizer(charges.DefaultRates())

func SetDefaultSummarizer(summarizer interfaces.EodSummarizer) {
	defaultSummarizer = summarizer
}

// NewSummarizer prices each logged trade with rates when computing charges.
func NewSummarizer(rates charges.Rates) interfaces.EodSummarizer {
	return &eodSummarizer{rates: rates}
}

func SummarizeDay(t time.Time) (string, error) {
	return defaultSummarizer.SummarizeDay(t)
}

func SummarizeToday() (string, error) {
	return defaultSummarizer.SummarizeToday()
}
