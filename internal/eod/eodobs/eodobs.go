package eodobs

import (
	"context"
	"time"

	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/logger"
	"nifty-meanrev/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{summarizer: summarizer}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	return observe("eod.SummarizeDay", t.Format("2006-01-02"), func() (string, error) {
		return oes.summarizer.SummarizeDay(t)
	})
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	return observe("eod.SummarizeToday", "today", oes.summarizer.SummarizeToday)
}

func observe(op, date string, fn func() (string, error)) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), op)
	defer span.End()

	start := time.Now()
	csvPath, err := fn()
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "EOD summary failed", err, "date", date)
		return "", err
	}
	if csvPath == "" {
		logger.InfoSkip(ctx, 2, "No trades logged, EOD summary skipped", "date", date)
		return "", nil
	}
	logger.InfoSkip(ctx, 2, "EOD summary written",
		"date", date,
		"csv_path", csvPath,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return csvPath, nil
}
