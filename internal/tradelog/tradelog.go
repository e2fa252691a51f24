// Package tradelog appends live-run actions to one JSONL file per IST day.
package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu  sync.Mutex
	ist = time.FixedZone("IST", 19800)
	now = func() time.Time { return time.Now().In(ist) }
)

// Entry is one executed action together with the account state right after it.
type Entry struct {
	Time          string  `json:"time"`
	Date          string  `json:"date"`
	RunID         string  `json:"run_id,omitempty"`
	Action        string  `json:"action"`
	Symbol        string  `json:"symbol"`
	Exchange      string  `json:"exchange,omitempty"`
	Qty           int     `json:"qty"`
	Price         float64 `json:"price"`
	PnL           float64 `json:"pnl"`
	OrderID       string  `json:"order_id,omitempty"`
	Cash          float64 `json:"cash"`
	HoldingsValue float64 `json:"holdings_value"`
	TotalValue    float64 `json:"total_value"`
}

func LogDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// DailyPath is the log file holding entries written on t's IST date.
func DailyPath(t time.Time) string {
	return filepath.Join(LogDir(), t.In(ist).Format("2006-01-02")+".txt")
}

// Append stamps e with the current IST time and appends it to today's file.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()

	t := now()
	e.Time = t.Format("2006-01-02 15:04:05")
	if e.Date == "" {
		e.Date = t.Format("2006-01-02")
	}
	p := DailyPath(t)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadDay returns the entries logged on t's IST date. A missing file is
// an empty day; malformed lines are skipped.
func ReadDay(t time.Time) ([]Entry, error) {
	f, err := os.Open(DailyPath(t))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// CompressOlder gzips daily files last modified more than retentionDays ago.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(LogDir(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// an earlier run already compressed it
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			_ = os.Remove(gz)
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
