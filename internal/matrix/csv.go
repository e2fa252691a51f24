package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"nifty-meanrev/internal/types"
)

const (
	stockHeader = "Stock"
	nullCell    = "null"
)

// ReadCSV parses the wide layout: one row per symbol, one column per date,
// "null" for missing cells.
func ReadCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewBuilder().Build(), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), stockHeader) {
		return nil, fmt.Errorf("unexpected first column %q", header[0])
	}
	dates := make([]time.Time, len(header)-1)
	for i, h := range header[1:] {
		d, err := dateparse.ParseAny(strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("column %d: bad date %q: %w", i+2, h, err)
		}
		dates[i] = types.Day(d)
	}

	b := NewBuilder()
	for _, d := range dates {
		b.AddDate(d)
	}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		symbol := strings.TrimSpace(rec[0])
		if symbol == "" {
			continue
		}
		b.AddSymbol(symbol)
		for i, cell := range rec[1:] {
			if i >= len(dates) {
				break
			}
			v, ok, err := types.ParseNullable(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d %s %s: %w", line, symbol, dates[i].Format(types.DateLayout), err)
			}
			if !ok {
				continue
			}
			if err := b.Set(symbol, dates[i], v); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	return b.Build(), nil
}

func WriteCSV(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(m.dates)+1)
	header = append(header, stockHeader)
	for _, d := range m.dates {
		header = append(header, d.Format(types.DateLayout))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for si, s := range m.symbols {
		rec := make([]string, 0, len(m.dates)+1)
		rec = append(rec, s)
		for _, c := range m.cells[si] {
			if v, ok := c.Get(); ok {
				rec = append(rec, strconv.FormatFloat(v, 'f', 2, 64))
			} else {
				rec = append(rec, nullCell)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadFile reads a matrix from path. A missing file yields os.ErrNotExist.
func LoadFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// SaveFile writes to a temp file in the same directory and renames it over path.
func SaveFile(path string, m *Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".matrix-*.csv")
	if err != nil {
		return err
	}
	if err := WriteCSV(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// FileStore persists a matrix as a wide CSV file.
type FileStore struct {
	Path string
}

// Load returns nil and no error when the file does not exist yet.
func (s FileStore) Load() (*Matrix, error) {
	m, err := LoadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return m, err
}

func (s FileStore) Save(m *Matrix) error { return SaveFile(s.Path, m) }
