// Package pricestore keeps the closing-price matrix in SQLite as one row
// per symbol and date.
package pricestore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"nifty-meanrev/internal/interfaces"
	"nifty-meanrev/internal/matrix"
	"nifty-meanrev/internal/types"
)

// ClosePrice is one matrix cell. A NULL close is a missing cell.
type ClosePrice struct {
	Symbol string   `gorm:"primaryKey;size:32"`
	Date   string   `gorm:"primaryKey;size:10"`
	Close  *float64 `gorm:"column:close"`
}

type Store struct {
	db *gorm.DB
}

var _ interfaces.PriceStore = (*Store)(nil)

// Open creates the database file and table when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ClosePrice{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load rebuilds the matrix; an empty table yields nil.
func (s *Store) Load() (*matrix.Matrix, error) {
	var rows []ClosePrice
	if err := s.db.Order("symbol, date").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	b := matrix.NewBuilder()
	for _, r := range rows {
		d, err := time.Parse(types.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %s/%s: %w", r.Symbol, r.Date, err)
		}
		b.AddSymbol(r.Symbol)
		b.AddDate(d)
		if r.Close == nil {
			continue
		}
		if err := b.Set(r.Symbol, d, *r.Close); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Save upserts every cell of m, missing ones as NULL.
func (s *Store) Save(m *matrix.Matrix) error {
	if m == nil {
		return nil
	}
	rows := make([]ClosePrice, 0, len(m.Symbols())*m.NumDates())
	for _, sym := range m.Symbols() {
		for i, d := range m.Dates() {
			r := ClosePrice{Symbol: sym, Date: d.Format(types.DateLayout)}
			if v, ok := m.At(sym, i).Get(); ok {
				r.Close = &v
			}
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"close"}),
		}).CreateInBatches(rows, 500).Error
	})
}
