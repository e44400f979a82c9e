// Package gormstore persists recorded candles in SQLite via Gorm. Prices are
// stored as their exact decimal strings, never as floats.
package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mt4bridge/internal/market"
)

type candleModel struct {
	ID         uint   `gorm:"primaryKey"`
	Symbol     string `gorm:"size:32;uniqueIndex:idx_candle,priority:1"`
	Timeframe  string `gorm:"size:8;uniqueIndex:idx_candle,priority:2"`
	BarTime    string `gorm:"size:32;uniqueIndex:idx_candle,priority:3"`
	Open       string `gorm:"size:40"`
	High       string `gorm:"size:40"`
	Low        string `gorm:"size:40"`
	Close      string `gorm:"size:40"`
	Volume     string `gorm:"size:40"`
	RecordedAt int64
}

func (candleModel) TableName() string { return "candles" }

type Store struct {
	db *gorm.DB
}

// Open initializes the SQLite archive at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&candleModel{}); err != nil {
		return nil, err
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

// SaveCandles upserts one batch keyed by (symbol, timeframe, bar time), so
// re-recording the still-open bar overwrites instead of duplicating.
func (s *Store) SaveCandles(ctx context.Context, symbol, timeframe string, ks []market.Candle) error {
	if len(ks) == 0 {
		return nil
	}
	now := time.Now().Unix()
	rows := make([]candleModel, 0, len(ks))
	for _, c := range ks {
		rows = append(rows, candleModel{
			Symbol:     symbol,
			Timeframe:  timeframe,
			BarTime:    c.Time,
			Open:       c.Open.String(),
			High:       c.High.String(),
			Low:        c.Low.String(),
			Close:      c.Close.String(),
			Volume:     c.Volume.String(),
			RecordedAt: now,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "bar_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "recorded_at"}),
	}).Create(&rows).Error
}

// Candles returns up to limit of the newest stored candles, oldest first.
func (s *Store) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []candleModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("bar_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rowToCandle(rows[i], timeframe))
	}
	return out, nil
}

func rowToCandle(row candleModel, timeframe string) market.Candle {
	return market.Candle{
		Timeframe: timeframe,
		Time:      row.BarTime,
		Open:      parseDec(row.Open),
		High:      parseDec(row.High),
		Low:       parseDec(row.Low),
		Close:     parseDec(row.Close),
		Volume:    parseDec(row.Volume),
	}
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
