// Package ticklog journals CURRENT replies into per-symbol SQLite files.
// It uses the pure-Go sqlite driver directly; the candle archive next door
// goes through Gorm, ticks are append-mostly and stay on database/sql.
package ticklog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mt4bridge/internal/market"
)

type Journal struct {
	root string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func Open(root string) (*Journal, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("ticklog: root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Journal{root: root, dbs: make(map[string]*sql.DB)}, nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var firstErr error
	for k, db := range j.dbs {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(j.dbs, k)
	}
	return firstErr
}

func (j *Journal) db(symbol string) (*sql.DB, error) {
	if symbol == "" {
		return nil, fmt.Errorf("ticklog: symbol cannot be empty")
	}
	key := strings.ToUpper(symbol)
	j.mu.Lock()
	defer j.mu.Unlock()
	if db, ok := j.dbs[key]; ok && db != nil {
		return db, nil
	}
	path := filepath.Join(j.root, key+".db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	j.dbs[key] = db
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS ticks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bid TEXT NOT NULL,
		ask TEXT NOT NULL,
		last TEXT NOT NULL,
		volume TEXT NOT NULL,
		tick_time TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	)`)
	return err
}

// Append writes one tick. Prices land as their exact decimal strings.
func (j *Journal) Append(ctx context.Context, tick market.Tick) error {
	db, err := j.db(tick.Symbol)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO ticks (bid, ask, last, volume, tick_time, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		tick.Bid.String(), tick.Ask.String(), tick.Last.String(), tick.Volume.String(),
		tick.Time, time.Now().Unix(),
	)
	return err
}

// Recent returns up to limit of the newest ticks, newest first.
func (j *Journal) Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error) {
	if limit <= 0 {
		limit = 50
	}
	db, err := j.db(symbol)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT bid, ask, last, volume, tick_time FROM ticks ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Tick
	for rows.Next() {
		var bid, ask, last, volume, tickTime string
		if err := rows.Scan(&bid, &ask, &last, &volume, &tickTime); err != nil {
			return nil, err
		}
		rec := market.Record{
			"symbol": strings.ToUpper(symbol),
			"bid":    bid,
			"ask":    ask,
			"last":   last,
			"volume": volume,
			"time":   tickTime,
		}
		out = append(out, market.TickFromRecord(rec))
	}
	return out, rows.Err()
}
