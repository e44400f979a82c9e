// Package recorder keeps a rolling local copy of EA market data. One worker
// per symbol owns its own bridge connection, so the strict request/reply
// alternation of the wire is never shared across goroutines.
package recorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mt4bridge/internal/config"
	"mt4bridge/internal/logger"
	"mt4bridge/internal/market"
	"mt4bridge/internal/pkg/circuit"
	"mt4bridge/internal/scheduler"
)

// Source is the slice of the bridge API a worker polls.
type Source interface {
	GetHistoricalData(symbol, timeframe string, bars int) ([]market.Record, error)
	GetCurrentTick(symbol string) (market.Record, error)
	Close() error
}

// Dialer opens a dedicated Source for one worker.
type Dialer func(address string) (Source, error)

// CandleSink receives polled candles. The in-memory cache and the sqlite
// archive both satisfy it through sinkSet.
type CandleSink interface {
	Put(ctx context.Context, symbol, timeframe string, ks []market.Candle, max int) error
}

// ArchiveSink persists candles durably.
type ArchiveSink interface {
	SaveCandles(ctx context.Context, symbol, timeframe string, ks []market.Candle) error
}

// TickSink journals live ticks.
type TickSink interface {
	Append(ctx context.Context, tick market.Tick) error
}

type Recorder struct {
	cfg     config.RecorderConfig
	address string
	dial    Dialer

	cache   CandleSink
	archive ArchiveSink // optional
	ticks   TickSink    // optional
}

func New(cfg config.RecorderConfig, address string, dial Dialer, cache CandleSink) *Recorder {
	return &Recorder{cfg: cfg, address: address, dial: dial, cache: cache}
}

func (r *Recorder) WithArchive(a ArchiveSink) *Recorder {
	r.archive = a
	return r
}

func (r *Recorder) WithTickLog(t TickSink) *Recorder {
	r.ticks = t
	return r
}

// Run blocks until ctx is done. Each symbol gets its own worker and bridge
// connection; a failed poll is logged and skipped, never retried in-cycle.
func (r *Recorder) Run(ctx context.Context) error {
	if r == nil || r.cache == nil || r.dial == nil {
		return fmt.Errorf("recorder not initialized")
	}
	symbols := r.symbols()
	if len(symbols) == 0 {
		return fmt.Errorf("recorder: no symbols configured")
	}
	interval, ok := scheduler.ParseIntervalDuration(r.cfg.Interval)
	if !ok {
		return fmt.Errorf("recorder: invalid interval %q", r.cfg.Interval)
	}

	logger.Infof("recorder: starting workers symbols=%d timeframes=%v interval=%s",
		len(symbols), r.cfg.Timeframes, interval)

	group, gctx := errgroup.WithContext(ctx)
	for _, sym := range symbols {
		sym := sym
		group.Go(func() error {
			return r.runWorker(gctx, sym, interval)
		})
	}
	return group.Wait()
}

func (r *Recorder) runWorker(ctx context.Context, symbol string, interval time.Duration) error {
	src, err := r.dial(r.address)
	if err != nil {
		return fmt.Errorf("recorder: dial for %s: %w", symbol, err)
	}
	defer src.Close()

	r.preheat(ctx, src, symbol)

	breaker := circuit.NewBreaker("recorder."+symbol, 5, 2*time.Minute)
	sched := scheduler.NewAlignedScheduler(ctx, interval, 2*time.Second)
	sched.Start(func() {
		if !breaker.Allow() {
			logger.Debugf("recorder: breaker open, skipping cycle symbol=%s", symbol)
			return
		}
		if err := r.pollOnce(ctx, src, symbol, refreshBars); err != nil {
			breaker.Failure()
			return
		}
		breaker.Success()
	})
	return nil
}

// refreshBars covers the just-closed bar plus the still-forming one, with one
// spare in case a poll cycle was missed.
const refreshBars = 3

// preheat fills the cache before the aligned loop starts, so readers never
// observe an empty window on a fresh process.
func (r *Recorder) preheat(ctx context.Context, src Source, symbol string) {
	bars := r.cfg.Bars
	if bars <= 0 {
		bars = 100
	}
	_ = r.pollOnce(ctx, src, symbol, bars)
}

// pollOnce polls every timeframe plus the live tick. It returns an error only
// when every candle poll failed, which is what the worker's breaker cares
// about; partial failures are logged and skipped.
func (r *Recorder) pollOnce(ctx context.Context, src Source, symbol string, bars int) error {
	failed := 0
	for _, tf := range r.cfg.Timeframes {
		recs, err := src.GetHistoricalData(symbol, tf, bars)
		if err != nil {
			logger.Warnf("recorder: poll %s %s failed: %v", symbol, tf, err)
			failed++
			continue
		}
		candles := market.CandlesFromRecords(recs)
		if len(candles) == 0 {
			logger.Debugf("recorder: poll %s %s returned no bars", symbol, tf)
			continue
		}
		if err := r.cache.Put(ctx, symbol, tf, candles, r.cfg.MaxCached); err != nil {
			logger.Warnf("recorder: cache %s %s failed: %v", symbol, tf, err)
		}
		if r.archive != nil {
			if err := r.archive.SaveCandles(ctx, symbol, tf, candles); err != nil {
				logger.Warnf("recorder: archive %s %s failed: %v", symbol, tf, err)
			}
		}
		last := candles[len(candles)-1]
		logger.Debugf("recorder: %s %s bars=%d last_close=%s@%s",
			symbol, tf, len(candles), last.Close.String(), last.Time)
	}

	if r.ticks != nil {
		r.pollTick(ctx, src, symbol)
	}
	if failed > 0 && failed == len(r.cfg.Timeframes) {
		return fmt.Errorf("recorder: all %d candle polls failed for %s", failed, symbol)
	}
	return nil
}

func (r *Recorder) pollTick(ctx context.Context, src Source, symbol string) {
	rec, err := src.GetCurrentTick(symbol)
	if err != nil {
		logger.Warnf("recorder: tick %s failed: %v", symbol, err)
		return
	}
	tk := market.TickFromRecord(rec)
	if tk.Symbol == "" {
		tk.Symbol = symbol
	}
	if err := r.ticks.Append(ctx, tk); err != nil {
		logger.Warnf("recorder: tick journal %s failed: %v", symbol, err)
	}
}

func (r *Recorder) symbols() []string {
	out := make([]string, 0, len(r.cfg.Symbols))
	for _, s := range r.cfg.Symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
