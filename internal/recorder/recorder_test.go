package recorder

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt4bridge/internal/config"
	"mt4bridge/internal/market"
)

type fakeSource struct {
	histErr error
	tickErr error
	closed  bool
	calls   []string
}

func (f *fakeSource) GetHistoricalData(symbol, timeframe string, bars int) ([]market.Record, error) {
	f.calls = append(f.calls, fmt.Sprintf("HIST:%s:%s:%d", symbol, timeframe, bars))
	if f.histErr != nil {
		return nil, f.histErr
	}
	return []market.Record{
		{"time": "2024.01.15 10:00", "open": "1.1", "high": "1.2", "low": "1.0", "close": "1.15", "volume": "10"},
		{"time": "2024.01.15 11:00", "open": "1.15", "high": "1.3", "low": "1.1", "close": "1.25", "volume": "12"},
	}, nil
}

func (f *fakeSource) GetCurrentTick(symbol string) (market.Record, error) {
	f.calls = append(f.calls, "CURRENT:"+symbol)
	if f.tickErr != nil {
		return nil, f.tickErr
	}
	return market.Record{"bid": "1.23456", "ask": "1.23458", "time": "2024.01.15 11:02"}, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type captureSink struct {
	mu      sync.Mutex
	puts    []string
	saves   []string
	ticks   []market.Tick
	putErr  error
	saveErr error
}

func (c *captureSink) Put(_ context.Context, symbol, timeframe string, ks []market.Candle, max int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, fmt.Sprintf("%s/%s/%d/max=%d", symbol, timeframe, len(ks), max))
	return c.putErr
}

func (c *captureSink) SaveCandles(_ context.Context, symbol, timeframe string, ks []market.Candle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, fmt.Sprintf("%s/%s/%d", symbol, timeframe, len(ks)))
	return c.saveErr
}

func (c *captureSink) Append(_ context.Context, tick market.Tick) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, tick)
	return nil
}

func testConfig() config.RecorderConfig {
	return config.RecorderConfig{
		Enabled:    true,
		Symbols:    []string{"EURUSD"},
		Timeframes: []string{"M15", "H1"},
		Interval:   "1m",
		Bars:       50,
		MaxCached:  300,
	}
}

func TestPollOnceFansOutTimeframes(t *testing.T) {
	src := &fakeSource{}
	sink := &captureSink{}
	rec := New(testConfig(), "tcp://localhost:5555", nil, sink).WithArchive(sink).WithTickLog(sink)

	require.NoError(t, rec.pollOnce(context.Background(), src, "EURUSD", 3))

	assert.Equal(t, []string{"HIST:EURUSD:M15:3", "HIST:EURUSD:H1:3", "CURRENT:EURUSD"}, src.calls)
	assert.Equal(t, []string{"EURUSD/M15/2/max=300", "EURUSD/H1/2/max=300"}, sink.puts)
	assert.Equal(t, []string{"EURUSD/M15/2", "EURUSD/H1/2"}, sink.saves)
	require.Len(t, sink.ticks, 1)
	// the CURRENT reply carries no symbol key, the worker fills it in
	assert.Equal(t, "EURUSD", sink.ticks[0].Symbol)
	assert.Equal(t, "1.23456", sink.ticks[0].Bid.String())
}

func TestPollOnceReportsFullFailure(t *testing.T) {
	src := &fakeSource{histErr: fmt.Errorf("receive failed")}
	sink := &captureSink{}
	rec := New(testConfig(), "tcp://localhost:5555", nil, sink).WithTickLog(sink)

	err := rec.pollOnce(context.Background(), src, "EURUSD", 3)
	require.Error(t, err)

	assert.Empty(t, sink.puts)
	// tick poll still runs after failed candle polls
	require.Len(t, sink.ticks, 1)
}

func TestPreheatUsesConfiguredBars(t *testing.T) {
	src := &fakeSource{}
	sink := &captureSink{}
	rec := New(testConfig(), "tcp://localhost:5555", nil, sink)

	rec.preheat(context.Background(), src, "EURUSD")

	assert.Contains(t, src.calls, "HIST:EURUSD:M15:50")
	assert.Contains(t, src.calls, "HIST:EURUSD:H1:50")
}

func TestRunValidation(t *testing.T) {
	sink := &captureSink{}

	cfg := testConfig()
	cfg.Symbols = nil
	err := New(cfg, "tcp://localhost:5555", func(string) (Source, error) { return &fakeSource{}, nil }, sink).Run(context.Background())
	require.Error(t, err)

	cfg = testConfig()
	cfg.Interval = "bogus"
	err = New(cfg, "tcp://localhost:5555", func(string) (Source, error) { return &fakeSource{}, nil }, sink).Run(context.Background())
	require.Error(t, err)
}

func TestRunDialError(t *testing.T) {
	sink := &captureSink{}
	dial := func(addr string) (Source, error) {
		return nil, fmt.Errorf("connect to %s refused", addr)
	}
	err := New(testConfig(), "tcp://localhost:5555", dial, sink).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial for EURUSD")
}
