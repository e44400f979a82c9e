package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt4bridge/internal/market"
)

func candleAt(ts string, close string) market.Candle {
	return market.Candle{
		Time:  ts,
		Close: decimal.RequireFromString(close),
	}
}

func TestMemoryKlineStorePutGet(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()

	err := s.Put(ctx, "EURUSD.a", "H1", []market.Candle{
		candleAt("2025.01.01 10:00", "1.1"),
		candleAt("2025.01.01 11:00", "1.2"),
	}, 10)
	require.NoError(t, err)

	got, err := s.Get(ctx, "EURUSD.a", "H1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1.2", got[1].Close.String())
}

func TestMemoryKlineStoreUpsertsOpenBar(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{candleAt("2025.01.01 10:00", "1.1")}, 10))
	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{candleAt("2025.01.01 10:00", "1.15")}, 10))

	got, err := s.Get(ctx, "EURUSD.a", "H1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1.15", got[0].Close.String())
}

func TestMemoryKlineStoreMergesOverlappingBatches(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{
		candleAt("2025.01.01 10:00", "1.1"),
		candleAt("2025.01.01 11:00", "1.2"),
		candleAt("2025.01.01 12:00", "1.3"),
	}, 10))
	// next poll cycle re-fetches the last two closed bars plus a new one
	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{
		candleAt("2025.01.01 11:00", "1.2"),
		candleAt("2025.01.01 12:00", "1.35"),
		candleAt("2025.01.01 13:00", "1.4"),
	}, 10))

	got, err := s.Get(ctx, "EURUSD.a", "H1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "2025.01.01 10:00", got[0].Time)
	assert.Equal(t, "2025.01.01 11:00", got[1].Time)
	assert.Equal(t, "2025.01.01 12:00", got[2].Time)
	assert.Equal(t, "2025.01.01 13:00", got[3].Time)
	// the re-sent closed bar picked up the fresher values
	assert.Equal(t, "1.35", got[2].Close.String())
}

func TestMemoryKlineStoreDropsStaleBars(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{
		candleAt("2025.01.01 10:00", "1.1"),
		candleAt("2025.01.01 11:00", "1.2"),
		candleAt("2025.01.01 12:00", "1.3"),
	}, 10))
	// a bar older than the overlap window must not be appended out of order
	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{
		candleAt("2025.01.01 09:00", "1.05"),
	}, 10))

	got, err := s.Get(ctx, "EURUSD.a", "H1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2025.01.01 10:00", got[0].Time)
}

func TestMemoryKlineStoreTrims(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()

	var batch []market.Candle
	for i := 0; i < 10; i++ {
		batch = append(batch, candleAt(fmt.Sprintf("2025.01.01 %02d:00", i), "1.0"))
	}
	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", batch, 4))

	got, err := s.Get(ctx, "EURUSD.a", "H1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "2025.01.01 06:00", got[0].Time)
}

func TestMemoryKlineStoreExport(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "EURUSD.a", "H1", []market.Candle{
		candleAt("2025.01.01 10:00", "1.1"),
		candleAt("2025.01.01 11:00", "1.2"),
		candleAt("2025.01.01 12:00", "1.3"),
	}, 10))

	out, err := s.Export(ctx, "EURUSD.a", "H1", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2025.01.01 11:00", out[0].Time)

	none, err := s.Export(ctx, "EURUSD.a", "M5", 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryKlineStoreRejectsEmptyKey(t *testing.T) {
	s := NewMemoryKlineStore()
	err := s.Put(context.Background(), "", "H1", []market.Candle{candleAt("2025.01.01 10:00", "1")}, 5)
	assert.Error(t, err)
}
