package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(fields map[string]any) Record { return Record(fields) }

func TestRecordAccessors(t *testing.T) {
	r := rec(map[string]any{
		"bid":    decimal.RequireFromString("1.23456"),
		"volume": decimal.NewFromInt(123),
		"symbol": "EURUSD.a",
	})

	bid, ok := r.Decimal("bid")
	require.True(t, ok)
	assert.Equal(t, "1.23456", bid.String())

	vol, ok := r.Int("volume")
	require.True(t, ok)
	assert.Equal(t, int64(123), vol)

	assert.Equal(t, "EURUSD.a", r.String("symbol"))
	assert.Equal(t, "", r.String("missing"))
	_, ok = r.Decimal("missing")
	assert.False(t, ok)
	assert.True(t, r.Has("symbol"))
}

func TestRecordDecimalFromString(t *testing.T) {
	r := rec(map[string]any{"spread": " 0.00012 "})
	d, ok := r.Decimal("spread")
	require.True(t, ok)
	assert.Equal(t, "0.00012", d.String())
}

func TestCandleFromRecord(t *testing.T) {
	r := rec(map[string]any{
		"tf":     "H1",
		"time":   "2024.12.31 23:00",
		"open":   decimal.RequireFromString("1.02910"),
		"high":   decimal.RequireFromString("1.03010"),
		"low":    decimal.RequireFromString("1.02900"),
		"close":  decimal.RequireFromString("1.02950"),
		"volume": decimal.NewFromInt(163),
	})
	c := CandleFromRecord(r)
	assert.Equal(t, "H1", c.Timeframe)
	assert.Equal(t, "2024.12.31 23:00", c.Time)
	assert.True(t, c.Open.Equal(decimal.RequireFromString("1.0291")))
	assert.True(t, c.Volume.Equal(decimal.NewFromInt(163)))
	assert.NotZero(t, c.OpenTime())
}

func TestTickFromRecord(t *testing.T) {
	r := rec(map[string]any{
		"symbol": "EURUSD.a",
		"bid":    decimal.RequireFromString("1.23456"),
		"ask":    decimal.RequireFromString("1.23478"),
		"time":   "2025.01.01 12:34",
	})
	tick := TickFromRecord(r)
	assert.Equal(t, "EURUSD.a", tick.Symbol)
	assert.Equal(t, "1.23456", tick.Bid.String())
	assert.True(t, tick.Last.IsZero())
}

func TestParseTime(t *testing.T) {
	parsed := ParseTime("2025.01.01 12:34")
	require.False(t, parsed.IsZero())
	assert.Equal(t, 2025, parsed.Year())
	assert.True(t, ParseTime("not a time").IsZero())
}

func TestIndicatorPointsFromRecords(t *testing.T) {
	pts := IndicatorPointsFromRecords([]Record{
		rec(map[string]any{"time": "2024.12.31 22:00", "value": decimal.RequireFromString("55.5")}),
		rec(map[string]any{"time": "2024.12.31 23:00", "value": decimal.RequireFromString("56.25")}),
	})
	require.Len(t, pts, 2)
	assert.Equal(t, "2024.12.31 22:00", pts[0].Time)
	assert.Equal(t, "55.5", pts[0].Value.String())
	assert.Equal(t, "56.25", pts[1].Value.String())

	assert.Nil(t, IndicatorPointsFromRecords(nil))
}
