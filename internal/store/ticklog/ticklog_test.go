package ticklog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt4bridge/internal/market"
)

func testTick(symbol, bid string) market.Tick {
	return market.Tick{
		Symbol: symbol,
		Bid:    decimal.RequireFromString(bid),
		Ask:    decimal.RequireFromString("1.23478"),
		Last:   decimal.RequireFromString("1.23470"),
		Volume: decimal.NewFromInt(123),
		Time:   "2025.01.01 12:34",
	}
}

func TestJournalAppendRecent(t *testing.T) {
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, testTick("EURUSD.a", "1.23456")))
	require.NoError(t, j.Append(ctx, testTick("EURUSD.a", "1.23460")))

	ticks, err := j.Recent(ctx, "EURUSD.a", 10)
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	// newest first, exact decimals back out
	assert.Equal(t, "1.2346", ticks[0].Bid.String())
	assert.Equal(t, "1.23456", ticks[1].Bid.String())
	assert.Equal(t, "2025.01.01 12:34", ticks[0].Time)
}

func TestJournalSeparatesSymbols(t *testing.T) {
	j, err := Open(t.TempDir())
	require.NoError(t, err)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, testTick("EURUSD.a", "1.1")))
	require.NoError(t, j.Append(ctx, testTick("XAUUSD.a", "2650.55")))

	ticks, err := j.Recent(ctx, "XAUUSD.a", 10)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, "2650.55", ticks[0].Bid.String())
}

func TestJournalRejectsEmpty(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	j, err := Open(t.TempDir())
	require.NoError(t, err)
	defer j.Close()
	assert.Error(t, j.Append(context.Background(), market.Tick{}))
}
