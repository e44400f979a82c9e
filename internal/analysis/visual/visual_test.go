package visual

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt4bridge/internal/analysis/indicator"
	"mt4bridge/internal/market"
)

func chartCandles(n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		base := decimal.NewFromFloat(1.1 + float64(i)*0.001)
		out = append(out, market.Candle{
			Timeframe: "H1",
			Time:      fmt.Sprintf("2024.03.01 %02d:00", i%24),
			Open:      base,
			High:      base.Add(decimal.NewFromFloat(0.002)),
			Low:       base.Sub(decimal.NewFromFloat(0.002)),
			Close:     base.Add(decimal.NewFromFloat(0.001)),
			Volume:    decimal.NewFromInt(int64(10 + i)),
		})
	}
	return out
}

func TestRenderHTML(t *testing.T) {
	candles := chartCandles(24)
	rep, err := indicator.ComputeAll(candles, indicator.Settings{Symbol: "EURUSD", Timeframe: "H1"})
	require.NoError(t, err)

	html, err := RenderHTML(ChartInput{
		Symbol:     "eurusd",
		Timeframes: []string{"H1"},
		Candles:    map[string][]market.Candle{"H1": candles},
		Indicators: map[string]indicator.Report{"H1": rep},
	})
	require.NoError(t, err)
	assert.Contains(t, string(html), "EURUSD H1")
	assert.Contains(t, string(html), "Volume H1")
}

func TestRenderHTMLValidation(t *testing.T) {
	_, err := RenderHTML(ChartInput{Timeframes: []string{"H1"}})
	require.Error(t, err)

	_, err = RenderHTML(ChartInput{Symbol: "EURUSD"})
	require.Error(t, err)

	// timeframe listed but no candles recorded yet
	_, err = RenderHTML(ChartInput{Symbol: "EURUSD", Timeframes: []string{"H1"}})
	require.Error(t, err)
}

func TestToLineDataPadsWarmup(t *testing.T) {
	line := toLineData([]float64{1.5, 2.5}, 4)
	require.Len(t, line, 4)
	assert.Nil(t, line[0].Value)
	assert.Nil(t, line[1].Value)
	assert.Equal(t, 1.5, line[2].Value)
	assert.Equal(t, 2.5, line[3].Value)
}
