// Package indicator computes local analytics over recorded candles. This is
// a convenience layer on top of the archive; authoritative indicator values
// come from the EA via the INDICATOR operation. Wire-exact decimals convert
// to float64 only here, at the edge of the analytics domain.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"mt4bridge/internal/market"
)

type Settings struct {
	Symbol    string
	Timeframe string
	EMA       EMASettings
	RSI       RSISettings
}

type EMASettings struct {
	Fast int `json:"fast,omitempty"`
	Mid  int `json:"mid,omitempty"`
	Slow int `json:"slow,omitempty"`
}

type RSISettings struct {
	Period     int     `json:"period,omitempty"`
	Oversold   float64 `json:"oversold,omitempty"`
	Overbought float64 `json:"overbought,omitempty"`
}

// Value holds one indicator's latest value, series and state.
type Value struct {
	Latest float64   `json:"latest"`
	Series []float64 `json:"series,omitempty"`
	State  string    `json:"state,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Report aggregates the outputs for one symbol+timeframe.
type Report struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Count     int              `json:"count"`
	Values    map[string]Value `json:"values"`
}

// ComputeAll runs the standard indicator set over the candles.
func ComputeAll(candles []market.Candle, cfg Settings) (Report, error) {
	rep := Report{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Count:     len(candles),
		Values:    make(map[string]Value),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
		highs[i] = c.High.InexactFloat64()
		lows[i] = c.Low.InexactFloat64()
	}

	if cfg.EMA.Fast <= 0 {
		cfg.EMA.Fast = 21
	}
	if cfg.EMA.Mid <= 0 {
		cfg.EMA.Mid = 50
	}
	if cfg.EMA.Slow <= 0 {
		cfg.EMA.Slow = 200
	}
	lastClose := closes[len(closes)-1]
	for name, period := range map[string]int{
		"ema_fast": cfg.EMA.Fast,
		"ema_mid":  cfg.EMA.Mid,
		"ema_slow": cfg.EMA.Slow,
	} {
		series := trimLeadingZeros(sanitizeSeries(talib.Ema(closes, period)))
		rep.Values[name] = Value{
			Latest: lastValid(series),
			Series: series,
			State:  relativeState(lastClose, lastValid(series)),
			Note:   fmt.Sprintf("EMA%d vs price", period),
		}
	}

	if cfg.RSI.Period <= 0 {
		cfg.RSI.Period = 14
	}
	if cfg.RSI.Overbought == 0 {
		cfg.RSI.Overbought = 70
	}
	if cfg.RSI.Oversold == 0 {
		cfg.RSI.Oversold = 30
	}
	rsiSeries := sanitizeSeries(talib.Rsi(closes, cfg.RSI.Period))
	rsiVal := lastValid(rsiSeries)
	rsiState := "neutral"
	switch {
	case rsiVal >= cfg.RSI.Overbought:
		rsiState = "overbought"
	case rsiVal <= cfg.RSI.Oversold:
		rsiState = "oversold"
	}
	rep.Values["rsi"] = Value{
		Latest: rsiVal,
		Series: rsiSeries,
		State:  rsiState,
		Note:   fmt.Sprintf("period=%d thresholds=%.1f/%.1f", cfg.RSI.Period, cfg.RSI.Oversold, cfg.RSI.Overbought),
	}

	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	macdSeries := sanitizeSeries(macd)
	histSeries := sanitizeSeries(hist)
	macdState := "flat"
	switch {
	case lastValid(histSeries) > 0:
		macdState = "bullish"
	case lastValid(histSeries) < 0:
		macdState = "bearish"
	}
	rep.Values["macd"] = Value{
		Latest: lastValid(macdSeries),
		Series: histSeries,
		State:  macdState,
		Note:   fmt.Sprintf("signal=%.4f hist=%.4f", lastValid(sanitizeSeries(signal)), lastValid(histSeries)),
	}

	atrSeries := sanitizeSeries(talib.Atr(highs, lows, closes, 14))
	rep.Values["atr"] = Value{
		Latest: lastValid(atrSeries),
		Series: atrSeries,
		State:  "volatility",
		Note:   "period=14",
	}

	return rep, nil
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, round4(v))
	}
	return out
}

// trimLeadingZeros drops TALib's zero-seeded EMA warmup values.
func trimLeadingZeros(series []float64) []float64 {
	start := 0
	for start < len(series) && math.Abs(series[start]) <= 1e-9 {
		start++
	}
	return series[start:]
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
