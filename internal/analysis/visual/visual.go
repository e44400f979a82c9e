// Package visual renders recorded candles as self-contained ECharts HTML
// pages. Output is served as-is over HTTP; there is no server-side
// rasterization.
package visual

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"mt4bridge/internal/analysis/indicator"
	"mt4bridge/internal/market"
)

type ChartInput struct {
	Symbol     string
	Timeframes []string
	Candles    map[string][]market.Candle
	Indicators map[string]indicator.Report
	Theme      string
}

const (
	colorBackgroundDark  = "#060c1b"
	colorBackgroundLight = "#fdfdfd"
	colorTextPrimary     = "#eceff4"
	colorTextSecondary   = "#9ca3af"
	colorBull            = "#34d399"
	colorBear            = "#f87171"
	colorEmaFast         = "#3b82f6"
	colorEmaMid          = "#fbbf24"
	colorEmaSlow         = "#f472b6"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	volumeHeightPx = 260
)

// RenderHTML builds one kline+volume block per timeframe and returns the
// rendered page.
func RenderHTML(input ChartInput) ([]byte, error) {
	if input.Symbol == "" {
		return nil, fmt.Errorf("symbol required for chart render")
	}
	if len(input.Timeframes) == 0 {
		return nil, fmt.Errorf("at least one timeframe required for %s", input.Symbol)
	}

	background := colorBackgroundDark
	if input.Theme == "light" {
		background = colorBackgroundLight
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	for _, tf := range input.Timeframes {
		candles := input.Candles[tf]
		if len(candles) == 0 {
			continue
		}
		minPrice, maxPrice := priceBounds(candles)
		padding := (maxPrice - minPrice) * 0.05
		if padding <= 0 {
			padding = math.Max(1, math.Abs(maxPrice)*0.01)
		}

		kline := charts.NewKLine()
		kline.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme:           types.ThemeWesteros,
				Width:           fmt.Sprintf("%dpx", chartWidthPx),
				Height:          fmt.Sprintf("%dpx", klineHeightPx),
				BackgroundColor: background,
			}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
			charts.WithTitleOpts(opts.Title{
				Title:         fmt.Sprintf("%s %s", strings.ToUpper(input.Symbol), tf),
				Subtitle:      intervalSubtitle(input.Indicators[tf]),
				Left:          "left",
				Top:           "10",
				TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
				SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
			charts.WithXAxisOpts(opts.XAxis{
				Type:      "category",
				AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
				SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Scale:     opts.Bool(true),
				AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
				Min:       round4(minPrice - padding),
				Max:       round4(maxPrice + padding),
				SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
			}),
		)
		kline.SetSeriesOptions(
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color:        colorBull,
				Color0:       colorBear,
				BorderColor:  colorBull,
				BorderColor0: colorBear,
			}),
		)

		xAxis := buildXAxis(candles)
		kline.SetXAxis(xAxis)
		kline.AddSeries(fmt.Sprintf("Price_%s", tf), buildKlineSeries(candles))

		if rep, ok := input.Indicators[tf]; ok {
			emaLine := buildEMALine(candles, rep)
			emaLine.SetXAxis(xAxis)
			kline.Overlap(emaLine)
		}

		page.AddCharts(kline, buildVolumeChart(tf, xAxis, candles, background))
	}

	if len(page.Charts) == 0 {
		return nil, fmt.Errorf("no charts rendered for %s", input.Symbol)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func intervalSubtitle(rep indicator.Report) string {
	if len(rep.Values) == 0 {
		return ""
	}
	return fmt.Sprintf("RSI %.1f | MACD %s | ATR %.4f",
		rep.Values["rsi"].Latest, rep.Values["macd"].State, rep.Values["atr"].Latest)
}

func priceBounds(candles []market.Candle) (float64, float64) {
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, c := range candles {
		low := c.Low.InexactFloat64()
		high := c.High.InexactFloat64()
		if low < min {
			min = low
		}
		if high > max {
			max = high
		}
	}
	if math.IsInf(min, 1) || math.IsInf(max, -1) {
		return 0, 0
	}
	return min, max
}

func buildXAxis(candles []market.Candle) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = c.Time
	}
	return x
}

func buildKlineSeries(candles []market.Candle) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{
			c.Open.InexactFloat64(),
			c.Close.InexactFloat64(),
			c.Low.InexactFloat64(),
			c.High.InexactFloat64(),
		}})
	}
	return data
}

func buildEMALine(candles []market.Candle, rep indicator.Report) *charts.Line {
	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.AddSeries("EMA Fast", toLineData(rep.Values["ema_fast"].Series, len(candles)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaFast, Width: 2}))
	line.AddSeries("EMA Mid", toLineData(rep.Values["ema_mid"].Series, len(candles)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaMid, Width: 2}))
	line.AddSeries("EMA Slow", toLineData(rep.Values["ema_slow"].Series, len(candles)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEmaSlow, Width: 2}))
	return line
}

func buildVolumeChart(tf string, xAxis []string, candles []market.Candle, background string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", volumeHeightPx),
			BackgroundColor: background,
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Volume %s", tf), Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 6,
			AxisLabel:   &opts.AxisLabel{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	vols := make([]opts.BarData, len(candles))
	for i, c := range candles {
		color := colorBear
		if c.Close.GreaterThanOrEqual(c.Open) {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value: c.Volume.InexactFloat64(),
			ItemStyle: &opts.ItemStyle{
				Color:   color,
				Opacity: opts.Float(0.6),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}

func toLineData(series []float64, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	offset := length - len(series)
	if offset < 0 {
		offset = 0
	}
	for i := 0; i < offset; i++ {
		line[i] = opts.LineData{Value: nil}
	}
	for i := 0; i < len(series) && offset+i < length; i++ {
		val := series[i]
		if math.IsNaN(val) {
			line[offset+i] = opts.LineData{Value: nil}
		} else {
			line[offset+i] = opts.LineData{Value: round4(val)}
		}
	}
	return line
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
