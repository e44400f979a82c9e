package bridgehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"mt4bridge/internal/analysis/indicator"
	"mt4bridge/internal/analysis/visual"
	"mt4bridge/internal/bridge"
	regpkg "mt4bridge/internal/indicator"
	"mt4bridge/internal/logger"
	"mt4bridge/internal/market"
)

// BridgeClient is the slice of the bridge API the handlers call.
type BridgeClient interface {
	GetHistoricalData(symbol, timeframe string, bars int) ([]market.Record, error)
	GetCurrentTick(symbol string) (market.Record, error)
	GetAllTimeframes(symbol string) ([]market.Record, error)
	GetIndicator(symbol, timeframe, indicator, params string, bars int) ([]market.Record, error)
}

// CandleReader reads the recorder's in-memory window.
type CandleReader interface {
	Get(ctx context.Context, symbol, timeframe string) ([]market.Candle, error)
	Export(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
}

// TickReader reads the recorder's tick journal.
type TickReader interface {
	Recent(ctx context.Context, symbol string, limit int) ([]market.Tick, error)
}

// PresetResolver resolves a preset id plus overrides into a wire params string.
type PresetResolver interface {
	Resolve(id string, overrides map[string]any) (regpkg.Preset, string, error)
	Snapshot() regpkg.Snapshot
}

type Router struct {
	mu      sync.Mutex // serializes bridge use: one in-flight request per channel
	client  BridgeClient
	candles CandleReader
	ticks   TickReader
	presets PresetResolver
	theme   string
}

func NewRouter(client BridgeClient, candles CandleReader, ticks TickReader, presets PresetResolver, theme string) *Router {
	return &Router{client: client, candles: candles, ticks: ticks, presets: presets, theme: theme}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/hist", r.handleHist)
	group.GET("/tick/:symbol", r.handleTick)
	group.GET("/timeframes/:symbol", r.handleTimeframes)
	group.GET("/indicator", r.handleIndicator)
	if r.presets != nil {
		group.GET("/indicator/presets", r.handlePresetList)
		group.GET("/indicator/preset/:id", r.handlePreset)
	}
	if r.candles != nil {
		group.GET("/analysis/:symbol", r.handleAnalysis)
		group.GET("/chart/:symbol", r.handleChart)
	}
	if r.ticks != nil {
		group.GET("/ticks/:symbol", r.handleTicks)
	}
}

func (r *Router) handleHist(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	tf := strings.TrimSpace(c.DefaultQuery("tf", "H1"))
	bars, _ := strconv.Atoi(c.DefaultQuery("bars", "100"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	if bars <= 0 {
		bars = 100
	}

	r.mu.Lock()
	recs, err := r.client.GetHistoricalData(symbol, tf, bars)
	r.mu.Unlock()
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "tf": tf, "count": len(recs), "bars": recs})
}

func (r *Router) handleTick(c *gin.Context) {
	symbol := c.Param("symbol")

	r.mu.Lock()
	rec, err := r.client.GetCurrentTick(symbol)
	r.mu.Unlock()
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (r *Router) handleTimeframes(c *gin.Context) {
	symbol := c.Param("symbol")

	r.mu.Lock()
	recs, err := r.client.GetAllTimeframes(symbol)
	r.mu.Unlock()
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "count": len(recs), "timeframes": recs})
}

func (r *Router) handleIndicator(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	tf := strings.TrimSpace(c.DefaultQuery("tf", "H1"))
	name := strings.TrimSpace(c.Query("name"))
	params := c.Query("params")
	bars, _ := strconv.Atoi(c.DefaultQuery("bars", "100"))
	if symbol == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and name required"})
		return
	}
	if bars <= 0 {
		bars = 100
	}

	r.mu.Lock()
	recs, err := r.client.GetIndicator(symbol, tf, name, params, bars)
	r.mu.Unlock()
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"tf":        tf,
		"indicator": name,
		"count":     len(recs),
		"values":    market.IndicatorPointsFromRecords(recs),
	})
}

func (r *Router) handlePresetList(c *gin.Context) {
	c.JSON(http.StatusOK, r.presets.Snapshot())
}

// handlePreset resolves a named preset and forwards it over the wire. Query
// params other than the reserved ones act as parameter overrides.
func (r *Router) handlePreset(c *gin.Context) {
	id := c.Param("id")
	symbol := strings.TrimSpace(c.Query("symbol"))
	tf := strings.TrimSpace(c.DefaultQuery("tf", "H1"))
	bars, _ := strconv.Atoi(c.DefaultQuery("bars", "0"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	preset, params, err := r.presets.Resolve(id, collectOverrides(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if bars <= 0 {
		bars = preset.Bars
	}
	if bars <= 0 {
		bars = 100
	}

	r.mu.Lock()
	recs, err := r.client.GetIndicator(symbol, tf, preset.Indicator, params, bars)
	r.mu.Unlock()
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"tf":        tf,
		"preset":    preset.ID,
		"indicator": preset.Indicator,
		"params":    params,
		"count":     len(recs),
		"values":    market.IndicatorPointsFromRecords(recs),
	})
}

// handleTicks serves the newest journaled ticks, newest first.
func (r *Router) handleTicks(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	ticks, err := r.ticks.Recent(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "count": len(ticks), "ticks": ticks})
}

func (r *Router) handleAnalysis(c *gin.Context) {
	symbol := c.Param("symbol")
	tf := strings.TrimSpace(c.DefaultQuery("tf", "H1"))

	candles, err := r.windowCandles(c, symbol, tf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recorded candles for " + symbol + " " + tf})
		return
	}
	rep, err := indicator.ComputeAll(candles, indicator.Settings{Symbol: symbol, Timeframe: tf})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) handleChart(c *gin.Context) {
	symbol := c.Param("symbol")
	tfs := splitList(c.DefaultQuery("tf", "H1"))

	candles := make(map[string][]market.Candle, len(tfs))
	reports := make(map[string]indicator.Report, len(tfs))
	for _, tf := range tfs {
		ks, err := r.windowCandles(c, symbol, tf)
		if err != nil || len(ks) == 0 {
			continue
		}
		candles[tf] = ks
		if rep, err := indicator.ComputeAll(ks, indicator.Settings{Symbol: symbol, Timeframe: tf}); err == nil {
			reports[tf] = rep
		}
	}
	html, err := visual.RenderHTML(visual.ChartInput{
		Symbol:     symbol,
		Timeframes: tfs,
		Candles:    candles,
		Indicators: reports,
		Theme:      r.theme,
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// windowCandles returns the cached series, trimmed to the newest ?bars when
// the caller asked for a shorter window.
func (r *Router) windowCandles(c *gin.Context, symbol, tf string) ([]market.Candle, error) {
	ctx := c.Request.Context()
	if bars, _ := strconv.Atoi(c.DefaultQuery("bars", "0")); bars > 0 {
		return r.candles.Export(ctx, symbol, tf, bars)
	}
	return r.candles.Get(ctx, symbol, tf)
}

// replyError maps bridge failures onto HTTP statuses: the EA refusing a
// request is the client's problem, a broken request channel is a gateway
// problem.
func replyError(c *gin.Context, err error) {
	var remote *bridge.RemoteError
	if errors.As(err, &remote) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": remote.Message})
		return
	}
	logger.Errorf("[api] bridge call failed ip=%s err=%v", c.ClientIP(), err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

// collectOverrides turns free-form query params into preset overrides.
func collectOverrides(c *gin.Context) map[string]any {
	reserved := map[string]struct{}{"symbol": {}, "tf": {}, "bars": {}}
	overrides := make(map[string]any)
	for key, vals := range c.Request.URL.Query() {
		if _, ok := reserved[key]; ok || len(vals) == 0 {
			continue
		}
		overrides[key] = coerceParam(vals[0])
	}
	if len(overrides) == 0 {
		return nil
	}
	return overrides
}

// coerceParam guesses the JSON type of a query value so jsonschema validation
// sees numbers as numbers.
func coerceParam(s string) any {
	if s == "true" || s == "false" {
		return s == "true"
	}
	if d, err := decimal.NewFromString(s); err == nil {
		f, _ := d.Float64()
		return f
	}
	return s
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
