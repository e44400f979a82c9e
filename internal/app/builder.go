package app

import (
	"context"
	"fmt"
	"os"

	"mt4bridge/internal/bridge"
	"mt4bridge/internal/config"
	"mt4bridge/internal/indicator"
	"mt4bridge/internal/logger"
	"mt4bridge/internal/recorder"
	"mt4bridge/internal/store"
	"mt4bridge/internal/store/gormstore"
	"mt4bridge/internal/store/ticklog"
	"mt4bridge/internal/transport/http/bridgehttp"
)

// AppBuilder assembles the application from config. The dial hooks exist so
// tests can build an App without a live EA endpoint.
type AppBuilder struct {
	cfg *config.Config

	recorderDialFn func(address string) (recorder.Source, error)
	httpBridgeFn   func(address string) (bridgehttp.BridgeClient, func() error, error)
}

type AppBuilderOption func(*AppBuilder)

func WithRecorderDial(fn func(address string) (recorder.Source, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.recorderDialFn = fn }
}

func WithHTTPBridge(fn func(address string) (bridgehttp.BridgeClient, func() error, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.httpBridgeFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		recorderDialFn: dialRecorderSource,
		httpBridgeFn:   dialHTTPBridge,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func dialRecorderSource(address string) (recorder.Source, error) {
	return bridge.Dial(address)
}

func dialHTTPBridge(address string) (bridgehttp.BridgeClient, func() error, error) {
	br, err := bridge.Dial(address)
	if err != nil {
		return nil, nil, err
	}
	return br, br.Close, nil
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	if !cfg.Recorder.Enabled && !cfg.HTTP.Enabled {
		return nil, fmt.Errorf("nothing to run: recorder and http are both disabled")
	}

	app := &App{cfg: cfg, cache: store.NewMemoryKlineStore()}

	if cfg.Recorder.Enabled {
		if err := b.buildRecorder(app); err != nil {
			app.closeAll()
			return nil, err
		}
	}
	if cfg.HTTP.Enabled {
		if err := b.buildHTTP(app); err != nil {
			app.closeAll()
			return nil, err
		}
	}
	return app, nil
}

func (b *AppBuilder) buildRecorder(app *App) error {
	cfg := app.cfg
	rec := recorder.New(cfg.Recorder, cfg.Bridge.Address, b.recorderDialFn, app.cache)

	if cfg.Recorder.DBPath != "" {
		archive, err := gormstore.Open(cfg.Recorder.DBPath)
		if err != nil {
			return fmt.Errorf("open candle archive: %w", err)
		}
		app.closers = append(app.closers, archive.Close)
		rec = rec.WithArchive(archive)
		logger.Infof("candle archive enabled path=%s", cfg.Recorder.DBPath)
	}
	if cfg.Recorder.TickLogDir != "" {
		journal, err := ticklog.Open(cfg.Recorder.TickLogDir)
		if err != nil {
			return fmt.Errorf("open tick journal: %w", err)
		}
		app.closers = append(app.closers, journal.Close)
		app.ticks = journal
		rec = rec.WithTickLog(journal)
		logger.Infof("tick journal enabled dir=%s", cfg.Recorder.TickLogDir)
	}
	app.recorder = rec
	return nil
}

func (b *AppBuilder) buildHTTP(app *App) error {
	cfg := app.cfg
	client, closeFn, err := b.httpBridgeFn(cfg.Bridge.Address)
	if err != nil {
		return fmt.Errorf("dial bridge for http: %w", err)
	}
	if closeFn != nil {
		app.closers = append(app.closers, closeFn)
	}

	var presets bridgehttp.PresetResolver
	if path := cfg.Indicators.PresetsPath; path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			logger.Warnf("indicator presets file missing, preset routes disabled path=%s", path)
		} else {
			registry, regErr := indicator.NewRegistry(path)
			if regErr != nil {
				return fmt.Errorf("load indicator presets: %w", regErr)
			}
			presets = registry
		}
	}

	var candles bridgehttp.CandleReader
	if cfg.Recorder.Enabled {
		candles = app.cache
	}
	var ticks bridgehttp.TickReader
	if app.ticks != nil {
		ticks = app.ticks
	}
	srv, err := bridgehttp.NewServer(bridgehttp.ServerConfig{
		Addr:       cfg.HTTP.Addr,
		Bridge:     client,
		Candles:    candles,
		Ticks:      ticks,
		Presets:    presets,
		ChartTheme: cfg.Charts.Theme,
	})
	if err != nil {
		return err
	}
	app.httpSrv = srv
	return nil
}
