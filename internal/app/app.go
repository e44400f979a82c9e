// Package app wires configuration, the recorder and the HTTP facade into one
// runnable unit.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mt4bridge/internal/config"
	"mt4bridge/internal/logger"
	"mt4bridge/internal/recorder"
	"mt4bridge/internal/store"
	"mt4bridge/internal/store/ticklog"
	"mt4bridge/internal/transport/http/bridgehttp"
)

type App struct {
	cfg      *config.Config
	cache    *store.MemoryKlineStore
	ticks    *ticklog.Journal
	recorder *recorder.Recorder
	httpSrv  *bridgehttp.Server

	closers []func() error
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewAppBuilder(cfg, opts...).Build(context.Background())
}

// Run starts the enabled services and blocks until ctx is done or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.closeAll()

	group, gctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			logger.Infof("http server listening on %s", a.httpSrv.Addr())
			if err := a.httpSrv.Start(gctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	if a.recorder != nil {
		group.Go(func() error {
			return a.recorder.Run(gctx)
		})
	}
	return group.Wait()
}

// Cache exposes the in-memory candle window (for tests and embedding).
func (a *App) Cache() *store.MemoryKlineStore {
	if a == nil {
		return nil
	}
	return a.cache
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
	a.closers = nil
}
