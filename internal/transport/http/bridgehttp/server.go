// Package bridgehttp exposes the bridge and the recorded data over a small
// JSON API. The underlying request channel allows one in-flight request, so
// every handler that touches the bridge goes through a single mutex.
package bridgehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mt4bridge/internal/logger"
)

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr       string
	Bridge     BridgeClient
	Candles    CandleReader
	Ticks      TickReader
	Presets    PresetResolver
	ChartTheme string
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Bridge == nil {
		return nil, errors.New("http server requires a bridge client")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8391"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := NewRouter(cfg.Bridge, cfg.Candles, cfg.Ticks, cfg.Presets, cfg.ChartTheme)
	api.Register(router.Group("/api/v1"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}
