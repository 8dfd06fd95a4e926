// Package api exposes the conversion service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"yt2mp3/internal/artifact"
	"yt2mp3/internal/config"
	"yt2mp3/internal/media"
	"yt2mp3/internal/pipeline"
)

// ConversionQueue runs conversions; *pipeline.Pool implements it.
type ConversionQueue interface {
	Submit(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Stats() pipeline.Stats
}

type Server struct {
	config  config.Config
	fetcher media.Fetcher
	store   *artifact.Store
	queue   ConversionQueue
	started time.Time
	echo    *echo.Echo
}

func New(cfg config.Config, fetcher media.Fetcher, store *artifact.Store, queue ConversionQueue) *Server {
	s := &Server{
		config:  cfg,
		fetcher: fetcher,
		store:   store,
		queue:   queue,
		started: time.Now(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(corsConfig()))

	g := e.Group(config.APIBasePath, RateLimit(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)))
	g.GET("/info", s.handleInfo)
	g.POST("/convert", s.handleConvert)
	g.GET("/stream/:fileId", s.handleStream)
	g.GET("/download/:fileId", s.handleDownload)
	g.DELETE("/files/:fileId", s.handleDelete)
	g.GET("/health", s.handleHealth)
	g.GET("/metrics", s.handleMetrics)
	g.GET("/stats", s.handleStats)

	if cfg.StaticDir != "" {
		e.Static("/", cfg.StaticDir)
	}

	s.echo = e
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on the configured port until Shutdown.
func (s *Server) Start() error {
	return s.echo.Start(s.config.Addr())
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
