// Package server exposes the HTTP API: pipeline execution and persistence,
// device lifecycle, the plugin catalog, composite definitions, health,
// Prometheus metrics and the WebSocket event stream.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/internal/config"
	"github.com/rigflow/rigflow/internal/engine"
	"github.com/rigflow/rigflow/internal/logger"
	"github.com/rigflow/rigflow/internal/metrics"
	"github.com/rigflow/rigflow/internal/registry"
	"github.com/rigflow/rigflow/internal/store"
	"github.com/rigflow/rigflow/internal/ws"
)

// Options carries the wired dependencies of a Server. Hub and Metrics may
// be nil, their routes are then not registered.
type Options struct {
	Config     *config.Config
	Log        *logger.Logger
	Engine     *engine.Engine
	Registry   *registry.Registry
	Catalog    *catalog.Catalog
	Pipelines  *store.PipelineStore
	Composites *store.CompositeStore
	Hub        *ws.Hub
	Metrics    *metrics.Metrics
	Version    string
}

// Server is the HTTP front of the runtime.
type Server struct {
	echo *echo.Echo
	opts Options
	log  *logger.Logger
}

// New assembles the echo application: middleware, error mapping, routes.
func New(opts Options) *Server {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, opts: opts, log: opts.Log}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     opts.Config.Server.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/", s.root)
	e.GET("/health", s.health)
	if s.opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.opts.Metrics.Handler()))
	}
	if s.opts.Hub != nil {
		e.GET("/ws", echo.WrapHandler(s.opts.Hub))
	}

	api := e.Group(s.opts.Config.Server.APIPrefix)

	api.POST("/pipelines/execute", s.executePipeline)
	api.POST("/pipelines/save", s.savePipeline)
	api.GET("/pipelines", s.listPipelines)
	api.GET("/pipelines/:id", s.getPipeline)
	api.PUT("/pipelines/:id", s.updatePipeline)
	api.DELETE("/pipelines/:id", s.deletePipeline)
	api.POST("/pipelines/:id/execute", s.executeSavedPipeline)

	api.GET("/devices", s.listDevices)
	api.POST("/devices", s.createDevice)
	api.DELETE("/devices/:id", s.deleteDevice)
	api.POST("/devices/:id/connect", s.connectDevice)
	api.POST("/devices/:id/disconnect", s.disconnectDevice)
	api.GET("/devices/:id/functions", s.listDeviceFunctions)
	api.POST("/devices/:id/functions/:function_id", s.executeDeviceFunction)

	api.GET("/plugins", s.listPlugins)
	api.POST("/plugins/:id/load", s.loadPlugin)
	api.POST("/plugins/:id/reload", s.reloadPlugin)
	api.DELETE("/plugins/:id", s.unloadPlugin)

	api.GET("/composites", s.listComposites)
	api.POST("/composites", s.createComposite)
	api.POST("/composites/from-nodes", s.createCompositeFromNodes)
	api.GET("/composites/:id", s.getComposite)
	api.PUT("/composites/:id", s.updateComposite)
	api.DELETE("/composites/:id", s.deleteComposite)
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":    "Rigflow API",
		"version": s.opts.Version,
		"status":  "running",
		"api":     s.opts.Config.Server.APIPrefix,
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Rigflow is running",
	})
}

// Start serves HTTP until Shutdown is called or the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Infof("http server listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
