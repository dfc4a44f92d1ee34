// internal/httpcontroller/server.go
package httpcontroller

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/kawakawa0804/umi-no-me-web2/internal/api"
	"github.com/kawakawa0804/umi-no-me-web2/internal/auditlog"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gate"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability"
	"github.com/kawakawa0804/umi-no-me-web2/internal/pipeline"
)

// Server encapsulates the Echo server and related configuration.
type Server struct {
	Echo      *echo.Echo
	DS        datastore.Interface
	Settings  *conf.Settings
	Audit     *auditlog.Store
	Pipeline  *pipeline.Pipeline
	Admission *gate.Gate
	Models    pipeline.ModelSource
	Metrics   *observability.Metrics
	APIV1     *api.Controller

	webLogger      *slog.Logger // structured logger for web operations
	webLoggerClose func() error // closes the web log file
}

// New initializes the HTTP server around an already constructed pipeline.
func New(settings *conf.Settings, dataStore datastore.Interface, audit *auditlog.Store,
	proc *pipeline.Pipeline, admission *gate.Gate, models pipeline.ModelSource,
	metrics *observability.Metrics) *Server {
	configureDefaultSettings(settings)

	s := &Server{
		Echo:      echo.New(),
		DS:        dataStore,
		Settings:  settings,
		Audit:     audit,
		Pipeline:  proc,
		Admission: admission,
		Models:    models,
		Metrics:   metrics,
	}

	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.initializeServer()
	return s
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() {
	errChan := make(chan error)

	go func() {
		addr := s.Settings.Web.Host + ":" + s.Settings.Web.Port
		if err := s.Echo.Start(addr); err != nil {
			errChan <- err
		}
	}()

	go handleServerError(errChan)

	fmt.Printf("HTTP server started on %s:%s\n", s.Settings.Web.Host, s.Settings.Web.Port)
}

// Shutdown stops the server, draining in-flight requests first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.APIV1 != nil {
		s.APIV1.Shutdown()
	}
	if s.webLoggerClose != nil {
		if err := s.webLoggerClose(); err != nil {
			log.Printf("Failed to close web log file: %v", err)
		}
	}
	return s.Echo.Shutdown(ctx)
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() {
	s.Echo.HideBanner = true
	s.initLogger()
	s.configureMiddleware()
	s.setupTemplateRenderer()
	s.initRoutes()

	s.Debug("Initializing JSON API v1")
	apiController, err := api.New(s.Echo, s.Settings, s.Pipeline, s.Audit, s.DS,
		s.Admission, s.Models, log.Default(), s.Metrics)
	if err != nil {
		log.Printf("Warning: Failed to initialize API controller: %v", err)
		return
	}
	s.APIV1 = apiController
}

// configureDefaultSettings sets default values for server settings.
func configureDefaultSettings(settings *conf.Settings) {
	if settings.Web.Host == "" {
		settings.Web.Host = "0.0.0.0"
	}
	if settings.Web.Port == "" {
		settings.Web.Port = "5000"
	}
	if settings.Web.MaxBodySize == "" {
		settings.Web.MaxBodySize = "2M"
	}
}

// handleServerError listens for server errors and handles them.
func handleServerError(errChan chan error) {
	for err := range errChan {
		log.Printf("Server error: %v", err)
	}
}

// initLogger initializes the structured web logger.
func (s *Server) initLogger() {
	webLogger, closeFunc, err := logging.NewFileLogger("logs/web.log", "web", slog.LevelInfo)
	if err != nil {
		log.Printf("Warning: Failed to initialize web structured logger: %v", err)
		return
	}
	s.webLogger = webLogger
	s.webLoggerClose = closeFunc

	// rely on the logging middleware, not Echo's own logger
	s.Echo.Logger.SetOutput(io.Discard)
	s.Echo.Logger.SetLevel(99)
}

// Debug logs debug messages if debug mode is enabled.
func (s *Server) Debug(format string, v ...any) {
	if s.Settings.Debug {
		log.Printf("[DEBUG] %s", fmt.Sprintf(format, v...))
	}
}
