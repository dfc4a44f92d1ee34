// internal/api/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/kawakawa0804/umi-no-me-web2/internal/auditlog"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gate"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability"
	"github.com/kawakawa0804/umi-no-me-web2/internal/pipeline"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	Settings  *conf.Settings
	Pipeline  *pipeline.Pipeline
	Audit     *auditlog.Store
	DS        datastore.Interface // nil when database output is disabled
	Admission *gate.Gate
	Models    pipeline.ModelSource

	logger         *log.Logger
	apiLogger      *slog.Logger
	apiLoggerClose func() error
	metrics        *observability.Metrics
	queryCache     *cache.Cache // caches health and recent-detection responses
	startTime      time.Time
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, settings *conf.Settings, proc *pipeline.Pipeline, audit *auditlog.Store,
	ds datastore.Interface, admission *gate.Gate, models pipeline.ModelSource,
	logger *log.Logger, metrics *observability.Metrics) (*Controller, error) {
	return NewWithOptions(e, settings, proc, audit, ds, admission, models, logger, metrics, true)
}

// NewWithOptions creates the API controller with optional route registration.
// Tests that drive handlers directly pass initializeRoutes false.
func NewWithOptions(e *echo.Echo, settings *conf.Settings, proc *pipeline.Pipeline, audit *auditlog.Store,
	ds datastore.Interface, admission *gate.Gate, models pipeline.ModelSource,
	logger *log.Logger, metrics *observability.Metrics, initializeRoutes bool) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		Echo:       e,
		Settings:   settings,
		Pipeline:   proc,
		Audit:      audit,
		DS:         ds,
		Admission:  admission,
		Models:     models,
		logger:     logger,
		metrics:    metrics,
		queryCache: cache.New(5*time.Minute, 10*time.Minute),
		startTime:  time.Now(),
	}

	apiLogger, closeFunc, err := logging.NewFileLogger("logs/web.log", "api", slog.LevelInfo)
	if err != nil {
		logger.Printf("Warning: Failed to initialize API structured logger: %v", err)
		fbHandler := slog.NewJSONHandler(io.Discard, nil)
		c.apiLogger = slog.New(fbHandler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
	}

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	// Legacy surface. Camera firmware in the field posts here and parses the
	// exact response bodies, shapes on these routes never change.
	c.Echo.POST("/detect", c.Detect)

	c.Group = c.Echo.Group("/api/v1")
	c.Group.Use(middleware.CORS())
	c.Group.POST("/detect", c.Detect)
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/detections/recent", c.RecentDetections)
	c.Group.GET("/system/info", c.SystemInfo)
	c.Group.GET("/system/resources", c.SystemResources)
	c.Group.GET("/system/disks", c.SystemDisks)
}

// Shutdown flushes caches and closes the API log file.
func (c *Controller) Shutdown() {
	c.queryCache.Flush()
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Failed to close API log file: %v", err)
		}
	}
}

// ErrorResponse is the error envelope for the /api/v1 routes. The legacy
// /detect route keeps its own one-field bodies.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an error response on the v1 surface.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, errorResp)
}

// Debug logs debug messages when debug mode is enabled.
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.Debug {
		msg := fmt.Sprintf(format, v...)
		c.logger.Printf("[DEBUG] %s", msg)
		c.apiLogger.Debug(msg)
	}
}

// logAPIRequest logs a handler event with common request context fields.
func (c *Controller) logAPIRequest(ctx echo.Context, level slog.Level, msg string, args ...any) {
	baseAttrs := []any{
		"path", ctx.Request().URL.Path,
		"ip", ctx.RealIP(),
	}
	baseAttrs = append(baseAttrs, args...)
	c.apiLogger.Log(ctx.Request().Context(), level, msg, baseAttrs...)
}
