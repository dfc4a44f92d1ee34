package httpcontroller

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// configureMiddleware sets up middleware for the server. Logging sits right
// after Recover so rejected requests, body-limit hits included, still show
// up in the web log.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.LoggingMiddleware())
	s.Echo.Use(middleware.CORS())
	s.Echo.Use(middleware.BodyLimit(s.Settings.Web.MaxBodySize))
	s.Echo.Use(s.GzipMiddleware())
}

// GzipMiddleware configures Gzip compression for the server.
func (s *Server) GzipMiddleware() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     6,
		MinLength: 2048,
	})
}

// LoggingMiddleware logs every request to the web log and records request
// metrics. Each request gets a short id so one exchange can be followed
// through the log.
func (s *Server) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()[:8]
				c.Request().Header.Set("X-Request-ID", requestID)
			}
			c.Response().Header().Set("X-Request-ID", requestID)

			err := next(c)
			if err != nil {
				// let Echo resolve the status before we read it
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			elapsed := time.Since(start)

			s.Metrics.HTTP.RecordHTTPRequest(req.Method, c.Path(), res.Status, elapsed.Seconds())
			s.Metrics.HTTP.RecordHTTPResponseSize(req.Method, c.Path(), res.Size)
			if res.Status >= 500 {
				s.Metrics.HTTP.RecordHTTPRequestError(req.Method, c.Path(), "server_error")
			}

			if s.webLogger != nil {
				level := slog.LevelInfo
				switch {
				case res.Status >= 500:
					level = slog.LevelError
				case res.Status >= 400:
					level = slog.LevelWarn
				}

				s.webLogger.Log(req.Context(), level, "HTTP request",
					"request_id", requestID,
					"method", req.Method,
					"path", req.URL.Path,
					"status", res.Status,
					"ip", c.RealIP(),
					"bytes_out", res.Size,
					"latency_ms", elapsed.Milliseconds(),
				)
			}

			// already handled via c.Error above
			return nil
		}
	}
}
