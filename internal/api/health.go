// internal/api/health.go health and system status handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kawakawa0804/umi-no-me-web2/internal/diagnostics"
)

// healthCacheTTL bounds how often a health poll recomputes system metrics.
// Uptime monitors hit this endpoint far more often than the numbers change.
const healthCacheTTL = 30 * time.Second

// HealthCheck handles GET /api/v1/health. The legacy /health route answers a
// bare "ok", this one reports enough state to debug a sick instance.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	if cached, found := c.queryCache.Get("health"); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	if c.Settings.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	modelState := map[string]any{"loaded": false}
	if path, ok := c.Models.Loaded(); ok {
		modelState["loaded"] = true
		modelState["path"] = path
	}
	modelState["default"] = c.Settings.Model.Path
	response["model"] = modelState

	response["gate"] = map[string]any{
		"in_flight": c.Admission.InFlight(),
	}

	if c.DS != nil {
		dbStatus := "connected"
		if _, err := c.DS.CountDetections(); err != nil {
			dbStatus = "disconnected"
			response["database_error"] = err.Error()
		}
		response["database_status"] = dbStatus
	} else {
		response["database_status"] = "disabled"
	}

	if resources, err := diagnostics.CollectResourceInfo(0); err == nil {
		response["system"] = map[string]any{
			"cpu_usage_percent":    resources.CPUUsage,
			"memory_usage_percent": resources.MemoryUsage,
			"memory_total":         resources.MemoryTotal,
			"memory_used":          resources.MemoryUsed,
			"process_memory_mb":    resources.ProcessMem,
			"process_cpu_percent":  resources.ProcessCPU,
		}
	} else {
		c.Debug("Failed to collect resource info for health check: %v", err)
	}

	c.queryCache.Set("health", response, healthCacheTTL)
	return ctx.JSON(http.StatusOK, response)
}

// SystemInfo handles GET /api/v1/system/info.
func (c *Controller) SystemInfo(ctx echo.Context) error {
	info, err := diagnostics.CollectSystemInfo()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to collect system information", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, info)
}

// SystemResources handles GET /api/v1/system/resources.
func (c *Controller) SystemResources(ctx echo.Context) error {
	resources, err := diagnostics.CollectResourceInfo(0)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to collect resource information", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, resources)
}

// SystemDisks handles GET /api/v1/system/disks.
func (c *Controller) SystemDisks(ctx echo.Context) error {
	disks, err := diagnostics.CollectDiskInfo()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to collect disk information", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, disks)
}
