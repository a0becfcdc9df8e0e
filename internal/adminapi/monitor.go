package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/netmon/internal/domain"
	"github.com/talkincode/netmon/internal/export"
	"github.com/talkincode/netmon/internal/metrics"
	"github.com/talkincode/netmon/internal/webserver"
)

type checkPayload struct {
	IPAddress string `json:"ip_address" validate:"required,dottedquad"`
}

// registerMonitorRoutes registers probing engine routes
func registerMonitorRoutes() {
	webserver.ApiPOST("/check", checkDevice)
	webserver.ApiGET("/monitor", getMonitorStatus)
	webserver.ApiPOST("/monitor/start", startMonitor)
	webserver.ApiPOST("/monitor/stop", stopMonitor)
	webserver.ApiGET("/monitor/metrics", getMonitorMetrics)
}

// checkDevice runs an ad hoc probe burst; nothing is stored
func checkDevice(c echo.Context) error {
	var payload checkPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse check parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	status, responseTime, err := GetAppContext(c).CheckDevice(c.Request().Context(), payload.IPAddress)
	if domain.IsValidation(err) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	} else if err != nil {
		return fail(c, http.StatusServiceUnavailable, "CHECK_ABORTED", "Check did not complete", err.Error())
	}

	return ok(c, map[string]interface{}{
		"ip_address":            payload.IPAddress,
		"status":                status,
		"response_time":         responseTime,
		"response_time_display": export.FormatResponseTime(responseTime),
	})
}

func monitorStatus(c echo.Context) map[string]interface{} {
	appCtx := GetAppContext(c)
	m := appCtx.Monitor()
	res := map[string]interface{}{
		"state":    m.State().String(),
		"interval": m.Interval().String(),
		"workers":  appCtx.Config().Monitor.Workers,
		"sweeps":   m.Sweeps(),
	}
	if last, ok := m.LastSweep(); ok {
		res["last_sweep"] = last
	}
	return res
}

func getMonitorStatus(c echo.Context) error {
	return ok(c, monitorStatus(c))
}

func startMonitor(c echo.Context) error {
	GetAppContext(c).Monitor().Start()
	return ok(c, monitorStatus(c))
}

func stopMonitor(c echo.Context) error {
	GetAppContext(c).Monitor().Stop()
	return ok(c, monitorStatus(c))
}

// getMonitorMetrics returns the stored history of one self-metric
func getMonitorMetrics(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	known := false
	for _, n := range metrics.Names {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return fail(c, http.StatusBadRequest, "INVALID_METRIC", "Unknown metric name", metrics.Names)
	}
	hours, valid := parseIntQuery(c, "hours", 1)
	if !valid || hours < 1 || hours > maxTrendHours {
		return fail(c, http.StatusBadRequest, "INVALID_HOURS", "hours must be within 1..720", nil)
	}

	end := time.Now()
	points, err := metrics.Query(name, end.Add(-time.Duration(hours)*time.Hour), end.Add(time.Second))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metrics", err.Error())
	}
	return ok(c, map[string]interface{}{"name": name, "points": points})
}
