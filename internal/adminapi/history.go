package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/netmon/internal/domain"
	"github.com/talkincode/netmon/internal/export"
	"github.com/talkincode/netmon/internal/store"
	"github.com/talkincode/netmon/internal/webserver"
)

const (
	defaultTrendHours  = 24
	maxTrendHours      = 720
	defaultUptimeLimit = 100

	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// registerHistoryRoutes registers sample history read routes
func registerHistoryRoutes() {
	webserver.ApiGET("/devices/:id/history", getDeviceHistory)
	webserver.ApiGET("/devices/:id/trends", getDeviceTrends)
	webserver.ApiGET("/devices/:id/uptime", getDeviceUptime)
	webserver.ApiGET("/devices/:id/export.csv", exportDeviceCSV)
	webserver.ApiGET("/devices/:id/export.xlsx", exportDeviceXLSX)
}

// lookupDevice resolves the :id parameter, writing the error reply itself
// when it returns nil
func lookupDevice(c echo.Context) (*domain.Device, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	d, err := GetAppContext(c).Devices().Get(c.Request().Context(), id)
	if err != nil {
		return nil, handleStoreError(c, err, "DEVICE_NOT_FOUND", "query device")
	}
	return d, nil
}

// getDeviceHistory returns samples newest first, all of them without limit
func getDeviceHistory(c echo.Context) error {
	limit, valid := parseIntQuery(c, "limit", 0)
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer", nil)
	}
	d, err := lookupDevice(c)
	if d == nil {
		return err
	}

	samples, err := GetAppContext(c).Samples().History(c.Request().Context(), d.ID, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query history", err.Error())
	}
	return ok(c, samples)
}

func getDeviceTrends(c echo.Context) error {
	hours, valid := parseIntQuery(c, "hours", defaultTrendHours)
	if !valid || hours < 1 || hours > maxTrendHours {
		return fail(c, http.StatusBadRequest, "INVALID_HOURS",
			fmt.Sprintf("hours must be within 1..%d", maxTrendHours), nil)
	}
	d, err := lookupDevice(c)
	if d == nil {
		return err
	}

	buckets, err := GetAppContext(c).Samples().Trends(c.Request().Context(), d.ID, hours)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query trends", err.Error())
	}
	return ok(c, buckets)
}

// getDeviceUptime reports the share of reachable samples among the latest limit
func getDeviceUptime(c echo.Context) error {
	limit, valid := parseIntQuery(c, "limit", defaultUptimeLimit)
	if !valid || limit < 1 {
		return fail(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", nil)
	}
	d, err := lookupDevice(c)
	if d == nil {
		return err
	}

	samples, err := GetAppContext(c).Samples().History(c.Request().Context(), d.ID, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query history", err.Error())
	}

	var total int64
	if err := GetDB(c).Model(&domain.Sample{}).Where("device_id = ?", d.ID).Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count history", err.Error())
	}

	res := map[string]interface{}{
		"device_id":     fmt.Sprint(d.ID),
		"samples":       len(samples),
		"total_samples": total,
		"uptime":        store.Uptime(samples),
	}
	if len(samples) > 0 {
		latest := samples[0]
		res["status"] = latest.Status
		res["last_check"] = latest.Timestamp
		res["response_time"] = export.FormatResponseTime(latest.ResponseTime)
	}
	return ok(c, res)
}

// exportSamples loads the device and its history since the optional
// free-form since parameter, oldest first
func exportSamples(c echo.Context) (*domain.Device, []domain.Sample, error) {
	var since time.Time
	if raw := strings.TrimSpace(c.QueryParam("since")); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return nil, nil, fail(c, http.StatusBadRequest, "INVALID_SINCE", "Unable to parse since", err.Error())
		}
		since = t
	}
	d, err := lookupDevice(c)
	if d == nil {
		return nil, nil, err
	}

	samples, err := GetAppContext(c).Samples().Range(c.Request().Context(), d.ID, since)
	if err != nil {
		return nil, nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query history", err.Error())
	}
	return d, samples, nil
}

func exportDeviceCSV(c echo.Context) error {
	d, samples, err := exportSamples(c)
	if d == nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, samples); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export csv", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.Filename(d, "csv", time.Now())))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func exportDeviceXLSX(c echo.Context) error {
	d, samples, err := exportSamples(c)
	if d == nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, d, samples); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export xlsx", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.Filename(d, "xlsx", time.Now())))
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}
