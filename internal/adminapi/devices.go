package adminapi

import (
	"net/http"
	"strings"

	"github.com/c-robinson/iplib"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/netmon/internal/domain"
	"github.com/talkincode/netmon/internal/webserver"
)

type devicePayload struct {
	IPAddress             string   `json:"ip_address" validate:"required,dottedquad"`
	Description           string   `json:"description" validate:"omitempty,max=500"`
	Tags                  []string `json:"tags" validate:"omitempty,max=32,dive,max=64"`
	DeviceType            string   `json:"device_type" validate:"omitempty,devicetype"`
	ResponseTimeThreshold *float64 `json:"response_time_threshold" validate:"omitempty,gt=0"`
	PacketLossThreshold   *float64 `json:"packet_loss_threshold" validate:"omitempty,gt=0,lte=100"`
	JitterThreshold       *float64 `json:"jitter_threshold" validate:"omitempty,gt=0"`
}

func (p devicePayload) toDevice(id int64) *domain.Device {
	return &domain.Device{
		ID:                    id,
		IPAddress:             strings.TrimSpace(p.IPAddress),
		Description:           strings.TrimSpace(p.Description),
		Tags:                  domain.StringList(p.Tags),
		DeviceType:            domain.DeviceType(p.DeviceType),
		ResponseTimeThreshold: p.ResponseTimeThreshold,
		PacketLossThreshold:   p.PacketLossThreshold,
		JitterThreshold:       p.JitterThreshold,
	}
}

// registerDeviceRoutes registers device CRUD routes
func registerDeviceRoutes() {
	webserver.ApiGET("/devices", listDevices)
	webserver.ApiGET("/devices/types", listDeviceTypes)
	webserver.ApiGET("/devices/:id", getDevice)
	webserver.ApiPOST("/devices", createDevice)
	webserver.ApiPUT("/devices/:id", updateDevice)
	webserver.ApiDELETE("/devices/:id", deleteDevice)
}

// listDevices supports cidr, tag, device_type and q (ip or description
// substring) filters on top of the store order
func listDevices(c echo.Context) error {
	page, pageSize := parsePagination(c)

	var (
		network   iplib.Net
		hasFilter bool
	)
	if cidr := strings.TrimSpace(c.QueryParam("cidr")); cidr != "" {
		_, ipnet, err := iplib.ParseCIDR(cidr)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_CIDR", "Invalid cidr filter", err.Error())
		}
		network, hasFilter = ipnet, true
	}
	tag := strings.TrimSpace(c.QueryParam("tag"))
	deviceType := domain.DeviceType(strings.TrimSpace(c.QueryParam("device_type")))
	q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))

	devices, err := GetAppContext(c).Devices().List(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query devices", err.Error())
	}

	filtered := make([]domain.Device, 0, len(devices))
	for _, d := range devices {
		if hasFilter && !network.Contains(domain.ParseIPv4(d.IPAddress)) {
			continue
		}
		if tag != "" && !d.Tags.Contains(tag) {
			continue
		}
		if deviceType != "" && d.DeviceType != deviceType {
			continue
		}
		if q != "" && !strings.Contains(d.IPAddress, q) && !strings.Contains(strings.ToLower(d.Description), q) {
			continue
		}
		filtered = append(filtered, d)
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return paged(c, filtered[start:end], int64(total), page, pageSize)
}

func listDeviceTypes(c echo.Context) error {
	return ok(c, domain.DeviceTypes)
}

func getDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	d, err := GetAppContext(c).Devices().Get(c.Request().Context(), id)
	if err != nil {
		return handleStoreError(c, err, "DEVICE_NOT_FOUND", "query device")
	}
	return ok(c, d)
}

func createDevice(c echo.Context) error {
	var payload devicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse device parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	device := payload.toDevice(0)
	if _, err := GetAppContext(c).Devices().Add(c.Request().Context(), device); err != nil {
		return handleStoreError(c, err, "DEVICE_NOT_FOUND", "create device")
	}
	return ok(c, device)
}

// updateDevice replaces every mutable field; omitted thresholds are cleared
func updateDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	var payload devicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse device parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	device := payload.toDevice(id)
	if err := GetAppContext(c).Devices().Update(c.Request().Context(), device); err != nil {
		return handleStoreError(c, err, "DEVICE_NOT_FOUND", "update device")
	}
	return ok(c, device)
}

func deleteDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}

	if err := GetAppContext(c).Devices().Delete(c.Request().Context(), id); err != nil {
		return handleStoreError(c, err, "DEVICE_NOT_FOUND", "delete device")
	}
	return ok(c, map[string]interface{}{"id": id})
}
