package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/netmon/internal/app"
	"github.com/talkincode/netmon/internal/domain"
	"github.com/talkincode/netmon/internal/webserver"
)

// Response is the envelope of every successful admin api reply
type Response struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// ErrorResponse is the envelope of every failed admin api reply
type ErrorResponse struct {
	Code    string      `json:"code"`
	Msg     string      `json:"msg"`
	Details interface{} `json:"details,omitempty"`
}

// ListResponse is the envelope of paged lists
type ListResponse struct {
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// Init registers every admin api route on the global webserver
func Init() {
	registerDeviceRoutes()
	registerHistoryRoutes()
	registerMonitorRoutes()
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Code: "OK", Msg: "success", Data: data})
}

func fail(c echo.Context, status int, code, msg string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Code: code, Msg: msg, Details: details})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, ListResponse{Data: data, Total: total, Page: page, PageSize: pageSize})
}

func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// parseIntQuery returns def when the parameter is absent and ok=false
// when it is present but not an integer.
func parseIntQuery(c echo.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func handleValidationError(c echo.Context, err error) error {
	var fields []map[string]string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
			})
		}
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request parameter validation failed", fields)
}

// handleStoreError maps domain errors to api replies
func handleStoreError(c echo.Context, err error, notFoundCode, action string) error {
	switch {
	case domain.IsNotFound(err):
		return fail(c, http.StatusNotFound, notFoundCode, "Device not found", nil)
	case domain.IsValidation(err):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action, err.Error())
	}
}
