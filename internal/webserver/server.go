package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/talkincode/netmon/config"
)

const (
	// ApiPrefix is the mount point of every admin api route.
	ApiPrefix = "/api/v1"
	// AppContextKey is the echo context key holding the application context.
	AppContextKey = "appctx"
)

// AdminServer admin api server
type AdminServer struct {
	root *echo.Echo
	api  *echo.Group
	cfg  config.WebConfig
}

var (
	mu     sync.RWMutex
	server *AdminServer
)

// Init creates the global admin server; handlers registered afterwards
// through ApiGET and friends see appCtx under AppContextKey.
func Init(cfg *config.AppConfig, appCtx interface{}) *AdminServer {
	s := NewAdminServer(cfg, appCtx)
	mu.Lock()
	server = s
	mu.Unlock()
	return s
}

func NewAdminServer(cfg *config.AppConfig, appCtx interface{}) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.System.Debug
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				zap.L().Warn("admin api request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("admin api request", fields...)
			return nil
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	return &AdminServer{
		root: e,
		api:  e.Group(ApiPrefix),
		cfg:  cfg.Web,
	}
}

// Echo returns the underlying echo instance.
func (s *AdminServer) Echo() *echo.Echo {
	return s.root
}

// Start serves until Shutdown is called.
func (s *AdminServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	zap.S().Infof("admin api server listen %s", addr)
	err := s.root.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.root.Shutdown(ctx)
}

func current() *AdminServer {
	mu.RLock()
	defer mu.RUnlock()
	if server == nil {
		panic("webserver: Init must be called before registering routes")
	}
	return server
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	current().api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	current().api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	current().api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	current().api.DELETE(path, h, m...)
}

// httpErrorHandler renders framework errors in the admin api envelope.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if !strings.HasPrefix(c.Request().URL.Path, ApiPrefix) {
		_ = c.String(code, msg)
		return
	}
	_ = c.JSON(code, map[string]interface{}{
		"code":  code,
		"error": http.StatusText(code),
		"msg":   msg,
	})
}
