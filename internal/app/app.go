package app

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/talkincode/netmon/config"
	"github.com/talkincode/netmon/internal/metrics"
	"github.com/talkincode/netmon/internal/monitor"
	"github.com/talkincode/netmon/internal/store"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	node      *snowflake.Node
	devices   *store.GormDeviceStore
	samples   *store.GormSampleStore
	prober    monitor.Prober
	monitor   *monitor.Monitor
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ StoreProvider     = (*Application)(nil)
	_ MonitorProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

// Option customizes an Application before Init.
type Option func(*Application)

// WithProber replaces the ICMP prober.
func WithProber(p monitor.Prober) Option {
	return func(a *Application) {
		a.prober = p
	}
}

func NewApplication(appConfig *config.AppConfig, opts ...Option) *Application {
	a := &Application{appConfig: appConfig}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Devices() store.DeviceStore {
	return a.devices
}

func (a *Application) Samples() store.SampleStore {
	return a.samples
}

func (a *Application) Monitor() *monitor.Monitor {
	return a.monitor
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// EventBus returns the bus carrying monitor events
func (a *Application) EventBus() EventBus.Bus {
	return a.bus
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	// Initialize metrics with workdir convention
	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	// Initialize database connection
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if a.gormDB == nil {
		a.gormDB = getDatabase(cfg.Database, cfg.System.Workdir)
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	}

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.node, err = snowflake.NewNode(time.Now().UnixNano() % 1024)
	if err != nil {
		panic(err)
	}
	a.devices = store.NewGormDeviceStore(a.gormDB, a.node)
	a.samples = store.NewGormSampleStore(a.gormDB)

	a.bus = EventBus.New()
	a.initMonitor()
	a.initJob()
}

func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Logger.FileEnable && cfg.Logger.Filename != "" {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// StartBackgroundJobs starts the sweep loop when autostart is enabled and
// stops it once ctx is done.
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	if !a.appConfig.Monitor.Autostart {
		zap.L().Info("monitor autostart disabled")
		return
	}
	a.monitor.Start()
	go func() {
		<-ctx.Done()
		a.monitor.Stop()
	}()
}

// Release releases application resources
func (a *Application) Release() {
	if a.monitor != nil {
		a.monitor.Stop()
	}

	if a.sched != nil {
		a.sched.Stop()
	}

	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	_ = metrics.Close()
	_ = zap.L().Sync()
}
