package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/netmon/config"
	"github.com/talkincode/netmon/internal/monitor"
	"github.com/talkincode/netmon/internal/store"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// StoreProvider provides the device registry and the sample history
type StoreProvider interface {
	Devices() store.DeviceStore
	Samples() store.SampleStore
}

// MonitorProvider provides the probing engine
type MonitorProvider interface {
	Monitor() *monitor.Monitor
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	StoreProvider
	MonitorProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// PurgeHistory deletes samples older than the configured retention
	PurgeHistory() (int64, error)
	// CheckDevice probes ip once outside the sweep loop without storing a sample
	CheckDevice(ctx context.Context, ip string) (bool, float64, error)
}
