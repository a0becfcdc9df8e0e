package app

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/talkincode/netmon/internal/metrics"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSelfMetricsTask()
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		go a.SchedClearExpireData()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSelfMetricsTask records the device count and monitor state
func (a *Application) SchedSelfMetricsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	count, err := a.devices.Count(context.Background())
	if err == nil {
		metrics.SetGauge(metrics.DeviceCount, count)
		metrics.Devices.Set(float64(count))
	}

	var running int64
	if a.monitor.Running() {
		running = 1
	}
	metrics.SetGauge(metrics.MonitorRunning, running)
	metrics.Running.Set(float64(running))
}

// SchedSystemMonitorTask host cpu and memory usage
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(cpuuse) > 0 {
		metrics.SetGauge(metrics.SystemCPUUse, int64(cpuuse[0]*100)) // percent * 100
	}

	meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.SystemMemUse, int64(meminfo.Used/1024/1024)) // MB
	}
}

// SchedProcessMonitorTask netmon process cpu and rss
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.ProcessCPUUse, int64(cpuuse*100)) // percent * 100
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.ProcessMemUse, int64(meminfo.RSS/1024/1024)) // MB
	}
}

// SchedClearExpireData purges samples past the retention window
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	removed, err := a.PurgeHistory()
	if err != nil {
		zap.L().Error("purge monitoring history failed", zap.Error(err))
		return
	}
	if removed > 0 {
		zap.L().Info("monitoring history purged", zap.Int64("rows", removed))
	}
}

// PurgeHistory deletes samples older than monitor.retention_days; 0 keeps everything.
func (a *Application) PurgeHistory() (int64, error) {
	days := a.appConfig.Monitor.RetentionDays
	if days <= 0 {
		return 0, nil
	}
	before := time.Now().Add(-time.Hour * 24 * time.Duration(days))
	return a.samples.Purge(context.Background(), before)
}
