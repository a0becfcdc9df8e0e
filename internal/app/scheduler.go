package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/talkincode/netmon/internal/metrics"
	"github.com/talkincode/netmon/internal/monitor"
)

// initMonitor builds the probing engine from the monitor config and
// subscribes the metric and log sinks to its events.
func (a *Application) initMonitor() {
	cfg := a.appConfig.Monitor
	if a.prober == nil {
		a.prober = monitor.NewICMPProber(cfg.Privileged)
	}
	collector := monitor.NewCollector(a.prober,
		monitor.WithProbeCount(cfg.ProbeCount),
		monitor.WithProbeTimeout(cfg.ProbeTimeout),
		monitor.WithProbeDelay(cfg.ProbeDelay),
	)
	a.monitor = monitor.New(a.devices, a.samples, collector,
		monitor.WithInterval(cfg.Interval),
		monitor.WithWorkers(cfg.Workers),
		monitor.WithEventBus(a.bus),
	)

	if err := a.bus.Subscribe(monitor.TopicViolation, a.onViolation); err != nil {
		zap.L().Error("subscribe violation events failed", zap.Error(err))
	}
	if err := a.bus.Subscribe(monitor.TopicSweep, a.onSweep); err != nil {
		zap.L().Error("subscribe sweep events failed", zap.Error(err))
	}
}

func (a *Application) onViolation(ev monitor.ViolationEvent) {
	for _, name := range ev.Sample.ThresholdViolations {
		metrics.ViolationsTotal.WithLabelValues(name).Inc()
	}
	zap.L().Warn("threshold violation",
		zap.Int64("device_id", ev.Device.ID),
		zap.String("ip", ev.Device.IPAddress),
		zap.Strings("metrics", ev.Sample.ThresholdViolations),
		zap.Bool("status", ev.Sample.Status),
		zap.Float64("response_time", ev.Sample.ResponseTime),
		zap.Float64("packet_loss", ev.Sample.PacketLoss),
		zap.Float64("jitter", ev.Sample.Jitter))
}

func (a *Application) onSweep(r monitor.SweepResult) {
	metrics.SweepsTotal.Inc()
	metrics.SweepSeconds.Observe(r.Duration.Seconds())
	metrics.SamplesTotal.WithLabelValues("stored").Add(float64(r.Stored))
	metrics.SamplesTotal.WithLabelValues("failed").Add(float64(r.Failed))
	metrics.SamplesTotal.WithLabelValues("skipped").Add(float64(r.Skipped))

	metrics.SetGauge(metrics.SweepDuration, r.Duration.Milliseconds())
	metrics.SetGauge(metrics.SweepDevices, int64(r.Devices))
	metrics.SetGauge(metrics.SweepFailed, int64(r.Failed))
	metrics.SetGauge(metrics.SweepViolations, int64(r.Violations))
}

// CheckDevice runs an ad hoc probe burst bounded by the burst worst case.
func (a *Application) CheckDevice(ctx context.Context, ip string) (bool, float64, error) {
	cfg := a.appConfig.Monitor
	budget := time.Duration(cfg.ProbeCount) * (cfg.ProbeTimeout + cfg.ProbeDelay)
	if budget <= 0 {
		budget = time.Duration(monitor.DefaultProbeCount) * (monitor.DefaultProbeTimeout + monitor.DefaultProbeDelay)
	}
	ctx, cancel := context.WithTimeout(ctx, budget+time.Second)
	defer cancel()
	return a.monitor.CheckDevice(ctx, ip)
}
