// Package metrics keeps a local history of the service's own gauges in an
// embedded time-series database and exports Prometheus collectors.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

// Self-metric names stored in the local history.
const (
	SweepDuration   = "netmon_sweep_duration_ms"
	SweepDevices    = "netmon_sweep_devices"
	SweepFailed     = "netmon_sweep_failed"
	SweepViolations = "netmon_sweep_violations"
	DeviceCount     = "netmon_device_count"
	MonitorRunning  = "netmon_monitor_running"
	SystemCPUUse    = "netmon_system_cpuuse" // percent * 100
	SystemMemUse    = "netmon_system_memuse" // MB
	ProcessCPUUse   = "netmon_process_cpuuse"
	ProcessMemUse   = "netmon_process_memuse"
)

// Names lists the self-metrics accepted by Query.
var Names = []string{
	SweepDuration,
	SweepDevices,
	SweepFailed,
	SweepViolations,
	DeviceCount,
	MonitorRunning,
	SystemCPUUse,
	SystemMemUse,
	ProcessCPUUse,
	ProcessMemUse,
}

// Point is one stored gauge value.
type Point struct {
	Time  time.Time `json:"time"`
	Value int64     `json:"value"`
}

var (
	mu      sync.RWMutex
	storage tstorage.Storage
)

// InitMetrics opens the metric history under workdir/data/metrics.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(30*24*time.Hour),
		tstorage.WithPartitionDuration(6*time.Hour),
	)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}

	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		_ = storage.Close()
	}
	storage = s
	return nil
}

// SetGauge records value for name at the current time. It is a no-op
// until InitMetrics succeeded.
func SetGauge(name string, value int64) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
	}})
}

// Query returns the points of name recorded within [start, end), oldest first.
func Query(name string, start, end time.Time) ([]Point, error) {
	mu.RLock()
	defer mu.RUnlock()
	points := make([]Point, 0)
	if storage == nil {
		return points, nil
	}

	rows, err := storage.Select(name, nil, start.Unix(), end.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return points, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select "+name)
	}
	for _, p := range rows {
		points = append(points, Point{Time: time.Unix(p.Timestamp, 0).UTC(), Value: int64(p.Value)})
	}
	return points, nil
}

// Close flushes and closes the metric history.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
