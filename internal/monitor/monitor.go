package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/talkincode/netmon/internal/domain"
	"github.com/talkincode/netmon/internal/store"
)

const DefaultInterval = 60 * time.Second

// State of the sweep loop.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the period between two sweeps.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithWorkers sets how many devices are probed concurrently; 1 keeps
// strict store order.
func WithWorkers(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithEventBus publishes violation and sweep events on bus.
func WithEventBus(bus EventBus.BusPublisher) Option {
	return func(m *Monitor) {
		m.bus = bus
	}
}

// WithLogger replaces the global logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// Monitor periodically probes every registered device and appends the
// evaluated samples to the history.
type Monitor struct {
	devices   store.DeviceStore
	samples   store.SampleStore
	collector *Collector
	bus       EventBus.BusPublisher
	logger    *zap.Logger
	interval  time.Duration
	workers   int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	sweeps    atomic.Int64
	lastSweep atomic.Pointer[SweepResult]
}

func New(devices store.DeviceStore, samples store.SampleStore, collector *Collector, opts ...Option) *Monitor {
	m := &Monitor{
		devices:   devices,
		samples:   samples,
		collector: collector,
		logger:    zap.L(),
		interval:  DefaultInterval,
		workers:   1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the sweep loop. The first sweep runs immediately.
// Calling Start on a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.loop(ctx, done)
	m.logger.Info("monitor started", zap.Duration("interval", m.interval), zap.Int("workers", m.workers))
}

// Stop cancels the loop and waits for the in-flight sweep to wind down.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	m.logger.Info("monitor stopped")
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return Running
	}
	return Stopped
}

func (m *Monitor) Running() bool {
	return m.State() == Running
}

func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Sweeps returns the number of completed sweeps.
func (m *Monitor) Sweeps() int64 {
	return m.sweeps.Load()
}

// LastSweep returns the result of the most recent sweep.
func (m *Monitor) LastSweep() (SweepResult, bool) {
	r := m.lastSweep.Load()
	if r == nil {
		return SweepResult{}, false
	}
	return *r, true
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep probes every device once. Per-device failures are logged and
// counted; they never abort the sweep.
func (m *Monitor) Sweep(ctx context.Context) SweepResult {
	result := SweepResult{StartedAt: time.Now()}

	devices, err := m.devices.List(ctx)
	if err != nil {
		m.logger.Error("monitor: list devices failed", zap.Error(err))
		return result
	}
	result.Devices = len(devices)

	pool, err := ants.NewPool(m.workers)
	if err != nil {
		m.logger.Error("monitor: create worker pool failed", zap.Error(err))
		return result
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(fn func(r *SweepResult)) {
		mu.Lock()
		fn(&result)
		mu.Unlock()
	}

	for i := range devices {
		if ctx.Err() != nil {
			record(func(r *SweepResult) { r.Skipped += len(devices) - i })
			break
		}
		device := devices[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			outcome := m.processDevice(ctx, &device)
			record(func(r *SweepResult) {
				switch outcome {
				case outcomeStored:
					r.Stored++
				case outcomeViolation:
					r.Stored++
					r.Violations++
				case outcomeFailed:
					r.Failed++
				case outcomeSkipped:
					r.Skipped++
				}
			})
		})
		if err != nil {
			wg.Done()
			m.logger.Error("monitor: submit probe task failed", zap.String("ip", device.IPAddress), zap.Error(err))
			record(func(r *SweepResult) { r.Failed++ })
		}
	}
	wg.Wait()

	result.Duration = time.Since(result.StartedAt)
	m.sweeps.Add(1)
	m.lastSweep.Store(&result)
	if m.bus != nil {
		m.bus.Publish(TopicSweep, result)
	}
	m.logger.Debug("monitor: sweep finished",
		zap.Int("devices", result.Devices),
		zap.Int("stored", result.Stored),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", result.Duration))
	return result
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeViolation
	outcomeFailed
	outcomeSkipped
)

func (m *Monitor) processDevice(ctx context.Context, device *domain.Device) outcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}

	metrics, err := m.collector.Collect(ctx, device.IPAddress)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeSkipped
		}
		m.logger.Error("monitor: collect failed", zap.String("ip", device.IPAddress), zap.Error(err))
		return outcomeFailed
	}

	violations := Evaluate(metrics, device)
	sample := metrics.ToSample(device.ID, violations)
	// a completed burst is stored even if Stop arrived meanwhile
	if err := m.samples.Append(context.WithoutCancel(ctx), &sample); err != nil {
		if domain.IsNotFound(err) {
			m.logger.Debug("monitor: device removed during sweep", zap.Int64("device_id", device.ID))
			return outcomeSkipped
		}
		m.logger.Error("monitor: append sample failed", zap.String("ip", device.IPAddress), zap.Error(err))
		return outcomeFailed
	}

	if len(violations) == 0 {
		return outcomeStored
	}
	if m.bus != nil {
		m.bus.Publish(TopicViolation, ViolationEvent{Device: *device, Sample: sample})
	}
	return outcomeViolation
}

// CheckDevice runs one probe burst outside the sweep loop and reports
// reachability with the response time in seconds, or the sentinel when
// unreachable. Nothing is stored.
func (m *Monitor) CheckDevice(ctx context.Context, ip string) (bool, float64, error) {
	metrics, err := m.collector.Collect(ctx, ip)
	if err != nil {
		return false, domain.Sentinel, err
	}
	if metrics.ResponseTime == nil {
		return metrics.Status, domain.Sentinel, nil
	}
	return metrics.Status, *metrics.ResponseTime, nil
}
