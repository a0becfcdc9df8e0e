package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/talkincode/netmon/internal/domain"
)

type fakeDeviceStore struct {
	mu      sync.Mutex
	devices []domain.Device
}

func (s *fakeDeviceStore) Add(_ context.Context, d *domain.Device) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append([]domain.Device{*d}, s.devices...)
	return d.ID, nil
}

func (s *fakeDeviceStore) List(context.Context) ([]domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Device(nil), s.devices...), nil
}

func (s *fakeDeviceStore) Get(_ context.Context, id int64) (*domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].ID == id {
			d := s.devices[i]
			return &d, nil
		}
	}
	return nil, domain.NewNotFound("device", id)
}

func (s *fakeDeviceStore) Update(context.Context, *domain.Device) error { return nil }
func (s *fakeDeviceStore) Delete(context.Context, int64) error          { return nil }

func (s *fakeDeviceStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.devices)), nil
}

type fakeSampleStore struct {
	mu      sync.Mutex
	samples []domain.Sample
	failFor map[int64]error
}

func (s *fakeSampleStore) Append(_ context.Context, sample *domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[sample.DeviceID]; err != nil {
		return err
	}
	s.samples = append(s.samples, *sample)
	return nil
}

func (s *fakeSampleStore) History(context.Context, int64, int) ([]domain.Sample, error) {
	return nil, nil
}

func (s *fakeSampleStore) Range(context.Context, int64, time.Time) ([]domain.Sample, error) {
	return nil, nil
}

func (s *fakeSampleStore) Trends(context.Context, int64, int) ([]domain.TrendBucket, error) {
	return nil, nil
}

func (s *fakeSampleStore) Purge(context.Context, time.Time) (int64, error) { return 0, nil }

func (s *fakeSampleStore) Appended() []domain.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Sample(nil), s.samples...)
}

func newTestMonitor(t *testing.T, prober Prober, devices []domain.Device, opts ...Option) (*Monitor, *fakeSampleStore) {
	t.Helper()
	samples := &fakeSampleStore{failFor: map[int64]error{}}
	collector := NewCollector(prober, WithProbeCount(2), WithProbeDelay(0), WithProbeTimeout(10*time.Millisecond))
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	m := New(&fakeDeviceStore{devices: devices}, samples, collector, opts...)
	return m, samples
}

func TestSweepStoresOneSamplePerDeviceInOrder(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(5)}}}
	devices := []domain.Device{
		{ID: 3, IPAddress: "10.0.0.3"},
		{ID: 2, IPAddress: "10.0.0.2"},
		{ID: 1, IPAddress: "10.0.0.1"},
	}
	m, samples := newTestMonitor(t, prober, devices)

	result := m.Sweep(context.Background())
	assert.Equal(t, 3, result.Devices)
	assert.Equal(t, 3, result.Stored)
	assert.Zero(t, result.Failed)
	assert.Equal(t, int64(1), m.Sweeps())

	got := samples.Appended()
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, devices[i].ID, s.DeviceID)
		assert.True(t, s.Status)
		assert.Empty(t, s.ThresholdViolations)
	}
	assert.Equal(t, []string{
		"10.0.0.3", "10.0.0.3",
		"10.0.0.2", "10.0.0.2",
		"10.0.0.1", "10.0.0.1",
	}, prober.ips)
}

func TestSweepIsolatesDeviceFailures(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(5)}}}
	devices := []domain.Device{
		{ID: 1, IPAddress: "10.0.0.1"},
		{ID: 2, IPAddress: "999.0.0.2"},
		{ID: 3, IPAddress: "10.0.0.3"},
		{ID: 4, IPAddress: "10.0.0.4"},
	}
	m, samples := newTestMonitor(t, prober, devices, WithWorkers(2))
	samples.failFor[3] = errors.New("disk full")

	result := m.Sweep(context.Background())
	assert.Equal(t, 4, result.Devices)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 2, result.Failed)

	stored := map[int64]bool{}
	for _, s := range samples.Appended() {
		stored[s.DeviceID] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 4: true}, stored)
}

func TestSweepUnreachableDeviceStoresSentinels(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{err: ErrNoReply}}}
	devices := []domain.Device{{ID: 1, IPAddress: "10.0.0.1", ResponseTimeThreshold: f(0.1)}}
	m, samples := newTestMonitor(t, prober, devices)

	m.Sweep(context.Background())
	got := samples.Appended()
	require.Len(t, got, 1)
	assert.False(t, got[0].Status)
	assert.Equal(t, domain.Sentinel, got[0].ResponseTime)
	assert.InDelta(t, 100, got[0].PacketLoss, 1e-9)
	assert.Empty(t, got[0].ThresholdViolations, "sentinel never violates")
}

func TestSweepPublishesEvents(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(200)}}}
	devices := []domain.Device{
		{ID: 1, IPAddress: "10.0.0.1", ResponseTimeThreshold: f(0.1)},
		{ID: 2, IPAddress: "10.0.0.2"},
	}
	bus := EventBus.New()
	m, _ := newTestMonitor(t, prober, devices, WithEventBus(bus))

	var (
		mu         sync.Mutex
		violations []ViolationEvent
		sweeps     []SweepResult
	)
	require.NoError(t, bus.Subscribe(TopicViolation, func(ev ViolationEvent) {
		mu.Lock()
		violations = append(violations, ev)
		mu.Unlock()
	}))
	require.NoError(t, bus.Subscribe(TopicSweep, func(r SweepResult) {
		mu.Lock()
		sweeps = append(sweeps, r)
		mu.Unlock()
	}))

	m.Sweep(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, violations, 1)
	assert.Equal(t, int64(1), violations[0].Device.ID)
	assert.Equal(t, domain.StringList{domain.MetricResponseTime}, violations[0].Sample.ThresholdViolations)
	require.Len(t, sweeps, 1)
	assert.Equal(t, 1, sweeps[0].Violations)
	assert.Equal(t, 2, sweeps[0].Stored)
}

func TestSweepUsesCurrentThresholds(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(50)}}}
	devices := &fakeDeviceStore{devices: []domain.Device{{ID: 1, IPAddress: "10.0.0.1", ResponseTimeThreshold: f(0.01)}}}
	samples := &fakeSampleStore{}
	m := New(devices, samples, NewCollector(prober, WithProbeCount(1)), WithLogger(zaptest.NewLogger(t)))

	m.Sweep(context.Background())
	devices.mu.Lock()
	devices.devices[0].ResponseTimeThreshold = f(1)
	devices.mu.Unlock()
	m.Sweep(context.Background())

	got := samples.Appended()
	require.Len(t, got, 2)
	assert.Equal(t, domain.StringList{domain.MetricResponseTime}, got[0].ThresholdViolations)
	assert.Empty(t, got[1].ThresholdViolations)
}

func TestSweepCancelledSkipsRemainingDevices(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	devices := []domain.Device{{ID: 1, IPAddress: "10.0.0.1"}, {ID: 2, IPAddress: "10.0.0.2"}}
	m, samples := newTestMonitor(t, prober, devices)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := m.Sweep(ctx)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, samples.Appended())
	assert.Zero(t, prober.Calls())
}

func TestStartIsIdempotent(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	devices := []domain.Device{{ID: 1, IPAddress: "10.0.0.1"}, {ID: 2, IPAddress: "10.0.0.2"}}
	m, samples := newTestMonitor(t, prober, devices, WithInterval(time.Hour))

	assert.Equal(t, Stopped, m.State())
	m.Start()
	m.Start()
	assert.Equal(t, Running, m.State())

	require.Eventually(t, func() bool { return m.Sweeps() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), m.Sweeps(), "exactly one loop")
	assert.Len(t, samples.Appended(), 2)

	m.Stop()
	assert.Equal(t, Stopped, m.State())
	assert.False(t, m.Running())
	m.Stop()

	last, ok := m.LastSweep()
	require.True(t, ok)
	assert.Equal(t, 2, last.Stored)
}

func TestStartRunsPeriodically(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	devices := []domain.Device{{ID: 1, IPAddress: "10.0.0.1"}}
	m, _ := newTestMonitor(t, prober, devices, WithInterval(20*time.Millisecond))

	m.Start()
	require.Eventually(t, func() bool { return m.Sweeps() >= 3 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	stopped := m.Sweeps()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, m.Sweeps(), "no sweep after Stop returns")

	m.Start()
	require.Eventually(t, func() bool { return m.Sweeps() > stopped }, 2*time.Second, 5*time.Millisecond)
	m.Stop()
}

func TestCheckDevice(t *testing.T) {
	reachable := &scriptedProber{results: []probeResult{{rtt: ms(10)}, {rtt: ms(20)}}}
	m, samples := newTestMonitor(t, reachable, nil)

	up, rt, err := m.CheckDevice(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, up)
	assert.InDelta(t, 0.020, rt, 1e-6)

	unreachable := &scriptedProber{results: []probeResult{{err: ErrNoReply}}}
	m, samples = newTestMonitor(t, unreachable, nil)
	up, rt, err = m.CheckDevice(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, up)
	assert.Equal(t, domain.Sentinel, rt)

	_, _, err = m.CheckDevice(context.Background(), "10.0.0.256")
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, samples.Appended(), "ad hoc checks are never stored")
}
