package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/netmon/internal/domain"
)

// scriptedProber replays a fixed sequence of results per call.
type scriptedProber struct {
	mu      sync.Mutex
	results []probeResult
	calls   int
	ips     []string
	at      []time.Time
}

type probeResult struct {
	rtt time.Duration
	err error
}

func (p *scriptedProber) Probe(_ context.Context, ip string, _ time.Duration) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ips = append(p.ips, ip)
	p.at = append(p.at, time.Now())
	if len(p.results) == 0 {
		p.calls++
		return 0, ErrNoReply
	}
	r := p.results[p.calls%len(p.results)]
	p.calls++
	return r.rtt, r.err
}

func (p *scriptedProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *scriptedProber) CallTimes() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.at...)
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

func TestCollectAllProbesFail(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{
		{err: ErrNoReply},
		{err: errors.New("network is unreachable")},
	}}
	c := NewCollector(prober, WithProbeDelay(0))

	m, err := c.Collect(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, DefaultProbeCount, prober.Calls())
	assert.False(t, m.Status)
	assert.InDelta(t, 100, m.PacketLoss, 1e-6)
	assert.Nil(t, m.ResponseTime)
	assert.Nil(t, m.MinRTT)
	assert.Nil(t, m.MaxRTT)
	assert.Nil(t, m.AvgRTT)
	assert.Nil(t, m.Jitter)

	s := m.ToSample(7, nil)
	assert.Equal(t, int64(7), s.DeviceID)
	assert.Equal(t, domain.Sentinel, s.ResponseTime)
	assert.Equal(t, domain.Sentinel, s.MinRTT)
	assert.Equal(t, domain.Sentinel, s.MaxRTT)
	assert.Equal(t, domain.Sentinel, s.AvgRTT)
	assert.Equal(t, domain.Sentinel, s.Jitter)
	assert.InDelta(t, 100, s.PacketLoss, 1e-6)
}

func TestCollectAllProbesSucceed(t *testing.T) {
	rtts := []float64{0.01, 0.02, 0.015, 0.012, 0.018}
	prober := &scriptedProber{}
	for _, v := range rtts {
		prober.results = append(prober.results, probeResult{rtt: ms(v * 1000)})
	}
	c := NewCollector(prober, WithProbeDelay(0))

	m, err := c.Collect(context.Background(), "192.168.1.1")
	require.NoError(t, err)
	assert.True(t, m.Status)
	assert.InDelta(t, 0, m.PacketLoss, 1e-6)
	require.NotNil(t, m.MinRTT)
	require.NotNil(t, m.MaxRTT)
	require.NotNil(t, m.AvgRTT)
	require.NotNil(t, m.ResponseTime)
	require.NotNil(t, m.Jitter)
	assert.InDelta(t, 0.01, *m.MinRTT, 1e-6)
	assert.InDelta(t, 0.02, *m.MaxRTT, 1e-6)
	assert.InDelta(t, 0.015, *m.AvgRTT, 1e-6)
	assert.InDelta(t, 0.018, *m.ResponseTime, 1e-6, "response time is the last probe")

	want, err := stats.StandardDeviationSample(rtts)
	require.NoError(t, err)
	assert.Greater(t, *m.Jitter, 0.0)
	assert.InDelta(t, want, *m.Jitter, 1e-6)
}

func TestCollectPartialLoss(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{
		{rtt: ms(10)},
		{err: ErrNoReply},
		{rtt: ms(30)},
		{err: ErrNoReply},
	}}
	c := NewCollector(prober, WithProbeCount(4), WithProbeDelay(0))

	m, err := c.Collect(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, m.Status)
	assert.InDelta(t, 50, m.PacketLoss, 1e-6)
	require.NotNil(t, m.ResponseTime)
	assert.InDelta(t, 0.030, *m.ResponseTime, 1e-6, "last successful probe, not the last probe")
	assert.InDelta(t, 0.020, *m.AvgRTT, 1e-6)
}

func TestCollectSingleSuccessHasZeroJitter(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(12)}}}
	c := NewCollector(prober, WithProbeCount(1))

	m, err := c.Collect(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, m.Jitter)
	assert.Zero(t, *m.Jitter)
	assert.InDelta(t, 0.012, *m.MinRTT, 1e-6)
	assert.InDelta(t, 0.012, *m.MaxRTT, 1e-6)
}

func TestCollectRejectsMalformedIP(t *testing.T) {
	prober := &scriptedProber{}
	c := NewCollector(prober)

	for _, ip := range []string{"256.1.1.1", "10.0.0", "host.example", ""} {
		_, err := c.Collect(context.Background(), ip)
		assert.True(t, domain.IsValidation(err), ip)
	}
	assert.Zero(t, prober.Calls(), "no probe for malformed input")
}

func TestCollectProbesCanonicalAddress(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	c := NewCollector(prober, WithProbeCount(2), WithProbeDelay(0))

	_, err := c.Collect(context.Background(), "010.000.0.001")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.1"}, prober.ips)
}

func TestCollectDelaysOnlyBetweenProbes(t *testing.T) {
	const (
		count = 3
		delay = 60 * time.Millisecond
	)
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	c := NewCollector(prober, WithProbeCount(count), WithProbeDelay(delay))

	_, err := c.Collect(context.Background(), "10.0.0.1")
	returned := time.Now()
	require.NoError(t, err)

	at := prober.CallTimes()
	require.Len(t, at, count)
	for i := 1; i < len(at); i++ {
		assert.GreaterOrEqual(t, at[i].Sub(at[i-1]), delay, "gap before probe %d", i)
	}
	assert.Less(t, returned.Sub(at[len(at)-1]), delay/2, "no wait after the last probe")
}

func TestCollectSingleProbeSkipsDelay(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	c := NewCollector(prober, WithProbeCount(1), WithProbeDelay(time.Second))

	started := time.Now()
	_, err := c.Collect(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Equal(t, 1, prober.Calls())
}

func TestCollectCancelled(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	c := NewCollector(prober, WithProbeCount(3), WithProbeDelay(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Collect(ctx, "10.0.0.1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, prober.Calls())
}

func TestCollectCancelledDuringDelay(t *testing.T) {
	prober := &scriptedProber{results: []probeResult{{rtt: ms(1)}}}
	c := NewCollector(prober, WithProbeCount(3), WithProbeDelay(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err := c.Collect(ctx, "10.0.0.1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Equal(t, 1, prober.Calls(), "burst discarded after the first probe")
}
