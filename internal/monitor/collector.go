// Package monitor runs probe bursts against devices, evaluates thresholds and
// drives the periodic sweep loop that feeds the sample history.
package monitor

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/talkincode/netmon/internal/domain"
)

const (
	DefaultProbeCount   = 5
	DefaultProbeTimeout = 2 * time.Second
	DefaultProbeDelay   = 200 * time.Millisecond
)

// Metrics is the outcome of one probe burst. RTT-derived values are nil
// when no probe succeeded.
type Metrics struct {
	Status       bool     `json:"status"`
	ResponseTime *float64 `json:"response_time"` // seconds, last successful probe
	MinRTT       *float64 `json:"min_rtt"`
	MaxRTT       *float64 `json:"max_rtt"`
	AvgRTT       *float64 `json:"avg_rtt"`
	Jitter       *float64 `json:"jitter"`
	PacketLoss   float64  `json:"packet_loss"` // percent
}

// ToSample encodes the metrics for storage, mapping absent values to the sentinel.
func (m Metrics) ToSample(deviceID int64, violations []string) domain.Sample {
	return domain.Sample{
		DeviceID:            deviceID,
		Status:              m.Status,
		ResponseTime:        orSentinel(m.ResponseTime),
		MinRTT:              orSentinel(m.MinRTT),
		MaxRTT:              orSentinel(m.MaxRTT),
		AvgRTT:              orSentinel(m.AvgRTT),
		Jitter:              orSentinel(m.Jitter),
		PacketLoss:          m.PacketLoss,
		ThresholdViolations: domain.StringList(violations),
	}
}

func orSentinel(v *float64) float64 {
	if v == nil {
		return domain.Sentinel
	}
	return *v
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithProbeCount sets the number of probes per burst.
func WithProbeCount(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.probeCount = n
		}
	}
}

// WithProbeTimeout bounds every single probe.
func WithProbeTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithProbeDelay sets the pause between two probes of a burst.
func WithProbeDelay(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d >= 0 {
			c.probeDelay = d
		}
	}
}

// Collector runs probe bursts and derives latency statistics.
type Collector struct {
	prober       Prober
	probeCount   int
	probeTimeout time.Duration
	probeDelay   time.Duration
}

func NewCollector(prober Prober, opts ...CollectorOption) *Collector {
	c := &Collector{
		prober:       prober,
		probeCount:   DefaultProbeCount,
		probeTimeout: DefaultProbeTimeout,
		probeDelay:   DefaultProbeDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect probes ip probeCount times in sequence. Probe failures are
// counted as packet loss; the only errors returned are a malformed ip and
// a cancelled context, in which case the partial burst is discarded.
func (c *Collector) Collect(ctx context.Context, ip string) (Metrics, error) {
	if err := domain.ValidateIP(ip); err != nil {
		return Metrics{}, err
	}
	// resolvers reject leading zeros
	target := domain.ParseIPv4(ip).String()

	rtts := make([]float64, 0, c.probeCount)
	for i := 0; i < c.probeCount; i++ {
		if i > 0 && c.probeDelay > 0 {
			timer := time.NewTimer(c.probeDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Metrics{}, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}

		rtt, err := c.prober.Probe(ctx, target, c.probeTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return Metrics{}, ctx.Err()
			}
			zap.L().Debug("probe failed", zap.String("ip", ip), zap.Int("seq", i), zap.Error(err))
			continue
		}
		rtts = append(rtts, rtt.Seconds())
	}
	return summarize(rtts, c.probeCount), nil
}

func summarize(rtts []float64, count int) Metrics {
	m := Metrics{
		PacketLoss: float64(count-len(rtts)) / float64(count) * 100,
	}
	if len(rtts) == 0 {
		m.PacketLoss = 100
		return m
	}

	lo, _ := stats.Min(rtts)
	hi, _ := stats.Max(rtts)
	avg, _ := stats.Mean(rtts)
	jitter := 0.0
	if len(rtts) > 1 {
		jitter, _ = stats.StandardDeviationSample(rtts)
	}
	last := rtts[len(rtts)-1]

	m.Status = true
	m.ResponseTime = &last
	m.MinRTT = &lo
	m.MaxRTT = &hi
	m.AvgRTT = &avg
	m.Jitter = &jitter
	return m
}
