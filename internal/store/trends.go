package store

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/talkincode/netmon/internal/domain"
)

type bucketAcc struct {
	total        int
	up           int
	responseTime []float64
	jitter       []float64
	packetLoss   []float64
}

// BucketByHour groups samples by the clock hour (UTC) of their timestamp and
// returns the buckets newest first. Sentinel response times and jitter are
// left out of the averages.
func BucketByHour(samples []domain.Sample) []domain.TrendBucket {
	accs := make(map[time.Time]*bucketAcc)
	for _, s := range samples {
		hour := s.Timestamp.UTC().Truncate(time.Hour)
		acc, ok := accs[hour]
		if !ok {
			acc = &bucketAcc{}
			accs[hour] = acc
		}
		acc.total++
		if s.Status {
			acc.up++
		}
		if !domain.IsSentinel(s.ResponseTime) {
			acc.responseTime = append(acc.responseTime, s.ResponseTime)
		}
		if !domain.IsSentinel(s.Jitter) {
			acc.jitter = append(acc.jitter, s.Jitter)
		}
		acc.packetLoss = append(acc.packetLoss, s.PacketLoss)
	}

	buckets := make([]domain.TrendBucket, 0, len(accs))
	for hour, acc := range accs {
		bucket := domain.TrendBucket{
			Hour:            hour,
			Samples:         acc.total,
			AvgResponseTime: mean(acc.responseTime),
			AvgJitter:       mean(acc.jitter),
			Availability:    float64(acc.up) / float64(acc.total) * 100,
		}
		if avg := mean(acc.packetLoss); avg != nil {
			bucket.AvgPacketLoss = *avg
		}
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Hour.After(buckets[j].Hour)
	})
	return buckets
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	return &m
}

// Uptime returns the percentage of samples with status=true, 0 for none.
func Uptime(samples []domain.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	up := 0
	for _, s := range samples {
		if s.Status {
			up++
		}
	}
	return float64(up) / float64(len(samples)) * 100
}
