package monitor

import "github.com/talkincode/netmon/internal/domain"

// Evaluate returns the metrics exceeding the device thresholds, in the
// order response_time, packet_loss, jitter. A metric is only compared when
// both its threshold and its measured value are present; unreachable
// devices surface through Metrics.Status instead.
func Evaluate(m Metrics, d *domain.Device) []string {
	violations := make([]string, 0, 3)
	if exceeds(m.ResponseTime, d.ResponseTimeThreshold) {
		violations = append(violations, domain.MetricResponseTime)
	}
	if exceeds(&m.PacketLoss, d.PacketLossThreshold) {
		violations = append(violations, domain.MetricPacketLoss)
	}
	if exceeds(m.Jitter, d.JitterThreshold) {
		violations = append(violations, domain.MetricJitter)
	}
	return violations
}

func exceeds(value, threshold *float64) bool {
	if value == nil || threshold == nil {
		return false
	}
	return *value > *threshold
}
