package monitor

import (
	"time"

	"github.com/talkincode/netmon/internal/domain"
)

// Event bus topics published by the Monitor.
const (
	TopicViolation = "monitor:violation"
	TopicSweep     = "monitor:sweep"
)

// ViolationEvent is published for every stored sample carrying violations.
type ViolationEvent struct {
	Device domain.Device
	Sample domain.Sample
}

// SweepResult summarizes one pass over all devices.
type SweepResult struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Devices    int           `json:"devices"`
	Stored     int           `json:"stored"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Violations int           `json:"violations"`
}
