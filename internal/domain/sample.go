package domain

import "time"

// Sentinel marks an RTT-derived value that could not be measured.
// It only exists at the storage boundary; consumers must check IsSentinel
// before doing arithmetic on a stored value.
const Sentinel = -1.0

// Metric names used in threshold violation sets. The order of the
// declarations is the evaluation order.
const (
	MetricResponseTime = "response_time"
	MetricPacketLoss   = "packet_loss"
	MetricJitter       = "jitter"
)

// IsSentinel reports whether v encodes "no measurement".
func IsSentinel(v float64) bool {
	return v < 0
}

// Sample is one probe-cycle result for one device. Samples are append-only.
type Sample struct {
	ID                  int64      `json:"id,string" gorm:"primaryKey;autoIncrement"`
	DeviceID            int64      `json:"device_id,string" gorm:"not null;index:idx_history_device_ts,priority:1"`
	Device              *Device    `json:"-" gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
	ResponseTime        float64    `json:"response_time"` // seconds, Sentinel on timeout
	Status              bool       `json:"status"`
	MinRTT              float64    `json:"min_rtt" gorm:"column:min_rtt"`
	MaxRTT              float64    `json:"max_rtt" gorm:"column:max_rtt"`
	AvgRTT              float64    `json:"avg_rtt" gorm:"column:avg_rtt"`
	Jitter              float64    `json:"jitter"`
	PacketLoss          float64    `json:"packet_loss"` // percent
	ThresholdViolations StringList `json:"threshold_violations" gorm:"type:text"`
	Timestamp           time.Time  `json:"timestamp" gorm:"not null;index:idx_history_device_ts,priority:2"`
}

// TableName Specify table name
func (Sample) TableName() string {
	return "monitoring_history"
}

// TrendBucket aggregates the samples of one device within one clock hour.
// Averages are nil when every sample in the bucket carried the sentinel.
type TrendBucket struct {
	Hour            time.Time `json:"hour"`
	Samples         int       `json:"samples"`
	AvgResponseTime *float64  `json:"avg_response_time"`
	AvgPacketLoss   float64   `json:"avg_packet_loss"`
	AvgJitter       *float64  `json:"avg_jitter"`
	Availability    float64   `json:"availability"` // percent of samples with status=true
}
