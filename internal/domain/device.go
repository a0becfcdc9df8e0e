package domain

import "time"

// DeviceType classifies a monitored device. The empty value means unset.
type DeviceType string

const (
	DeviceTypeRouter      DeviceType = "router"
	DeviceTypeSwitch      DeviceType = "switch"
	DeviceTypeServer      DeviceType = "server"
	DeviceTypeWorkstation DeviceType = "workstation"
	DeviceTypeAccessPoint DeviceType = "access_point"
	DeviceTypeFirewall    DeviceType = "firewall"
	DeviceTypePrinter     DeviceType = "printer"
	DeviceTypeIoT         DeviceType = "iot"
	DeviceTypeOther       DeviceType = "other"
)

// DeviceTypes lists every accepted device type in display order.
var DeviceTypes = []DeviceType{
	DeviceTypeRouter,
	DeviceTypeSwitch,
	DeviceTypeServer,
	DeviceTypeWorkstation,
	DeviceTypeAccessPoint,
	DeviceTypeFirewall,
	DeviceTypePrinter,
	DeviceTypeIoT,
	DeviceTypeOther,
}

// Valid reports whether t is unset or one of DeviceTypes.
func (t DeviceType) Valid() bool {
	if t == "" {
		return true
	}
	for _, v := range DeviceTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Device is a monitored network endpoint with its per-metric thresholds.
// A nil threshold disables the check for that metric.
type Device struct {
	ID                    int64      `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	IPAddress             string     `json:"ip_address" gorm:"column:ip_address;size:15;not null;index"`
	Description           string     `json:"description" gorm:"type:text"`
	Tags                  StringList `json:"tags" gorm:"type:text"`
	DeviceType            DeviceType `json:"device_type" gorm:"size:32"`
	ResponseTimeThreshold *float64   `json:"response_time_threshold"` // seconds
	PacketLossThreshold   *float64   `json:"packet_loss_threshold"`   // percent
	JitterThreshold       *float64   `json:"jitter_threshold"`        // seconds
	CreatedAt             time.Time  `json:"created_at" gorm:"<-:create;index"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Device) TableName() string {
	return "devices"
}

// Validate checks the mutable fields of a device before it is written.
func (d *Device) Validate() error {
	if err := ValidateIP(d.IPAddress); err != nil {
		return err
	}
	if !d.DeviceType.Valid() {
		return NewValidation("device_type", "unknown type "+string(d.DeviceType))
	}
	if err := ValidateTags(d.Tags); err != nil {
		return err
	}
	return ValidateThresholds(d.ResponseTimeThreshold, d.PacketLossThreshold, d.JitterThreshold)
}

// HasThresholds reports whether any threshold is configured.
func (d *Device) HasThresholds() bool {
	return d.ResponseTimeThreshold != nil || d.PacketLossThreshold != nil || d.JitterThreshold != nil
}
