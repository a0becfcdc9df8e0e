package domain

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
)

const maxTagLength = 64

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// IsValidIP reports whether ip is a dotted-quad IPv4 address with every
// octet in 0..255.
func IsValidIP(ip string) bool {
	if !ipv4Pattern.MatchString(ip) {
		return false
	}
	for _, octet := range strings.Split(ip, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// ParseIPv4 converts a dotted-quad address, leading zeros included, to a
// 4-byte net.IP. It returns nil for anything IsValidIP rejects.
func ParseIPv4(ip string) net.IP {
	if !IsValidIP(ip) {
		return nil
	}
	var b [4]byte
	for i, octet := range strings.Split(ip, ".") {
		n, _ := strconv.Atoi(octet)
		b[i] = byte(n)
	}
	return net.IPv4(b[0], b[1], b[2], b[3]).To4()
}

// ValidateIP returns a validation error when ip is not a dotted-quad IPv4
// address.
func ValidateIP(ip string) error {
	if !IsValidIP(ip) {
		return NewValidation("ip_address", fmt.Sprintf("%q is not a dotted-quad IPv4 address", ip))
	}
	return nil
}

// ValidateThresholds checks that every configured threshold is a positive
// finite number and that packet loss does not exceed 100 percent.
func ValidateThresholds(responseTime, packetLoss, jitter *float64) error {
	check := func(name string, v *float64) error {
		if v == nil {
			return nil
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			return NewValidation(name+"_threshold", "must be a positive number")
		}
		return nil
	}
	if err := check(MetricResponseTime, responseTime); err != nil {
		return err
	}
	if err := check(MetricPacketLoss, packetLoss); err != nil {
		return err
	}
	if packetLoss != nil && *packetLoss > 100 {
		return NewValidation("packet_loss_threshold", "must not exceed 100")
	}
	return check(MetricJitter, jitter)
}

// ValidateTags rejects empty or oversized labels.
func ValidateTags(tags []string) error {
	for _, t := range tags {
		if t == "" {
			return NewValidation("tags", "empty tag")
		}
		if len(t) > maxTagLength {
			return NewValidation("tags", fmt.Sprintf("tag %q exceeds %d characters", t, maxTagLength))
		}
	}
	return nil
}

// ParseTags splits a comma separated label string, trimming blanks and
// dropping empty entries.
func ParseTags(s string) StringList {
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims every label and drops the empty ones, keeping order.
func NormalizeTags(tags []string) StringList {
	out := make(StringList, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
