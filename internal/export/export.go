// Package export serializes device history to CSV and XLSX.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/talkincode/netmon/internal/domain"
	"github.com/talkincode/netmon/internal/store"
)

// Row is one exported sample. RTT columns keep the stored sentinel.
type Row struct {
	Timestamp           string  `csv:"timestamp"`
	ResponseTime        float64 `csv:"response_time"`
	Status              bool    `csv:"status"`
	MinRTT              float64 `csv:"min_rtt"`
	MaxRTT              float64 `csv:"max_rtt"`
	AvgRTT              float64 `csv:"avg_rtt"`
	Jitter              float64 `csv:"jitter"`
	PacketLoss          float64 `csv:"packet_loss"`
	ThresholdViolations string  `csv:"threshold_violations"`
}

var columns = []string{
	"timestamp", "response_time", "status", "min_rtt", "max_rtt",
	"avg_rtt", "jitter", "packet_loss", "threshold_violations",
}

// Rows converts samples, in the order given, to export rows.
func Rows(samples []domain.Sample) []Row {
	rows := make([]Row, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, Row{
			Timestamp:           s.Timestamp.UTC().Format(time.RFC3339Nano),
			ResponseTime:        s.ResponseTime,
			Status:              s.Status,
			MinRTT:              s.MinRTT,
			MaxRTT:              s.MaxRTT,
			AvgRTT:              s.AvgRTT,
			Jitter:              s.Jitter,
			PacketLoss:          s.PacketLoss,
			ThresholdViolations: strings.Join(s.ThresholdViolations, ","),
		})
	}
	return rows
}

// WriteCSV writes samples as CSV with a header line.
func WriteCSV(w io.Writer, samples []domain.Sample) error {
	return errors.Wrap(gocsv.Marshal(Rows(samples), w), "write csv")
}

const (
	historySheet = "History"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with a device summary sheet and the raw history.
func WriteXLSX(w io.Writer, device *domain.Device, samples []domain.Sample) error {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(historySheet)

	summary := [][]interface{}{
		{"IP Address", device.IPAddress},
		{"Description", device.Description},
		{"Device Type", string(device.DeviceType)},
		{"Tags", strings.Join(device.Tags, ", ")},
		{"Samples", len(samples)},
		{"Uptime", fmt.Sprintf("%.1f%%", store.Uptime(samples))},
	}
	if n := len(samples); n > 0 {
		latest := samples[n-1]
		summary = append(summary,
			[]interface{}{"Last Check", latest.Timestamp.UTC().Format(time.RFC3339)},
			[]interface{}{"Response Time", FormatResponseTime(latest.ResponseTime), FormatThreshold(device.ResponseTimeThreshold, true)},
			[]interface{}{"Packet Loss", fmt.Sprintf("%.1f%%", latest.PacketLoss), FormatThreshold(device.PacketLossThreshold, false)},
			[]interface{}{"Jitter", FormatResponseTime(latest.Jitter), FormatThreshold(device.JitterThreshold, true)},
		)
	}
	for r, row := range summary {
		for c, v := range row {
			f.SetCellValue(summarySheet, cellName(c, r+1), v)
		}
	}

	for c, name := range columns {
		f.SetCellValue(historySheet, cellName(c, 1), name)
	}
	for i, row := range Rows(samples) {
		values := []interface{}{
			row.Timestamp, row.ResponseTime, row.Status, row.MinRTT, row.MaxRTT,
			row.AvgRTT, row.Jitter, row.PacketLoss, row.ThresholdViolations,
		}
		for c, v := range values {
			f.SetCellValue(historySheet, cellName(c, i+2), v)
		}
	}

	return errors.Wrap(f.Write(w), "write xlsx")
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", excelize.ToAlphaString(col), row)
}

// FormatResponseTime renders seconds as milliseconds, or "Timeout" for
// the sentinel.
func FormatResponseTime(seconds float64) string {
	if domain.IsSentinel(seconds) {
		return "Timeout"
	}
	return fmt.Sprintf("%.1f ms", seconds*1000)
}

// FormatThreshold renders an optional threshold, "N/A" when unset.
func FormatThreshold(v *float64, seconds bool) string {
	if v == nil {
		return "N/A"
	}
	if seconds {
		return fmt.Sprintf("%.1f ms", *v*1000)
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// Filename returns the download name for a device export.
func Filename(device *domain.Device, ext string, now time.Time) string {
	return fmt.Sprintf("network_monitoring_%s_%s.%s", device.IPAddress, now.Format("20060102_150405"), ext)
}
