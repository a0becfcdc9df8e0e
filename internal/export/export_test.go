package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/netmon/internal/domain"
)

func testSamples() []domain.Sample {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.Sample{
		{
			DeviceID: 1, Timestamp: base, Status: true, ResponseTime: 0.0125,
			MinRTT: 0.01, MaxRTT: 0.015, AvgRTT: 0.0125, Jitter: 0.002, PacketLoss: 0,
			ThresholdViolations: domain.StringList{},
		},
		{
			DeviceID: 1, Timestamp: base.Add(time.Minute), Status: false,
			ResponseTime: domain.Sentinel, MinRTT: domain.Sentinel, MaxRTT: domain.Sentinel,
			AvgRTT: domain.Sentinel, Jitter: domain.Sentinel, PacketLoss: 100,
			ThresholdViolations: domain.StringList{"packet_loss"},
		},
	}
}

func TestFormatResponseTime(t *testing.T) {
	assert.Equal(t, "Timeout", FormatResponseTime(domain.Sentinel))
	assert.Equal(t, "12.5 ms", FormatResponseTime(0.0125))
	assert.Equal(t, "0.0 ms", FormatResponseTime(0))
}

func TestFormatThreshold(t *testing.T) {
	v := 0.1
	p := 20.0
	assert.Equal(t, "N/A", FormatThreshold(nil, true))
	assert.Equal(t, "100.0 ms", FormatThreshold(&v, true))
	assert.Equal(t, "20.0%", FormatThreshold(&p, false))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSamples()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,response_time,status,min_rtt,max_rtt,avg_rtt,jitter,packet_loss,threshold_violations", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-01T10:00:00Z,0.0125,true,"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-03-01T10:01:00Z,-1,false,"))
	assert.True(t, strings.HasSuffix(lines[2], ",100,packet_loss"))
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(columns, ",")+"\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	rt := 0.1
	device := &domain.Device{ID: 1, IPAddress: "10.0.0.1", Description: "core", ResponseTimeThreshold: &rt}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, device, testSamples()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", f.GetCellValue(summarySheet, "B1"))
	assert.Equal(t, "50.0%", f.GetCellValue(summarySheet, "B6"))
	assert.Equal(t, "Timeout", f.GetCellValue(summarySheet, "B8"))
	assert.Equal(t, "100.0 ms", f.GetCellValue(summarySheet, "C8"))
	assert.Equal(t, "timestamp", f.GetCellValue(historySheet, "A1"))
	assert.Equal(t, "threshold_violations", f.GetCellValue(historySheet, "I1"))
	assert.Equal(t, "2024-03-01T10:01:00Z", f.GetCellValue(historySheet, "A3"))
	assert.Equal(t, "packet_loss", f.GetCellValue(historySheet, "I3"))
}

func TestFilename(t *testing.T) {
	d := &domain.Device{IPAddress: "10.0.0.1"}
	now := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "network_monitoring_10.0.0.1_20240301_090507.csv", Filename(d, "csv", now))
}
