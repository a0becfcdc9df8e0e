package domain

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestIsValidIP(t *testing.T) {
	tests := []struct {
		ip    string
		valid bool
	}{
		{"192.168.1.1", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"10.0.0.254", true},
		{"010.0.0.1", true},
		{"192.168.001.010", true},
		{"256.1.1.1", false},
		{"1.1.1.300", false},
		{"10.0.0", false},
		{"10.0.0.1.2", false},
		{"", false},
		{"a.b.c.d", false},
		{"1234.1.1.1", false},
		{" 10.0.0.1", false},
		{"10.0.0.1 ", false},
		{"::1", false},
		{"-1.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidIP(tt.ip))
			err := ValidateIP(tt.ip)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidation(err))
			}
		})
	}
}

func TestIsValidIPAllOctets(t *testing.T) {
	for i := 0; i <= 255; i++ {
		ip := "10.20." + strconv.Itoa(i) + "." + strconv.Itoa(255-i)
		require.True(t, IsValidIP(ip), ip)
	}
}

func TestParseIPv4(t *testing.T) {
	ip := ParseIPv4("010.000.0.001")
	require.NotNil(t, ip)
	assert.Equal(t, "10.0.0.1", ip.String())
	assert.Len(t, ip, 4)

	assert.Equal(t, "192.168.1.1", ParseIPv4("192.168.1.1").String())
	assert.Nil(t, ParseIPv4("256.0.0.1"))
	assert.Nil(t, ParseIPv4("::1"))
}

func TestValidateThresholds(t *testing.T) {
	require.NoError(t, ValidateThresholds(nil, nil, nil))
	require.NoError(t, ValidateThresholds(ptr(0.1), ptr(50), ptr(0.02)))
	require.NoError(t, ValidateThresholds(nil, ptr(100), nil))

	assert.True(t, IsValidation(ValidateThresholds(ptr(0), nil, nil)))
	assert.True(t, IsValidation(ValidateThresholds(ptr(-0.5), nil, nil)))
	assert.True(t, IsValidation(ValidateThresholds(nil, ptr(101), nil)))
	assert.True(t, IsValidation(ValidateThresholds(nil, nil, ptr(-1))))
}

func TestDeviceValidate(t *testing.T) {
	d := Device{IPAddress: "10.1.1.1", DeviceType: DeviceTypeRouter, Tags: StringList{"core"}}
	require.NoError(t, d.Validate())

	d.DeviceType = "toaster"
	assert.True(t, IsValidation(d.Validate()))

	d.DeviceType = ""
	d.Tags = StringList{""}
	assert.True(t, IsValidation(d.Validate()))

	d.Tags = nil
	d.IPAddress = "10.1.1"
	assert.True(t, IsValidation(d.Validate()))
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, StringList{"core", "lab", "rack 4"}, ParseTags(" core, lab,,rack 4 ,"))
	assert.Equal(t, StringList{}, ParseTags(""))
}

func TestStringListRoundTrip(t *testing.T) {
	v, err := StringList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)

	var l StringList
	require.NoError(t, l.Scan([]byte(`["x"]`)))
	assert.Equal(t, StringList{"x"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, StringList{}, l)

	nilValue, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", nilValue)

	assert.Error(t, l.Scan(42))
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(Sentinel))
	assert.False(t, IsSentinel(0))
	assert.False(t, IsSentinel(0.015))
}
