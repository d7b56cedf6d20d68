package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IT22277190/AuraLink-group55/errors"
)

func TestParseSensorReading_Valid(t *testing.T) {
	reading, err := ParseSensorReading([]byte(`{"temperature":25.5,"humidity":60.0}`))
	require.NoError(t, err)
	assert.Equal(t, 25.5, reading.Temperature)
	assert.Equal(t, 60.0, reading.Humidity)
	assert.Equal(t, 0, reading.LightPercent)
	assert.Equal(t, 0, reading.NOxPercent)
}

func TestParseSensorReading_AllFields(t *testing.T) {
	reading, err := ParseSensorReading([]byte(`{"temperature":-4.2,"humidity":88,"light_percent":55,"nox_percent":12}`))
	require.NoError(t, err)
	assert.Equal(t, -4.2, reading.Temperature)
	assert.Equal(t, 88.0, reading.Humidity)
	assert.Equal(t, 55, reading.LightPercent)
	assert.Equal(t, 12, reading.NOxPercent)
}

// Readings sitting exactly on threshold boundaries are valid; bands are a
// display concern, not a parsing concern.
func TestParseSensorReading_ThresholdBoundaries(t *testing.T) {
	reading, err := ParseSensorReading([]byte(`{"temperature":20,"humidity":70,"light_percent":10,"nox_percent":65}`))
	require.NoError(t, err)
	assert.Equal(t, 20.0, reading.Temperature)
	assert.Equal(t, 70.0, reading.Humidity)
	assert.Equal(t, 10, reading.LightPercent)
	assert.Equal(t, 65, reading.NOxPercent)
}

func TestParseSensorReading_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `hello sensors`},
		{"missing temperature", `{"humidity":60}`},
		{"missing humidity", `{"temperature":22}`},
		{"non-numeric temperature", `{"temperature":"warm","humidity":60}`},
		{"non-numeric humidity", `{"temperature":22,"humidity":null}`},
		{"light out of range", `{"temperature":22,"humidity":60,"light_percent":150}`},
		{"fractional light", `{"temperature":22,"humidity":60,"light_percent":10.5}`},
		{"empty object", `{}`},
		{"array payload", `[1,2,3]`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseSensorReading([]byte(test.payload))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "parse errors must classify invalid: %v", err)
		})
	}
}

func TestParseUrgencyLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected UrgencyLevel
	}{
		{"LOW", UrgencyLow},
		{"MEDIUM", UrgencyMedium},
		{"HIGH", UrgencyHigh},
		{"high", UrgencyHigh},
		{" Medium ", UrgencyMedium},
		{"low.", UrgencyLow},
		{"urgent!", UrgencyLow},
		{"", UrgencyLow},
		{"very high", UrgencyLow},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			assert.Equal(t, test.expected, ParseUrgencyLevel(test.input))
		})
	}
}

func TestUrgencyLevel_IsValid(t *testing.T) {
	assert.True(t, UrgencyLow.IsValid())
	assert.True(t, UrgencyMedium.IsValid())
	assert.True(t, UrgencyHigh.IsValid())
	assert.False(t, UrgencyLevel("SEVERE").IsValid())
	assert.False(t, UrgencyLevel("").IsValid())
}

func TestSensorDataEvent_Wire(t *testing.T) {
	ev := NewSensorDataEvent(SensorReading{Temperature: 25.5, Humidity: 60, LightPercent: 40, NOxPercent: 5})

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sensor_data", decoded["type"])
	assert.Equal(t, 25.5, decoded["temperature"])
	assert.Equal(t, 60.0, decoded["humidity"])
	assert.Equal(t, 40.0, decoded["light_percent"])
	assert.Equal(t, 5.0, decoded["nox_percent"])
}

// A display_message event carries exactly one of quote or summary; the empty
// counterpart field is still present on the wire for the viewer UI.
func TestDisplayMessageEvent_Wire(t *testing.T) {
	quote := NewQuoteEvent("The air hung heavy with summer.")
	data, err := json.Marshal(quote)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"display_message","quote":"The air hung heavy with summer.","summary":""}`, string(data))

	summary := NewSummaryEvent("Deadline moved to Friday.")
	data, err = json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"display_message","quote":"","summary":"Deadline moved to Friday."}`, string(data))
}

func TestUrgencyEvent_Wire(t *testing.T) {
	data, err := json.Marshal(NewUrgencyEvent(UrgencyHigh))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"urgency","level":"HIGH"}`, string(data))
}

func TestAirQualityLevel(t *testing.T) {
	assert.Equal(t, UrgencyLow, AirQualityLevel(0))
	assert.Equal(t, UrgencyLow, AirQualityLevel(29))
	assert.Equal(t, UrgencyMedium, AirQualityLevel(30))
	assert.Equal(t, UrgencyMedium, AirQualityLevel(59))
	assert.Equal(t, UrgencyHigh, AirQualityLevel(60))
	assert.Equal(t, UrgencyHigh, AirQualityLevel(100))
}
