// Package message defines the AuraLink data model: sensor readings published
// by the embedded device, urgency levels produced by the enrichment backend,
// the broadcast event union mirrored to live viewers, and the MQTT topic and
// threshold constants shared with the display firmware.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/IT22277190/AuraLink-group55/errors"
)

// MQTT topics. These are fixed strings shared with the embedded firmware and
// must match exactly.
const (
	TopicSensorData     = "auralink/sensor/data"
	TopicDisplayQuote   = "auralink/display/quote"
	TopicDisplaySummary = "auralink/display/summary"
	TopicUrgencyLED     = "auralink/urgency/led"
)

// SensorReading is one parsed environmental sample. Temperature and humidity
// are required; light and NOx percentages default to 0 when the device omits
// them. Immutable once parsed.
type SensorReading struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	LightPercent int     `json:"light_percent"`
	NOxPercent   int     `json:"nox_percent"`
}

// sensorReadingSchema validates the raw device payload before unmarshaling.
// Presence and numeric type of temperature and humidity are the hard
// requirements; the percent fields are bounded integers when present.
const sensorReadingSchema = `{
	"type": "object",
	"required": ["temperature", "humidity"],
	"properties": {
		"temperature": {"type": "number"},
		"humidity": {"type": "number"},
		"light_percent": {"type": "integer", "minimum": 0, "maximum": 100},
		"nox_percent": {"type": "integer", "minimum": 0, "maximum": 100}
	}
}`

var sensorSchema = gojsonschema.NewStringLoader(sensorReadingSchema)

// ParseSensorReading validates and parses a raw sensor payload. Any
// structural problem (bad JSON, missing or non-numeric temperature/humidity,
// out-of-range percents) produces an invalid-classified error; the caller
// discards the message.
func ParseSensorReading(payload []byte) (SensorReading, error) {
	var reading SensorReading

	result, err := gojsonschema.Validate(sensorSchema, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return reading, errors.WrapInvalid(errors.ErrParsingFailed, "SensorReading", "Parse",
			fmt.Sprintf("decode payload: %v", err))
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return reading, errors.WrapInvalid(errors.ErrInvalidData, "SensorReading", "Parse",
			strings.Join(details, "; "))
	}

	if err := json.Unmarshal(payload, &reading); err != nil {
		return reading, errors.WrapInvalid(err, "SensorReading", "Parse", "unmarshal payload")
	}

	return reading, nil
}

// UrgencyLevel is the classification produced for an email.
type UrgencyLevel string

// Valid urgency levels, published verbatim to the urgency topic.
const (
	UrgencyLow    UrgencyLevel = "LOW"
	UrgencyMedium UrgencyLevel = "MEDIUM"
	UrgencyHigh   UrgencyLevel = "HIGH"
)

// String returns the wire representation of the level
func (u UrgencyLevel) String() string {
	return string(u)
}

// IsValid reports whether the level is one of LOW, MEDIUM, HIGH
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// ParseUrgencyLevel normalizes free text from the enrichment backend into an
// UrgencyLevel. Matching is case-insensitive after trimming; anything outside
// the set maps to LOW.
func ParseUrgencyLevel(s string) UrgencyLevel {
	switch UrgencyLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyMedium:
		return UrgencyMedium
	case UrgencyHigh:
		return UrgencyHigh
	default:
		return UrgencyLow
	}
}
