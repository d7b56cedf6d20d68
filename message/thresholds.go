package message

// Environmental classification bands consumed by the display/LED firmware.
// The pipeline itself never rejects a reading for sitting on or across a
// band boundary; these exist so collaborators agree on the numbers.
const (
	TemperatureHigh = 30.0
	TemperatureLow  = 20.0
	HumidityHigh    = 70.0
	HumidityLow     = 30.0
	NOxHigh         = 60
	NOxMedium       = 30
	LightLow        = 30
)

// AirQualityLevel maps a NOx percentage onto the urgency bands used by the
// LED collaborator: HIGH at or above NOxHigh, MEDIUM at or above NOxMedium.
func AirQualityLevel(noxPercent int) UrgencyLevel {
	switch {
	case noxPercent >= NOxHigh:
		return UrgencyHigh
	case noxPercent >= NOxMedium:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
