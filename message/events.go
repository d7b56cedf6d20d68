package message

// Broadcast event type discriminators, mirrored as the "type" field of every
// JSON event sent to a live viewer.
const (
	EventTypeSensorData     = "sensor_data"
	EventTypeDisplayMessage = "display_message"
	EventTypeUrgency        = "urgency"
)

// Event is one member of the broadcast event union. Implementations marshal
// to the viewer wire format; the fan-out registry marshals an event at most
// once per broadcast.
type Event interface {
	EventType() string
}

// SensorDataEvent mirrors a parsed sensor reading to viewers. It is
// broadcast immediately on ingestion, before any enrichment completes.
type SensorDataEvent struct {
	Type         string  `json:"type"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	LightPercent int     `json:"light_percent"`
	NOxPercent   int     `json:"nox_percent"`
}

// NewSensorDataEvent builds a sensor_data event from a reading
func NewSensorDataEvent(r SensorReading) SensorDataEvent {
	return SensorDataEvent{
		Type:         EventTypeSensorData,
		Temperature:  r.Temperature,
		Humidity:     r.Humidity,
		LightPercent: r.LightPercent,
		NOxPercent:   r.NOxPercent,
	}
}

// EventType implements Event
func (e SensorDataEvent) EventType() string { return EventTypeSensorData }

// DisplayMessageEvent carries either a quote or a summary to viewers.
// Exactly one of the two fields is non-empty per event because the quote and
// summary branches publish independently as each resolves.
type DisplayMessageEvent struct {
	Type    string `json:"type"`
	Quote   string `json:"quote"`
	Summary string `json:"summary"`
}

// NewQuoteEvent builds a display_message event carrying a quote
func NewQuoteEvent(quote string) DisplayMessageEvent {
	return DisplayMessageEvent{Type: EventTypeDisplayMessage, Quote: quote}
}

// NewSummaryEvent builds a display_message event carrying a summary
func NewSummaryEvent(summary string) DisplayMessageEvent {
	return DisplayMessageEvent{Type: EventTypeDisplayMessage, Summary: summary}
}

// EventType implements Event
func (e DisplayMessageEvent) EventType() string { return EventTypeDisplayMessage }

// UrgencyEvent carries the urgency classification to viewers.
type UrgencyEvent struct {
	Type  string       `json:"type"`
	Level UrgencyLevel `json:"level"`
}

// NewUrgencyEvent builds an urgency event
func NewUrgencyEvent(level UrgencyLevel) UrgencyEvent {
	return UrgencyEvent{Type: EventTypeUrgency, Level: level}
}

// EventType implements Event
func (e UrgencyEvent) EventType() string { return EventTypeUrgency }
