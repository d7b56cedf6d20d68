// Package fanout broadcasts pipeline events to connected WebSocket viewers.
package fanout

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IT22277190/AuraLink-group55/errors"
	"github.com/IT22277190/AuraLink-group55/message"
	"github.com/IT22277190/AuraLink-group55/metric"
)

// Sender delivers one serialized event to a single viewer. Implementations
// must be safe for concurrent Send calls.
type Sender interface {
	Send(data []byte) error
	Close() error
}

// Registry tracks connected viewers and fans events out to all of them.
// A viewer whose Send fails is evicted during the same broadcast; later
// events are not attempted against it.
type Registry struct {
	mu      sync.RWMutex
	viewers map[string]Sender

	broadcasts atomic.Int64
	evictions  atomic.Int64

	metrics *registryMetrics
}

type registryMetrics struct {
	viewersConnected prometheus.Gauge
	eventsBroadcast  *prometheus.CounterVec
	viewersEvicted   prometheus.Counter
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithRegistryMetrics registers fan-out metrics with the registry
func WithRegistryMetrics(registry *metric.MetricsRegistry) RegistryOption {
	return func(r *Registry) {
		if registry == nil {
			return
		}
		m := &registryMetrics{
			viewersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "auralink",
				Subsystem: "fanout",
				Name:      "viewers_connected",
				Help:      "Number of currently connected viewers",
			}),
			eventsBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "auralink",
				Subsystem: "fanout",
				Name:      "events_broadcast_total",
				Help:      "Events broadcast to viewers",
			}, []string{"event_type"}),
			viewersEvicted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "auralink",
				Subsystem: "fanout",
				Name:      "viewers_evicted_total",
				Help:      "Viewers evicted after a failed send",
			}),
		}
		registry.RegisterGauge("fanout", "viewers_connected", m.viewersConnected)
		registry.RegisterCounterVec("fanout", "events_broadcast_total", m.eventsBroadcast)
		registry.RegisterCounter("fanout", "viewers_evicted_total", m.viewersEvicted)
		r.metrics = m
	}
}

// NewRegistry creates an empty viewer registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		viewers: make(map[string]Sender),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a viewer and returns its assigned ID
func (r *Registry) Register(viewer Sender) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.viewers[id] = viewer
	count := len(r.viewers)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.viewersConnected.Set(float64(count))
	}
	return id
}

// Unregister removes a viewer by ID. Removing an unknown ID is a no-op.
// The viewer's Close is not called; the caller owns the connection.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.viewers, id)
	count := len(r.viewers)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.viewersConnected.Set(float64(count))
	}
}

// Count returns the number of connected viewers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}

// Evictions returns how many viewers have been dropped after send failures
func (r *Registry) Evictions() int64 {
	return r.evictions.Load()
}

// Broadcast serializes event once and delivers it to every connected
// viewer. With no viewers connected it returns without marshaling.
// Failed viewers are evicted and closed; their errors do not affect
// delivery to the rest.
func (r *Registry) Broadcast(event message.Event) error {
	r.mu.RLock()
	if len(r.viewers) == 0 {
		r.mu.RUnlock()
		return nil
	}
	snapshot := make(map[string]Sender, len(r.viewers))
	for id, viewer := range r.viewers {
		snapshot[id] = viewer
	}
	r.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapInvalid(err, "Registry", "Broadcast", "marshal event")
	}

	var failed []string
	for id, viewer := range snapshot {
		if err := viewer.Send(data); err != nil {
			failed = append(failed, id)
			_ = viewer.Close()
		}
	}

	for _, id := range failed {
		r.Unregister(id)
		r.evictions.Add(1)
	}

	r.broadcasts.Add(1)
	if r.metrics != nil {
		r.metrics.eventsBroadcast.WithLabelValues(event.EventType()).Inc()
		if len(failed) > 0 {
			r.metrics.viewersEvicted.Add(float64(len(failed)))
		}
	}
	return nil
}

// CloseAll disconnects every viewer, used during shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	for id, viewer := range r.viewers {
		_ = viewer.Close()
		delete(r.viewers, id)
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.viewersConnected.Set(0)
	}
}

// Stats is a point-in-time snapshot of fan-out activity
type Stats struct {
	Viewers    int       `json:"viewers"`
	Broadcasts int64     `json:"broadcasts"`
	Evictions  int64     `json:"evictions"`
	AsOf       time.Time `json:"as_of"`
}

// Stats returns current fan-out counters
func (r *Registry) Stats() Stats {
	return Stats{
		Viewers:    r.Count(),
		Broadcasts: r.broadcasts.Load(),
		Evictions:  r.evictions.Load(),
		AsOf:       time.Now(),
	}
}
