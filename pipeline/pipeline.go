// Package pipeline implements the sensor enrichment pipeline: sensor
// readings arrive over MQTT, fan out to viewers immediately, and feed
// two independent enrichment branches whose results are published back
// to the display and LED topics.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IT22277190/AuraLink-group55/component"
	"github.com/IT22277190/AuraLink-group55/errors"
	"github.com/IT22277190/AuraLink-group55/message"
	"github.com/IT22277190/AuraLink-group55/metric"
	"github.com/IT22277190/AuraLink-group55/mqttclient"
	"github.com/IT22277190/AuraLink-group55/pkg/worker"
)

// Publisher sends a payload to a broker topic
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber registers a handler for a broker topic
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
}

// Enricher produces the three enrichment results for a reading and its
// paired email
type Enricher interface {
	Quote(ctx context.Context, temperature, humidity float64) (string, error)
	Summarize(ctx context.Context, email string) (string, error)
	ClassifyUrgency(ctx context.Context, email string) (message.UrgencyLevel, error)
}

// Broadcaster fans an event out to connected viewers
type Broadcaster interface {
	Broadcast(event message.Event) error
}

// EmailSource supplies the next inbox email, already rendered
type EmailSource interface {
	Next() string
}

// Config assembles the pipeline's collaborators and sizing
type Config struct {
	Publisher   Publisher
	Subscriber  Subscriber
	Enricher    Enricher
	Broadcaster Broadcaster
	Emails      EmailSource
	Workers     int
	QueueSize   int
	Logger      *slog.Logger
	Metrics     *metric.MetricsRegistry
}

type pipelineMetrics struct {
	received    prometheus.Counter
	malformed   prometheus.Counter
	published   *prometheus.CounterVec
	enrichFails *prometheus.CounterVec
	duration    prometheus.Histogram
}

// Pipeline consumes sensor readings and drives both enrichment branches
// to completion for each one. Branch failures are isolated: a dead
// enrichment backend never prevents the raw reading from reaching
// viewers, and each branch publishes as soon as its own result is ready.
type Pipeline struct {
	publisher   Publisher
	subscriber  Subscriber
	enricher    Enricher
	broadcaster Broadcaster
	emails      EmailSource
	logger      *slog.Logger

	pool    *worker.Pool[[]byte]
	metrics *pipelineMetrics

	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	running     bool
	startTime   time.Time
	cancel      context.CancelFunc

	processed    atomic.Int64
	malformed    atomic.Int64
	lastActivity atomic.Value // stores time.Time
}

// New creates a pipeline from cfg. The worker pool is created here but
// not started until Start.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Publisher == nil || cfg.Enricher == nil || cfg.Broadcaster == nil || cfg.Emails == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Pipeline", "New",
			"publisher, enricher, broadcaster and email source are all required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		publisher:   cfg.Publisher,
		subscriber:  cfg.Subscriber,
		enricher:    cfg.Enricher,
		broadcaster: cfg.Broadcaster,
		emails:      cfg.Emails,
		logger:      logger,
	}
	p.lastActivity.Store(time.Time{})

	poolOpts := []worker.Option[[]byte]{worker.WithLogger[[]byte](logger)}
	if cfg.Metrics != nil {
		p.initMetrics(cfg.Metrics)
		poolOpts = append(poolOpts, worker.WithMetrics[[]byte](cfg.Metrics, "pipeline", "pipeline_work"))
	}
	p.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, p.Process, poolOpts...)

	return p, nil
}

func (p *Pipeline) initMetrics(registry *metric.MetricsRegistry) {
	m := &pipelineMetrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auralink",
			Subsystem: "pipeline",
			Name:      "readings_received_total",
			Help:      "Sensor readings received from the broker",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auralink",
			Subsystem: "pipeline",
			Name:      "readings_malformed_total",
			Help:      "Sensor payloads rejected during validation",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auralink",
			Subsystem: "pipeline",
			Name:      "published_total",
			Help:      "Messages published back to the broker",
		}, []string{"topic"}),
		enrichFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auralink",
			Subsystem: "pipeline",
			Name:      "enrichment_failures_total",
			Help:      "Enrichment calls that failed outright",
		}, []string{"intent"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auralink",
			Subsystem: "pipeline",
			Name:      "processing_duration_seconds",
			Help:      "End-to-end processing time per reading",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	registry.RegisterCounter("pipeline", "readings_received_total", m.received)
	registry.RegisterCounter("pipeline", "readings_malformed_total", m.malformed)
	registry.RegisterCounterVec("pipeline", "published_total", m.published)
	registry.RegisterCounterVec("pipeline", "enrichment_failures_total", m.enrichFails)
	registry.RegisterHistogram("pipeline", "processing_duration_seconds", m.duration)
	p.metrics = m
}

// Meta returns the component metadata
func (p *Pipeline) Meta() component.Metadata {
	return component.Metadata{
		Name:        "enrichment-pipeline",
		Type:        "pipeline",
		Description: fmt.Sprintf("Enriches readings from %s with quotes, summaries and urgency", message.TopicSensorData),
		Version:     "1.0.0",
	}
}

// Health returns the current health status
func (p *Pipeline) Health() component.HealthStatus {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(p.malformed.Load()),
		Uptime:     time.Since(p.startTime),
	}
}

// DataFlow returns current data flow metrics
func (p *Pipeline) DataFlow() component.FlowMetrics {
	processed := p.processed.Load()

	var perSecond, errorRate float64
	if uptime := time.Since(p.startTime).Seconds(); uptime > 0 {
		perSecond = float64(processed) / uptime
	}
	if processed > 0 {
		errorRate = float64(p.malformed.Load()) / float64(processed)
	}

	lastActivity, _ := p.lastActivity.Load().(time.Time)
	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Initialize validates the pipeline wiring
func (p *Pipeline) Initialize() error {
	if p.subscriber == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Pipeline", "Initialize", "subscriber required")
	}
	return nil
}

// Start launches the worker pool and subscribes to the sensor topic
func (p *Pipeline) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.Wrap(errors.ErrAlreadyStarted, "Pipeline", "Start", "start")
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	if err := p.pool.Start(poolCtx); err != nil {
		cancel()
		return errors.Wrap(err, "Pipeline", "Start", "start worker pool")
	}

	if err := p.subscriber.Subscribe(message.TopicSensorData, 0, p.Handle); err != nil {
		cancel()
		return errors.Wrap(err, "Pipeline", "Start",
			fmt.Sprintf("subscribe to %s", message.TopicSensorData))
	}

	p.mu.Lock()
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.logger.Info("pipeline started", "topic", message.TopicSensorData)
	return nil
}

// Stop drains the worker pool and stops accepting new readings
func (p *Pipeline) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	err := p.pool.Stop(timeout)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	if err != nil {
		return errors.Wrap(err, "Pipeline", "Stop", "drain worker pool")
	}
	p.logger.Info("pipeline stopped")
	return nil
}

// Handle is the broker message handler. It admits the payload into the
// worker pool without blocking; when the queue is full the reading is
// dropped and counted, never stalling the broker callback.
func (p *Pipeline) Handle(topic string, payload []byte) {
	if p.metrics != nil {
		p.metrics.received.Inc()
	}
	p.lastActivity.Store(time.Now())

	if err := p.pool.Submit(payload); err != nil {
		p.logger.Warn("reading dropped", "topic", topic, "error", err)
	}
}

// Stats exposes worker pool counters for diagnostics
func (p *Pipeline) Stats() worker.Stats {
	return p.pool.Stats()
}
