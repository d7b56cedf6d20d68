// Package worker provides a generic bounded worker pool. Submission is
// non-blocking: when the queue is full the work item is dropped and
// counted, so a slow downstream never stalls the submitter.
package worker

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IT22277190/AuraLink-group55/errors"
	"github.com/IT22277190/AuraLink-group55/metric"
)

// Pool fans work items of type T out to a fixed set of workers over a
// bounded queue
type Pool[T any] struct {
	workers int
	queue   chan T
	process func(context.Context, T) error
	logger  *slog.Logger

	// lifecycleMu fences Submit's send against Stop's close of the queue.
	// Submitters take the read side so they never serialize behind each
	// other; only Stop takes the write side.
	lifecycleMu sync.RWMutex

	wg      sync.WaitGroup
	started atomic.Bool
	stopped atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	metrics *poolMetrics
}

type poolMetrics struct {
	queueDepth prometheus.Gauge
	submitted  prometheus.Counter
	dropped    prometheus.Counter
	duration   *prometheus.HistogramVec
}

// ErrStopTimeout is returned when workers do not exit within the Stop timeout
var ErrStopTimeout = stderrors.New("timeout waiting for workers to exit")

// Option configures a Pool
type Option[T any] func(*Pool[T])

// WithLogger sets the pool's logger
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics registers pool metrics under service/prefix with the registry
func WithMetrics[T any](registry *metric.MetricsRegistry, service, prefix string) Option[T] {
	return func(p *Pool[T]) {
		if registry == nil {
			return
		}
		m := &poolMetrics{
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: prefix + "_queue_depth",
				Help: "Work items waiting in the pool queue",
			}),
			submitted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: prefix + "_submitted_total",
				Help: "Work items accepted into the queue",
			}),
			dropped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: prefix + "_dropped_total",
				Help: "Work items dropped because the queue was full",
			}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    prefix + "_duration_seconds",
				Help:    "Time spent processing a work item",
				Buckets: prometheus.DefBuckets,
			}, []string{"status"}),
		}
		registry.RegisterGauge(service, prefix+"_queue_depth", m.queueDepth)
		registry.RegisterCounter(service, prefix+"_submitted_total", m.submitted)
		registry.RegisterCounter(service, prefix+"_dropped_total", m.dropped)
		registry.RegisterHistogramVec(service, prefix+"_duration_seconds", m.duration)
		p.metrics = m
	}
}

// NewPool creates a pool of workers draining a queue of queueSize items.
// process is invoked once per item; its error is counted, not propagated.
func NewPool[T any](workers, queueSize int, process func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if process == nil {
		panic("worker: nil process function")
	}

	p := &Pool[T]{
		workers: workers,
		queue:   make(chan T, queueSize),
		process: process,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. The context bounds all processing: when it
// is cancelled workers finish their current item and exit.
func (p *Pool[T]) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrAlreadyStarted, "Pool", "Start", "start workers")
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	return nil
}

// Submit offers work to the pool without blocking. A full queue drops the
// item and returns ErrQueueFull.
func (p *Pool[T]) Submit(work T) error {
	if !p.started.Load() {
		return errors.Wrap(errors.ErrNotStarted, "Pool", "Submit", "submit")
	}

	p.lifecycleMu.RLock()
	defer p.lifecycleMu.RUnlock()

	if p.stopped.Load() {
		return errors.Wrap(errors.ErrShuttingDown, "Pool", "Submit", "submit")
	}

	select {
	case p.queue <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.queue)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return errors.WrapTransient(errors.ErrQueueFull, "Pool", "Submit", "enqueue")
	}
}

// Stop closes the queue, lets workers drain what is already enqueued, and
// waits up to timeout for them to exit
func (p *Pool[T]) Stop(timeout time.Duration) error {
	if !p.started.Load() {
		return nil
	}

	p.lifecycleMu.Lock()
	if !p.stopped.CompareAndSwap(false, true) {
		p.lifecycleMu.Unlock()
		return nil
	}
	close(p.queue)
	p.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(ErrStopTimeout, "Pool", "Stop", "wait for workers")
	}
}

// Stats is a point-in-time snapshot of pool counters
type Stats struct {
	Workers    int   `json:"workers"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

// Stats returns current pool counters
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Workers:    p.workers,
		QueueDepth: len(p.queue),
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

func (p *Pool[T]) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.queue:
			if !ok {
				return
			}

			start := time.Now()
			err := p.process(ctx, work)
			elapsed := time.Since(start)

			p.completed.Add(1)
			status := "success"
			if err != nil {
				p.failed.Add(1)
				status = "error"
				p.logger.Debug("work item failed", "error", err)
			}
			if p.metrics != nil {
				p.metrics.duration.WithLabelValues(status).Observe(elapsed.Seconds())
				p.metrics.queueDepth.Set(float64(len(p.queue)))
			}
		}
	}
}
