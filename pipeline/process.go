package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IT22277190/AuraLink-group55/errors"
	"github.com/IT22277190/AuraLink-group55/message"
)

// Process handles one sensor payload end to end. It returns an error only
// when the payload fails validation; enrichment branch failures are logged
// and absorbed so that one dead branch never poisons the other.
func (p *Pipeline) Process(ctx context.Context, payload []byte) error {
	start := time.Now()

	reading, err := message.ParseSensorReading(payload)
	if err != nil {
		p.malformed.Add(1)
		if p.metrics != nil {
			p.metrics.malformed.Inc()
		}
		p.logger.Warn("malformed sensor payload", "error", err, "payload_bytes", len(payload))
		return errors.Wrap(err, "Pipeline", "Process", "parse sensor payload")
	}

	// Viewers see the raw reading before any enrichment starts.
	p.broadcast(message.NewSensorDataEvent(reading))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.runQuoteBranch(gctx, reading)
		return nil
	})

	g.Go(func() error {
		email := p.emails.Next()

		eg, ectx := errgroup.WithContext(gctx)
		eg.Go(func() error {
			p.runSummaryBranch(ectx, email)
			return nil
		})
		eg.Go(func() error {
			p.runUrgencyBranch(ectx, email)
			return nil
		})
		return eg.Wait()
	})

	_ = g.Wait()

	p.processed.Add(1)
	if p.metrics != nil {
		p.metrics.duration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// runQuoteBranch generates the ambience quote for a reading and delivers
// it to the display topic and to viewers
func (p *Pipeline) runQuoteBranch(ctx context.Context, reading message.SensorReading) {
	quote, err := p.enricher.Quote(ctx, reading.Temperature, reading.Humidity)
	if err != nil {
		p.recordEnrichFailure("quote", err)
		return
	}

	p.publish(message.TopicDisplayQuote, []byte(quote))
	p.broadcast(message.NewQuoteEvent(quote))
}

// runSummaryBranch condenses the email for the LCD and delivers it
func (p *Pipeline) runSummaryBranch(ctx context.Context, email string) {
	summary, err := p.enricher.Summarize(ctx, email)
	if err != nil {
		p.recordEnrichFailure("summary", err)
		return
	}

	p.publish(message.TopicDisplaySummary, []byte(summary))
	p.broadcast(message.NewSummaryEvent(summary))
}

// runUrgencyBranch classifies the email and drives the LED topic. A
// classification that comes back as free text has already been
// normalized to LOW by the enricher and is still published; only an
// outright call failure skips the publish.
func (p *Pipeline) runUrgencyBranch(ctx context.Context, email string) {
	level, err := p.enricher.ClassifyUrgency(ctx, email)
	if err != nil {
		p.recordEnrichFailure("urgency", err)
		return
	}

	p.publish(message.TopicUrgencyLED, []byte(level))
	p.broadcast(message.NewUrgencyEvent(level))
}

func (p *Pipeline) publish(topic string, payload []byte) {
	if err := p.publisher.Publish(topic, payload); err != nil {
		p.logger.Error("publish failed", "topic", topic, "error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.published.WithLabelValues(topic).Inc()
	}
}

func (p *Pipeline) broadcast(event message.Event) {
	if err := p.broadcaster.Broadcast(event); err != nil {
		p.logger.Error("broadcast failed", "event_type", event.EventType(), "error", err)
	}
}

func (p *Pipeline) recordEnrichFailure(intent string, err error) {
	if p.metrics != nil {
		p.metrics.enrichFails.WithLabelValues(intent).Inc()
	}
	p.logger.Error("enrichment failed", "intent", intent, "error", err)
}
