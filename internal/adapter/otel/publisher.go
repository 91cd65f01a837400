package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with a span per event and
// a counter of enqueued events by kind and outcome.
type TracingPublisher struct {
	next      domain.EventPublisher
	tracer    trace.Tracer
	published metric.Int64Counter
}

var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	// On error the API still hands back a usable no-op instrument.
	published, _ := otel.Meter(tracerName).Int64Counter("adoptiq.events.published",
		metric.WithDescription("Lifecycle events handed to the job queue"),
	)
	return &TracingPublisher{
		next:      next,
		tracer:    otel.Tracer(tracerName),
		published: published,
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	attrs := []attribute.KeyValue{
		attribute.String("event.type", string(event.Kind)),
		attribute.String("campaign.id", event.CampaignID),
		attribute.String("partner.id", event.PartnerID),
	}
	if event.LanguageID != "" {
		attrs = append(attrs, attribute.String("language.id", event.LanguageID))
	}

	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish", trace.WithAttributes(attrs...))
	defer span.End()

	if event.Reason != "" {
		span.AddEvent("reason", trace.WithAttributes(attribute.String("event.reason", event.Reason)))
	}

	err := p.next.Publish(ctx, event)
	recordError(span, err)

	p.published.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", string(event.Kind)),
		attribute.Bool("error", err != nil),
	))
	return err
}
