package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// TracingProcessor wraps a domain.PaymentProcessor with OpenTelemetry
// tracing. Spans are client spans since every call leaves the process.
type TracingProcessor struct {
	next   domain.PaymentProcessor
	tracer trace.Tracer
}

// Compile-time check: TracingProcessor implements domain.PaymentProcessor.
var _ domain.PaymentProcessor = (*TracingProcessor)(nil)

// NewTracingProcessor creates a tracing decorator around the given processor.
func NewTracingProcessor(next domain.PaymentProcessor) *TracingProcessor {
	return &TracingProcessor{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingProcessor) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "PaymentProcessor."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func (p *TracingProcessor) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	ctx, span := p.start(ctx, "CreateCustomer")
	defer span.End()

	id, err := p.next.CreateCustomer(ctx, email, name)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("customer.id", id))
	}
	return id, err
}

func (p *TracingProcessor) CreatePrice(ctx context.Context, params domain.PriceParams) (string, error) {
	ctx, span := p.start(ctx, "CreatePrice",
		attribute.Int64("price.amount", params.Amount),
		attribute.String("price.currency", params.Currency),
		attribute.String("price.interval", params.Interval),
	)
	defer span.End()

	id, err := p.next.CreatePrice(ctx, params)
	recordError(span, err)
	return id, err
}

func (p *TracingProcessor) CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (domain.Subscription, error) {
	ctx, span := p.start(ctx, "CreateSubscription",
		attribute.String("customer.id", customerID),
		attribute.String("price.id", priceID),
	)
	defer span.End()

	sub, err := p.next.CreateSubscription(ctx, customerID, priceID, metadata)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("subscription.id", sub.ID))
	}
	return sub, err
}

func (p *TracingProcessor) CancelSubscription(ctx context.Context, id string) error {
	ctx, span := p.start(ctx, "CancelSubscription", attribute.String("subscription.id", id))
	defer span.End()

	err := p.next.CancelSubscription(ctx, id)
	recordError(span, err)
	return err
}

func (p *TracingProcessor) CancelSubscriptions(ctx context.Context, ids []string) map[string]error {
	ctx, span := p.start(ctx, "CancelSubscriptions", attribute.Int("subscription.count", len(ids)))
	defer span.End()

	failures := p.next.CancelSubscriptions(ctx, ids)
	span.SetAttributes(attribute.Int("result.failures", len(failures)))
	return failures
}

func (p *TracingProcessor) CreatePaymentIntent(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	ctx, span := p.start(ctx, "CreatePaymentIntent",
		attribute.Int64("intent.amount", params.Amount),
		attribute.String("intent.currency", params.Currency),
	)
	defer span.End()

	intent, err := p.next.CreatePaymentIntent(ctx, params)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("intent.id", intent.ID))
	}
	return intent, err
}

func (p *TracingProcessor) GetPaymentIntent(ctx context.Context, id string) (domain.PaymentIntent, error) {
	ctx, span := p.start(ctx, "GetPaymentIntent", attribute.String("intent.id", id))
	defer span.End()

	intent, err := p.next.GetPaymentIntent(ctx, id)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("intent.status", intent.Status))
	}
	return intent, err
}
