package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

const tracerName = "github.com/neomorfeo/adoptiq/internal/adapter/otel"

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TracingCampaigns wraps a domain.CampaignRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingCampaigns struct {
	next   domain.CampaignRepository
	tracer trace.Tracer
}

// Compile-time check: TracingCampaigns implements domain.CampaignRepository.
var _ domain.CampaignRepository = (*TracingCampaigns)(nil)

// NewTracingCampaigns creates a tracing decorator around the given repository.
func NewTracingCampaigns(next domain.CampaignRepository) *TracingCampaigns {
	return &TracingCampaigns{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingCampaigns) Create(ctx context.Context, c domain.Campaign) error {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.Create",
		trace.WithAttributes(
			attribute.String("campaign.id", c.ID),
			attribute.String("campaign.type", string(c.Type)),
			attribute.String("language.id", c.LanguageID),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, c)
	recordError(span, err)
	return err
}

func (r *TracingCampaigns) GetByID(ctx context.Context, id string) (domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.GetByID",
		trace.WithAttributes(attribute.String("campaign.id", id)),
	)
	defer span.End()

	c, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return c, err
}

func (r *TracingCampaigns) GetBySubscription(ctx context.Context, subscriptionID string) (domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.GetBySubscription",
		trace.WithAttributes(attribute.String("subscription.id", subscriptionID)),
	)
	defer span.End()

	c, err := r.next.GetBySubscription(ctx, subscriptionID)
	recordError(span, err)
	return c, err
}

func (r *TracingCampaigns) List(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.PartnerID != "" {
		span.SetAttributes(attribute.String("filter.partner_id", filter.PartnerID))
	}

	campaigns, err := r.next.List(ctx, filter)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(campaigns)))
	}
	return campaigns, err
}

func (r *TracingCampaigns) ListDueAdoptions(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.ListDueAdoptions")
	defer span.End()

	campaigns, err := r.next.ListDueAdoptions(ctx, now)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(campaigns)))
	}
	return campaigns, err
}

func (r *TracingCampaigns) ListExpiring(ctx context.Context, from, to time.Time) ([]domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.ListExpiring",
		trace.WithAttributes(attribute.String("window.to", to.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	campaigns, err := r.next.ListExpiring(ctx, from, to)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(campaigns)))
	}
	return campaigns, err
}

func (r *TracingCampaigns) UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.UpdateStatus",
		trace.WithAttributes(
			attribute.String("campaign.id", id),
			attribute.String("campaign.status.from", string(from)),
			attribute.String("campaign.status.to", string(to)),
		),
	)
	defer span.End()

	c, err := r.next.UpdateStatus(ctx, id, from, to, at)
	recordError(span, err)
	return c, err
}

func (r *TracingCampaigns) SetNextBillingDate(ctx context.Context, id string, next time.Time) error {
	ctx, span := r.tracer.Start(ctx, "CampaignRepository.SetNextBillingDate",
		trace.WithAttributes(attribute.String("campaign.id", id)),
	)
	defer span.End()

	err := r.next.SetNextBillingDate(ctx, id, next)
	recordError(span, err)
	return err
}

// TracingRegistry wraps a domain.AdoptionRegistry with OpenTelemetry tracing.
type TracingRegistry struct {
	next   domain.AdoptionRegistry
	tracer trace.Tracer
}

// Compile-time check: TracingRegistry implements domain.AdoptionRegistry.
var _ domain.AdoptionRegistry = (*TracingRegistry)(nil)

// NewTracingRegistry creates a tracing decorator around the given registry.
func NewTracingRegistry(next domain.AdoptionRegistry) *TracingRegistry {
	return &TracingRegistry{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRegistry) TryAdopt(ctx context.Context, languageID string) error {
	ctx, span := r.tracer.Start(ctx, "AdoptionRegistry.TryAdopt",
		trace.WithAttributes(attribute.String("language.id", languageID)),
	)
	defer span.End()

	err := r.next.TryAdopt(ctx, languageID)
	recordError(span, err)
	return err
}

func (r *TracingRegistry) ClaimAndCreate(ctx context.Context, c domain.Campaign) error {
	ctx, span := r.tracer.Start(ctx, "AdoptionRegistry.ClaimAndCreate",
		trace.WithAttributes(
			attribute.String("campaign.id", c.ID),
			attribute.String("language.id", c.LanguageID),
		),
	)
	defer span.End()

	err := r.next.ClaimAndCreate(ctx, c)
	recordError(span, err)
	return err
}

func (r *TracingRegistry) ClaimAndResume(ctx context.Context, campaignID string, at time.Time) (domain.Campaign, error) {
	ctx, span := r.tracer.Start(ctx, "AdoptionRegistry.ClaimAndResume",
		trace.WithAttributes(attribute.String("campaign.id", campaignID)),
	)
	defer span.End()

	c, err := r.next.ClaimAndResume(ctx, campaignID, at)
	recordError(span, err)
	return c, err
}

func (r *TracingRegistry) Release(ctx context.Context, languageID string) (domain.ReleaseOutcome, error) {
	ctx, span := r.tracer.Start(ctx, "AdoptionRegistry.Release",
		trace.WithAttributes(attribute.String("language.id", languageID)),
	)
	defer span.End()

	outcome, err := r.next.Release(ctx, languageID)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("release.outcome", string(outcome)))
	}
	return outcome, err
}

func (r *TracingRegistry) EndAndRelease(ctx context.Context, campaignID string, from, to domain.CampaignStatus, at time.Time) (domain.Campaign, domain.ReleaseOutcome, error) {
	ctx, span := r.tracer.Start(ctx, "AdoptionRegistry.EndAndRelease",
		trace.WithAttributes(
			attribute.String("campaign.id", campaignID),
			attribute.String("campaign.status.from", string(from)),
			attribute.String("campaign.status.to", string(to)),
		),
	)
	defer span.End()

	c, outcome, err := r.next.EndAndRelease(ctx, campaignID, from, to, at)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(
			attribute.String("language.id", c.LanguageID),
			attribute.String("release.outcome", string(outcome)),
		)
	}
	return c, outcome, err
}
