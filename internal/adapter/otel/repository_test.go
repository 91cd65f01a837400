package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/adoptiq/internal/adapter/otel"
	"github.com/neomorfeo/adoptiq/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock repository ---

type mockCampaigns struct {
	campaigns map[string]domain.Campaign
}

func newMockCampaigns() *mockCampaigns {
	return &mockCampaigns{campaigns: make(map[string]domain.Campaign)}
}

func (m *mockCampaigns) Create(_ context.Context, c domain.Campaign) error {
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaigns) GetByID(_ context.Context, id string) (domain.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return c, nil
}

func (m *mockCampaigns) GetBySubscription(_ context.Context, subscriptionID string) (domain.Campaign, error) {
	for _, c := range m.campaigns {
		if c.ExternalSubscriptionID == subscriptionID {
			return c, nil
		}
	}
	return domain.Campaign{}, domain.ErrCampaignNotFound
}

func (m *mockCampaigns) List(_ context.Context, _ domain.CampaignFilter) ([]domain.Campaign, error) {
	out := make([]domain.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCampaigns) ListDueAdoptions(ctx context.Context, _ time.Time) ([]domain.Campaign, error) {
	return m.List(ctx, domain.CampaignFilter{})
}

func (m *mockCampaigns) ListExpiring(ctx context.Context, _, _ time.Time) ([]domain.Campaign, error) {
	return m.List(ctx, domain.CampaignFilter{})
}

func (m *mockCampaigns) UpdateStatus(_ context.Context, id string, from, to domain.CampaignStatus, _ time.Time) (domain.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	if c.Status != from {
		return c, domain.ErrStaleCampaign
	}
	c.Status = to
	m.campaigns[id] = c
	return c, nil
}

func (m *mockCampaigns) SetNextBillingDate(_ context.Context, id string, next time.Time) error {
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	c.NextBillingDate = next
	m.campaigns[id] = c
	return nil
}

type mockRegistry struct {
	conflict bool
}

func (m *mockRegistry) TryAdopt(_ context.Context, languageID string) error {
	if m.conflict {
		return &domain.AdoptionConflictError{LanguageID: languageID}
	}
	return nil
}

func (m *mockRegistry) ClaimAndCreate(ctx context.Context, c domain.Campaign) error {
	return m.TryAdopt(ctx, c.LanguageID)
}

func (m *mockRegistry) ClaimAndResume(_ context.Context, id string, _ time.Time) (domain.Campaign, error) {
	return domain.Campaign{ID: id, Status: domain.CampaignActive}, nil
}

func (m *mockRegistry) Release(_ context.Context, _ string) (domain.ReleaseOutcome, error) {
	return domain.ReleaseStillHeld, nil
}

func (m *mockRegistry) EndAndRelease(_ context.Context, id string, _, to domain.CampaignStatus, _ time.Time) (domain.Campaign, domain.ReleaseOutcome, error) {
	return domain.Campaign{ID: id, LanguageID: "l-1", Status: to}, domain.ReleaseReleased, nil
}

// --- Tests ---

func TestTracingCampaigns_Create_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingCampaigns(newMockCampaigns())

	c := domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignAdoptLanguage, 2000, "usd")
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "CampaignRepository.Create" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "CampaignRepository.Create")
	}

	assertAttribute(t, spans[0], "campaign.id", "c-1")
	assertAttribute(t, spans[0], "campaign.type", string(domain.CampaignAdoptLanguage))
	assertAttribute(t, spans[0], "language.id", "l-1")
}

func TestTracingCampaigns_GetByID_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingCampaigns(newMockCampaigns())

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}

	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingCampaigns_List_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockCampaigns()
	repo := adapter.NewTracingCampaigns(inner)

	inner.campaigns["c-1"] = domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignAdoptLanguage, 2000, "usd")
	inner.campaigns["c-2"] = domain.NewCampaign("c-2", "p-1", "l-2", domain.CampaignGeneralDonation, 500, "usd")

	status := domain.CampaignActive
	campaigns, err := repo.List(context.Background(), domain.CampaignFilter{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(campaigns) != 2 {
		t.Errorf("got %d campaigns, want 2", len(campaigns))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	assertAttribute(t, spans[0], "result.count", "2")
	assertAttribute(t, spans[0], "filter.status", string(domain.CampaignActive))
}

func TestTracingCampaigns_UpdateStatus_RecordsStale(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockCampaigns()
	repo := adapter.NewTracingCampaigns(inner)

	inner.campaigns["c-1"] = domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignAdoptLanguage, 2000, "usd")

	_, err := repo.UpdateStatus(context.Background(), "c-1", domain.CampaignPaused, domain.CampaignActive, time.Now())
	if !errors.Is(err, domain.ErrStaleCampaign) {
		t.Fatalf("expected ErrStaleCampaign, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "campaign.status.from", string(domain.CampaignPaused))
	assertAttribute(t, spans[0], "campaign.status.to", string(domain.CampaignActive))
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

func TestTracingRegistry_Release_RecordsOutcome(t *testing.T) {
	exporter := setupTestTracer(t)
	reg := adapter.NewTracingRegistry(&mockRegistry{})

	outcome, err := reg.Release(context.Background(), "l-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != domain.ReleaseStillHeld {
		t.Errorf("outcome = %q, want %q", outcome, domain.ReleaseStillHeld)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "AdoptionRegistry.Release" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "AdoptionRegistry.Release")
	}
	assertAttribute(t, spans[0], "language.id", "l-1")
	assertAttribute(t, spans[0], "release.outcome", string(domain.ReleaseStillHeld))
}

func TestTracingRegistry_TryAdopt_RecordsConflict(t *testing.T) {
	exporter := setupTestTracer(t)
	reg := adapter.NewTracingRegistry(&mockRegistry{conflict: true})

	err := reg.TryAdopt(context.Background(), "l-1")
	var conflict *domain.AdoptionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected AdoptionConflictError, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}

func TestTracingRegistry_EndAndRelease_RecordsTransition(t *testing.T) {
	exporter := setupTestTracer(t)
	reg := adapter.NewTracingRegistry(&mockRegistry{})

	c, outcome, err := reg.EndAndRelease(context.Background(), "c-1", domain.CampaignActive, domain.CampaignCompleted, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != domain.CampaignCompleted || outcome != domain.ReleaseReleased {
		t.Errorf("got %q / %q, want COMPLETED / RELEASED", c.Status, outcome)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "campaign.status.from", "ACTIVE")
	assertAttribute(t, spans[0], "campaign.status.to", "COMPLETED")
	assertAttribute(t, spans[0], "language.id", "l-1")
	assertAttribute(t, spans[0], "release.outcome", "RELEASED")
}
