package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

func TestCampaignCreate_And_GetBySubscription(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustLanguage(t, store, "l-1")
	mustPartner(t, store, "p-1")

	c := domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignSponsorTranslation, 1500, "usd")
	c.ExternalSubscriptionID = "sub_123"
	c.NextBillingDate = time.Now().Add(30 * 24 * time.Hour)
	if err := store.Campaigns().Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Campaigns().GetBySubscription(ctx, "sub_123")
	if err != nil {
		t.Fatalf("GetBySubscription failed: %v", err)
	}
	if got.ID != "c-1" {
		t.Errorf("ID = %q, want %q", got.ID, "c-1")
	}
	if got.MonthlyAmount != 1500 {
		t.Errorf("MonthlyAmount = %d, want %d", got.MonthlyAmount, 1500)
	}
	if got.OneTime() {
		t.Error("campaign with a subscription should not be one-time")
	}
	if got.EndDate != nil {
		t.Errorf("EndDate = %v, want nil", got.EndDate)
	}
}

func TestCampaignGetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Campaigns().GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Errorf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestCampaignCreate_SecondActiveAdoptionRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustLanguage(t, store, "l-1")
	mustPartner(t, store, "p-1")
	mustPartner(t, store, "p-2")

	if err := store.Campaigns().Create(ctx, adoption("c-1", "p-1", "l-1", time.Now())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := store.Campaigns().Create(ctx, adoption("c-2", "p-2", "l-1", time.Now()))
	var conflict *domain.AdoptionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected AdoptionConflictError, got %v", err)
	}
	if conflict.LanguageID != "l-1" {
		t.Errorf("LanguageID = %q, want %q", conflict.LanguageID, "l-1")
	}
}

func TestCampaignCreate_SponsorshipsAreNotExclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustLanguage(t, store, "l-1")
	mustPartner(t, store, "p-1")
	mustPartner(t, store, "p-2")

	for _, c := range []domain.Campaign{
		domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignSponsorTranslation, 1000, "usd"),
		domain.NewCampaign("c-2", "p-2", "l-1", domain.CampaignSponsorTranslation, 1000, "usd"),
	} {
		if err := store.Campaigns().Create(ctx, c); err != nil {
			t.Fatalf("Create %s failed: %v", c.ID, err)
		}
	}
}

func TestListDueAdoptions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	mustLanguage(t, store, "l-1")
	mustLanguage(t, store, "l-2")
	mustLanguage(t, store, "l-3")
	mustPartner(t, store, "p-1")

	due := adoption("c-due", "p-1", "l-1", now.Add(-24*time.Hour))
	future := adoption("c-future", "p-1", "l-2", now.Add(24*time.Hour))
	recurring := adoption("c-recurring", "p-1", "l-3", now.Add(-24*time.Hour))
	recurring.ExternalSubscriptionID = "sub_1"

	for _, c := range []domain.Campaign{due, future, recurring} {
		if err := store.Campaigns().Create(ctx, c); err != nil {
			t.Fatalf("Create %s failed: %v", c.ID, err)
		}
	}

	got, err := store.Campaigns().ListDueAdoptions(ctx, now)
	if err != nil {
		t.Fatalf("ListDueAdoptions failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c-due" {
		t.Errorf("got %+v, want only c-due", got)
	}
}

func TestListExpiring_Window(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	mustLanguage(t, store, "l-1")
	mustPartner(t, store, "p-1")

	soon := domain.NewCampaign("c-soon", "p-1", "l-1", domain.CampaignGeneralDonation, 500, "usd")
	soon.NextBillingDate = now.Add(2 * time.Hour)
	later := domain.NewCampaign("c-later", "p-1", "l-1", domain.CampaignGeneralDonation, 500, "usd")
	later.NextBillingDate = now.Add(72 * time.Hour)
	past := domain.NewCampaign("c-past", "p-1", "l-1", domain.CampaignGeneralDonation, 500, "usd")
	past.NextBillingDate = now.Add(-time.Hour)

	for _, c := range []domain.Campaign{soon, later, past} {
		if err := store.Campaigns().Create(ctx, c); err != nil {
			t.Fatalf("Create %s failed: %v", c.ID, err)
		}
	}

	got, err := store.Campaigns().ListExpiring(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListExpiring failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c-soon" {
		t.Errorf("got %+v, want only c-soon", got)
	}
}

func TestUpdateStatus_CompareAndSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustLanguage(t, store, "l-1")
	mustPartner(t, store, "p-1")

	c := domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignSponsorTranslation, 1000, "usd")
	c.ExternalSubscriptionID = "sub_1"
	if err := store.Campaigns().Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	at := time.Now()
	got, err := store.Campaigns().UpdateStatus(ctx, "c-1", domain.CampaignActive, domain.CampaignCancelled, at)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if got.Status != domain.CampaignCancelled {
		t.Errorf("Status = %q, want %q", got.Status, domain.CampaignCancelled)
	}
	if got.EndDate == nil {
		t.Fatal("EndDate should be set on cancellation")
	}
	if got.ExternalSubscriptionID != "" {
		t.Errorf("ExternalSubscriptionID = %q, want empty", got.ExternalSubscriptionID)
	}

	// A second writer that still believes the campaign is active loses.
	stale, err := store.Campaigns().UpdateStatus(ctx, "c-1", domain.CampaignActive, domain.CampaignCompleted, at)
	if !errors.Is(err, domain.ErrStaleCampaign) {
		t.Fatalf("expected ErrStaleCampaign, got %v", err)
	}
	if stale.Status != domain.CampaignCancelled {
		t.Errorf("Status = %q, want %q", stale.Status, domain.CampaignCancelled)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Campaigns().UpdateStatus(context.Background(), "missing", domain.CampaignActive, domain.CampaignPaused, time.Now())
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Errorf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestSetNextBillingDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustLanguage(t, store, "l-1")
	mustPartner(t, store, "p-1")

	c := domain.NewCampaign("c-1", "p-1", "l-1", domain.CampaignGeneralDonation, 1000, "usd")
	if err := store.Campaigns().Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	next := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	if err := store.Campaigns().SetNextBillingDate(ctx, "c-1", next); err != nil {
		t.Fatalf("SetNextBillingDate failed: %v", err)
	}

	got, _ := store.Campaigns().GetByID(ctx, "c-1")
	if !got.NextBillingDate.Equal(next) {
		t.Errorf("NextBillingDate = %v, want %v", got.NextBillingDate, next)
	}

	if err := store.Campaigns().SetNextBillingDate(ctx, "missing", next); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Errorf("expected ErrCampaignNotFound, got %v", err)
	}
}
