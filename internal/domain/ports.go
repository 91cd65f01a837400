package domain

import (
	"context"
	"time"
)

// LanguageRepository defines the persistence contract for languages.
type LanguageRepository interface {
	Create(ctx context.Context, language Language) error
	GetByID(ctx context.Context, id string) (Language, error)
	List(ctx context.Context, filter LanguageFilter) ([]Language, error)
	// SetStatus changes the adoption status of a language that has no active
	// adopter. Adoption itself goes through the AdoptionRegistry.
	SetStatus(ctx context.Context, id string, status AdoptionStatus) error
}

// CampaignRepository defines the persistence contract for campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, campaign Campaign) error
	GetByID(ctx context.Context, id string) (Campaign, error)
	GetBySubscription(ctx context.Context, subscriptionID string) (Campaign, error)
	List(ctx context.Context, filter CampaignFilter) ([]Campaign, error)
	// ListDueAdoptions returns active one-time adoptions whose expiry marker
	// is at or before now.
	ListDueAdoptions(ctx context.Context, now time.Time) ([]Campaign, error)
	// ListExpiring returns active campaigns whose next billing date lies in (from, to].
	ListExpiring(ctx context.Context, from, to time.Time) ([]Campaign, error)
	// UpdateStatus moves a campaign from one status to another only if it is
	// still in the from status; otherwise it returns ErrStaleCampaign.
	// Terminal destinations set the end date and clear the subscription reference
	// when cancelling.
	UpdateStatus(ctx context.Context, id string, from, to CampaignStatus, at time.Time) (Campaign, error)
	SetNextBillingDate(ctx context.Context, id string, next time.Time) error
}

// AdoptionRegistry enforces that a language has at most one active adopter.
// Implementations must rely on the store's atomicity, never on a separate
// read followed by a write.
type AdoptionRegistry interface {
	// TryAdopt marks the language ADOPTED if no active adoption campaign
	// references it, or returns an *AdoptionConflictError.
	TryAdopt(ctx context.Context, languageID string) error
	// ClaimAndCreate claims the language and persists the adoption campaign
	// in one transaction.
	ClaimAndCreate(ctx context.Context, campaign Campaign) error
	// ClaimAndResume claims the language of a paused adoption campaign and
	// reactivates the campaign in one transaction.
	ClaimAndResume(ctx context.Context, campaignID string, at time.Time) (Campaign, error)
	// Release marks the language AVAILABLE unless another active adoption
	// campaign still holds it.
	Release(ctx context.Context, languageID string) (ReleaseOutcome, error)
	// EndAndRelease moves an adoption campaign from one status to another
	// and releases its language in one transaction. On error neither
	// change is applied.
	EndAndRelease(ctx context.Context, campaignID string, from, to CampaignStatus, at time.Time) (Campaign, ReleaseOutcome, error)
}

// PartnerRepository defines the persistence contract for partners.
type PartnerRepository interface {
	Create(ctx context.Context, partner Partner) error
	GetByID(ctx context.Context, id string) (Partner, error)
	GetByEmail(ctx context.Context, email string) (Partner, error)
	SetExternalCustomer(ctx context.Context, id, customerID string) error
	FlagFollowUp(ctx context.Context, id string) error
	ClearFollowUp(ctx context.Context, id string) error
}

// PaymentRepository defines the persistence contract for payments.
type PaymentRepository interface {
	// Record inserts the payment unless one with the same external reference
	// exists. It returns the stored row and whether it was created.
	Record(ctx context.Context, payment Payment) (Payment, bool, error)
	GetByExternalRef(ctx context.Context, ref string) (Payment, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]Payment, error)
	UpdateStatus(ctx context.Context, ref string, from, to PaymentStatus) (Payment, error)
	Revenue(ctx context.Context, filter RevenueFilter) ([]RevenueTotal, error)
}

// TestimonyRepository stores public testimonies.
type TestimonyRepository interface {
	Create(ctx context.Context, testimony Testimony) error
}

// PaymentProcessor is the external subscription and payment processor.
type PaymentProcessor interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreatePrice(ctx context.Context, params PriceParams) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID string, metadata map[string]string) (Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
	// CancelSubscriptions attempts every id and returns the failures keyed by id.
	CancelSubscriptions(ctx context.Context, ids []string) map[string]error
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error)
}

// CounterStore holds fixed-window rate-limit counters. Increment must be
// atomic per key: concurrent callers never lose an update.
type CounterStore interface {
	Get(ctx context.Context, key string) (Counter, bool, error)
	// Increment starts a new window of the given length when the key is
	// missing or its window has passed, then adds one.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Counter, error)
	Reset(ctx context.Context, key string) error
}

// EventPublisher defines the contract for emitting lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

// TransitionValidator checks if a campaign state transition is allowed
// and returns the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current CampaignStatus, event Event) (CampaignStatus, error)
}

// PaymentTransitionValidator checks payment status transitions.
type PaymentTransitionValidator interface {
	ApplyPayment(ctx context.Context, current PaymentStatus, event PaymentEvent) (PaymentStatus, error)
}

// Authenticator resolves a bearer credential to a staff identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}
