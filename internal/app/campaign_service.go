package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// DefaultAdoptionValidity is how long a one-time adoption holds its language.
const DefaultAdoptionValidity = 30 * 24 * time.Hour

// Metadata keys attached to processor objects.
const (
	metaCampaignType = "campaign_type"
	metaLanguageID   = "language_id"
	metaPartnerID    = "partner_id"
	metaPartnerEmail = "partner_email"
	metaPartnerName  = "partner_name"
)

// intentNamespace derives campaign ids from payment intent ids so that a
// confirmation retried or raced for the same intent lands on the same row.
var intentNamespace = uuid.MustParse("6f1c2b8e-3d4a-4e59-9a7b-0c5d8e2f1a36")

// CampaignDeps groups the adapters a CampaignService needs.
type CampaignDeps struct {
	Languages domain.LanguageRepository
	Campaigns domain.CampaignRepository
	Partners  domain.PartnerRepository
	Payments  domain.PaymentRepository
	Registry  domain.AdoptionRegistry
	Processor domain.PaymentProcessor
	Publisher domain.EventPublisher
	Validator domain.TransitionValidator
	Logger    *slog.Logger
	// AdoptionValidity defaults to DefaultAdoptionValidity when zero.
	AdoptionValidity time.Duration
}

// CampaignService orchestrates campaign lifecycle operations.
type CampaignService struct {
	languages domain.LanguageRepository
	campaigns domain.CampaignRepository
	partners  domain.PartnerRepository
	payments  domain.PaymentRepository
	registry  domain.AdoptionRegistry
	processor domain.PaymentProcessor
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	logger    *slog.Logger
	validity  time.Duration
	nowFn     func() time.Time
}

// NewCampaignService creates a service with the given adapters.
func NewCampaignService(deps CampaignDeps) *CampaignService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validity := deps.AdoptionValidity
	if validity <= 0 {
		validity = DefaultAdoptionValidity
	}
	return &CampaignService{
		languages: deps.Languages,
		campaigns: deps.Campaigns,
		partners:  deps.Partners,
		payments:  deps.Payments,
		registry:  deps.Registry,
		processor: deps.Processor,
		publisher: deps.Publisher,
		validator: deps.Validator,
		logger:    logger,
		validity:  validity,
		nowFn:     time.Now,
	}
}

// WithClock replaces the service's time source.
func (s *CampaignService) WithClock(now func() time.Time) *CampaignService {
	s.nowFn = now
	return s
}

func (s *CampaignService) now() time.Time {
	return s.nowFn().UTC()
}

// RecurringResult is returned when a subscription-backed campaign starts.
type RecurringResult struct {
	Campaign     domain.Campaign
	ClientSecret string
}

// IntentResult is returned when a one-time payment intent is created.
type IntentResult struct {
	IntentID     string
	ClientSecret string
}

// ListLanguages returns languages ordered by priority, then name.
func (s *CampaignService) ListLanguages(ctx context.Context, filter domain.LanguageFilter) ([]domain.Language, error) {
	return s.languages.List(ctx, filter)
}

// AddLanguage registers a language channel, available for adoption.
func (s *CampaignService) AddLanguage(ctx context.Context, in LanguageInput) (domain.Language, error) {
	if err := in.Validate(); err != nil {
		return domain.Language{}, err
	}

	id, err := generateID()
	if err != nil {
		return domain.Language{}, fmt.Errorf("generating language id: %w", err)
	}

	lang := domain.NewLanguage(id, in.Code, strings.TrimSpace(in.Name), in.SpeakerCount, in.Priority)
	lang.TranslationNeedsSponsorship = in.TranslationNeedsSponsorship
	lang.CreatedAt, lang.UpdatedAt = s.now(), s.now()

	if err := s.languages.Create(ctx, lang); err != nil {
		return domain.Language{}, err
	}

	s.logger.InfoContext(ctx, "language added", "language_id", id, "code", lang.Code)
	return lang, nil
}

// GetByID returns a campaign by its unique identifier.
func (s *CampaignService) GetByID(ctx context.Context, id string) (domain.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

// StartRecurring subscribes the partner at the processor and persists an
// ACTIVE campaign billed monthly. Adoptions claim the language in the same
// transaction as the insert; if the claim loses a race after the processor
// succeeded, the subscription is cancelled again.
func (s *CampaignService) StartRecurring(ctx context.Context, in RecurringInput) (RecurringResult, error) {
	if err := in.Validate(); err != nil {
		return RecurringResult{}, err
	}

	lang, err := s.checkAvailable(ctx, in.LanguageID, in.Type)
	if err != nil {
		return RecurringResult{}, err
	}

	partner, err := s.ensurePartner(ctx, in.Email, in.Name, in.Country, in.Organization)
	if err != nil {
		return RecurringResult{}, err
	}

	priceID, err := s.processor.CreatePrice(ctx, domain.PriceParams{
		ProductName: productName(in.Type, lang),
		Amount:      in.Amount,
		Currency:    in.Currency,
		Interval:    "month",
	})
	if err != nil {
		return RecurringResult{}, fmt.Errorf("creating price: %w", err)
	}

	sub, err := s.processor.CreateSubscription(ctx, partner.ExternalCustomerID, priceID, map[string]string{
		metaCampaignType: string(in.Type),
		metaLanguageID:   lang.ID,
		metaPartnerID:    partner.ID,
	})
	if err != nil {
		return RecurringResult{}, fmt.Errorf("creating subscription: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return RecurringResult{}, fmt.Errorf("generating campaign id: %w", err)
	}

	now := s.now()
	campaign := domain.NewCampaign(id, partner.ID, lang.ID, in.Type, in.Amount, in.Currency)
	campaign.ExternalSubscriptionID = sub.ID
	campaign.NextBillingDate = sub.CurrentPeriodEnd
	campaign.StartDate, campaign.CreatedAt, campaign.UpdatedAt = now, now, now

	if err := s.persist(ctx, campaign); err != nil {
		if cancelErr := s.processor.CancelSubscription(ctx, sub.ID); cancelErr != nil {
			s.logger.ErrorContext(ctx, "compensating subscription cancel failed",
				"subscription_id", sub.ID,
				"partner_id", partner.ID,
				"error", cancelErr,
			)
		}
		return RecurringResult{}, err
	}

	s.publish(ctx, domain.LifecycleEvent{
		Kind:       domain.EventCampaignCreated,
		CampaignID: campaign.ID,
		PartnerID:  campaign.PartnerID,
		LanguageID: campaign.LanguageID,
	})

	return RecurringResult{Campaign: campaign, ClientSecret: sub.ClientSecret}, nil
}

// CreatePaymentIntent starts a one-time payment. The campaign is created by
// ConfirmOneTime once the processor reports the intent succeeded.
func (s *CampaignService) CreatePaymentIntent(ctx context.Context, in IntentInput) (IntentResult, error) {
	if err := in.Validate(); err != nil {
		return IntentResult{}, err
	}

	lang, err := s.checkAvailable(ctx, in.LanguageID, in.Type)
	if err != nil {
		return IntentResult{}, err
	}

	partner, err := s.ensurePartner(ctx, in.Email, in.Name, "", "")
	if err != nil {
		return IntentResult{}, err
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, domain.PaymentIntentParams{
		CustomerID: partner.ExternalCustomerID,
		Amount:     in.Amount,
		Currency:   in.Currency,
		Metadata: map[string]string{
			metaCampaignType: string(in.Type),
			metaLanguageID:   lang.ID,
			metaPartnerID:    partner.ID,
			metaPartnerEmail: partner.Email,
			metaPartnerName:  partner.Name,
		},
	})
	if err != nil {
		return IntentResult{}, fmt.Errorf("creating payment intent: %w", err)
	}

	return IntentResult{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmOneTime persists the campaign for a succeeded payment intent and
// records its payment. A one-time adoption stays ACTIVE until the sweep
// expires it; any other one-time campaign is created ACTIVE and completed
// right after its payment is recorded. Confirming the same intent again
// returns the campaign created the first time, finishing a completion an
// earlier call did not get to.
func (s *CampaignService) ConfirmOneTime(ctx context.Context, intentID string) (domain.Campaign, error) {
	if intentID == "" {
		return domain.Campaign{}, domain.NewValidationError("intentId", "cannot be blank")
	}

	campaignID := uuid.NewSHA1(intentNamespace, []byte(intentID)).String()
	if existing, err := s.campaigns.GetByID(ctx, campaignID); err == nil {
		return s.settleOneTime(ctx, existing, intentID)
	} else if !errors.Is(err, domain.ErrCampaignNotFound) {
		return domain.Campaign{}, err
	}

	intent, err := s.processor.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("retrieving payment intent: %w", err)
	}
	if intent.Status != domain.IntentSucceeded {
		return domain.Campaign{}, domain.ErrPaymentIncomplete
	}

	typ := domain.CampaignType(intent.Metadata[metaCampaignType])
	partnerID := intent.Metadata[metaPartnerID]
	languageID := intent.Metadata[metaLanguageID]
	if partnerID == "" || languageID == "" || typ == "" {
		return domain.Campaign{}, domain.NewValidationError("intentId", "payment intent was not created by this service")
	}

	now := s.now()
	campaign := domain.NewCampaign(campaignID, partnerID, languageID, typ, intent.Amount, intent.Currency)
	campaign.StartDate, campaign.CreatedAt, campaign.UpdatedAt = now, now, now
	campaign.NextBillingDate = now.Add(s.validity)
	if typ != domain.CampaignAdoptLanguage {
		campaign.NextBillingDate = now
	}

	if err := s.persist(ctx, campaign); err != nil {
		if existing, getErr := s.campaigns.GetByID(ctx, campaignID); getErr == nil {
			return s.settleOneTime(ctx, existing, intentID)
		}

		var conflict *domain.AdoptionConflictError
		if errors.As(err, &conflict) {
			s.logger.ErrorContext(ctx, "paid adoption lost the language",
				"intent_id", intentID,
				"partner_id", partnerID,
				"language_id", languageID,
			)
			s.publish(ctx, domain.LifecycleEvent{
				Kind:       domain.EventPartnerFollowUp,
				PartnerID:  partnerID,
				LanguageID: languageID,
				Reason:     "paid adoption for an already adopted language: " + intentID,
			})
		}
		return domain.Campaign{}, err
	}

	if err := s.recordIntentPayment(ctx, campaign, intentID); err != nil {
		return campaign, err
	}

	s.publish(ctx, domain.LifecycleEvent{
		Kind:       domain.EventCampaignCreated,
		CampaignID: campaign.ID,
		PartnerID:  campaign.PartnerID,
		LanguageID: campaign.LanguageID,
	})

	return s.completeDonation(ctx, campaign)
}

// settleOneTime records the intent payment for an already persisted
// campaign and completes it if it is a donation still left ACTIVE.
func (s *CampaignService) settleOneTime(ctx context.Context, c domain.Campaign, intentID string) (domain.Campaign, error) {
	if err := s.recordIntentPayment(ctx, c, intentID); err != nil {
		return c, err
	}
	return s.completeDonation(ctx, c)
}

// completeDonation moves a one-time non-adoption campaign from ACTIVE to
// COMPLETED. Nothing is held by such a campaign once its payment is in.
func (s *CampaignService) completeDonation(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	if c.Type == domain.CampaignAdoptLanguage || c.Status != domain.CampaignActive {
		return c, nil
	}

	dst, err := s.validator.Apply(ctx, c.Status, domain.EventComplete)
	if err != nil {
		return c, err
	}

	updated, err := s.campaigns.UpdateStatus(ctx, c.ID, c.Status, dst, s.now())
	if errors.Is(err, domain.ErrStaleCampaign) {
		return updated, nil
	}
	if err != nil {
		return c, fmt.Errorf("completing campaign %s: %w", c.ID, err)
	}

	s.publish(ctx, domain.LifecycleEvent{
		Kind:       domain.EventCampaignCompleted,
		CampaignID: updated.ID,
		PartnerID:  updated.PartnerID,
		LanguageID: updated.LanguageID,
	})
	return updated, nil
}

// ExpireDueAdoptions completes every one-time adoption past its expiry
// marker and releases its language. Each campaign is handled on its own;
// a failure is reported in its outcome and the sweep moves on. Campaigns
// another sweep completed first are skipped.
func (s *CampaignService) ExpireDueAdoptions(ctx context.Context) ([]domain.SweepOutcome, error) {
	now := s.now()

	due, err := s.campaigns.ListDueAdoptions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("listing due adoptions: %w", err)
	}

	outcomes := make([]domain.SweepOutcome, 0, len(due))
	for _, c := range due {
		outcome, ok := s.expire(ctx, c, now)
		if !ok {
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	s.logger.InfoContext(ctx, "adoption sweep finished",
		"due", len(due),
		"processed", len(outcomes),
	)

	return outcomes, nil
}

// expire completes the campaign and releases its language in one registry
// transaction. On failure the campaign stays ACTIVE, so the next sweep
// retries it.
func (s *CampaignService) expire(ctx context.Context, c domain.Campaign, now time.Time) (domain.SweepOutcome, bool) {
	outcome := domain.SweepOutcome{CampaignID: c.ID, LanguageID: c.LanguageID}

	dst, err := s.validator.Apply(ctx, c.Status, domain.EventComplete)
	if err != nil {
		outcome.Result, outcome.Error = domain.SweepError, err.Error()
		return outcome, true
	}

	_, released, err := s.registry.EndAndRelease(ctx, c.ID, c.Status, dst, now)
	if err != nil {
		if errors.Is(err, domain.ErrStaleCampaign) {
			s.logger.DebugContext(ctx, "campaign already expired elsewhere", "campaign_id", c.ID)
			return outcome, false
		}
		s.logger.ErrorContext(ctx, "expiring campaign failed",
			"campaign_id", c.ID,
			"language_id", c.LanguageID,
			"error", err,
		)
		outcome.Result, outcome.Error = domain.SweepError, err.Error()
		return outcome, true
	}

	s.publish(ctx, domain.LifecycleEvent{
		Kind:       domain.EventCampaignCompleted,
		CampaignID: c.ID,
		PartnerID:  c.PartnerID,
		LanguageID: c.LanguageID,
	})

	if released == domain.ReleaseReleased {
		outcome.Result = domain.SweepReleased
	} else {
		outcome.Result = domain.SweepLanguageStillHeld
	}
	return outcome, true
}

// Transition applies a lifecycle event to a campaign, changing its state.
// Pausing an adoption gives its language back; resuming claims it again.
func (s *CampaignService) Transition(ctx context.Context, id string, event domain.Event) (domain.Campaign, error) {
	if event == domain.EventCancel {
		result, err := s.Cancel(ctx, id)
		return result.Campaign, err
	}

	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return domain.Campaign{}, err
	}

	dst, err := s.validator.Apply(ctx, c.Status, event)
	if err != nil {
		return domain.Campaign{}, err
	}

	now := s.now()
	adoption := c.Type == domain.CampaignAdoptLanguage

	var updated domain.Campaign
	switch {
	case adoption && dst == domain.CampaignActive:
		updated, err = s.registry.ClaimAndResume(ctx, id, now)
	case adoption:
		var outcome domain.ReleaseOutcome
		updated, outcome, err = s.registry.EndAndRelease(ctx, id, c.Status, dst, now)
		if err == nil {
			s.logger.InfoContext(ctx, "language release", "language_id", c.LanguageID, "outcome", outcome)
		}
	default:
		updated, err = s.campaigns.UpdateStatus(ctx, id, c.Status, dst, now)
	}
	if err != nil {
		return domain.Campaign{}, err
	}

	if dst == domain.CampaignCompleted {
		s.publish(ctx, domain.LifecycleEvent{
			Kind:       domain.EventCampaignCompleted,
			CampaignID: id,
			PartnerID:  c.PartnerID,
			LanguageID: c.LanguageID,
		})
	}

	return updated, nil
}

// Cancel stops a campaign. The processor subscription is cancelled first;
// a processor failure becomes a warning and the local cancellation still
// happens.
func (s *CampaignService) Cancel(ctx context.Context, id string) (domain.CancelResult, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return domain.CancelResult{}, err
	}

	dst, err := s.validator.Apply(ctx, c.Status, domain.EventCancel)
	if err != nil {
		return domain.CancelResult{}, err
	}

	var result domain.CancelResult
	if c.ExternalSubscriptionID != "" {
		if err := s.processor.CancelSubscription(ctx, c.ExternalSubscriptionID); err != nil {
			s.logger.WarnContext(ctx, "processor cancel failed",
				"campaign_id", id,
				"subscription_id", c.ExternalSubscriptionID,
				"error", err,
			)
			result.Warnings = append(result.Warnings, subscriptionWarning(c.ExternalSubscriptionID, err))
		}
	}

	updated, outcome, err := s.finish(ctx, c, dst, s.now())
	if err != nil {
		return domain.CancelResult{}, err
	}
	result.Campaign = updated
	if outcome != "" {
		result.Release = &outcome
	}

	s.publish(ctx, domain.LifecycleEvent{
		Kind:       domain.EventCampaignCancelled,
		CampaignID: id,
		PartnerID:  c.PartnerID,
		LanguageID: c.LanguageID,
	})

	return result, nil
}

// ResetPartner cancels every open campaign of a partner. Processor
// subscriptions are cancelled in one batch first; per-subscription failures
// and per-campaign local failures are reported as warnings.
func (s *CampaignService) ResetPartner(ctx context.Context, partnerID string) (domain.ResetResult, error) {
	if _, err := s.partners.GetByID(ctx, partnerID); err != nil {
		return domain.ResetResult{}, err
	}

	all, err := s.campaigns.List(ctx, domain.CampaignFilter{PartnerID: partnerID})
	if err != nil {
		return domain.ResetResult{}, fmt.Errorf("listing partner campaigns: %w", err)
	}

	var open []domain.Campaign
	var subscriptions []string
	for _, c := range all {
		if c.Status.Terminal() {
			continue
		}
		open = append(open, c)
		if c.ExternalSubscriptionID != "" {
			subscriptions = append(subscriptions, c.ExternalSubscriptionID)
		}
	}

	result := domain.ResetResult{
		PartnerID: partnerID,
		Releases:  make(map[string]domain.ReleaseOutcome),
	}

	if len(subscriptions) > 0 {
		failures := s.processor.CancelSubscriptions(ctx, subscriptions)
		failed := make([]string, 0, len(failures))
		for subID := range failures {
			failed = append(failed, subID)
		}
		sort.Strings(failed)
		for _, subID := range failed {
			result.Warnings = append(result.Warnings, subscriptionWarning(subID, failures[subID]))
		}
	}

	now := s.now()
	for _, c := range open {
		updated, outcome, err := s.finish(ctx, c, domain.CampaignCancelled, now)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("campaign %s: cancel failed: %v", c.ID, err))
			continue
		}
		result.Cancelled = append(result.Cancelled, updated)
		if outcome != "" {
			result.Releases[c.LanguageID] = outcome
		}
		s.publish(ctx, domain.LifecycleEvent{
			Kind:       domain.EventCampaignCancelled,
			CampaignID: c.ID,
			PartnerID:  partnerID,
			LanguageID: c.LanguageID,
			Reason:     "partner reset",
		})
	}

	s.logger.InfoContext(ctx, "partner reset",
		"partner_id", partnerID,
		"cancelled", len(result.Cancelled),
		"warnings", len(result.Warnings),
	)

	return result, nil
}

// finish moves c to dst. Adoption campaigns release their language in the
// same registry transaction and report the outcome; other types return an
// empty outcome.
func (s *CampaignService) finish(ctx context.Context, c domain.Campaign, dst domain.CampaignStatus, at time.Time) (domain.Campaign, domain.ReleaseOutcome, error) {
	if c.Type == domain.CampaignAdoptLanguage {
		return s.registry.EndAndRelease(ctx, c.ID, c.Status, dst, at)
	}
	updated, err := s.campaigns.UpdateStatus(ctx, c.ID, c.Status, dst, at)
	return updated, "", err
}

// ReleaseLanguage asks the registry to free a language.
func (s *CampaignService) ReleaseLanguage(ctx context.Context, languageID string) (domain.ReleaseOutcome, error) {
	return s.registry.Release(ctx, languageID)
}

// ExpiringWithin lists active campaigns whose next billing date or expiry
// marker falls within d from now.
func (s *CampaignService) ExpiringWithin(ctx context.Context, d time.Duration) ([]domain.Campaign, error) {
	if d <= 0 {
		return nil, domain.NewValidationError("window", "must be positive")
	}
	now := s.now()
	return s.campaigns.ListExpiring(ctx, now, now.Add(d))
}

// Expired lists one-time adoptions past their marker that no sweep has
// completed yet.
func (s *CampaignService) Expired(ctx context.Context) ([]domain.Campaign, error) {
	return s.campaigns.ListDueAdoptions(ctx, s.now())
}

// checkAvailable fails fast before anything is charged. The claim itself
// happens later, atomically, in the registry.
func (s *CampaignService) checkAvailable(ctx context.Context, languageID string, typ domain.CampaignType) (domain.Language, error) {
	lang, err := s.languages.GetByID(ctx, languageID)
	if err != nil {
		return domain.Language{}, err
	}
	if typ == domain.CampaignAdoptLanguage && lang.AdoptionStatus == domain.AdoptionAdopted {
		return domain.Language{}, &domain.AdoptionConflictError{LanguageID: languageID}
	}
	return lang, nil
}

// ensurePartner returns the partner for email, creating it and its
// processor customer on first contribution.
func (s *CampaignService) ensurePartner(ctx context.Context, email, name, country, organization string) (domain.Partner, error) {
	partner, err := s.partners.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrPartnerNotFound) {
		id, idErr := generateID()
		if idErr != nil {
			return domain.Partner{}, fmt.Errorf("generating partner id: %w", idErr)
		}
		partner = domain.NewPartner(id, email, name, country, organization)
		err = s.partners.Create(ctx, partner)
		if errors.Is(err, domain.ErrPartnerExists) {
			partner, err = s.partners.GetByEmail(ctx, email)
		}
	}
	if err != nil {
		return domain.Partner{}, err
	}

	if partner.ExternalCustomerID != "" {
		return partner, nil
	}

	customerID, err := s.processor.CreateCustomer(ctx, partner.Email, partner.Name)
	if err != nil {
		return domain.Partner{}, fmt.Errorf("creating customer: %w", err)
	}
	if err := s.partners.SetExternalCustomer(ctx, partner.ID, customerID); err != nil {
		return domain.Partner{}, fmt.Errorf("linking customer: %w", err)
	}
	partner.ExternalCustomerID = customerID

	return partner, nil
}

// persist inserts a campaign; active adoptions go through the registry so
// the language claim and the insert commit together.
func (s *CampaignService) persist(ctx context.Context, c domain.Campaign) error {
	if c.Type == domain.CampaignAdoptLanguage && c.Status == domain.CampaignActive {
		return s.registry.ClaimAndCreate(ctx, c)
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return fmt.Errorf("creating campaign: %w", err)
	}
	return nil
}

func (s *CampaignService) recordIntentPayment(ctx context.Context, c domain.Campaign, intentID string) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("generating payment id: %w", err)
	}

	now := s.now()
	_, _, err = s.payments.Record(ctx, domain.Payment{
		ID:          id,
		CampaignID:  c.ID,
		PartnerID:   c.PartnerID,
		Amount:      c.MonthlyAmount,
		Currency:    c.Currency,
		Status:      domain.PaymentSucceeded,
		ExternalRef: intentID,
		PaymentDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("recording payment: %w", err)
	}
	return nil
}

// publish emits a lifecycle event. The state change it reports is already
// durable, so a publish failure is logged rather than returned.
func (s *CampaignService) publish(ctx context.Context, event domain.LifecycleEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "publishing lifecycle event failed",
			"kind", event.Kind,
			"campaign_id", event.CampaignID,
			"error", err,
		)
	}
}

func productName(typ domain.CampaignType, lang domain.Language) string {
	switch typ {
	case domain.CampaignAdoptLanguage:
		return "Adopt " + lang.Name
	case domain.CampaignSponsorTranslation:
		return "Sponsor " + lang.Name + " translation"
	default:
		return "Donation for " + lang.Name
	}
}

func subscriptionWarning(subscriptionID string, err error) string {
	return fmt.Sprintf("subscription %s: processor cancel failed: %v", subscriptionID, err)
}
