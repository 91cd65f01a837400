package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// PaymentDeps groups the adapters a PaymentService needs.
type PaymentDeps struct {
	Payments         domain.PaymentRepository
	Campaigns        domain.CampaignRepository
	Partners         domain.PartnerRepository
	Registry         domain.AdoptionRegistry
	Publisher        domain.EventPublisher
	Validator        domain.TransitionValidator
	PaymentValidator domain.PaymentTransitionValidator
	Logger           *slog.Logger
}

// PaymentService records payment events and derives revenue from them.
type PaymentService struct {
	payments         domain.PaymentRepository
	campaigns        domain.CampaignRepository
	partners         domain.PartnerRepository
	registry         domain.AdoptionRegistry
	publisher        domain.EventPublisher
	validator        domain.TransitionValidator
	paymentValidator domain.PaymentTransitionValidator
	logger           *slog.Logger
	nowFn            func() time.Time
}

// NewPaymentService creates a service with the given adapters.
func NewPaymentService(deps PaymentDeps) *PaymentService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		payments:         deps.Payments,
		campaigns:        deps.Campaigns,
		partners:         deps.Partners,
		registry:         deps.Registry,
		publisher:        deps.Publisher,
		validator:        deps.Validator,
		paymentValidator: deps.PaymentValidator,
		logger:           logger,
		nowFn:            time.Now,
	}
}

// WithClock replaces the service's time source.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.nowFn = now
	return s
}

// Record stores one payment event keyed by its external reference. A
// replayed reference returns the stored row with created=false. When a
// later event for the same reference carries a different status, the row
// moves through the payment state machine, so a failed invoice that the
// processor retries successfully ends up SUCCEEDED. Campaign and partner
// effects run only when the row is created or its status changes; stale
// replays leave staff decisions such as a pause untouched.
func (s *PaymentService) Record(ctx context.Context, in RecordInput) (domain.Payment, bool, error) {
	if err := in.Validate(); err != nil {
		return domain.Payment{}, false, err
	}

	c, err := s.campaigns.GetByID(ctx, in.CampaignID)
	if err != nil {
		return domain.Payment{}, false, err
	}

	id, err := generateID()
	if err != nil {
		return domain.Payment{}, false, fmt.Errorf("generating payment id: %w", err)
	}

	now := s.nowFn().UTC()
	stored, created, err := s.payments.Record(ctx, domain.Payment{
		ID:          id,
		CampaignID:  c.ID,
		PartnerID:   c.PartnerID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Status:      in.Status,
		ExternalRef: in.ExternalRef,
		PaymentDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Payment{}, false, fmt.Errorf("recording payment: %w", err)
	}

	changed := created
	previous := stored.Status
	if !created && stored.Status != in.Status {
		stored, changed, err = s.advance(ctx, stored, in.Status)
		if err != nil {
			return stored, false, err
		}
	}

	if changed {
		if err := s.applyEffects(ctx, c, stored, previous, created); err != nil {
			return stored, created, err
		}
	}

	s.logger.InfoContext(ctx, "payment recorded",
		"external_ref", stored.ExternalRef,
		"status", stored.Status,
		"campaign_id", c.ID,
		"created", created,
		"changed", changed,
	)

	return stored, created, nil
}

// advance moves an existing payment to status when the payment state
// machine allows it. Disallowed or raced changes keep the stored row.
func (s *PaymentService) advance(ctx context.Context, p domain.Payment, status domain.PaymentStatus) (domain.Payment, bool, error) {
	event, ok := domain.PaymentEventFor(status)
	if !ok {
		return p, false, nil
	}

	dst, err := s.paymentValidator.ApplyPayment(ctx, p.Status, event)
	var transitionErr *domain.TransitionError
	if errors.As(err, &transitionErr) {
		s.logger.InfoContext(ctx, "ignoring out-of-order payment event",
			"external_ref", p.ExternalRef,
			"stored", p.Status,
			"incoming", status,
		)
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}

	updated, err := s.payments.UpdateStatus(ctx, p.ExternalRef, p.Status, dst)
	if errors.Is(err, domain.ErrStalePayment) {
		return updated, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("updating payment %s: %w", p.ExternalRef, err)
	}
	return updated, true, nil
}

// applyEffects runs the campaign and partner consequences of a payment
// reaching its current status. previous is the status before the change.
func (s *PaymentService) applyEffects(ctx context.Context, c domain.Campaign, p domain.Payment, previous domain.PaymentStatus, created bool) error {
	switch p.Status {
	case domain.PaymentSucceeded:
		if err := s.reactivate(ctx, c); err != nil {
			return err
		}
		if !created && previous == domain.PaymentFailed {
			if err := s.partners.ClearFollowUp(ctx, c.PartnerID); err != nil {
				return fmt.Errorf("clearing partner follow-up: %w", err)
			}
		}
	case domain.PaymentFailed:
		if err := s.partners.FlagFollowUp(ctx, c.PartnerID); err != nil {
			return fmt.Errorf("flagging partner: %w", err)
		}
		if err := s.publisher.Publish(ctx, domain.LifecycleEvent{
			Kind:       domain.EventPartnerFollowUp,
			CampaignID: c.ID,
			PartnerID:  c.PartnerID,
			LanguageID: c.LanguageID,
			Reason:     "payment failed: " + p.ExternalRef,
		}); err != nil {
			s.logger.ErrorContext(ctx, "publishing follow-up failed", "partner_id", c.PartnerID, "error", err)
		}
	}
	return nil
}

// reactivate resumes a paused campaign after a successful payment. Active
// campaigns are left alone; terminal ones are never resurrected.
func (s *PaymentService) reactivate(ctx context.Context, c domain.Campaign) error {
	if c.Status != domain.CampaignPaused {
		return nil
	}

	if _, err := s.validator.Apply(ctx, c.Status, domain.EventResume); err != nil {
		return err
	}

	var err error
	if c.Type == domain.CampaignAdoptLanguage {
		_, err = s.registry.ClaimAndResume(ctx, c.ID, s.nowFn().UTC())
	} else {
		_, err = s.campaigns.UpdateStatus(ctx, c.ID, domain.CampaignPaused, domain.CampaignActive, s.nowFn().UTC())
	}
	if errors.Is(err, domain.ErrStaleCampaign) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resuming campaign %s: %w", c.ID, err)
	}
	return nil
}

// Refund marks a succeeded payment REFUNDED.
func (s *PaymentService) Refund(ctx context.Context, externalRef string) (domain.Payment, error) {
	p, err := s.payments.GetByExternalRef(ctx, externalRef)
	if err != nil {
		return domain.Payment{}, err
	}

	dst, err := s.paymentValidator.ApplyPayment(ctx, p.Status, domain.PaymentEventRefund)
	if err != nil {
		return domain.Payment{}, err
	}

	updated, err := s.payments.UpdateStatus(ctx, externalRef, p.Status, dst)
	if err != nil {
		return domain.Payment{}, err
	}

	s.logger.InfoContext(ctx, "payment refunded", "external_ref", externalRef, "amount", updated.Amount)
	return updated, nil
}

// Revenue sums succeeded payments per currency.
func (s *PaymentService) Revenue(ctx context.Context, filter domain.RevenueFilter) ([]domain.RevenueTotal, error) {
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Until.After(filter.Since) {
		return nil, domain.NewValidationError("until", "must be after since")
	}
	return s.payments.Revenue(ctx, filter)
}

// ListByCampaign returns the payment history of a campaign.
func (s *PaymentService) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Payment, error) {
	return s.payments.ListByCampaign(ctx, campaignID)
}

// HandleProcessorEvent applies a verified processor webhook event. The
// invoice or charge id is the idempotency key, so redelivery is harmless.
func (s *PaymentService) HandleProcessorEvent(ctx context.Context, event domain.ProcessorEvent) error {
	switch event.Type {
	case domain.ProcessorInvoicePaid, domain.ProcessorInvoiceFailed:
		c, err := s.campaigns.GetBySubscription(ctx, event.SubscriptionID)
		if err != nil {
			return fmt.Errorf("resolving subscription %s: %w", event.SubscriptionID, err)
		}

		status := domain.PaymentSucceeded
		if event.Type == domain.ProcessorInvoiceFailed {
			status = domain.PaymentFailed
		}

		if _, _, err := s.Record(ctx, RecordInput{
			CampaignID:  c.ID,
			Amount:      event.Amount,
			Currency:    event.Currency,
			ExternalRef: event.ObjectID,
			Status:      status,
		}); err != nil {
			return err
		}

		if status == domain.PaymentSucceeded && !event.PeriodEnd.IsZero() {
			if err := s.campaigns.SetNextBillingDate(ctx, c.ID, event.PeriodEnd); err != nil {
				return fmt.Errorf("advancing billing date: %w", err)
			}
		}
		return nil

	case domain.ProcessorChargeRefund:
		_, err := s.Refund(ctx, event.PaymentRef)
		var transitionErr *domain.TransitionError
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrPaymentNotFound):
			s.logger.WarnContext(ctx, "refund for unknown payment", "payment_ref", event.PaymentRef, "event_id", event.ID)
			return nil
		case errors.As(err, &transitionErr), errors.Is(err, domain.ErrStalePayment):
			s.logger.InfoContext(ctx, "refund already applied", "payment_ref", event.PaymentRef, "event_id", event.ID)
			return nil
		default:
			return err
		}

	default:
		s.logger.DebugContext(ctx, "ignoring processor event", "type", event.Type, "event_id", event.ID)
		return nil
	}
}
