package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/adoptiq/internal/app"
	"github.com/neomorfeo/adoptiq/internal/domain"
)

// WebhookParser verifies and decodes a signed processor delivery.
type WebhookParser interface {
	Parse(payload []byte, header string) (domain.ProcessorEvent, error)
}

// Deps holds the services behind the API.
type Deps struct {
	Campaigns   *app.CampaignService
	Payments    *app.PaymentService
	Testimonies *app.TestimonyService
	Gate        *app.Gate
	Limiter     *app.RateLimiter
	Auth        domain.Authenticator
	// Webhooks is optional; the webhook route is not registered without it.
	Webhooks        WebhookParser
	PaymentPolicy   domain.RateLimitPolicy
	TestimonyPolicy domain.RateLimitPolicy
	Logger          *slog.Logger
}

type handler struct {
	Deps
	logger *slog.Logger
}

// Register adds all API routes to the Huma API.
func Register(api huma.API, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{Deps: deps, logger: logger}

	components := api.OpenAPI().Components
	if components.SecuritySchemes == nil {
		components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	components.SecuritySchemes["bearer"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}

	api.UseMiddleware(clientIPMiddleware)

	registerPublic(api, h)
	registerAdmin(api, h)
}

// --- Responses ---

// LanguageResponse is the API representation of a language.
type LanguageResponse struct {
	ID                          string `json:"id" doc:"Unique identifier"`
	Code                        string `json:"code" doc:"Language code"`
	Name                        string `json:"name" doc:"Display name"`
	SpeakerCount                int64  `json:"speakerCount" doc:"Number of speakers"`
	AdoptionStatus              string `json:"adoptionStatus" doc:"AVAILABLE, PENDING, ADOPTED or WAITLIST"`
	TranslationNeedsSponsorship bool   `json:"translationNeedsSponsorship"`
	Priority                    int    `json:"priority" doc:"Higher sorts first"`
}

func toLanguageResponse(l domain.Language) LanguageResponse {
	return LanguageResponse{
		ID:                          l.ID,
		Code:                        l.Code,
		Name:                        l.Name,
		SpeakerCount:                l.SpeakerCount,
		AdoptionStatus:              string(l.AdoptionStatus),
		TranslationNeedsSponsorship: l.TranslationNeedsSponsorship,
		Priority:                    l.Priority,
	}
}

// CampaignResponse is the API representation of a campaign.
type CampaignResponse struct {
	ID              string `json:"id" doc:"Unique identifier"`
	PartnerID       string `json:"partnerId"`
	LanguageID      string `json:"languageId"`
	Type            string `json:"type" doc:"ADOPT_LANGUAGE, SPONSOR_TRANSLATION or GENERAL_DONATION"`
	Status          string `json:"status" doc:"Lifecycle state"`
	MonthlyAmount   int64  `json:"monthlyAmount" doc:"Amount in minor currency units"`
	Currency        string `json:"currency"`
	OneTime         bool   `json:"oneTime" doc:"No processor subscription behind the campaign"`
	NextBillingDate string `json:"nextBillingDate" doc:"Next charge, or expiry for one-time adoptions (ISO 8601)"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func toCampaignResponse(c domain.Campaign) CampaignResponse {
	resp := CampaignResponse{
		ID:              c.ID,
		PartnerID:       c.PartnerID,
		LanguageID:      c.LanguageID,
		Type:            string(c.Type),
		Status:          string(c.Status),
		MonthlyAmount:   c.MonthlyAmount,
		Currency:        c.Currency,
		OneTime:         c.OneTime(),
		NextBillingDate: formatTime(c.NextBillingDate),
		StartDate:       formatTime(c.StartDate),
		CreatedAt:       formatTime(c.CreatedAt),
		UpdatedAt:       formatTime(c.UpdatedAt),
	}
	if c.EndDate != nil {
		resp.EndDate = formatTime(*c.EndDate)
	}
	return resp
}

func toCampaignResponses(campaigns []domain.Campaign) []CampaignResponse {
	resp := make([]CampaignResponse, len(campaigns))
	for i, c := range campaigns {
		resp[i] = toCampaignResponse(c)
	}
	return resp
}

// PaymentResponse is the API representation of a recorded payment.
type PaymentResponse struct {
	ID          string `json:"id"`
	CampaignID  string `json:"campaignId"`
	PartnerID   string `json:"partnerId"`
	Amount      int64  `json:"amount" doc:"Amount in minor currency units"`
	Display     string `json:"display" doc:"Amount in major units, two decimals"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	ExternalRef string `json:"externalRef" doc:"Processor invoice or payment intent id"`
	PaymentDate string `json:"paymentDate"`
}

func toPaymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		CampaignID:  p.CampaignID,
		PartnerID:   p.PartnerID,
		Amount:      p.Amount,
		Display:     displayAmount(p.Amount),
		Currency:    p.Currency,
		Status:      string(p.Status),
		ExternalRef: p.ExternalRef,
		PaymentDate: formatTime(p.PaymentDate),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// displayAmount renders minor units as a fixed two-decimal string.
func displayAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// --- Errors ---

// toHumaError translates domain errors to Huma HTTP errors. Internal detail
// of upstream and unexpected failures is logged, never returned.
func (h *handler) toHumaError(ctx context.Context, err error) error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		fields := make([]string, 0, len(validationErr.Fields))
		for f := range validationErr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		details := make([]error, 0, len(fields))
		for _, f := range fields {
			details = append(details, &huma.ErrorDetail{
				Location: f,
				Message:  validationErr.Fields[f],
			})
		}
		return huma.Error422UnprocessableEntity("validation failed", details...)
	}

	var rateErr *domain.RateLimitedError
	if errors.As(err, &rateErr) {
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		return huma.ErrorWithHeaders(
			huma.Error429TooManyRequests(rateErr.Reason),
			http.Header{"Retry-After": []string{strconv.Itoa(seconds)}},
		)
	}

	var antiBotErr *domain.AntiBotError
	if errors.As(err, &antiBotErr) {
		return huma.Error400BadRequest("request rejected")
	}

	var conflictErr *domain.AdoptionConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict(conflictErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	switch {
	case errors.Is(err, domain.ErrLanguageNotFound):
		return huma.Error404NotFound("language not found")
	case errors.Is(err, domain.ErrCampaignNotFound):
		return huma.Error404NotFound("campaign not found")
	case errors.Is(err, domain.ErrPartnerNotFound):
		return huma.Error404NotFound("partner not found")
	case errors.Is(err, domain.ErrPaymentNotFound):
		return huma.Error404NotFound("payment not found")
	case errors.Is(err, domain.ErrStaleCampaign), errors.Is(err, domain.ErrStalePayment):
		return huma.Error409Conflict("changed concurrently, retry")
	case errors.Is(err, domain.ErrPartnerExists):
		return huma.Error409Conflict("partner already exists")
	case errors.Is(err, domain.ErrPaymentIncomplete):
		return huma.Error409Conflict("payment has not succeeded")
	case errors.Is(err, domain.ErrInvalidSignature):
		return huma.Error400BadRequest("invalid signature")
	case errors.Is(err, domain.ErrUnauthenticated):
		return huma.Error401Unauthorized("unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("forbidden")
	}

	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		h.logger.ErrorContext(ctx, "payment processor failure", "op", upstreamErr.Op, "error", upstreamErr.Err)
		return huma.Error502BadGateway("payment processor unavailable")
	}

	h.logger.ErrorContext(ctx, "unhandled error", "error", err)
	return huma.Error500InternalServerError("internal server error")
}
