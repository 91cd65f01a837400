package http

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/adoptiq/internal/app"
	"github.com/neomorfeo/adoptiq/internal/domain"
)

var (
	allStaff = []domain.Role{
		domain.RoleSuperAdmin, domain.RoleCampaignManager, domain.RoleFinance, domain.RoleViewer,
	}
	managers = []domain.Role{domain.RoleSuperAdmin, domain.RoleCampaignManager}
	finance  = []domain.Role{domain.RoleSuperAdmin, domain.RoleFinance}
	admins   = []domain.Role{domain.RoleSuperAdmin}
)

// --- Request/Response types ---

type SweepOutcomeResponse struct {
	CampaignID string `json:"campaignId"`
	LanguageID string `json:"languageId"`
	Result     string `json:"result" doc:"RELEASED, LANGUAGE_STILL_HELD or ERROR"`
	Error      string `json:"error,omitempty"`
}

type SweepOutput struct {
	Body struct {
		Outcomes []SweepOutcomeResponse `json:"outcomes"`
	}
}

type CampaignIDInput struct {
	ID string `path:"id" doc:"Campaign ID"`
}

type CancelOutput struct {
	Body struct {
		Campaign CampaignResponse `json:"campaign"`
		Release  string           `json:"release,omitempty" doc:"Registry outcome for adoptions"`
		Warnings []string         `json:"warnings"`
	}
}

type CampaignEventInput struct {
	ID   string `path:"id" doc:"Campaign ID"`
	Body struct {
		Event string `json:"event" enum:"pause,resume" doc:"Lifecycle event to apply"`
	}
}

type PartnerResetInput struct {
	ID string `path:"id" doc:"Partner ID"`
}

type PartnerResetOutput struct {
	Body struct {
		PartnerID string             `json:"partnerId"`
		Cancelled []CampaignResponse `json:"cancelled"`
		Releases  map[string]string  `json:"releases" doc:"Release outcome per language ID"`
		Warnings  []string           `json:"warnings"`
	}
}

type AddLanguageInput struct {
	Body struct {
		Code                        string `json:"code" doc:"BCP 47 style code, e.g. quz"`
		Name                        string `json:"name"`
		SpeakerCount                int64  `json:"speakerCount,omitempty"`
		Priority                    int    `json:"priority,omitempty" doc:"Higher sorts first"`
		TranslationNeedsSponsorship bool   `json:"translationNeedsSponsorship,omitempty"`
	}
}

type LanguageOutput struct {
	Body LanguageResponse
}

type LanguageReleaseInput struct {
	ID string `path:"id" doc:"Language ID"`
}

type LanguageReleaseOutput struct {
	Body struct {
		Outcome string `json:"outcome" doc:"RELEASED or LANGUAGE_STILL_HELD"`
	}
}

type ExpiringInput struct {
	Hours int `query:"hours" minimum:"0" doc:"Window in hours, added to days"`
	Days  int `query:"days" minimum:"0" doc:"Window in days; 7 when neither is set"`
}

type CampaignListOutput struct {
	Body []CampaignResponse
}

type RevenueInput struct {
	Since string `query:"since" doc:"Inclusive lower bound (RFC 3339)"`
	Until string `query:"until" doc:"Exclusive upper bound (RFC 3339)"`
}

type RevenueTotalResponse struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount" doc:"Sum in minor currency units"`
	Display  string `json:"display" doc:"Sum in major units, two decimals"`
	Count    int    `json:"count" doc:"Number of succeeded payments"`
}

type RevenueOutput struct {
	Body []RevenueTotalResponse
}

type PaymentRefInput struct {
	Ref string `path:"ref" doc:"External payment reference"`
}

type PaymentOutput struct {
	Body PaymentResponse
}

type PaymentListOutput struct {
	Body []PaymentResponse
}

type RecordPaymentInput struct {
	Body struct {
		CampaignID  string `json:"campaignId"`
		Amount      int64  `json:"amount" doc:"Amount in minor currency units"`
		Currency    string `json:"currency"`
		ExternalRef string `json:"externalRef" doc:"Idempotency key"`
		Status      string `json:"status" enum:"PENDING,SUCCEEDED,FAILED"`
	}
}

type RecordPaymentOutput struct {
	Status int
	Body   PaymentResponse
}

type RateLimitKeyInput struct {
	Policy    string `query:"policy" required:"true" enum:"payment,testimony"`
	Dimension string `query:"dimension" required:"true" enum:"ip,email"`
	Value     string `query:"value" required:"true"`
}

type RateLimitOutput struct {
	Body struct {
		Allowed   bool   `json:"allowed"`
		Remaining int    `json:"remaining"`
		ResetAt   string `json:"resetAt,omitempty"`
	}
}

// --- Routes ---

func registerAdmin(api huma.API, h *handler) {
	guard := func(roles []domain.Role) huma.Middlewares {
		return huma.Middlewares{requireRoles(api, h.Auth, roles...)}
	}
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "run-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/sweeps",
		Summary:     "Expire due one-time adoptions",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(managers),
	}, func(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
		outcomes, err := h.Campaigns.ExpireDueAdoptions(ctx)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "sweep", "expired", len(outcomes))

		out := &SweepOutput{}
		out.Body.Outcomes = make([]SweepOutcomeResponse, len(outcomes))
		for i, o := range outcomes {
			out.Body.Outcomes[i] = SweepOutcomeResponse{
				CampaignID: o.CampaignID,
				LanguageID: o.LanguageID,
				Result:     string(o.Result),
				Error:      o.Error,
			}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-campaign",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/campaigns/{id}",
		Summary:     "Get a campaign by ID",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(allStaff),
	}, func(ctx context.Context, input *CampaignIDInput) (*CampaignOutput, error) {
		c, err := h.Campaigns.GetByID(ctx, input.ID)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		return &CampaignOutput{Body: toCampaignResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-campaign",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/campaigns/{id}/cancel",
		Summary:     "Cancel a campaign",
		Description: "Cancels locally, then the processor subscription. Remote failures are reported as warnings.",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(managers),
	}, func(ctx context.Context, input *CampaignIDInput) (*CancelOutput, error) {
		res, err := h.Campaigns.Cancel(ctx, input.ID)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "cancel", "campaign_id", input.ID)

		out := &CancelOutput{}
		out.Body.Campaign = toCampaignResponse(res.Campaign)
		if res.Release != nil {
			out.Body.Release = string(*res.Release)
		}
		out.Body.Warnings = nonNil(res.Warnings)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "campaign-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/campaigns/{id}/events",
		Summary:     "Pause or resume a campaign",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(managers),
	}, func(ctx context.Context, input *CampaignEventInput) (*CampaignOutput, error) {
		c, err := h.Campaigns.Transition(ctx, input.ID, domain.Event(input.Body.Event))
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, input.Body.Event, "campaign_id", input.ID)
		return &CampaignOutput{Body: toCampaignResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-campaign-payments",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/campaigns/{id}/payments",
		Summary:     "List payments of a campaign",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(finance),
	}, func(ctx context.Context, input *CampaignIDInput) (*PaymentListOutput, error) {
		if _, err := h.Campaigns.GetByID(ctx, input.ID); err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		payments, err := h.Payments.ListByCampaign(ctx, input.ID)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		resp := make([]PaymentResponse, len(payments))
		for i, p := range payments {
			resp[i] = toPaymentResponse(p)
		}
		return &PaymentListOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-partner",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/partners/{id}/reset",
		Summary:     "Cancel every open campaign of a partner",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(admins),
	}, func(ctx context.Context, input *PartnerResetInput) (*PartnerResetOutput, error) {
		res, err := h.Campaigns.ResetPartner(ctx, input.ID)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "reset", "partner_id", input.ID, "cancelled", len(res.Cancelled))

		out := &PartnerResetOutput{}
		out.Body.PartnerID = res.PartnerID
		out.Body.Cancelled = toCampaignResponses(res.Cancelled)
		out.Body.Releases = make(map[string]string, len(res.Releases))
		for lang, outcome := range res.Releases {
			out.Body.Releases[lang] = string(outcome)
		}
		out.Body.Warnings = nonNil(res.Warnings)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-language",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/languages",
		Summary:       "Register a language channel",
		Tags:          []string{"Admin"},
		Security:      security,
		Middlewares:   guard(admins),
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddLanguageInput) (*LanguageOutput, error) {
		b := input.Body
		lang, err := h.Campaigns.AddLanguage(ctx, app.LanguageInput{
			Code:                        b.Code,
			Name:                        b.Name,
			SpeakerCount:                b.SpeakerCount,
			Priority:                    b.Priority,
			TranslationNeedsSponsorship: b.TranslationNeedsSponsorship,
		})
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "add language", "language_id", lang.ID, "code", lang.Code)
		return &LanguageOutput{Body: toLanguageResponse(lang)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "release-language",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/languages/{id}/release",
		Summary:     "Release a language for adoption",
		Description: "Refused while an active adoption still holds the language.",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(managers),
	}, func(ctx context.Context, input *LanguageReleaseInput) (*LanguageReleaseOutput, error) {
		outcome, err := h.Campaigns.ReleaseLanguage(ctx, input.ID)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "release", "language_id", input.ID, "outcome", outcome)

		out := &LanguageReleaseOutput{}
		out.Body.Outcome = string(outcome)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-expiring-campaigns",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/campaigns/expiring",
		Summary:     "List one-time adoptions expiring soon",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(allStaff),
	}, func(ctx context.Context, input *ExpiringInput) (*CampaignListOutput, error) {
		days := input.Days
		if input.Hours == 0 && days == 0 {
			days = 7
		}
		window := time.Duration(input.Hours)*time.Hour + time.Duration(days)*24*time.Hour

		campaigns, err := h.Campaigns.ExpiringWithin(ctx, window)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		return &CampaignListOutput{Body: toCampaignResponses(campaigns)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-expired-campaigns",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/campaigns/expired",
		Summary:     "List one-time adoptions past expiry and not yet swept",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(allStaff),
	}, func(ctx context.Context, _ *struct{}) (*CampaignListOutput, error) {
		campaigns, err := h.Campaigns.Expired(ctx)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		return &CampaignListOutput{Body: toCampaignResponses(campaigns)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-revenue",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/revenue",
		Summary:     "Sum succeeded payments per currency",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(finance),
	}, func(ctx context.Context, input *RevenueInput) (*RevenueOutput, error) {
		filter, err := parseRevenueFilter(input)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		totals, err := h.Payments.Revenue(ctx, filter)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })
		resp := make([]RevenueTotalResponse, len(totals))
		for i, t := range totals {
			resp[i] = RevenueTotalResponse{
				Currency: t.Currency,
				Amount:   t.Amount,
				Display:  displayAmount(t.Amount),
				Count:    t.Count,
			}
		}
		return &RevenueOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/payments",
		Summary:     "Record a payment event manually",
		Description: "Idempotent on externalRef: a replay returns the stored payment with 200.",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(finance),
	}, func(ctx context.Context, input *RecordPaymentInput) (*RecordPaymentOutput, error) {
		b := input.Body
		p, created, err := h.Payments.Record(ctx, app.RecordInput{
			CampaignID:  b.CampaignID,
			Amount:      b.Amount,
			Currency:    strings.ToLower(b.Currency),
			ExternalRef: b.ExternalRef,
			Status:      domain.PaymentStatus(b.Status),
		})
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "record payment", "external_ref", b.ExternalRef, "created", created)

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		return &RecordPaymentOutput{Status: status, Body: toPaymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refund-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/payments/{ref}/refund",
		Summary:     "Mark a succeeded payment refunded",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(finance),
	}, func(ctx context.Context, input *PaymentRefInput) (*PaymentOutput, error) {
		p, err := h.Payments.Refund(ctx, input.Ref)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "refund", "external_ref", input.Ref)
		return &PaymentOutput{Body: toPaymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-rate-limit",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/rate-limits",
		Summary:     "Inspect a rate-limit counter",
		Tags:        []string{"Admin"},
		Security:    security,
		Middlewares: guard(admins),
	}, func(ctx context.Context, input *RateLimitKeyInput) (*RateLimitOutput, error) {
		d, err := h.Limiter.Peek(ctx, h.policy(input.Policy), input.key())
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		out := &RateLimitOutput{}
		out.Body.Allowed = d.Allowed
		out.Body.Remaining = d.Remaining
		out.Body.ResetAt = formatTime(d.ResetAt)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reset-rate-limit",
		Method:        http.MethodDelete,
		Path:          "/api/v1/admin/rate-limits",
		Summary:       "Clear a rate-limit counter",
		Tags:          []string{"Admin"},
		Security:      security,
		Middlewares:   guard(admins),
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RateLimitKeyInput) (*struct{}, error) {
		if err := h.Limiter.Reset(ctx, h.policy(input.Policy), input.key()); err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		h.audit(ctx, "rate limit reset", "policy", input.Policy, "dimension", input.Dimension)
		return nil, nil
	})
}

func (h *handler) policy(name string) domain.RateLimitPolicy {
	if name == h.TestimonyPolicy.Name {
		return h.TestimonyPolicy
	}
	return h.PaymentPolicy
}

func (in *RateLimitKeyInput) key() app.LimitKey {
	return app.LimitKey{Dimension: in.Dimension, Value: in.Value}
}

// audit logs a staff action with the caller's identity.
func (h *handler) audit(ctx context.Context, action string, attrs ...any) {
	id := identity(ctx)
	h.logger.InfoContext(ctx, "admin action",
		append([]any{"action", action, "subject", id.Subject, "role", id.Role}, attrs...)...,
	)
}

func parseRevenueFilter(in *RevenueInput) (domain.RevenueFilter, error) {
	var filter domain.RevenueFilter
	if in.Since != "" {
		t, err := time.Parse(time.RFC3339, in.Since)
		if err != nil {
			return filter, domain.NewValidationError("since", "must be an RFC 3339 timestamp")
		}
		filter.Since = t.UTC()
	}
	if in.Until != "" {
		t, err := time.Parse(time.RFC3339, in.Until)
		if err != nil {
			return filter, domain.NewValidationError("until", "must be an RFC 3339 timestamp")
		}
		filter.Until = t.UTC()
	}
	return filter, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
