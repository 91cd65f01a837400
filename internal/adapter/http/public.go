package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/adoptiq/internal/app"
	"github.com/neomorfeo/adoptiq/internal/domain"
)

// AntiBotFields are echoed back by every public form.
type AntiBotFields struct {
	Honeypot  string `json:"honeypot,omitempty" doc:"Hidden field, must stay empty"`
	Token     string `json:"token,omitempty" doc:"Security token from /api/v1/security-token"`
	Timestamp int64  `json:"timestamp,omitempty" doc:"Timestamp issued with the token (ms)"`
}

func (f AntiBotFields) submission() app.Submission {
	return app.Submission{Honeypot: f.Honeypot, Token: f.Token, Timestamp: f.Timestamp}
}

// --- Request/Response types ---

type SecurityTokenOutput struct {
	Body app.SecurityToken
}

type ListLanguagesInput struct {
	Status string `query:"status" enum:"AVAILABLE,PENDING,ADOPTED,WAITLIST" required:"false" doc:"Filter by adoption status"`
	Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"50" doc:"Max results"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type ListLanguagesOutput struct {
	Body []LanguageResponse
}

type CreateIntentInput struct {
	Body struct {
		Email      string `json:"email" doc:"Donor email"`
		Name       string `json:"name" doc:"Donor name"`
		LanguageID string `json:"languageId" doc:"Language to adopt or credit"`
		Type       string `json:"type" doc:"ADOPT_LANGUAGE or GENERAL_DONATION"`
		Amount     int64  `json:"amount" doc:"Amount in minor currency units"`
		Currency   string `json:"currency" doc:"ISO 4217 code, lowercase"`
		AntiBotFields
	}
}

type CreateIntentOutput struct {
	RateLimitRemaining int `header:"X-RateLimit-Remaining"`
	Body               struct {
		IntentID     string `json:"intentId"`
		ClientSecret string `json:"clientSecret"`
	}
}

type StartRecurringInput struct {
	Body struct {
		Email        string `json:"email" doc:"Donor email"`
		Name         string `json:"name" doc:"Donor name"`
		Country      string `json:"country,omitempty"`
		Organization string `json:"organization,omitempty"`
		LanguageID   string `json:"languageId"`
		Type         string `json:"type" doc:"ADOPT_LANGUAGE, SPONSOR_TRANSLATION or GENERAL_DONATION"`
		Amount       int64  `json:"amount" doc:"Monthly amount in minor currency units"`
		Currency     string `json:"currency" doc:"ISO 4217 code, lowercase"`
		AntiBotFields
	}
}

type StartRecurringOutput struct {
	RateLimitRemaining int `header:"X-RateLimit-Remaining"`
	Body               struct {
		Campaign     CampaignResponse `json:"campaign"`
		ClientSecret string           `json:"clientSecret"`
	}
}

type ConfirmIntentInput struct {
	ID string `path:"id" doc:"Payment intent ID"`
}

type CampaignOutput struct {
	Body CampaignResponse
}

type SubmitTestimonyInput struct {
	Body struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Message    string `json:"message" doc:"10 to 2000 characters"`
		LanguageID string `json:"languageId,omitempty"`
		AntiBotFields
	}
}

type SubmitTestimonyOutput struct {
	RateLimitRemaining int `header:"X-RateLimit-Remaining"`
	Body               struct {
		ID string `json:"id"`
	}
}

type WebhookInput struct {
	Signature string `header:"Stripe-Signature" required:"true"`
	RawBody   []byte
}

type WebhookOutput struct {
	Body struct {
		Received bool `json:"received"`
	}
}

// --- Routes ---

func registerPublic(api huma.API, h *handler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-security-token",
		Method:      http.MethodGet,
		Path:        "/api/v1/security-token",
		Summary:     "Issue a form security token",
		Tags:        []string{"Public"},
	}, func(_ context.Context, _ *struct{}) (*SecurityTokenOutput, error) {
		return &SecurityTokenOutput{Body: h.Gate.IssueToken()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-languages",
		Method:      http.MethodGet,
		Path:        "/api/v1/languages",
		Summary:     "List languages",
		Tags:        []string{"Public"},
	}, func(ctx context.Context, input *ListLanguagesInput) (*ListLanguagesOutput, error) {
		filter := domain.LanguageFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Status != "" {
			s := domain.AdoptionStatus(input.Status)
			filter.Status = &s
		}

		languages, err := h.Campaigns.ListLanguages(ctx, filter)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		resp := make([]LanguageResponse, len(languages))
		for i, l := range languages {
			resp[i] = toLanguageResponse(l)
		}
		return &ListLanguagesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-payment-intent",
		Method:        http.MethodPost,
		Path:          "/api/v1/payment-intents",
		Summary:       "Create a one-time payment intent",
		Tags:          []string{"Public"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateIntentInput) (*CreateIntentOutput, error) {
		b := input.Body
		decision, err := h.Gate.Admit(ctx, b.submission(), h.PaymentPolicy,
			app.LimitKey{Dimension: app.DimensionIP, Value: clientIP(ctx)},
			app.LimitKey{Dimension: app.DimensionEmail, Value: domain.NormalizeEmail(b.Email)},
		)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		res, err := h.Campaigns.CreatePaymentIntent(ctx, app.IntentInput{
			Email:      b.Email,
			Name:       b.Name,
			LanguageID: b.LanguageID,
			Type:       domain.CampaignType(b.Type),
			Amount:     b.Amount,
			Currency:   strings.ToLower(b.Currency),
		})
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		out := &CreateIntentOutput{RateLimitRemaining: decision.Remaining}
		out.Body.IntentID = res.IntentID
		out.Body.ClientSecret = res.ClientSecret
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-payment-intent",
		Method:      http.MethodPost,
		Path:        "/api/v1/payment-intents/{id}/confirm",
		Summary:     "Confirm a succeeded one-time payment",
		Description: "Creates the campaign for a succeeded intent. Repeated calls return the same campaign.",
		Tags:        []string{"Public"},
	}, func(ctx context.Context, input *ConfirmIntentInput) (*CampaignOutput, error) {
		c, err := h.Campaigns.ConfirmOneTime(ctx, input.ID)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}
		return &CampaignOutput{Body: toCampaignResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "start-subscription",
		Method:        http.MethodPost,
		Path:          "/api/v1/subscriptions",
		Summary:       "Start a recurring campaign",
		Tags:          []string{"Public"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *StartRecurringInput) (*StartRecurringOutput, error) {
		b := input.Body
		decision, err := h.Gate.Admit(ctx, b.submission(), h.PaymentPolicy,
			app.LimitKey{Dimension: app.DimensionIP, Value: clientIP(ctx)},
			app.LimitKey{Dimension: app.DimensionEmail, Value: domain.NormalizeEmail(b.Email)},
		)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		res, err := h.Campaigns.StartRecurring(ctx, app.RecurringInput{
			Email:        b.Email,
			Name:         b.Name,
			Country:      b.Country,
			Organization: b.Organization,
			LanguageID:   b.LanguageID,
			Type:         domain.CampaignType(b.Type),
			Amount:       b.Amount,
			Currency:     strings.ToLower(b.Currency),
		})
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		out := &StartRecurringOutput{RateLimitRemaining: decision.Remaining}
		out.Body.Campaign = toCampaignResponse(res.Campaign)
		out.Body.ClientSecret = res.ClientSecret
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-testimony",
		Method:        http.MethodPost,
		Path:          "/api/v1/testimonies",
		Summary:       "Submit a testimony for review",
		Tags:          []string{"Public"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SubmitTestimonyInput) (*SubmitTestimonyOutput, error) {
		b := input.Body
		decision, err := h.Gate.Admit(ctx, b.submission(), h.TestimonyPolicy,
			app.LimitKey{Dimension: app.DimensionIP, Value: clientIP(ctx)},
		)
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		t, err := h.Testimonies.Submit(ctx, app.TestimonyInput{
			Name:       b.Name,
			Email:      b.Email,
			Message:    b.Message,
			LanguageID: b.LanguageID,
		})
		if err != nil {
			return nil, h.toHumaError(ctx, err)
		}

		out := &SubmitTestimonyOutput{RateLimitRemaining: decision.Remaining}
		out.Body.ID = t.ID
		return out, nil
	})

	if h.Webhooks == nil {
		return
	}

	huma.Register(api, huma.Operation{
		OperationID:  "processor-webhook",
		Method:       http.MethodPost,
		Path:         "/api/v1/webhooks/processor",
		Summary:      "Receive a signed payment processor event",
		Tags:         []string{"Webhooks"},
		MaxBodyBytes: 1 << 20,
	}, func(ctx context.Context, input *WebhookInput) (*WebhookOutput, error) {
		event, err := h.Webhooks.Parse(input.RawBody, input.Signature)
		if err != nil {
			h.logger.WarnContext(ctx, "webhook rejected", "error", err)
			return nil, h.toHumaError(ctx, err)
		}

		if err := h.Payments.HandleProcessorEvent(ctx, event); err != nil {
			h.logger.ErrorContext(ctx, "webhook handling failed",
				"event_id", event.ID,
				"type", event.Type,
				"error", err,
			)
			return nil, h.toHumaError(ctx, err)
		}

		out := &WebhookOutput{}
		out.Body.Received = true
		return out, nil
	})
}
