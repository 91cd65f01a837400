package app

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

var currencyCode = regexp.MustCompile(`^[a-z]{3}$`)

// minAmount is the smallest charge in minor units the processor accepts.
const minAmount = 100

// RecurringInput starts a subscription-backed campaign.
type RecurringInput struct {
	Email        string              `json:"email"`
	Name         string              `json:"name"`
	Country      string              `json:"country"`
	Organization string              `json:"organization"`
	LanguageID   string              `json:"languageId"`
	Type         domain.CampaignType `json:"type"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
}

// Validate checks the input and returns a *domain.ValidationError.
func (in *RecurringInput) Validate() error {
	return toValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Country, validation.Length(0, 100)),
		validation.Field(&in.Organization, validation.Length(0, 200)),
		validation.Field(&in.LanguageID, validation.Required),
		validation.Field(&in.Type, validation.Required, validation.In(
			domain.CampaignAdoptLanguage, domain.CampaignSponsorTranslation, domain.CampaignGeneralDonation,
		)),
		validation.Field(&in.Amount, validation.Required, validation.Min(int64(minAmount))),
		validation.Field(&in.Currency, validation.Required, validation.Match(currencyCode)),
	))
}

// IntentInput creates a one-time payment intent. Only adoptions and general
// donations can be paid once.
type IntentInput struct {
	Email      string              `json:"email"`
	Name       string              `json:"name"`
	LanguageID string              `json:"languageId"`
	Type       domain.CampaignType `json:"type"`
	Amount     int64               `json:"amount"`
	Currency   string              `json:"currency"`
}

// Validate checks the input and returns a *domain.ValidationError.
func (in *IntentInput) Validate() error {
	return toValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.LanguageID, validation.Required),
		validation.Field(&in.Type, validation.Required, validation.In(
			domain.CampaignAdoptLanguage, domain.CampaignGeneralDonation,
		)),
		validation.Field(&in.Amount, validation.Required, validation.Min(int64(minAmount))),
		validation.Field(&in.Currency, validation.Required, validation.Match(currencyCode)),
	))
}

var languageCode = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// LanguageInput registers a language channel.
type LanguageInput struct {
	Code                        string `json:"code"`
	Name                        string `json:"name"`
	SpeakerCount                int64  `json:"speakerCount"`
	Priority                    int    `json:"priority"`
	TranslationNeedsSponsorship bool   `json:"translationNeedsSponsorship"`
}

// Validate checks the input and returns a *domain.ValidationError.
func (in *LanguageInput) Validate() error {
	return toValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Code, validation.Required, validation.Match(languageCode)),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.SpeakerCount, validation.Min(int64(0))),
		validation.Field(&in.Priority, validation.Min(0)),
	))
}

// RecordInput is one payment event reported against a campaign.
type RecordInput struct {
	CampaignID  string               `json:"campaignId"`
	Amount      int64                `json:"amount"`
	Currency    string               `json:"currency"`
	ExternalRef string               `json:"externalRef"`
	Status      domain.PaymentStatus `json:"status"`
}

// Validate checks the input and returns a *domain.ValidationError.
func (in *RecordInput) Validate() error {
	return toValidationError(validation.ValidateStruct(in,
		validation.Field(&in.CampaignID, validation.Required),
		validation.Field(&in.Amount, validation.Min(int64(0))),
		validation.Field(&in.Currency, validation.Required, validation.Match(currencyCode)),
		validation.Field(&in.ExternalRef, validation.Required),
		validation.Field(&in.Status, validation.Required, validation.In(
			domain.PaymentPending, domain.PaymentSucceeded, domain.PaymentFailed,
		)),
	))
}

// TestimonyInput is a public testimony submission.
type TestimonyInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Message    string `json:"message"`
	LanguageID string `json:"languageId"`
}

// Validate checks the input and returns a *domain.ValidationError.
func (in *TestimonyInput) Validate() error {
	return toValidationError(validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Message, validation.Required, validation.Length(10, 2000)),
	))
}

// toValidationError flattens ozzo field errors into the domain error type.
// Internal rule errors pass through unchanged.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &domain.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for field, fieldErr := range fieldErrs {
		out.Fields[field] = fieldErr.Error()
	}
	return out
}
