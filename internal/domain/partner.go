package domain

import (
	"strings"
	"time"
)

// Partner is a donor or sponsor. Each partner maps 1:1 to a customer at the
// payment processor.
type Partner struct {
	ID                 string
	Email              string
	Name               string
	Country            string
	Organization       string
	ExternalCustomerID string
	NeedsFollowUp      bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewPartner creates a partner with a normalized email.
func NewPartner(id, email, name, country, organization string) Partner {
	now := time.Now().UTC()
	return Partner{
		ID:           id,
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		Country:      country,
		Organization: organization,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lower-cases and trims an address so that the same mailbox
// always maps to the same partner and rate-limit key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
