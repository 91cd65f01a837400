package domain

import "time"

// AdoptionStatus reports whether a language channel currently has an adopter.
type AdoptionStatus string

const (
	AdoptionAvailable AdoptionStatus = "AVAILABLE"
	AdoptionPending   AdoptionStatus = "PENDING"
	AdoptionAdopted   AdoptionStatus = "ADOPTED"
	AdoptionWaitlist  AdoptionStatus = "WAITLIST"
)

// Valid reports whether s is a known adoption status.
func (s AdoptionStatus) Valid() bool {
	switch s {
	case AdoptionAvailable, AdoptionPending, AdoptionAdopted, AdoptionWaitlist:
		return true
	}
	return false
}

// Language is a language channel that can be adopted by exactly one partner
// at a time, and sponsored for translation by any number of partners.
type Language struct {
	ID                          string
	Code                        string
	Name                        string
	SpeakerCount                int64
	AdoptionStatus              AdoptionStatus
	TranslationNeedsSponsorship bool
	Priority                    int
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// NewLanguage creates an available language.
func NewLanguage(id, code, name string, speakers int64, priority int) Language {
	now := time.Now().UTC()
	return Language{
		ID:             id,
		Code:           code,
		Name:           name,
		SpeakerCount:   speakers,
		AdoptionStatus: AdoptionAvailable,
		Priority:       priority,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// LanguageFilter holds optional criteria for listing languages.
type LanguageFilter struct {
	Status *AdoptionStatus
	Limit  int
	Offset int
}

// ReleaseOutcome is the result of asking the registry to release a language.
type ReleaseOutcome string

const (
	ReleaseReleased  ReleaseOutcome = "RELEASED"
	ReleaseStillHeld ReleaseOutcome = "LANGUAGE_STILL_HELD"
)
