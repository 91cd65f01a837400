package domain

import "time"

// CampaignType distinguishes exclusive adoptions from non-exclusive support.
type CampaignType string

const (
	CampaignAdoptLanguage      CampaignType = "ADOPT_LANGUAGE"
	CampaignSponsorTranslation CampaignType = "SPONSOR_TRANSLATION"
	CampaignGeneralDonation    CampaignType = "GENERAL_DONATION"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignPaused    CampaignStatus = "PAUSED"
	CampaignCancelled CampaignStatus = "CANCELLED"
	CampaignCompleted CampaignStatus = "COMPLETED"
)

// Terminal reports whether no further transition can leave s.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCancelled || s == CampaignCompleted
}

// Event represents an action that triggers a campaign state transition.
type Event string

const (
	EventPause    Event = "pause"
	EventResume   Event = "resume"
	EventComplete Event = "complete"
	EventCancel   Event = "cancel"
)

// Transition defines a valid state change: an event moves a campaign from Src to Dst.
type Transition struct {
	Event Event
	Src   CampaignStatus
	Dst   CampaignStatus
}

// CampaignTransitions defines all valid state changes in the campaign lifecycle.
// Cancelled and completed campaigns are never resurrected; a new campaign is
// created instead.
var CampaignTransitions = []Transition{
	{Event: EventPause, Src: CampaignActive, Dst: CampaignPaused},
	{Event: EventResume, Src: CampaignPaused, Dst: CampaignActive},
	{Event: EventComplete, Src: CampaignActive, Dst: CampaignCompleted},
	{Event: EventCancel, Src: CampaignActive, Dst: CampaignCancelled},
	{Event: EventCancel, Src: CampaignPaused, Dst: CampaignCancelled},
}

// Campaign ties a partner's contribution to a language.
type Campaign struct {
	ID                     string
	PartnerID              string
	LanguageID             string
	Type                   CampaignType
	Status                 CampaignStatus
	MonthlyAmount          int64
	Currency               string
	ExternalSubscriptionID string
	// NextBillingDate is the processor's period end for recurring campaigns
	// and the expiry marker for one-time adoptions.
	NextBillingDate time.Time
	StartDate       time.Time
	EndDate         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OneTime reports whether the campaign has no processor subscription behind it.
func (c Campaign) OneTime() bool {
	return c.ExternalSubscriptionID == ""
}

// NewCampaign creates an active campaign starting now.
func NewCampaign(id, partnerID, languageID string, typ CampaignType, amount int64, currency string) Campaign {
	now := time.Now().UTC()
	return Campaign{
		ID:            id,
		PartnerID:     partnerID,
		LanguageID:    languageID,
		Type:          typ,
		Status:        CampaignActive,
		MonthlyAmount: amount,
		Currency:      currency,
		StartDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CampaignFilter holds optional criteria for listing campaigns.
type CampaignFilter struct {
	PartnerID  string
	LanguageID string
	Status     *CampaignStatus
	Type       *CampaignType
	Limit      int
	Offset     int
}

// SweepResult is the per-campaign outcome of an expiration sweep.
type SweepResult string

const (
	SweepReleased          SweepResult = "RELEASED"
	SweepLanguageStillHeld SweepResult = "LANGUAGE_STILL_HELD"
	SweepError             SweepResult = "ERROR"
)

// SweepOutcome reports what happened to one expired adoption.
type SweepOutcome struct {
	CampaignID string
	LanguageID string
	Result     SweepResult
	Error      string
}

// CancelResult is returned by a single campaign cancellation. Warnings list
// remote cleanup failures; local state is already final when they occur.
type CancelResult struct {
	Campaign Campaign
	Release  *ReleaseOutcome
	Warnings []string
}

// ResetResult is returned by a bulk partner reset.
type ResetResult struct {
	PartnerID string
	Cancelled []Campaign
	Releases  map[string]ReleaseOutcome
	Warnings  []string
}
