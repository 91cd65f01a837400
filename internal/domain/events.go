package domain

// EventKind names a lifecycle event emitted for asynchronous follow-up.
type EventKind string

const (
	EventCampaignCreated   EventKind = "campaign.created"
	EventCampaignCompleted EventKind = "campaign.completed"
	EventCampaignCancelled EventKind = "campaign.cancelled"
	EventPartnerFollowUp   EventKind = "partner.follow_up"
)

// LifecycleEvent carries enough context for a worker to act without reading
// the store again.
type LifecycleEvent struct {
	Kind       EventKind
	CampaignID string
	PartnerID  string
	LanguageID string
	Reason     string
}
