package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// LifecycleJobArgs carries a campaign lifecycle event through the queue.
// River serializes it as JSON, so the worker never reads the store.
type LifecycleJobArgs struct {
	Event      string `json:"event"`
	CampaignID string `json:"campaign_id"`
	PartnerID  string `json:"partner_id"`
	LanguageID string `json:"language_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (LifecycleJobArgs) Kind() string { return "lifecycle.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle event as an async job.
func (p *Publisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	_, err := p.client.Insert(ctx, LifecycleJobArgs{
		Event:      string(event.Kind),
		CampaignID: event.CampaignID,
		PartnerID:  event.PartnerID,
		LanguageID: event.LanguageID,
		Reason:     event.Reason,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing %s job: %w", event.Kind, err)
	}
	return nil
}
