package river

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// LifecycleWorker handles lifecycle event jobs. Follow-up events are
// surfaced at warn level so staff alerting can key off them.
type LifecycleWorker struct {
	river.WorkerDefaults[LifecycleJobArgs]
	logger *slog.Logger
}

// Work processes a single lifecycle event job.
func (w *LifecycleWorker) Work(ctx context.Context, job *river.Job[LifecycleJobArgs]) error {
	attrs := []any{
		"event", job.Args.Event,
		"campaign_id", job.Args.CampaignID,
		"partner_id", job.Args.PartnerID,
		"language_id", job.Args.LanguageID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	}

	if domain.EventKind(job.Args.Event) == domain.EventPartnerFollowUp {
		w.logger.WarnContext(ctx, "partner needs follow-up", append(attrs, "reason", job.Args.Reason)...)
		return nil
	}

	w.logger.InfoContext(ctx, "processing lifecycle event", attrs...)
	return nil
}

// SweepJobArgs triggers one pass of the adoption expiry sweep.
type SweepJobArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepJobArgs) Kind() string { return "adoption.sweep" }

// SweepFunc expires due adoptions and reports one outcome per campaign.
type SweepFunc func(ctx context.Context) ([]domain.SweepOutcome, error)

// SweepWorker runs the adoption expiry sweep.
type SweepWorker struct {
	river.WorkerDefaults[SweepJobArgs]
	sweep  SweepFunc
	logger *slog.Logger
}

// Work runs one sweep. Per-campaign failures are logged, not retried: a
// failed campaign stays ACTIVE and the next scheduled sweep picks it up.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJobArgs]) error {
	outcomes, err := w.sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweeping adoptions: %w", err)
	}

	for _, o := range outcomes {
		if o.Result == domain.SweepError {
			w.logger.ErrorContext(ctx, "adoption expiry failed",
				"campaign_id", o.CampaignID,
				"language_id", o.LanguageID,
				"error", o.Error,
				"job_id", job.ID,
			)
		}
	}

	return nil
}
