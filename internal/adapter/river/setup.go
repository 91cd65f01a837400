package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Options configures the River client.
type Options struct {
	// Sweep is run by the adoption sweep job.
	Sweep SweepFunc
	// SweepInterval schedules the sweep periodically. Zero disables the
	// schedule; sweeps can still be enqueued with EnqueueSweep.
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// Setup creates a River client with the lifecycle and sweep workers
// registered and runs River's internal migrations. The caller must call
// client.Start() to begin processing jobs and client.Stop() for graceful
// shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Sweep == nil {
		return nil, fmt.Errorf("river setup: sweep func is required")
	}

	driver := riversqlite.New(db)

	// River's own tables are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &LifecycleWorker{logger: logger})
	river.AddWorker(workers, &SweepWorker{sweep: opts.Sweep, logger: logger})

	var periodic []*river.PeriodicJob
	if opts.SweepInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(opts.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return SweepJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}

// EnqueueSweep schedules an immediate adoption sweep.
func EnqueueSweep(ctx context.Context, client *Client) error {
	if _, err := client.Insert(ctx, SweepJobArgs{}, nil); err != nil {
		return fmt.Errorf("enqueuing sweep job: %w", err)
	}
	return nil
}
