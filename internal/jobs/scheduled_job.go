package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// scheduledJob runs one function on a cron schedule. A run that is still in
// progress when the next tick fires makes that tick a no-op.
type scheduledJob struct {
	name     string
	schedule string
	run      func(ctx context.Context)
	cron     *cron.Cron
	logger   *slog.Logger
}

func newScheduledJob(name, schedule string, run func(ctx context.Context), logger *slog.Logger) scheduledJob {
	return scheduledJob{
		name:     name,
		schedule: schedule,
		run:      run,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

func (j *scheduledJob) Name() string {
	return j.name
}

func (j *scheduledJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "job started", "schedule", j.schedule)
	return nil
}

// Stop waits for a run in progress to finish.
func (j *scheduledJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "job stopped")
}
