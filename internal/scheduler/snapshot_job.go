package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotRecorder records one valuation snapshot per active portfolio
type SnapshotRecorder interface {
	RecordSnapshots(ctx context.Context, date time.Time) (int, error)
}

// SnapshotJob records the daily portfolio snapshots performance is computed from
type SnapshotJob struct {
	recorder SnapshotRecorder
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewSnapshotJob creates a new snapshot job. timeout bounds a whole run;
// zero means unbounded.
func NewSnapshotJob(recorder SnapshotRecorder, timeout time.Duration, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		recorder: recorder,
		timeout:  timeout,
		now:      time.Now,
		log:      log.With().Str("job", "portfolio_snapshots").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshots"
}

// Run records today's snapshots
func (j *SnapshotJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	recorded, err := j.recorder.RecordSnapshots(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to record snapshots: %w", err)
	}

	j.log.Info().
		Int("portfolios", recorded).
		Dur("duration_ms", time.Since(start)).
		Msg("Portfolio snapshots recorded")
	return nil
}
