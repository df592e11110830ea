package reliability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	// CriticalFreeBytes halts maintenance with an error
	CriticalFreeBytes = 500 * 1024 * 1024
	// LowFreeBytes is logged as a warning
	LowFreeBytes = 5 * 1024 * 1024 * 1024
)

// Task is a maintenance step run after the database checks, such as the
// expired cache cleanup
type Task interface {
	Run() error
	Name() string
}

// DiskUsageFunc reports free and total bytes of the filesystem holding path
type DiskUsageFunc func(ctx context.Context, path string) (free, total uint64, err error)

// MaintenanceJob performs nightly database maintenance
type MaintenanceJob struct {
	databases map[string]*database.DB
	tasks     []Task
	dataDir   string
	diskUsage DiskUsageFunc
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger, tasks ...Task) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		tasks:     tasks,
		dataDir:   dataDir,
		diskUsage: hostDiskUsage,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx := context.Background()
	j.log.Info().Msg("Starting maintenance")
	startTime := time.Now()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	// Step 1: integrity check
	for _, name := range names {
		if err := j.databases[name].HealthCheck(ctx); err != nil {
			j.log.Error().
				Str("database", name).
				Err(err).
				Msg("CRITICAL: Database integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
	}

	// Step 2: WAL checkpoint (not critical)
	for _, name := range names {
		if err := j.databases[name].WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().
				Str("database", name).
				Err(err).
				Msg("WAL checkpoint failed")
		}
	}

	// Step 3: disk space
	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	// Step 4: growth metrics
	for _, name := range names {
		stats, err := j.databases[name].GetStats()
		if err != nil {
			j.log.Error().Str("database", name).Err(err).Msg("Failed to get metrics")
			continue
		}
		j.log.Info().
			Str("database", name).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("Database metrics")
	}

	// Step 5: follow-up tasks; a failing task does not stop the others
	var failed int
	for _, task := range j.tasks {
		if err := task.Run(); err != nil {
			failed++
			j.log.Error().Err(err).Str("task", task.Name()).Msg("Maintenance task failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Int("failed_tasks", failed).
		Msg("Maintenance completed")

	if failed > 0 {
		return fmt.Errorf("%d maintenance task(s) failed", failed)
	}
	return nil
}

func (j *MaintenanceJob) checkDiskSpace(ctx context.Context) error {
	free, total, err := j.diskUsage(ctx, j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	j.log.Debug().
		Uint64("free_bytes", free).
		Uint64("total_bytes", total).
		Msg("Disk space check")

	if free < CriticalFreeBytes {
		j.log.Error().
			Uint64("free_bytes", free).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %d bytes free in %s", free, j.dataDir)
	}
	if free < LowFreeBytes {
		j.log.Warn().
			Uint64("free_bytes", free).
			Msg("Disk space running low")
	}
	return nil
}

func hostDiskUsage(ctx context.Context, path string) (uint64, uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	return usage.Free, usage.Total, nil
}
