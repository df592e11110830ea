package di

import (
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/clientdata"
	"github.com/miowsis/portfolio-engine/internal/config"
	"github.com/miowsis/portfolio-engine/internal/reliability"
	"github.com/miowsis/portfolio-engine/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	snapshotJobTimeout = 10 * time.Minute
	backupJobTimeout   = 30 * time.Minute
)

// RegisterJobs creates the background jobs and schedules them
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	container.Scheduler = scheduler.New(log)
	jobs := &JobInstances{}

	// Daily valuation snapshots feed the performance metrics
	jobs.Snapshot = scheduler.NewSnapshotJob(container.PortfolioService, snapshotJobTimeout, log)
	if err := container.Scheduler.AddJob(cfg.Schedules.Snapshot, jobs.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to register snapshot job: %w", err)
	}

	// Maintenance checks integrity and disk space, then purges expired cache rows
	jobs.CacheClean = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	jobs.Maintenance = reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log, jobs.CacheClean)
	if err := container.Scheduler.AddJob(cfg.Schedules.Maintenance, jobs.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, backupJobTimeout, log)
		if err := container.Scheduler.AddJob(cfg.Schedules.Backup, jobs.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	log.Info().Strs("jobs", container.Scheduler.JobNames()).Msg("Jobs registered")
	return jobs, nil
}
