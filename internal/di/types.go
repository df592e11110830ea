// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/miowsis/portfolio-engine/internal/clientdata"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/miowsis/portfolio-engine/internal/locking"
	"github.com/miowsis/portfolio-engine/internal/modules/esg"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/miowsis/portfolio-engine/internal/modules/trading"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	"github.com/miowsis/portfolio-engine/internal/reliability"
	"github.com/miowsis/portfolio-engine/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	PortfolioDB *database.DB // portfolios, holdings, transactions, snapshots, universe, ESG scores
	CacheDB     *database.DB // ephemeral price lookups

	// Repositories
	PortfolioRepo   *portfolio.PortfolioRepository
	HoldingRepo     *portfolio.HoldingRepository
	SnapshotRepo    *portfolio.SnapshotRepository
	TransactionRepo *trading.TransactionRepository
	SecurityRepo    *universe.SecurityRepository
	ESGRepo         *esg.Repository
	ClientDataRepo  *clientdata.Repository

	// Shared plumbing
	UnitOfWork   *database.UnitOfWork
	Locks        *locking.KeyedMutex
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	Prices             domain.PriceLookup
	ESGService         *esg.Service
	Valuator           *portfolio.Valuator
	Ledger             *portfolio.Ledger
	PortfolioService   *portfolio.Service
	Executor           *trading.Executor
	TransactionService *trading.TransactionService
	BackupService      *reliability.BackupService // nil when backups are not configured

	// Scheduling
	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.PortfolioDB != nil {
		dbs["portfolio"] = c.PortfolioDB
	}
	if c.CacheDB != nil {
		dbs["cache"] = c.CacheDB
	}
	return dbs
}

// Close closes every open database
func (c *Container) Close() {
	if c.PortfolioDB != nil {
		c.PortfolioDB.Close()
	}
	if c.CacheDB != nil {
		c.CacheDB.Close()
	}
}

// JobInstances holds references to all registered jobs
type JobInstances struct {
	Snapshot    *scheduler.SnapshotJob
	Maintenance *reliability.MaintenanceJob
	Backup      *reliability.BackupJob // nil when backups are not configured
	CacheClean  *clientdata.CleanupJob
}

// All returns every non-nil job, for manual triggering
func (j *JobInstances) All() []scheduler.Job {
	jobs := []scheduler.Job{j.Snapshot, j.Maintenance, j.CacheClean}
	if j.Backup != nil {
		jobs = append(jobs, j.Backup)
	}
	return jobs
}
