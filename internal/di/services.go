package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/miowsis/portfolio-engine/internal/config"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/miowsis/portfolio-engine/internal/locking"
	"github.com/miowsis/portfolio-engine/internal/modules/esg"
	"github.com/miowsis/portfolio-engine/internal/modules/marketdata"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/miowsis/portfolio-engine/internal/modules/trading"
	"github.com/miowsis/portfolio-engine/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the services in dependency order
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	portfolioConn := container.PortfolioDB.Conn()

	container.UnitOfWork = database.NewUnitOfWork(portfolioConn, cfg.UnitOfWorkAttempts)
	container.Locks = locking.NewKeyedMutex()
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	prices, err := newPriceLookup(container, cfg, log)
	if err != nil {
		return err
	}
	container.Prices = prices

	container.ESGService = esg.NewService(container.ESGRepo, esg.NewMockProvider(), container.SecurityRepo, log)
	container.Valuator = portfolio.NewValuator(prices, cfg.LookupTimeout, log)
	container.Ledger = portfolio.NewLedger(container.HoldingRepo, log)

	container.PortfolioService = portfolio.NewService(portfolio.ServiceDeps{
		DB:         portfolioConn,
		UnitOfWork: container.UnitOfWork,
		Locks:      container.Locks,
		Portfolios: container.PortfolioRepo,
		Holdings:   container.HoldingRepo,
		Snapshots:  container.SnapshotRepo,
		Valuator:   container.Valuator,
		ESG:        container.ESGService,
		Securities: container.SecurityRepo,
		Events:     container.EventManager,
	}, log)

	container.Executor = trading.NewExecutor(trading.ExecutorDeps{
		DB:            portfolioConn,
		UnitOfWork:    container.UnitOfWork,
		Locks:         container.Locks,
		Portfolios:    container.PortfolioRepo,
		Holdings:      container.HoldingRepo,
		Ledger:        container.Ledger,
		Transactions:  container.TransactionRepo,
		Prices:        prices,
		Events:        container.EventManager,
		LookupTimeout: cfg.LookupTimeout,
		RoundUpSymbol: cfg.DefaultRoundUpSymbol,
	}, log)

	container.TransactionService = trading.NewTransactionService(portfolioConn, container.TransactionRepo, log)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			store,
			map[string]*database.DB{"portfolio": container.PortfolioDB},
			filepath.Join(cfg.DataDir, "backups"),
			cfg.Backup.Prefix,
			container.EventManager,
			log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backups enabled")
	} else {
		log.Info().Msg("Backups disabled (BACKUP_BUCKET not set)")
	}

	// Score the universe up front so screening has data on first use
	if err := container.ESGService.SeedUniverse(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to seed ESG scores")
	}

	return nil
}

// newPriceLookup selects the market data source. Remote quotes are cached in
// cache.db; the static provider is served directly.
func newPriceLookup(container *Container, cfg *config.Config, log zerolog.Logger) (domain.PriceLookup, error) {
	switch cfg.PriceSource {
	case "static":
		log.Info().Msg("Using static market data")
		return marketdata.NewStaticProvider(), nil
	case "http":
		client := marketdata.NewQuoteClient(cfg.QuoteAPIURL,
			marketdata.WithRateLimit(cfg.QuoteRateLimit),
			marketdata.WithTimeout(cfg.LookupTimeout),
			marketdata.WithLogger(log),
		)
		log.Info().Str("url", cfg.QuoteAPIURL).Msg("Using HTTP quote API")
		return marketdata.NewCachedLookup(client, container.ClientDataRepo, cfg.PriceCacheTTL, log), nil
	default:
		return nil, fmt.Errorf("unsupported price source %q", cfg.PriceSource)
	}
}
