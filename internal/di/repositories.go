package di

import (
	"github.com/miowsis/portfolio-engine/internal/clientdata"
	"github.com/miowsis/portfolio-engine/internal/modules/esg"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/miowsis/portfolio-engine/internal/modules/trading"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates every repository on its database
func InitializeRepositories(container *Container, log zerolog.Logger) {
	portfolioConn := container.PortfolioDB.Conn()

	// Transactional repositories take the querier per call
	container.PortfolioRepo = portfolio.NewPortfolioRepository(log)
	container.HoldingRepo = portfolio.NewHoldingRepository(log)
	container.SnapshotRepo = portfolio.NewSnapshotRepository(log)
	container.TransactionRepo = trading.NewTransactionRepository(log)

	container.SecurityRepo = universe.NewSecurityRepository(portfolioConn, log)
	container.ESGRepo = esg.NewRepository(portfolioConn, log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
}
