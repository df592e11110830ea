package portfolio

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testStore struct {
	db         *sql.DB
	portfolios *PortfolioRepository
	holdings   *HoldingRepository
	snapshots  *SnapshotRepository
	ledger     *Ledger
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	holdings := NewHoldingRepository(zerolog.Nop())
	return &testStore{
		db:         db.Conn(),
		portfolios: NewPortfolioRepository(zerolog.Nop()),
		holdings:   holdings,
		snapshots:  NewSnapshotRepository(zerolog.Nop()),
		ledger:     NewLedger(holdings, zerolog.Nop()),
	}
}

func (s *testStore) createPortfolio(t *testing.T, userID, cash string) *Portfolio {
	t.Helper()
	now := time.Unix(time.Now().Unix(), 0)
	p := &Portfolio{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        DefaultPortfolioName,
		Type:        Moderate,
		CashBalance: testutil.D(cash),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.portfolios.Create(context.Background(), s.db, p))
	return p
}

func (s *testStore) addHolding(t *testing.T, portfolioID, symbol, shares, totalCost string) {
	t.Helper()
	sharesD := testutil.D(shares)
	costD := testutil.D(totalCost)
	_, err := s.ledger.ApplyBuy(context.Background(), s.db, portfolioID, symbol, sharesD, costD.Div(sharesD), costD)
	require.NoError(t, err)
}
