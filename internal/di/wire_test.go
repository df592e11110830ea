package di

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/miowsis/portfolio-engine/internal/config"
	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/miowsis/portfolio-engine/internal/modules/trading"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:              t.TempDir(),
		Port:                 8080,
		LogLevel:             "info",
		DefaultRoundUpSymbol: "VTI",
		LookupTimeout:        time.Second,
		UnitOfWorkAttempts:   3,
		PriceSource:          "static",
		PriceCacheTTL:        30 * time.Second,
		Schedules: &config.ScheduleConfig{
			Snapshot:    "0 0 22 * * *",
			Maintenance: "0 30 2 * * *",
			Backup:      "0 0 3 * * *",
		},
		Backup: &config.BackupConfig{},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	container, jobs, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.PortfolioDB)
	assert.NotNil(t, container.CacheDB)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.Executor)
	assert.NotNil(t, container.TransactionService)
	assert.Nil(t, container.BackupService, "no bucket configured")

	assert.Len(t, container.Databases(), 2)
	assert.Nil(t, jobs.Backup)
	assert.Len(t, jobs.All(), 3)

	names := container.Scheduler.JobNames()
	sort.Strings(names)
	assert.Equal(t, []string{"maintenance", "portfolio_snapshots"}, names)
}

func TestWire_DisabledSchedules(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedules.Snapshot = ""
	cfg.Schedules.Maintenance = ""

	container, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.Empty(t, container.Scheduler.JobNames())
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedules.Snapshot = "not a cron"

	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_UnsupportedPriceSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.PriceSource = "carrier-pigeon"

	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_EndToEnd(t *testing.T) {
	ctx := context.Background()
	container, jobs, err := Wire(ctx, testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	var received []events.EventType
	unsubscribe := container.EventBus.SubscribeMany(events.AllEventTypes, func(event *events.Event) {
		received = append(received, event.Type)
	})
	defer unsubscribe()

	p, err := container.PortfolioService.GetPortfolio(ctx, "user-1")
	require.NoError(t, err)

	_, err = container.Executor.Deposit(ctx, p.ID, testutil.D("1000"))
	require.NoError(t, err)

	// Static market data prices AAPL at 150
	tx, err := container.Executor.Buy(ctx, trading.BuyRequest{
		PortfolioID: p.ID,
		Symbol:      "aapl",
		Amount:      testutil.D("300"),
	})
	require.NoError(t, err)
	testutil.AssertDecimal(t, "2", tx.Shares)
	testutil.AssertDecimal(t, "150", tx.Price)

	p, err = container.PortfolioService.GetPortfolio(ctx, "user-1")
	require.NoError(t, err)
	testutil.AssertDecimal(t, "700", p.CashBalance)

	assert.Contains(t, received, events.PortfolioCreated)
	assert.Contains(t, received, events.PortfolioDeposit)
	assert.Contains(t, received, events.PortfolioBuy)

	require.NoError(t, jobs.Snapshot.Run())
	assert.Contains(t, received, events.SnapshotRecorded)
}
