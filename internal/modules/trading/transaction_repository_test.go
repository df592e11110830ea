package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction(userID string, txType TransactionType, symbol string, executedAt time.Time) *Transaction {
	t := &Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		PortfolioID: "portfolio-" + userID,
		Type:        txType,
		Symbol:      symbol,
		Shares:      decimal.Zero,
		Price:       decimal.Zero,
		Amount:      testutil.D("10"),
		Fee:         decimal.Zero,
		NetAmount:   testutil.D("10"),
		Source:      SourceManual,
		Status:      StatusCompleted,
		ExecutedAt:  executedAt,
		CreatedAt:   executedAt,
	}
	if txType == TypeBuy || txType == TypeSell {
		t.Shares = testutil.D("1")
		t.Price = testutil.D("10")
		t.OrderType = OrderMarket
	}
	return t
}

func TestTransactionRepository_InsertAndGet(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	defer cleanup()
	repo := NewTransactionRepository(zerolog.Nop())
	ctx := context.Background()

	executedAt := time.UnixMilli(1700000000123)
	tx := newTransaction("user-1", TypeBuy, "AAPL", executedAt)
	tx.Source = SourceRoundUp
	tx.RoundUpAmount = decimal.NewNullDecimal(testutil.D("0.63"))
	tx.OriginalPurchaseAmount = decimal.NewNullDecimal(testutil.D("9.37"))
	tx.MerchantName = "Bakery"
	require.NoError(t, repo.Insert(ctx, db.Conn(), tx))

	got, err := repo.GetByID(ctx, db.Conn(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeBuy, got.Type)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, SourceRoundUp, got.Source)
	assert.Equal(t, OrderMarket, got.OrderType)
	assert.Equal(t, "Bakery", got.MerchantName)
	assert.Empty(t, got.Notes)
	assert.Equal(t, executedAt.UnixMilli(), got.ExecutedAt.UnixMilli())
	testutil.AssertDecimal(t, "1", got.Shares)
	testutil.AssertDecimal(t, "0.63", got.RoundUpAmount.Decimal)
	testutil.AssertDecimal(t, "9.37", got.OriginalPurchaseAmount.Decimal)
	assert.False(t, got.LimitPrice.Valid)

	_, err = repo.GetByID(ctx, db.Conn(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTransactionRepository_InsertRejectsInvalid(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	defer cleanup()
	repo := NewTransactionRepository(zerolog.Nop())

	tx := newTransaction("user-1", TypeBuy, "", time.Now())
	err := repo.Insert(context.Background(), db.Conn(), tx)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	tx = newTransaction("user-1", TypeDeposit, "", time.Now())
	tx.Amount = testutil.D("-1")
	err = repo.Insert(context.Background(), db.Conn(), tx)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestTransactionRepository_ListFiltersAndPages(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	defer cleanup()
	repo := NewTransactionRepository(zerolog.Nop())
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	seed := []*Transaction{
		newTransaction("user-1", TypeDeposit, "", base),
		newTransaction("user-1", TypeBuy, "AAPL", base.Add(time.Minute)),
		newTransaction("user-1", TypeBuy, "VTI", base.Add(2*time.Minute)),
		newTransaction("user-1", TypeSell, "AAPL", base.Add(3*time.Minute)),
		newTransaction("user-2", TypeBuy, "AAPL", base.Add(4*time.Minute)),
	}
	for _, tx := range seed {
		require.NoError(t, repo.Insert(ctx, db.Conn(), tx))
	}

	all, total, err := repo.List(ctx, db.Conn(), TransactionFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, seed[3].ID, all[0].ID, "newest first")
	assert.Equal(t, seed[0].ID, all[3].ID)

	buys, total, err := repo.List(ctx, db.Conn(), TransactionFilter{UserID: "user-1", Type: TypeBuy})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "VTI", buys[0].Symbol)

	aapl, total, err := repo.List(ctx, db.Conn(), TransactionFilter{UserID: "user-1", Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, TypeSell, aapl[0].Type)

	page2, total, err := repo.List(ctx, db.Conn(), TransactionFilter{UserID: "user-1", Page: portfolio.Page{Number: 2, Size: 3}})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page2, 1)
	assert.Equal(t, seed[0].ID, page2[0].ID)

	deep, total, err := repo.List(ctx, db.Conn(), TransactionFilter{UserID: "user-1", Page: portfolio.Page{Number: 1 << 62, Size: 3}})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, deep, "an out of range page must not wrap to the first page")

	none, total, err := repo.List(ctx, db.Conn(), TransactionFilter{UserID: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
