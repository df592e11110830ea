package trading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/miowsis/portfolio-engine/internal/locking"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultRoundUpSymbol is bought by round-ups without a target
const DefaultRoundUpSymbol = "VTI"

// Executor executes orders and cash movements. Every mutation holds the
// portfolio's keyed lock and runs as one retryable unit of work; its event is
// emitted only after commit.
type Executor struct {
	db            *sql.DB
	uow           *database.UnitOfWork
	locks         *locking.KeyedMutex
	portfolios    *portfolio.PortfolioRepository
	holdings      *portfolio.HoldingRepository
	ledger        *portfolio.Ledger
	transactions  *TransactionRepository
	prices        domain.PriceLookup
	events        domain.EventSink
	lookupTimeout time.Duration
	roundUpSymbol string
	now           func() time.Time
	log           zerolog.Logger
}

// ExecutorDeps groups the collaborators of Executor
type ExecutorDeps struct {
	DB            *sql.DB
	UnitOfWork    *database.UnitOfWork
	Locks         *locking.KeyedMutex
	Portfolios    *portfolio.PortfolioRepository
	Holdings      *portfolio.HoldingRepository
	Ledger        *portfolio.Ledger
	Transactions  *TransactionRepository
	Prices        domain.PriceLookup
	Events        domain.EventSink
	LookupTimeout time.Duration
	RoundUpSymbol string
}

// NewExecutor creates a new order executor
func NewExecutor(deps ExecutorDeps, log zerolog.Logger) *Executor {
	sink := deps.Events
	if sink == nil {
		sink = events.NopSink{}
	}
	roundUpSymbol := domain.NormalizeSymbol(deps.RoundUpSymbol)
	if roundUpSymbol == "" {
		roundUpSymbol = DefaultRoundUpSymbol
	}
	return &Executor{
		db:            deps.DB,
		uow:           deps.UnitOfWork,
		locks:         deps.Locks,
		portfolios:    deps.Portfolios,
		holdings:      deps.Holdings,
		ledger:        deps.Ledger,
		transactions:  deps.Transactions,
		prices:        deps.Prices,
		events:        sink,
		lookupTimeout: deps.LookupTimeout,
		roundUpSymbol: roundUpSymbol,
		now:           time.Now,
		log:           log.With().Str("service", "executor").Logger(),
	}
}

// Buy spends req.Amount of cash on req.Symbol at the current price
func (e *Executor) Buy(ctx context.Context, req BuyRequest) (*Transaction, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(req.PortfolioID)
	defer unlock()

	record, err := e.executeBuy(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	e.emit(orderExecuted(record))
	return record, nil
}

// Sell sells req.Shares of req.Symbol at the current price and credits the
// proceeds. A LIMIT sell priced below its limit is rejected, since there is
// no order book to leave it pending on.
func (e *Executor) Sell(ctx context.Context, req SellRequest) (*Transaction, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(req.PortfolioID)
	defer unlock()

	if _, err := e.portfolios.GetActiveByID(ctx, e.db, req.PortfolioID); err != nil {
		return nil, err
	}
	holding, err := e.holdings.GetBySymbol(ctx, e.db, req.PortfolioID, req.Symbol)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, fmt.Errorf("%w: no holding for %s", domain.ErrNotFound, req.Symbol)
	}
	if req.Shares.GreaterThan(holding.Shares) {
		return nil, fmt.Errorf("%w: selling %s of %s held shares of %s",
			domain.ErrInsufficientShares, req.Shares, holding.Shares, req.Symbol)
	}

	price, err := e.lookupPrice(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if req.OrderType == OrderLimit && price.LessThan(*req.LimitPrice) {
		return nil, fmt.Errorf("%w: limit price not reached (%s below limit %s)",
			domain.ErrInvalidInput, price, req.LimitPrice)
	}

	saleAmount := req.Shares.Mul(price)

	var record *Transaction
	err = e.uow.Run(ctx, func(tx *sql.Tx) error {
		p, err := e.portfolios.GetActiveByID(ctx, tx, req.PortfolioID)
		if err != nil {
			return err
		}
		if _, err := e.ledger.ApplySell(ctx, tx, p.ID, req.Symbol, req.Shares); err != nil {
			return err
		}
		if err := e.portfolios.UpdateCash(ctx, tx, p, p.CashBalance.Add(saleAmount)); err != nil {
			return err
		}

		record = e.newTransaction(p, TypeSell, SourceManual)
		record.Symbol = req.Symbol
		record.Shares = req.Shares
		record.Price = price
		record.Amount = saleAmount
		record.NetAmount = saleAmount
		record.OrderType = req.OrderType
		if req.LimitPrice != nil {
			record.LimitPrice = decimal.NewNullDecimal(*req.LimitPrice)
		}
		return e.transactions.Insert(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("portfolio_id", record.PortfolioID).
		Str("symbol", record.Symbol).
		Str("shares", record.Shares.String()).
		Str("price", price.String()).
		Str("amount", saleAmount.String()).
		Msg("Sell executed")

	e.emit(orderExecuted(record))
	return record, nil
}

// RoundUp invests the change between req.PurchaseAmount and the next whole
// unit, or exactly 1 for whole purchases. The buy transaction is written
// already tagged as a round-up.
func (e *Executor) RoundUp(ctx context.Context, req RoundUpRequest) (*Transaction, error) {
	req, err := req.normalize(e.roundUpSymbol)
	if err != nil {
		return nil, err
	}

	roundUp := RoundUpAmount(req.PurchaseAmount)

	unlock := e.locks.Lock(req.PortfolioID)
	defer unlock()

	buy := BuyRequest{
		PortfolioID: req.PortfolioID,
		Symbol:      req.TargetSymbol,
		Amount:      roundUp,
		OrderType:   OrderMarket,
	}
	record, err := e.executeBuy(ctx, buy, func(t *Transaction) {
		t.Source = SourceRoundUp
		t.RoundUpAmount = decimal.NewNullDecimal(roundUp)
		t.OriginalPurchaseAmount = decimal.NewNullDecimal(req.PurchaseAmount)
		t.MerchantName = req.MerchantName
	})
	if err != nil {
		return nil, err
	}

	e.emit(orderExecuted(record))
	e.emit(&events.RoundUpData{
		PortfolioID:            record.PortfolioID,
		UserID:                 record.UserID,
		TransactionID:          record.ID,
		Symbol:                 record.Symbol,
		Shares:                 record.Shares,
		RoundUpAmount:          roundUp,
		OriginalPurchaseAmount: req.PurchaseAmount,
		MerchantName:           req.MerchantName,
	})
	return record, nil
}

// Deposit credits cash to a portfolio
func (e *Executor) Deposit(ctx context.Context, portfolioID string, amount decimal.Decimal) (*Transaction, error) {
	return e.moveCash(ctx, portfolioID, TypeDeposit, "", amount)
}

// Withdraw debits cash from a portfolio
func (e *Executor) Withdraw(ctx context.Context, portfolioID string, amount decimal.Decimal) (*Transaction, error) {
	return e.moveCash(ctx, portfolioID, TypeWithdrawal, "", amount)
}

// RecordDividend credits a cash dividend paid by a held symbol
func (e *Executor) RecordDividend(ctx context.Context, portfolioID, symbol string, amount decimal.Decimal) (*Transaction, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	return e.moveCash(ctx, portfolioID, TypeDividend, symbol, amount)
}

func (e *Executor) moveCash(ctx context.Context, portfolioID string, txType TransactionType, symbol string, amount decimal.Decimal) (*Transaction, error) {
	if err := requirePortfolio(portfolioID); err != nil {
		return nil, err
	}
	if err := validateCashAmount(amount); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(portfolioID)
	defer unlock()

	var (
		record  *Transaction
		balance decimal.Decimal
	)
	err := e.uow.Run(ctx, func(tx *sql.Tx) error {
		p, err := e.portfolios.GetActiveByID(ctx, tx, portfolioID)
		if err != nil {
			return err
		}

		newBalance := p.CashBalance.Add(amount)
		switch txType {
		case TypeWithdrawal:
			if amount.GreaterThan(p.CashBalance) {
				return fmt.Errorf("%w: withdrawing %s with %s available", domain.ErrInsufficientFunds, amount, p.CashBalance)
			}
			newBalance = p.CashBalance.Sub(amount)
		case TypeDividend:
			h, err := e.holdings.GetBySymbol(ctx, tx, p.ID, symbol)
			if err != nil {
				return err
			}
			if h == nil {
				return fmt.Errorf("%w: no holding for %s", domain.ErrNotFound, symbol)
			}
		}

		if err := e.portfolios.UpdateCash(ctx, tx, p, newBalance); err != nil {
			return err
		}

		record = e.newTransaction(p, txType, SourceManual)
		record.Symbol = symbol
		record.Amount = amount
		record.NetAmount = amount
		balance = newBalance
		return e.transactions.Insert(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("portfolio_id", portfolioID).
		Str("type", string(txType)).
		Str("amount", amount.String()).
		Str("cash_balance", balance.String()).
		Msg("Cash movement recorded")

	e.emit(&events.CashMovedData{
		Kind:          string(txType),
		PortfolioID:   record.PortfolioID,
		UserID:        record.UserID,
		TransactionID: record.ID,
		Symbol:        symbol,
		Amount:        amount,
		CashBalance:   balance,
	})
	return record, nil
}

// executeBuy runs a validated buy. The caller holds the portfolio lock.
// tag, when set, adjusts the transaction before it is written.
func (e *Executor) executeBuy(ctx context.Context, req BuyRequest, tag func(*Transaction)) (*Transaction, error) {
	p, err := e.portfolios.GetActiveByID(ctx, e.db, req.PortfolioID)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(p.CashBalance) {
		return nil, fmt.Errorf("%w: buying %s with %s available", domain.ErrInsufficientFunds, req.Amount, p.CashBalance)
	}

	price, err := e.lookupPrice(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	shares := SharesFor(req.Amount, price)
	if !shares.IsPositive() {
		return nil, fmt.Errorf("%w: %s buys no shares of %s at %s", domain.ErrInvalidInput, req.Amount, req.Symbol, price)
	}

	var record *Transaction
	err = e.uow.Run(ctx, func(tx *sql.Tx) error {
		p, err := e.portfolios.GetActiveByID(ctx, tx, req.PortfolioID)
		if err != nil {
			return err
		}
		// Another process may have spent the cash since the pre-check
		if req.Amount.GreaterThan(p.CashBalance) {
			return fmt.Errorf("%w: buying %s with %s available", domain.ErrInsufficientFunds, req.Amount, p.CashBalance)
		}

		if _, err := e.ledger.ApplyBuy(ctx, tx, p.ID, req.Symbol, shares, price, req.Amount); err != nil {
			return err
		}
		if err := e.portfolios.UpdateCash(ctx, tx, p, p.CashBalance.Sub(req.Amount)); err != nil {
			return err
		}

		record = e.newTransaction(p, TypeBuy, SourceManual)
		record.Symbol = req.Symbol
		record.Shares = shares
		record.Price = price
		record.Amount = req.Amount
		record.NetAmount = req.Amount
		record.OrderType = req.OrderType
		if tag != nil {
			tag(record)
		}
		return e.transactions.Insert(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("portfolio_id", record.PortfolioID).
		Str("symbol", record.Symbol).
		Str("shares", shares.String()).
		Str("price", price.String()).
		Str("amount", req.Amount.String()).
		Str("source", string(record.Source)).
		Msg("Buy executed")
	return record, nil
}

func (e *Executor) lookupPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	lookupCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.lookupTimeout > 0 {
		lookupCtx, cancel = context.WithTimeout(ctx, e.lookupTimeout)
	}
	defer cancel()

	price, err := e.prices.GetPrice(lookupCtx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price for %s: %v", domain.ErrExternalLookup, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s for %s", domain.ErrExternalLookup, price, symbol)
	}
	return price, nil
}

func (e *Executor) newTransaction(p *portfolio.Portfolio, txType TransactionType, source Source) *Transaction {
	now := e.now()
	return &Transaction{
		ID:          uuid.New().String(),
		UserID:      p.UserID,
		PortfolioID: p.ID,
		Type:        txType,
		Shares:      decimal.Zero,
		Price:       decimal.Zero,
		Fee:         decimal.Zero,
		Source:      source,
		Status:      StatusCompleted,
		ExecutedAt:  now,
		CreatedAt:   now,
	}
}

func (e *Executor) emit(data events.EventData) {
	key := string(data.EventType())
	if err := e.events.Emit(events.PortfolioTopic, key, data); err != nil {
		e.log.Warn().Err(err).Str("event_type", key).Msg("Failed to emit event")
	}
}

func orderExecuted(t *Transaction) *events.OrderExecutedData {
	return &events.OrderExecutedData{
		Side:          string(t.Type),
		PortfolioID:   t.PortfolioID,
		UserID:        t.UserID,
		TransactionID: t.ID,
		Symbol:        t.Symbol,
		Shares:        t.Shares,
		Price:         t.Price,
		Amount:        t.Amount,
		Source:        string(t.Source),
	}
}
