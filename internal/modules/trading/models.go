// Package trading provides order execution against portfolio cash and the
// append-only transaction ledger.
package trading

import (
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TypeBuy        TransactionType = "BUY"
	TypeSell       TransactionType = "SELL"
	TypeDividend   TransactionType = "DIVIDEND"
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeFee        TransactionType = "FEE"
)

// ParseTransactionType validates a transaction type filter. Empty is allowed.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case "", TypeBuy, TypeSell, TypeDividend, TypeDeposit, TypeWithdrawal, TypeFee:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidInput, s)
	}
}

// Source records what initiated a transaction
type Source string

const (
	SourceManual           Source = "MANUAL"
	SourceRoundUp          Source = "ROUND_UP"
	SourceRebalance        Source = "REBALANCE"
	SourceAutoInvest       Source = "AUTO_INVEST"
	SourceDividendReinvest Source = "DIVIDEND_REINVEST"
)

// Status of a transaction. Executed orders are always COMPLETED; there is
// no order routing that could leave one pending.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// OrderType is MARKET or LIMIT
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// Transaction is an immutable ledger entry
type Transaction struct {
	ID                     string              `json:"id"`
	UserID                 string              `json:"user_id"`
	PortfolioID            string              `json:"portfolio_id"`
	Type                   TransactionType     `json:"transaction_type"`
	Symbol                 string              `json:"symbol,omitempty"`
	Shares                 decimal.Decimal     `json:"shares"`
	Price                  decimal.Decimal     `json:"price"`
	Amount                 decimal.Decimal     `json:"amount"`
	Fee                    decimal.Decimal     `json:"fee"`
	NetAmount              decimal.Decimal     `json:"net_amount"`
	Source                 Source              `json:"source"`
	Status                 Status              `json:"status"`
	OrderType              OrderType           `json:"order_type,omitempty"`
	LimitPrice             decimal.NullDecimal `json:"limit_price"`
	RoundUpAmount          decimal.NullDecimal `json:"round_up_amount"`
	OriginalPurchaseAmount decimal.NullDecimal `json:"original_purchase_amount"`
	MerchantName           string              `json:"merchant_name,omitempty"`
	Notes                  string              `json:"notes,omitempty"`
	ExecutedAt             time.Time           `json:"executed_at"`
	CreatedAt              time.Time           `json:"created_at"`
}

// Validate checks the invariants every stored transaction satisfies
func (t *Transaction) Validate() error {
	if t.ID == "" || t.UserID == "" || t.PortfolioID == "" {
		return fmt.Errorf("%w: transaction ids are required", domain.ErrInvalidInput)
	}
	if t.Type == "" || t.Source == "" || t.Status == "" {
		return fmt.Errorf("%w: transaction type, source and status are required", domain.ErrInvalidInput)
	}
	if t.Amount.IsNegative() || t.Shares.IsNegative() || t.Price.IsNegative() {
		return fmt.Errorf("%w: transaction amounts must not be negative", domain.ErrInvalidInput)
	}
	if (t.Type == TypeBuy || t.Type == TypeSell) && (t.Symbol == "" || !t.Shares.IsPositive()) {
		return fmt.Errorf("%w: %s needs a symbol and positive shares", domain.ErrInvalidInput, t.Type)
	}
	return nil
}

// TransactionPage is one page of a transaction listing
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	Size         int           `json:"size"`
	Total        int           `json:"total"`
}
