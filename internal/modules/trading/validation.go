package trading

import (
	"fmt"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// BuyRequest is a market or limit buy of a currency amount
type BuyRequest struct {
	PortfolioID string
	Symbol      string
	Amount      decimal.Decimal
	OrderType   OrderType
}

// SellRequest is a sale of a share quantity. LimitPrice is only consulted
// for LIMIT orders.
type SellRequest struct {
	PortfolioID string
	Symbol      string
	Shares      decimal.Decimal
	OrderType   OrderType
	LimitPrice  *decimal.Decimal
}

// RoundUpRequest invests the spare change of a card purchase
type RoundUpRequest struct {
	PortfolioID    string
	PurchaseAmount decimal.Decimal
	TargetSymbol   string
	MerchantName   string
}

// normalize validates a buy request in layers and returns its canonical form
func (r BuyRequest) normalize() (BuyRequest, error) {
	if err := requirePortfolio(r.PortfolioID); err != nil {
		return r, err
	}

	r.Symbol = domain.NormalizeSymbol(r.Symbol)
	if r.Symbol == "" {
		return r, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if !r.Amount.IsPositive() {
		return r, fmt.Errorf("%w: amount must be positive, got %s", domain.ErrInvalidInput, r.Amount)
	}

	orderType, err := parseOrderType(r.OrderType)
	if err != nil {
		return r, err
	}
	r.OrderType = orderType
	return r, nil
}

// normalize validates a sell request in layers and returns its canonical form
func (r SellRequest) normalize() (SellRequest, error) {
	if err := requirePortfolio(r.PortfolioID); err != nil {
		return r, err
	}

	r.Symbol = domain.NormalizeSymbol(r.Symbol)
	if r.Symbol == "" {
		return r, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if !r.Shares.IsPositive() {
		return r, fmt.Errorf("%w: shares must be positive, got %s", domain.ErrInvalidInput, r.Shares)
	}
	if !r.Shares.Equal(r.Shares.Truncate(domain.ShareScale)) {
		return r, fmt.Errorf("%w: shares support at most %d decimal places", domain.ErrInvalidInput, domain.ShareScale)
	}

	orderType, err := parseOrderType(r.OrderType)
	if err != nil {
		return r, err
	}
	r.OrderType = orderType

	if r.OrderType == OrderLimit {
		if r.LimitPrice == nil || !r.LimitPrice.IsPositive() {
			return r, fmt.Errorf("%w: LIMIT orders need a positive limit price", domain.ErrInvalidInput)
		}
	} else {
		r.LimitPrice = nil
	}
	return r, nil
}

// normalize validates a round-up request and fills the default target
func (r RoundUpRequest) normalize(defaultSymbol string) (RoundUpRequest, error) {
	if err := requirePortfolio(r.PortfolioID); err != nil {
		return r, err
	}
	if !r.PurchaseAmount.IsPositive() {
		return r, fmt.Errorf("%w: purchase amount must be positive, got %s", domain.ErrInvalidInput, r.PurchaseAmount)
	}

	r.TargetSymbol = domain.NormalizeSymbol(r.TargetSymbol)
	if r.TargetSymbol == "" {
		r.TargetSymbol = defaultSymbol
	}
	return r, nil
}

// RoundUpAmount returns ceil(purchase) - purchase, or exactly 1 when the
// purchase is already a whole amount
func RoundUpAmount(purchase decimal.Decimal) decimal.Decimal {
	roundUp := purchase.Ceil().Sub(purchase)
	if roundUp.IsZero() {
		return decimal.NewFromInt(1)
	}
	return roundUp
}

// SharesFor returns amount / price truncated to share precision
func SharesFor(amount, price decimal.Decimal) decimal.Decimal {
	return amount.Div(price).Truncate(domain.ShareScale)
}

func validateCashAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", domain.ErrInvalidInput, amount)
	}
	return nil
}

func requirePortfolio(portfolioID string) error {
	if portfolioID == "" {
		return fmt.Errorf("%w: portfolio id is required", domain.ErrInvalidInput)
	}
	return nil
}

func parseOrderType(t OrderType) (OrderType, error) {
	switch t {
	case "", OrderMarket:
		return OrderMarket, nil
	case OrderLimit:
		return OrderLimit, nil
	default:
		return "", fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidInput, t)
	}
}
