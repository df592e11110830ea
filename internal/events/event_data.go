package events

import "github.com/shopspring/decimal"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// OrderExecutedData contains data for buy and sell events
type OrderExecutedData struct {
	Side          string          `json:"side"` // "BUY" or "SELL"
	PortfolioID   string          `json:"portfolio_id"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Amount        decimal.Decimal `json:"amount"`
	Source        string          `json:"source"`
}

// EventType returns portfolio.buy or portfolio.sell depending on Side
func (d *OrderExecutedData) EventType() EventType {
	if d.Side == "SELL" {
		return PortfolioSell
	}
	return PortfolioBuy
}

// RoundUpData contains data for round-up events
type RoundUpData struct {
	PortfolioID            string          `json:"portfolio_id"`
	UserID                 string          `json:"user_id"`
	TransactionID          string          `json:"transaction_id"`
	Symbol                 string          `json:"symbol"`
	Shares                 decimal.Decimal `json:"shares"`
	RoundUpAmount          decimal.Decimal `json:"round_up_amount"`
	OriginalPurchaseAmount decimal.Decimal `json:"original_purchase_amount"`
	MerchantName           string          `json:"merchant_name,omitempty"`
}

// EventType returns the event type for RoundUpData
func (d *RoundUpData) EventType() EventType {
	return PortfolioRoundUp
}

// CashMovedData contains data for deposit, withdrawal and dividend events
type CashMovedData struct {
	Kind          string          `json:"kind"` // "DEPOSIT", "WITHDRAWAL" or "DIVIDEND"
	PortfolioID   string          `json:"portfolio_id"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id"`
	Symbol        string          `json:"symbol,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
}

// EventType returns the event type matching Kind
func (d *CashMovedData) EventType() EventType {
	switch d.Kind {
	case "WITHDRAWAL":
		return PortfolioWithdrawal
	case "DIVIDEND":
		return DividendRecorded
	default:
		return PortfolioDeposit
	}
}

// PortfolioLifecycleData contains data for portfolio created/deactivated events
type PortfolioLifecycleData struct {
	PortfolioID string `json:"portfolio_id"`
	UserID      string `json:"user_id"`
	Active      bool   `json:"active"`
}

// EventType returns created for active portfolios and deactivated otherwise
func (d *PortfolioLifecycleData) EventType() EventType {
	if d.Active {
		return PortfolioCreated
	}
	return PortfolioDeactivated
}

// SnapshotRecordedData contains data for SnapshotRecorded events
type SnapshotRecordedData struct {
	Date       string `json:"date"`
	Portfolios int    `json:"portfolios"`
	Errors     int    `json:"errors"`
}

// EventType returns the event type for SnapshotRecordedData
func (d *SnapshotRecordedData) EventType() EventType {
	return SnapshotRecorded
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Module  string                 `json:"module"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
