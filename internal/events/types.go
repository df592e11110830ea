// Package events provides event management functionality.
package events

import "time"

// PortfolioTopic is the topic all portfolio domain events are published on.
// The event type is used as the message key.
const PortfolioTopic = "portfolio-events"

// EventType represents different event types
type EventType string

const (
	// Order execution
	PortfolioBuy     EventType = "portfolio.buy"
	PortfolioSell    EventType = "portfolio.sell"
	PortfolioRoundUp EventType = "portfolio.round_up"

	// Cash movements
	PortfolioDeposit    EventType = "portfolio.deposit"
	PortfolioWithdrawal EventType = "portfolio.withdrawal"
	DividendRecorded    EventType = "portfolio.dividend"

	// Lifecycle
	PortfolioCreated     EventType = "portfolio.created"
	PortfolioDeactivated EventType = "portfolio.deactivated"
	SnapshotRecorded     EventType = "portfolio.snapshot"

	// System
	BackupCompleted EventType = "system.backup_completed"
	ErrorOccurred   EventType = "system.error"
)

// AllEventTypes lists every event type a stream client can subscribe to
var AllEventTypes = []EventType{
	PortfolioBuy,
	PortfolioSell,
	PortfolioRoundUp,
	PortfolioDeposit,
	PortfolioWithdrawal,
	DividendRecorded,
	PortfolioCreated,
	PortfolioDeactivated,
	SnapshotRecorded,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a published event
type Event struct {
	Type      EventType              `json:"type" msgpack:"type"`
	Topic     string                 `json:"topic" msgpack:"topic"`
	Module    string                 `json:"module" msgpack:"module"`
	Timestamp time.Time              `json:"timestamp" msgpack:"timestamp"`
	Data      map[string]interface{} `json:"data" msgpack:"data"`
}
