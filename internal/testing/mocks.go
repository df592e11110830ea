package testing

import (
	"context"
	"sync"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPriceLookup is a testify mock of domain.PriceLookup
type MockPriceLookup struct {
	mock.Mock
}

// GetPrice records the call and returns the configured result
func (m *MockPriceLookup) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockHistoryLookup is a testify mock of a price source that also knows
// previous closes
type MockHistoryLookup struct {
	MockPriceLookup
}

// GetPreviousClose records the call and returns the configured result
func (m *MockHistoryLookup) GetPreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockESGLookup is a testify mock of domain.ESGLookup
type MockESGLookup struct {
	mock.Mock
}

// GetESGScore records the call and returns the configured result
func (m *MockESGLookup) GetESGScore(ctx context.Context, symbol string) (domain.ESGScore, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(domain.ESGScore), args.Error(1)
}

// MockEventSink is a testify mock of domain.EventSink
type MockEventSink struct {
	mock.Mock
}

// Emit records the call and returns the configured error
func (m *MockEventSink) Emit(topic, key string, payload interface{}) error {
	args := m.Called(topic, key, payload)
	return args.Error(0)
}

// RecordedEvent is one event captured by RecordingSink
type RecordedEvent struct {
	Topic   string
	Key     string
	Payload interface{}
}

// RecordingSink captures emitted events for assertions. It is safe for
// concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	events []RecordedEvent
	Err    error
}

// NewRecordingSink creates an empty recording sink
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Emit records the event and returns s.Err
func (s *RecordingSink) Emit(topic, key string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, RecordedEvent{Topic: topic, Key: key, Payload: payload})
	return s.Err
}

// Events returns a copy of the recorded events
func (s *RecordingSink) Events() []RecordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedEvent(nil), s.events...)
}

// Keys returns the keys of the recorded events in emission order
func (s *RecordingSink) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.events))
	for i, e := range s.events {
		keys[i] = e.Key
	}
	return keys
}

// FixedPrices is a PriceLookup and PreviousCloseLookup over fixed maps.
// Missing symbols fail with domain.ErrNotFound.
type FixedPrices struct {
	mu        sync.RWMutex
	prices    map[string]decimal.Decimal
	prevClose map[string]decimal.Decimal
}

// NewFixedPrices creates a price table from symbol -> price strings
func NewFixedPrices(prices map[string]string) *FixedPrices {
	f := &FixedPrices{
		prices:    make(map[string]decimal.Decimal, len(prices)),
		prevClose: make(map[string]decimal.Decimal),
	}
	for symbol, price := range prices {
		f.prices[symbol] = decimal.RequireFromString(price)
	}
	return f
}

// Set changes the price of symbol
func (f *FixedPrices) Set(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = decimal.RequireFromString(price)
}

// SetPreviousClose sets the previous close of symbol
func (f *FixedPrices) SetPreviousClose(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prevClose[symbol] = decimal.RequireFromString(price)
}

// GetPrice implements domain.PriceLookup
func (f *FixedPrices) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return price, nil
}

// GetPreviousClose implements domain.PreviousCloseLookup
func (f *FixedPrices) GetPreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok := f.prevClose[symbol]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return price, nil
}
