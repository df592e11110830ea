package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
)

// Manager handles event emission and logging. It implements domain.EventSink
// on top of the bus.
type Manager struct {
	bus    *Bus
	module string
	log    zerolog.Logger
}

var _ domain.EventSink = (*Manager)(nil)

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus:    bus,
		module: "portfolio",
		log:    log.With().Str("service", "events").Logger(),
	}
}

// Emit publishes payload under topic with the event type as key. The payload
// is flattened to a map so stream clients receive plain JSON or msgpack.
func (m *Manager) Emit(topic, key string, payload interface{}) error {
	data, err := toMap(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", key, err)
	}

	event := &Event{
		Type:      EventType(key),
		Topic:     topic,
		Module:    m.module,
		Timestamp: time.Now(),
		Data:      data,
	}
	m.bus.Publish(event)

	m.log.Info().
		Str("topic", topic).
		Str("event_type", key).
		Interface("data", data).
		Msg("Event emitted")
	return nil
}

// EmitTyped publishes typed event data on the portfolio topic
func (m *Manager) EmitTyped(data EventData) error {
	return m.Emit(PortfolioTopic, string(data.EventType()), data)
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := &ErrorEventData{
		Module:  module,
		Error:   err.Error(),
		Context: context,
	}
	if emitErr := m.EmitTyped(data); emitErr != nil {
		m.log.Warn().Err(emitErr).Msg("Failed to emit error event")
	}
}

// toMap converts a payload to map[string]interface{} via its JSON form
func toMap(payload interface{}) (map[string]interface{}, error) {
	if payload == nil {
		return nil, nil
	}
	if m, ok := payload.(map[string]interface{}); ok {
		return m, nil
	}

	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// NopSink discards every event
type NopSink struct{}

// Emit does nothing
func (NopSink) Emit(topic, key string, payload interface{}) error { return nil }
