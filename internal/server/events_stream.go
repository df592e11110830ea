package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

const (
	streamBufferSize  = 100
	heartbeatInterval = 30 * time.Second
	wsWriteTimeout    = 5 * time.Second
)

// streamMessage is the frame sent to stream clients
type streamMessage struct {
	Type      string                 `json:"type" msgpack:"type"`
	Topic     string                 `json:"topic,omitempty" msgpack:"topic,omitempty"`
	Module    string                 `json:"module,omitempty" msgpack:"module,omitempty"`
	Timestamp string                 `json:"timestamp" msgpack:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty" msgpack:"data,omitempty"`
	Message   string                 `json:"message,omitempty" msgpack:"message,omitempty"`
}

func newStreamMessage(event *events.Event) streamMessage {
	return streamMessage{
		Type:      string(event.Type),
		Topic:     event.Topic,
		Module:    event.Module,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Data:      event.Data,
	}
}

func controlMessage(kind, message string) streamMessage {
	return streamMessage{
		Type:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Message:   message,
	}
}

// EventsStreamHandler streams bus events to clients over Server-Sent Events
// or a WebSocket
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// parseTypes reads the comma separated ?types= filter. Unknown names are
// ignored; an empty filter means every event type.
func parseTypes(raw string) ([]events.EventType, error) {
	if strings.TrimSpace(raw) == "" {
		return events.AllEventTypes, nil
	}

	known := make(map[events.EventType]bool, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		known[t] = true
	}

	var types []events.EventType
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.TrimSpace(part))
		if known[t] {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("no known event types in %q", raw)
	}
	return types, nil
}

// subscribe attaches a buffered channel to the bus. Events are dropped when the
// client falls behind, so a slow reader never blocks a publisher.
func (h *EventsStreamHandler) subscribe(types []events.EventType) (<-chan *events.Event, func()) {
	ch := make(chan *events.Event, streamBufferSize)
	unsubscribe := h.eventBus.SubscribeMany(types, func(event *events.Event) {
		select {
		case ch <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	})
	return ch, unsubscribe
}

// ServeHTTP handles GET /api/events/stream requests (SSE)
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan, unsubscribe := h.subscribe(types)
	defer unsubscribe()

	h.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	h.writeSSE(w, controlMessage("connected", "Connected to event stream"))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.writeSSE(w, newStreamMessage(event))
			flusher.Flush()

		case <-heartbeat.C:
			h.writeSSE(w, controlMessage("heartbeat", ""))
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) writeSSE(w http.ResponseWriter, msg streamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"type":"error","message":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// frameEncoder turns a stream message into a websocket frame
type frameEncoder func(msg streamMessage) (websocket.MessageType, []byte, error)

func jsonFrame(msg streamMessage) (websocket.MessageType, []byte, error) {
	data, err := json.Marshal(msg)
	return websocket.MessageText, data, err
}

func msgpackFrame(msg streamMessage) (websocket.MessageType, []byte, error) {
	data, err := msgpack.Marshal(msg)
	return websocket.MessageBinary, data, err
}

// ServeWebSocket handles GET /api/events/ws. Frames are JSON text by default
// and msgpack binary with ?encoding=msgpack.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	var encode frameEncoder
	switch strings.ToLower(r.URL.Query().Get("encoding")) {
	case "", "json":
		encode = jsonFrame
	case "msgpack":
		encode = msgpackFrame
	default:
		http.Error(w, "encoding must be json or msgpack", http.StatusBadRequest)
		return
	}

	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	eventChan, unsubscribe := h.subscribe(types)
	defer unsubscribe()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Int("types", len(types)).Msg("Client connected to websocket stream")

	if err := h.writeFrame(ctx, conn, encode, controlMessage("connected", "Connected to event stream")); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from websocket stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.writeFrame(ctx, conn, encode, newStreamMessage(event)); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := h.writeFrame(ctx, conn, encode, controlMessage("heartbeat", "")); err != nil {
				return
			}
		}
	}
}

func (h *EventsStreamHandler) writeFrame(ctx context.Context, conn *websocket.Conn, encode frameEncoder, msg streamMessage) error {
	msgType, data, err := encode(msg)
	if err != nil {
		h.log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode event")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, msgType, data); err != nil {
		h.log.Debug().Err(err).Msg("WebSocket write failed")
		return err
	}
	return nil
}
