package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/miowsis/portfolio-engine/internal/scheduler"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

type directRunner struct{}

func (directRunner) RunNow(job scheduler.Job) error { return job.Run() }

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"pong": "ok"})
	})
}

type fixture struct {
	server *Server
	bus    *events.Bus
	jobs   []*stubJob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	bus := events.NewBus(zerolog.Nop())
	snapshots := &stubJob{name: "portfolio_snapshots"}
	broken := &stubJob{name: "backup", err: errors.New("bucket unreachable")}

	s := New(Config{
		Log:       zerolog.Nop(),
		Port:      0,
		DevMode:   true,
		DataDir:   t.TempDir(),
		Databases: map[string]*database.DB{"portfolio": db},
		EventBus:  bus,
		Handlers:  []RouteRegistrar{pingRoutes{}},
		Jobs:      []scheduler.Job{snapshots, broken},
		Runner:    directRunner{},
	})
	s.systemHandlers.sampleStats = func() (float64, float64) { return 12.5, 40 }

	return &fixture{server: s, bus: bus, jobs: []*stubJob{snapshots, broken}}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]interface{}{"portfolio": "ok"}, body["databases"])
}

func TestModuleRoutesMountedUnderAPI(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/ping")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["pong"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/ping").Code)
}

func TestSystemStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 12.5, resp.CPUPercent)
	assert.Equal(t, 40.0, resp.MemoryPercent)
	assert.Greater(t, resp.Goroutines, 0)
	require.Contains(t, resp.Databases, "portfolio")
	assert.Greater(t, resp.Databases["portfolio"].PageCount, int64(0))
	require.NotNil(t, resp.Disk)
	assert.Greater(t, resp.Disk.TotalBytes, uint64(0))
}

func TestDatabaseStats(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/system/database/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "portfolio")
}

func TestJobs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/system/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"backup", "portfolio_snapshots"}, decode(t, rec)["jobs"])

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"runs job", "/api/system/jobs/portfolio_snapshots", http.StatusOK},
		{"job error", "/api/system/jobs/backup", http.StatusInternalServerError},
		{"unknown job", "/api/system/jobs/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, 1, f.jobs[0].runs)
	assert.Equal(t, 1, f.jobs[1].runs)
}

func TestParseTypes(t *testing.T) {
	all, err := parseTypes("")
	require.NoError(t, err)
	assert.Equal(t, events.AllEventTypes, all)

	some, err := parseTypes("portfolio.buy, bogus ,portfolio.sell")
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.PortfolioBuy, events.PortfolioSell}, some)

	_, err = parseTypes("bogus")
	assert.Error(t, err)
}

func publishBuy(bus *events.Bus) {
	bus.Publish(&events.Event{
		Type:      events.PortfolioBuy,
		Topic:     events.PortfolioTopic,
		Module:    "portfolio",
		Timestamp: time.Date(2026, 1, 8, 14, 30, 0, 0, time.UTC),
		Data:      map[string]interface{}{"symbol": "AAPL"},
	})
}

func readSSE(t *testing.T, reader *bufio.Reader) streamMessage {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg streamMessage
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &msg))
		return msg
	}
}

func TestEventsStream_SSE(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events/stream?types=portfolio.buy", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readSSE(t, reader).Type)
	assert.Equal(t, 1, f.bus.SubscriberCount(events.PortfolioBuy))
	assert.Equal(t, 0, f.bus.SubscriberCount(events.PortfolioSell))

	publishBuy(f.bus)
	msg := readSSE(t, reader)
	assert.Equal(t, string(events.PortfolioBuy), msg.Type)
	assert.Equal(t, events.PortfolioTopic, msg.Topic)
	assert.Equal(t, "AAPL", msg.Data["symbol"])

	cancel()
	assert.Eventually(t, func() bool {
		return f.bus.SubscriberCount(events.PortfolioBuy) == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnect unsubscribes")
}

func TestEventsStream_SSERejectsUnknownTypes(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/events/stream?types=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func dialStream(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

func TestEventsStream_WebSocketJSON(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Router())
	defer srv.Close()

	conn := dialStream(t, srv, "")
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)

	var connected streamMessage
	require.NoError(t, json.Unmarshal(data, &connected))
	assert.Equal(t, "connected", connected.Type)

	publishBuy(f.bus)
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)

	var msg streamMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, string(events.PortfolioBuy), msg.Type)
	assert.Equal(t, "AAPL", msg.Data["symbol"])
}

func TestEventsStream_WebSocketMsgpack(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.server.Router())
	defer srv.Close()

	conn := dialStream(t, srv, "?encoding=msgpack&types=portfolio.buy")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgType, _, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, msgType)

	publishBuy(f.bus)
	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, msgType)

	var msg streamMessage
	require.NoError(t, msgpack.Unmarshal(data, &msg))
	assert.Equal(t, string(events.PortfolioBuy), msg.Type)
	assert.Equal(t, "2026-01-08T14:30:00Z", msg.Timestamp)
	assert.Equal(t, "AAPL", msg.Data["symbol"])

	conn.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool {
		return f.bus.SubscriberCount(events.PortfolioBuy) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStream_WebSocketRejectsUnknownEncoding(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/events/ws?encoding=xml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
