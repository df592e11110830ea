package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/locking"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (chi.Router, *portfolio.Service) {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	conn := db.Conn()
	holdings := portfolio.NewHoldingRepository(zerolog.Nop())
	prices := testutil.NewFixedPrices(map[string]string{"AAPL": "150"})
	esgLookup := domain.ESGLookupFunc(func(ctx context.Context, symbol string) (domain.ESGScore, error) {
		return domain.ESGScore{Overall: 80, Environmental: 80, Social: 80, Governance: 80}, nil
	})

	service := portfolio.NewService(portfolio.ServiceDeps{
		DB:         conn,
		UnitOfWork: database.NewUnitOfWork(conn, 3),
		Locks:      locking.NewKeyedMutex(),
		Portfolios: portfolio.NewPortfolioRepository(zerolog.Nop()),
		Holdings:   holdings,
		Snapshots:  portfolio.NewSnapshotRepository(zerolog.Nop()),
		Valuator:   portfolio.NewValuator(prices, time.Second, zerolog.Nop()),
		ESG:        esgLookup,
		Securities: universe.NewSecurityRepository(conn, zerolog.Nop()),
	}, zerolog.Nop())

	r := chi.NewRouter()
	NewPortfolioHandlers(service, zerolog.Nop()).RegisterRoutes(r)
	return r, service
}

func doRequest(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleGetPortfolio(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(r, http.MethodGet, "/users/user-1/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, portfolio.DefaultPortfolioName, body["name"])
	assert.Equal(t, "MODERATE", body["portfolio_type"])
	assert.NotContains(t, body, "Version")
}

func TestHandleGetHoldings(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(r, http.MethodGet, "/users/user-1/portfolio/holdings?page=1&size=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var body portfolio.HoldingsPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Total)
	assert.Equal(t, 10, body.Size)

	rec = doRequest(r, http.MethodGet, "/users/user-1/portfolio/holdings?page=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetPerformance_InvalidPeriod(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(r, http.MethodGet, "/users/user-1/portfolio/performance?period=10Y")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, http.MethodGet, "/users/user-1/portfolio/performance?period=1W")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePortfolioRoutes(t *testing.T) {
	r, service := setupRouter(t)

	p, err := service.GetPortfolio(context.Background(), "user-1")
	require.NoError(t, err)

	rec := doRequest(r, http.MethodGet, "/portfolios/"+p.ID+"/allocation")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/portfolios/"+p.ID+"/esg")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodPost, "/portfolios/"+p.ID+"/deactivate")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/portfolios/"+p.ID+"/allocation")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "not found")
}
