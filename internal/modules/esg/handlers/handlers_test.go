package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/modules/esg"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	service := esg.NewService(
		esg.NewRepository(db.Conn(), zerolog.Nop()),
		esg.NewMockProvider(),
		universe.NewSecurityRepository(db.Conn(), zerolog.Nop()),
		zerolog.Nop(),
	)

	r := chi.NewRouter()
	NewESGHandlers(service, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type screenResponse struct {
	Results []esg.CompanyScore `json:"results"`
	Count   int                `json:"count"`
}

func decodeScreen(t *testing.T, rec *httptest.ResponseRecorder) screenResponse {
	t.Helper()
	var body screenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleGetCompanyScore(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, http.MethodGet, "/esg/companies/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var score esg.CompanyScore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	assert.Equal(t, "AAPL", score.Symbol)
	assert.Equal(t, 86, score.Overall)
	assert.Equal(t, "AA", score.Rating)
	assert.Equal(t, "TECHNOLOGY", score.Sector)
}

func TestHandleScreen_DefaultLimit(t *testing.T) {
	r := setupRouter(t)

	// Empty body screens the whole universe under the default limit
	rec := doRequest(r, http.MethodPost, "/esg/screen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeScreen(t, rec)
	assert.Equal(t, 13, all.Count)
	assert.Len(t, all.Results, 13)
	assert.LessOrEqual(t, all.Count, esg.DefaultScreenLimit)
	for i := 1; i < len(all.Results); i++ {
		assert.GreaterOrEqual(t, all.Results[i-1].Overall, all.Results[i].Overall)
	}

	rec = doRequest(r, http.MethodPost, "/esg/screen", `{"limit": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	limited := decodeScreen(t, rec)
	assert.Equal(t, 3, limited.Count)
	assert.Equal(t, all.Results[0].Symbol, limited.Results[0].Symbol)
}

func TestHandleScreen_Filters(t *testing.T) {
	r := setupRouter(t)

	rec := doRequest(r, http.MethodPost, "/esg/screen", `{"min_overall_score": 90}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeScreen(t, rec)
	require.NotEmpty(t, body.Results)
	for _, c := range body.Results {
		assert.GreaterOrEqual(t, c.Overall, 90)
	}
}

func TestHandleScreen_BadRequests(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"min_overall_score":`},
		{"threshold above 100", `{"min_overall_score": 150}`},
		{"negative threshold", `{"min_environmental_score": -1}`},
		{"negative limit", `{"limit": -2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPost, "/esg/screen", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}
