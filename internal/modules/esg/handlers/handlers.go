// Package handlers provides HTTP handlers for ESG scores and screening.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/esg"
	"github.com/rs/zerolog"
)

// ESGHandlers handles ESG HTTP requests
type ESGHandlers struct {
	service *esg.Service
	log     zerolog.Logger
}

// NewESGHandlers creates a new ESG handlers instance
func NewESGHandlers(service *esg.Service, log zerolog.Logger) *ESGHandlers {
	return &ESGHandlers{
		service: service,
		log:     log.With().Str("handler", "esg").Logger(),
	}
}

// RegisterRoutes registers all ESG routes
func (h *ESGHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/esg", func(r chi.Router) {
		r.Get("/companies/{symbol}", h.HandleGetCompanyScore)
		r.Post("/screen", h.HandleScreen)
	})
}

// HandleGetCompanyScore returns the ESG score of one company
func (h *ESGHandlers) HandleGetCompanyScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.GetCompanyScore(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.fail(w, err, "Failed to get company ESG score")
		return
	}
	h.writeJSON(w, http.StatusOK, score)
}

// HandleScreen filters the universe by ESG criteria
func (h *ESGHandlers) HandleScreen(w http.ResponseWriter, r *http.Request) {
	var criteria esg.Criteria
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	results, err := h.service.Screen(r.Context(), criteria)
	if err != nil {
		h.fail(w, err, "ESG screening failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (h *ESGHandlers) fail(w http.ResponseWriter, err error, msg string) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
	}
	h.writeError(w, status, domain.PublicMessage(err))
}

func (h *ESGHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *ESGHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
