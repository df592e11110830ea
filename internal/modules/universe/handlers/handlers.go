// Package handlers provides HTTP handlers for the security universe.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	"github.com/rs/zerolog"
)

// UniverseHandlers handles security universe HTTP requests
type UniverseHandlers struct {
	securityRepo *universe.SecurityRepository
	log          zerolog.Logger
}

// NewUniverseHandlers creates a new universe handlers instance
func NewUniverseHandlers(securityRepo *universe.SecurityRepository, log zerolog.Logger) *UniverseHandlers {
	return &UniverseHandlers{
		securityRepo: securityRepo,
		log:          log.With().Str("handler", "universe").Logger(),
	}
}

// RegisterRoutes registers all universe routes
func (h *UniverseHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/securities", func(r chi.Router) {
		r.Get("/", h.HandleGetSecurities)
		r.Post("/", h.HandleUpsertSecurity)
		r.Get("/{symbol}", h.HandleGetSecurity)
	})
}

// HandleGetSecurities returns the full universe
func (h *UniverseHandlers) HandleGetSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.securityRepo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list securities")
		h.writeError(w, http.StatusInternalServerError, "failed to list securities")
		return
	}
	if securities == nil {
		securities = []universe.Security{}
	}
	h.writeJSON(w, http.StatusOK, securities)
}

// HandleGetSecurity returns one security by symbol
func (h *UniverseHandlers) HandleGetSecurity(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	security, err := h.securityRepo.GetBySymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get security")
		h.writeError(w, http.StatusInternalServerError, "failed to get security")
		return
	}
	if security == nil {
		h.writeError(w, http.StatusNotFound, "security not found")
		return
	}
	h.writeJSON(w, http.StatusOK, security)
}

// HandleUpsertSecurity adds or updates a security
func (h *UniverseHandlers) HandleUpsertSecurity(w http.ResponseWriter, r *http.Request) {
	var req universe.Security
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.securityRepo.Upsert(req); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to upsert security")
		h.writeError(w, http.StatusInternalServerError, "failed to save security")
		return
	}

	security, err := h.securityRepo.GetBySymbol(req.Symbol)
	if err != nil || security == nil {
		h.writeError(w, http.StatusInternalServerError, "failed to reload security")
		return
	}
	h.writeJSON(w, http.StatusCreated, security)
}

func (h *UniverseHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *UniverseHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
