// Package handlers provides HTTP handlers for portfolio queries.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// PortfolioHandlers handles portfolio HTTP requests
type PortfolioHandlers struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewPortfolioHandlers creates a new portfolio handlers instance
func NewPortfolioHandlers(service *portfolio.Service, log zerolog.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *PortfolioHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/users/{userId}/portfolio", h.HandleGetPortfolio)
	r.Get("/users/{userId}/portfolio/holdings", h.HandleGetHoldings)
	r.Get("/users/{userId}/portfolio/performance", h.HandleGetPerformance)

	// Flat patterns: the trading handlers share the /portfolios/{portfolioId} prefix
	r.Get("/portfolios/{portfolioId}/allocation", h.HandleGetAllocation)
	r.Get("/portfolios/{portfolioId}/esg", h.HandleGetESG)
	r.Post("/portfolios/{portfolioId}/deactivate", h.HandleDeactivate)
}

// HandleGetPortfolio returns the user's valued portfolio
func (h *PortfolioHandlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPortfolio(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, err, "Failed to get portfolio")
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleGetHoldings returns one page of valued holdings (?page=&size=)
func (h *PortfolioHandlers) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	page, ok := h.parsePage(w, r)
	if !ok {
		return
	}

	result, err := h.service.GetHoldings(r.Context(), chi.URLParam(r, "userId"), page)
	if err != nil {
		h.fail(w, err, "Failed to get holdings")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetPerformance returns performance over ?period= (1W, 1M, 3M, 6M, 1Y, ALL)
func (h *PortfolioHandlers) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.service.GetPerformance(r.Context(), chi.URLParam(r, "userId"), r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, err, "Failed to get performance")
		return
	}
	h.writeJSON(w, http.StatusOK, perf)
}

// HandleGetAllocation returns the allocation breakdown of a portfolio
func (h *PortfolioHandlers) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	allocation, err := h.service.GetAllocation(r.Context(), chi.URLParam(r, "portfolioId"))
	if err != nil {
		h.fail(w, err, "Failed to get allocation")
		return
	}
	h.writeJSON(w, http.StatusOK, allocation)
}

// HandleGetESG returns the value-weighted ESG profile of a portfolio
func (h *PortfolioHandlers) HandleGetESG(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.GetPortfolioESG(r.Context(), chi.URLParam(r, "portfolioId"))
	if err != nil {
		h.fail(w, err, "Failed to get portfolio ESG")
		return
	}
	h.writeJSON(w, http.StatusOK, score)
}

// HandleDeactivate soft-deletes a portfolio
func (h *PortfolioHandlers) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "portfolioId"))
	if err != nil {
		h.fail(w, err, "Failed to deactivate portfolio")
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *PortfolioHandlers) parsePage(w http.ResponseWriter, r *http.Request) (portfolio.Page, bool) {
	var page portfolio.Page
	query := r.URL.Query()

	if v := query.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "page must be an integer")
			return page, false
		}
		page.Number = n
	}
	if v := query.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "size must be an integer")
			return page, false
		}
		page.Size = n
	}
	return page, true
}

func (h *PortfolioHandlers) fail(w http.ResponseWriter, err error, msg string) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg(msg)
	}
	h.writeError(w, status, domain.PublicMessage(err))
}

func (h *PortfolioHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *PortfolioHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
