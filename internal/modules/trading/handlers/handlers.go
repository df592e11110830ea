// Package handlers provides HTTP handlers for order execution and
// transaction history.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/miowsis/portfolio-engine/internal/modules/trading"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradingHandlers handles trading HTTP requests
type TradingHandlers struct {
	executor     *trading.Executor
	transactions *trading.TransactionService
	log          zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(executor *trading.Executor, transactions *trading.TransactionService, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		executor:     executor,
		transactions: transactions,
		log:          log.With().Str("handler", "trading").Logger(),
	}
}

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	// Flat patterns: the portfolio handlers share the /portfolios/{portfolioId} prefix
	r.Post("/portfolios/{portfolioId}/buy", h.HandleBuy)
	r.Post("/portfolios/{portfolioId}/sell", h.HandleSell)
	r.Post("/portfolios/{portfolioId}/round-up", h.HandleRoundUp)
	r.Post("/portfolios/{portfolioId}/deposit", h.HandleDeposit)
	r.Post("/portfolios/{portfolioId}/withdraw", h.HandleWithdraw)
	r.Post("/portfolios/{portfolioId}/dividends", h.HandleDividend)

	r.Get("/users/{userId}/transactions", h.HandleListTransactions)
}

type buyRequest struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	OrderType string          `json:"order_type"`
}

type sellRequest struct {
	Symbol     string           `json:"symbol"`
	Shares     decimal.Decimal  `json:"shares"`
	OrderType  string           `json:"order_type"`
	LimitPrice *decimal.Decimal `json:"limit_price"`
}

type roundUpRequest struct {
	PurchaseAmount decimal.Decimal `json:"purchase_amount"`
	TargetSymbol   string          `json:"target_symbol"`
	MerchantName   string          `json:"merchant_name"`
}

type cashRequest struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

// HandleBuy executes a buy order
func (h *TradingHandlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.executor.Buy(r.Context(), trading.BuyRequest{
		PortfolioID: chi.URLParam(r, "portfolioId"),
		Symbol:      req.Symbol,
		Amount:      req.Amount,
		OrderType:   trading.OrderType(req.OrderType),
	})
	h.respond(w, record, err, "Buy failed")
}

// HandleSell executes a sell order
func (h *TradingHandlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.executor.Sell(r.Context(), trading.SellRequest{
		PortfolioID: chi.URLParam(r, "portfolioId"),
		Symbol:      req.Symbol,
		Shares:      req.Shares,
		OrderType:   trading.OrderType(req.OrderType),
		LimitPrice:  req.LimitPrice,
	})
	h.respond(w, record, err, "Sell failed")
}

// HandleRoundUp invests the round-up of a card purchase
func (h *TradingHandlers) HandleRoundUp(w http.ResponseWriter, r *http.Request) {
	var req roundUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.executor.RoundUp(r.Context(), trading.RoundUpRequest{
		PortfolioID:    chi.URLParam(r, "portfolioId"),
		PurchaseAmount: req.PurchaseAmount,
		TargetSymbol:   req.TargetSymbol,
		MerchantName:   req.MerchantName,
	})
	h.respond(w, record, err, "Round-up failed")
}

// HandleDeposit credits cash
func (h *TradingHandlers) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleCash(w, r, h.executor.Deposit, "Deposit failed")
}

// HandleWithdraw debits cash
func (h *TradingHandlers) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleCash(w, r, h.executor.Withdraw, "Withdrawal failed")
}

// HandleDividend records a cash dividend
func (h *TradingHandlers) HandleDividend(w http.ResponseWriter, r *http.Request) {
	var req cashRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.executor.RecordDividend(r.Context(), chi.URLParam(r, "portfolioId"), req.Symbol, req.Amount)
	h.respond(w, record, err, "Dividend failed")
}

// HandleListTransactions lists a user's transactions (?type=&symbol=&page=&size=)
func (h *TradingHandlers) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var page portfolio.Page
	for param, dest := range map[string]*int{"page": &page.Number, "size": &page.Size} {
		if v := query.Get(param); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, param+" must be an integer")
				return
			}
			*dest = n
		}
	}

	result, err := h.transactions.ListTransactions(r.Context(),
		chi.URLParam(r, "userId"), query.Get("type"), query.Get("symbol"), page)
	if err != nil {
		h.fail(w, err, "Failed to list transactions")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type cashFunc func(ctx context.Context, portfolioID string, amount decimal.Decimal) (*trading.Transaction, error)

func (h *TradingHandlers) handleCash(w http.ResponseWriter, r *http.Request, move cashFunc, msg string) {
	var req cashRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := move(r.Context(), chi.URLParam(r, "portfolioId"), req.Amount)
	h.respond(w, record, err, msg)
}

func (h *TradingHandlers) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *TradingHandlers) respond(w http.ResponseWriter, record *trading.Transaction, err error, msg string) {
	if err != nil {
		h.fail(w, err, msg)
		return
	}
	h.writeJSON(w, http.StatusCreated, record)
}

func (h *TradingHandlers) fail(w http.ResponseWriter, err error, msg string) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg(msg)
	}
	h.writeError(w, status, domain.PublicMessage(err))
}

func (h *TradingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *TradingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
