package trading

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// TransactionService answers transaction history queries
type TransactionService struct {
	db           *sql.DB
	transactions *TransactionRepository
	log          zerolog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(db *sql.DB, transactions *TransactionRepository, log zerolog.Logger) *TransactionService {
	return &TransactionService{
		db:           db,
		transactions: transactions,
		log:          log.With().Str("service", "transactions").Logger(),
	}
}

// ListTransactions returns one page of the user's transactions, newest first.
// txType and symbol are optional filters.
func (s *TransactionService) ListTransactions(ctx context.Context, userID, txType, symbol string, page portfolio.Page) (*TransactionPage, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	parsedType, err := ParseTransactionType(strings.ToUpper(strings.TrimSpace(txType)))
	if err != nil {
		return nil, err
	}

	page = page.Normalize()
	transactions, total, err := s.transactions.List(ctx, s.db, TransactionFilter{
		UserID: userID,
		Type:   parsedType,
		Symbol: domain.NormalizeSymbol(symbol),
		Page:   page,
	})
	if err != nil {
		return nil, err
	}

	return &TransactionPage{
		Transactions: transactions,
		Page:         page.Number,
		Size:         page.Size,
		Total:        total,
	}, nil
}
