package trading

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// transactionColumns must match scanTransaction
const transactionColumns = `id, user_id, portfolio_id, transaction_type, symbol, shares, price, amount, fee,
	net_amount, source, status, order_type, limit_price, round_up_amount, original_purchase_amount,
	merchant_name, notes, executed_at, created_at`

// TransactionFilter selects transactions of one user
type TransactionFilter struct {
	UserID string
	Type   TransactionType
	Symbol string
	Page   portfolio.Page
}

// TransactionRepository handles the append-only transactions table
type TransactionRepository struct {
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// Insert appends t to the ledger
func (r *TransactionRepository) Insert(ctx context.Context, q database.Querier, t *Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.UserID, t.PortfolioID, string(t.Type), nullString(t.Symbol),
		t.Shares.String(), t.Price.String(), t.Amount.String(), t.Fee.String(), t.NetAmount.String(),
		string(t.Source), string(t.Status), nullString(string(t.OrderType)),
		t.LimitPrice, t.RoundUpAmount, t.OriginalPurchaseAmount,
		nullString(t.MerchantName), nullString(t.Notes),
		t.ExecutedAt.UnixMilli(), t.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
	}
	return nil
}

// GetByID returns one transaction
func (r *TransactionRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Transaction, error) {
	row := q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return t, nil
}

// List returns one page of the user's transactions, newest first, and the
// total number matching the filter
func (r *TransactionRepository) List(ctx context.Context, q database.Querier, filter TransactionFilter) ([]Transaction, int, error) {
	page := filter.Page.Normalize()

	where := []string{"user_id = ?"}
	args := []interface{}{filter.UserID}
	if filter.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE "+clause+
			" ORDER BY executed_at DESC, created_at DESC, id LIMIT ? OFFSET ?",
		append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	result := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", err)
	}
	return result, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		t                              Transaction
		txType, source, status         string
		symbol, orderType              sql.NullString
		merchantName, notes            sql.NullString
		executedAtMillis, createdAtSec int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.PortfolioID, &txType, &symbol,
		&t.Shares, &t.Price, &t.Amount, &t.Fee, &t.NetAmount,
		&source, &status, &orderType, &t.LimitPrice, &t.RoundUpAmount, &t.OriginalPurchaseAmount,
		&merchantName, &notes, &executedAtMillis, &createdAtSec); err != nil {
		return nil, err
	}

	t.Type = TransactionType(txType)
	t.Source = Source(source)
	t.Status = Status(status)
	t.Symbol = symbol.String
	t.OrderType = OrderType(orderType.String)
	t.MerchantName = merchantName.String
	t.Notes = notes.String
	t.ExecutedAt = time.UnixMilli(executedAtMillis)
	t.CreatedAt = time.Unix(createdAtSec, 0)
	return &t, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
