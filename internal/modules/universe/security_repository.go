package universe

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
)

const securitiesColumns = `symbol, name, asset_type, sector, region`

// SecurityRepository handles security database operations
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "security").Logger(),
	}
}

// GetBySymbol returns a security by symbol, or nil when it is not in the universe
func (r *SecurityRepository) GetBySymbol(symbol string) (*Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE symbol = ?"

	row := r.db.QueryRow(query, domain.NormalizeSymbol(symbol))
	var s Security
	err := row.Scan(&s.Symbol, &s.Name, &s.AssetType, &s.Sector, &s.Region)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query security by symbol: %w", err)
	}
	return &s, nil
}

// GetAll returns every security ordered by symbol
func (r *SecurityRepository) GetAll() ([]Security, error) {
	rows, err := r.db.Query("SELECT " + securitiesColumns + " FROM securities ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	return scanSecurities(rows)
}

// GetBySymbols returns the securities known for symbols keyed by symbol.
// Symbols outside the universe are absent from the result.
func (r *SecurityRepository) GetBySymbols(symbols []string) (map[string]Security, error) {
	result := make(map[string]Security, len(symbols))
	if len(symbols) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(symbols))
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		placeholders[i] = "?"
		args[i] = domain.NormalizeSymbol(s)
	}

	query := "SELECT " + securitiesColumns + " FROM securities WHERE symbol IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities by symbols: %w", err)
	}
	defer rows.Close()

	securities, err := scanSecurities(rows)
	if err != nil {
		return nil, err
	}
	for _, s := range securities {
		result[s.Symbol] = s
	}
	return result, nil
}

// Upsert inserts or replaces a security
func (r *SecurityRepository) Upsert(s Security) error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("%w: security symbol is required", domain.ErrInvalidInput)
	}
	s.Symbol = domain.NormalizeSymbol(s.Symbol)
	if s.AssetType == "" {
		s.AssetType = AssetTypeStock
	}
	if s.Sector == "" {
		s.Sector = UnknownSector
	}
	if s.Region == "" {
		s.Region = UnknownRegion
	}

	_, err := r.db.Exec(`
		INSERT INTO securities (`+securitiesColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			asset_type = excluded.asset_type,
			sector = excluded.sector,
			region = excluded.region
	`, s.Symbol, s.Name, s.AssetType, s.Sector, s.Region)
	if err != nil {
		return fmt.Errorf("failed to upsert security %s: %w", s.Symbol, err)
	}

	r.log.Debug().Str("symbol", s.Symbol).Msg("Security upserted")
	return nil
}

func scanSecurities(rows *sql.Rows) ([]Security, error) {
	var securities []Security
	for rows.Next() {
		var s Security
		if err := rows.Scan(&s.Symbol, &s.Name, &s.AssetType, &s.Sector, &s.Region); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}
	return securities, nil
}
