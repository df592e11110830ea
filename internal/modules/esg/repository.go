package esg

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const companyColumns = `symbol, company_name, overall_score, environmental_score, social_score, governance_score,
	carbon_emissions, renewable_energy_usage, sector, industry, trend, data_source, last_updated`

// Repository stores company ESG scores in company_esg_scores
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ESG score repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "esg").Logger(),
	}
}

// GetBySymbol returns the stored score of symbol, or nil when none is stored
func (r *Repository) GetBySymbol(symbol string) (*CompanyScore, error) {
	row := r.db.QueryRow("SELECT "+companyColumns+" FROM company_esg_scores WHERE symbol = ?", symbol)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ESG score for %s: %w", symbol, err)
	}
	return c, nil
}

// GetAll returns every stored score ordered by overall score descending
func (r *Repository) GetAll() ([]CompanyScore, error) {
	rows, err := r.db.Query("SELECT " + companyColumns + " FROM company_esg_scores ORDER BY overall_score DESC, symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query ESG scores: %w", err)
	}
	defer rows.Close()

	var result []CompanyScore
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ESG score: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ESG scores: %w", err)
	}
	return result, nil
}

// Upsert inserts or replaces the score of c.Symbol
func (r *Repository) Upsert(c *CompanyScore) error {
	if c.LastUpdated.IsZero() {
		c.LastUpdated = time.Now()
	}
	if c.Trend == "" {
		c.Trend = TrendStable
	}

	_, err := r.db.Exec(`
		INSERT INTO company_esg_scores (`+companyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			company_name = excluded.company_name,
			overall_score = excluded.overall_score,
			environmental_score = excluded.environmental_score,
			social_score = excluded.social_score,
			governance_score = excluded.governance_score,
			carbon_emissions = excluded.carbon_emissions,
			renewable_energy_usage = excluded.renewable_energy_usage,
			sector = excluded.sector,
			industry = excluded.industry,
			trend = excluded.trend,
			data_source = excluded.data_source,
			last_updated = excluded.last_updated
	`,
		c.Symbol, c.CompanyName, c.Overall, c.Environmental, c.Social, c.Governance,
		nullFloat(c.CarbonEmissions), nullFloat(c.RenewableEnergyUsage),
		c.Sector, c.Industry, string(c.Trend), c.DataSource, c.LastUpdated.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store ESG score for %s: %w", c.Symbol, err)
	}

	r.log.Debug().Str("symbol", c.Symbol).Int("overall", c.Overall).Msg("ESG score stored")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompany(row rowScanner) (*CompanyScore, error) {
	var (
		c                      CompanyScore
		name, sector, industry sql.NullString
		dataSource             sql.NullString
		carbon, renewable      sql.NullFloat64
		trend                  string
		lastUpdated            int64
	)
	if err := row.Scan(&c.Symbol, &name, &c.Overall, &c.Environmental, &c.Social, &c.Governance,
		&carbon, &renewable, &sector, &industry, &trend, &dataSource, &lastUpdated); err != nil {
		return nil, err
	}

	c.CompanyName = name.String
	c.Sector = sector.String
	c.Industry = industry.String
	c.DataSource = dataSource.String
	c.Trend = Trend(trend)
	c.Rating = Rating(c.Overall)
	c.LastUpdated = time.Unix(lastUpdated, 0)
	if carbon.Valid {
		c.CarbonEmissions = &carbon.Float64
	}
	if renewable.Valid {
		c.RenewableEnergyUsage = &renewable.Float64
	}
	return &c, nil
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
