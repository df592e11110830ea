package esg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/miowsis/portfolio-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screeningFixture() []CompanyScore {
	return []CompanyScore{
		{Symbol: "XOM", Overall: 45, Environmental: 30, Social: 55, Governance: 60, Sector: "ENERGY"},
		{Symbol: "AAPL", Overall: 85, Environmental: 90, Social: 80, Governance: 85, Sector: "TECHNOLOGY"},
		{Symbol: "NEE", Overall: 85, Environmental: 95, Social: 75, Governance: 80, Sector: "RENEWABLE_ENERGY"},
		{Symbol: "TSLA", Overall: 92, Environmental: 95, Social: 88, Governance: 90, Sector: "CONSUMER_CYCLICAL"},
		{Symbol: "JPM", Overall: 70, Environmental: 60, Social: 75, Governance: 78, Sector: "FINANCIAL"},
	}
}

func symbols(companies []CompanyScore) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = c.Symbol
	}
	return out
}

func TestScreen_SortsByOverallThenSymbol(t *testing.T) {
	results := Screen(screeningFixture(), Criteria{})
	assert.Equal(t, []string{"TSLA", "AAPL", "NEE", "JPM", "XOM"}, symbols(results))
}

func TestScreen_Thresholds(t *testing.T) {
	results := Screen(screeningFixture(), Criteria{MinOverall: 70, MinEnvironmental: 91})
	assert.Equal(t, []string{"TSLA", "NEE"}, symbols(results))

	results = Screen(screeningFixture(), Criteria{MinSocial: 80, MinGovernance: 85})
	assert.Equal(t, []string{"TSLA", "AAPL"}, symbols(results))
}

func TestScreen_Sectors(t *testing.T) {
	results := Screen(screeningFixture(), Criteria{ExcludeSectors: []string{"energy", "FINANCIAL"}})
	assert.Equal(t, []string{"TSLA", "AAPL", "NEE"}, symbols(results))

	results = Screen(screeningFixture(), Criteria{IncludeSectors: []string{"TECHNOLOGY", "RENEWABLE_ENERGY"}})
	assert.Equal(t, []string{"AAPL", "NEE"}, symbols(results))

	results = Screen(screeningFixture(), Criteria{
		IncludeSectors: []string{"TECHNOLOGY"},
		ExcludeSectors: []string{"TECHNOLOGY"},
	})
	assert.Empty(t, results)
}

func TestScreen_Limit(t *testing.T) {
	results := Screen(screeningFixture(), Criteria{Limit: 2})
	assert.Equal(t, []string{"TSLA", "AAPL"}, symbols(results))

	many := make([]CompanyScore, 0, 80)
	for i := 0; i < 80; i++ {
		many = append(many, CompanyScore{Symbol: fmt.Sprintf("S%02d", i), Overall: i})
	}
	results = Screen(many, Criteria{})
	require.Len(t, results, DefaultScreenLimit)
	assert.Equal(t, "S79", results[0].Symbol)
}

func TestCriteria_Validate(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantErr  bool
	}{
		{"zero value", Criteria{}, false},
		{"bounds inclusive", Criteria{MinOverall: 100, MinEnvironmental: 0, Limit: 5}, false},
		{"overall above 100", Criteria{MinOverall: 101}, true},
		{"negative social", Criteria{MinSocial: -1}, true},
		{"negative governance", Criteria{MinGovernance: -5}, true},
		{"negative limit", Criteria{Limit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
