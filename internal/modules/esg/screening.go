package esg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miowsis/portfolio-engine/internal/domain"
)

// DefaultScreenLimit caps screening results when no limit is given
const DefaultScreenLimit = 50

// Criteria filters companies during screening. Zero thresholds match
// everything. IncludeSectors, when non-empty, admits only those sectors.
type Criteria struct {
	MinOverall       int      `json:"min_overall_score"`
	MinEnvironmental int      `json:"min_environmental_score"`
	MinSocial        int      `json:"min_social_score"`
	MinGovernance    int      `json:"min_governance_score"`
	ExcludeSectors   []string `json:"exclude_sectors"`
	IncludeSectors   []string `json:"include_only"`
	Limit            int      `json:"limit"`
}

// Validate rejects thresholds outside [0, 100] and negative limits
func (cr Criteria) Validate() error {
	thresholds := []struct {
		name  string
		value int
	}{
		{"min_overall_score", cr.MinOverall},
		{"min_environmental_score", cr.MinEnvironmental},
		{"min_social_score", cr.MinSocial},
		{"min_governance_score", cr.MinGovernance},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 100 {
			return fmt.Errorf("%w: %s must be between 0 and 100, got %d", domain.ErrInvalidInput, th.name, th.value)
		}
	}
	if cr.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative, got %d", domain.ErrInvalidInput, cr.Limit)
	}
	return nil
}

// Matches reports whether c passes every criterion
func (cr Criteria) Matches(c CompanyScore) bool {
	if c.Overall < cr.MinOverall ||
		c.Environmental < cr.MinEnvironmental ||
		c.Social < cr.MinSocial ||
		c.Governance < cr.MinGovernance {
		return false
	}
	if containsFold(cr.ExcludeSectors, c.Sector) {
		return false
	}
	if len(cr.IncludeSectors) > 0 && !containsFold(cr.IncludeSectors, c.Sector) {
		return false
	}
	return true
}

// Screen returns the candidates that match criteria, sorted by overall
// score descending and symbol ascending, capped at the criteria limit
func Screen(candidates []CompanyScore, criteria Criteria) []CompanyScore {
	limit := criteria.Limit
	if limit <= 0 {
		limit = DefaultScreenLimit
	}

	matches := make([]CompanyScore, 0, len(candidates))
	for _, c := range candidates {
		if criteria.Matches(c) {
			matches = append(matches, c)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Overall != matches[j].Overall {
			return matches[i].Overall > matches[j].Overall
		}
		return matches[i].Symbol < matches[j].Symbol
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
