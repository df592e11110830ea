package esg

import (
	"context"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Aggregate computes the value-weighted ESG score of holdings. Each dimension
// is Σ(marketValue·score) / Σ marketValue rounded half-up to an integer.
// An empty set or a zero total value scores 0 in every dimension. Lookup
// failures abort with domain.ErrExternalLookup.
func Aggregate(ctx context.Context, holdings []WeightedHolding, lookup domain.ESGLookup) (*PortfolioScore, error) {
	result := &PortfolioScore{
		Holdings:     make([]HoldingScore, 0, len(holdings)),
		Improvements: []Improvement{},
		CalculatedAt: time.Now(),
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.MarketValue)
	}

	var overall, environmental, social, governance decimal.Decimal
	for _, h := range holdings {
		score, err := lookup.GetESGScore(ctx, h.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: ESG score for %s: %v", domain.ErrExternalLookup, h.Symbol, err)
		}

		weight := decimal.Zero
		if total.IsPositive() {
			weight = h.MarketValue.DivRound(total, domain.MoneyScale)
		}
		result.Holdings = append(result.Holdings, HoldingScore{
			Symbol:      h.Symbol,
			MarketValue: h.MarketValue,
			Weight:      weight,
			Score:       score,
			Rating:      Rating(score.Overall),
		})

		if score.Overall < ImprovementThreshold {
			result.Improvements = append(result.Improvements, Improvement{
				Symbol:     h.Symbol,
				Overall:    score.Overall,
				Suggestion: fmt.Sprintf("Consider replacing %s (ESG score %d) with a higher-rated alternative", h.Symbol, score.Overall),
			})
		}

		overall = overall.Add(h.MarketValue.Mul(decimal.NewFromInt(int64(score.Overall))))
		environmental = environmental.Add(h.MarketValue.Mul(decimal.NewFromInt(int64(score.Environmental))))
		social = social.Add(h.MarketValue.Mul(decimal.NewFromInt(int64(score.Social))))
		governance = governance.Add(h.MarketValue.Mul(decimal.NewFromInt(int64(score.Governance))))
	}

	if total.IsPositive() {
		result.Score = domain.ESGScore{
			Overall:       weightedMean(overall, total),
			Environmental: weightedMean(environmental, total),
			Social:        weightedMean(social, total),
			Governance:    weightedMean(governance, total),
		}
	}
	result.Rating = Rating(result.Score.Overall)

	return result, nil
}

func weightedMean(weightedSum, total decimal.Decimal) int {
	return int(weightedSum.DivRound(total, 0).IntPart())
}
