package portfolio

import (
	"sort"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	"github.com/shopspring/decimal"
)

// CashBucket is the allocation bucket holding uninvested cash
const CashBucket = "CASH"

// AllocationSlice is one bucket of an allocation breakdown
type AllocationSlice struct {
	Name    string          `json:"name"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

// Allocation breaks a valued portfolio down by asset type, sector and region.
// Cash appears as its own bucket in every dimension so each sums to TotalValue.
type Allocation struct {
	PortfolioID string            `json:"portfolio_id"`
	TotalValue  decimal.Decimal   `json:"total_value"`
	CashBalance decimal.Decimal   `json:"cash_balance"`
	CashPercent decimal.Decimal   `json:"cash_percent"`
	ByAssetType []AllocationSlice `json:"by_asset_type"`
	BySector    []AllocationSlice `json:"by_sector"`
	ByRegion    []AllocationSlice `json:"by_region"`
}

// BuildAllocation groups the valued holdings of p using securities for
// classification. Holdings missing from securities are grouped as unclassified.
func BuildAllocation(p *Portfolio, securities map[string]universe.Security) *Allocation {
	byAssetType := map[string]decimal.Decimal{}
	bySector := map[string]decimal.Decimal{}
	byRegion := map[string]decimal.Decimal{}

	for _, h := range p.Holdings {
		security, ok := securities[h.Symbol]
		if !ok {
			security = universe.Unclassified(h.Symbol)
		}
		byAssetType[security.AssetType] = byAssetType[security.AssetType].Add(h.MarketValue)
		bySector[security.Sector] = bySector[security.Sector].Add(h.MarketValue)
		byRegion[security.Region] = byRegion[security.Region].Add(h.MarketValue)
	}

	if p.CashBalance.IsPositive() {
		byAssetType[CashBucket] = p.CashBalance
		bySector[CashBucket] = p.CashBalance
		byRegion[CashBucket] = p.CashBalance
	}

	return &Allocation{
		PortfolioID: p.ID,
		TotalValue:  p.TotalValue,
		CashBalance: p.CashBalance,
		CashPercent: domain.PercentOf(p.CashBalance, p.TotalValue),
		ByAssetType: toSlices(byAssetType, p.TotalValue),
		BySector:    toSlices(bySector, p.TotalValue),
		ByRegion:    toSlices(byRegion, p.TotalValue),
	}
}

// toSlices sorts buckets by value descending, name ascending on ties
func toSlices(buckets map[string]decimal.Decimal, total decimal.Decimal) []AllocationSlice {
	slices := make([]AllocationSlice, 0, len(buckets))
	for name, value := range buckets {
		slices = append(slices, AllocationSlice{
			Name:    name,
			Value:   value,
			Percent: domain.PercentOf(value, total),
		})
	}
	sort.Slice(slices, func(i, j int) bool {
		if c := slices[i].Value.Cmp(slices[j].Value); c != 0 {
			return c > 0
		}
		return slices[i].Name < slices[j].Name
	})
	return slices
}
