package esg

import (
	"context"
	"hash/fnv"
	"time"
)

// DataProvider fetches fresh ESG data for a company
type DataProvider interface {
	FetchScore(ctx context.Context, symbol string) (*CompanyScore, error)
}

// MockDataSource names the data source of MockProvider scores
const MockDataSource = "Simulated ESG Provider"

var knownScores = map[string]CompanyScore{
	"AAPL":  {CompanyName: "Apple Inc.", Environmental: 90, Social: 80, Governance: 85, Trend: TrendImproving},
	"GOOGL": {CompanyName: "Alphabet Inc.", Environmental: 85, Social: 70, Governance: 80, Trend: TrendStable},
	"TSLA":  {CompanyName: "Tesla Inc.", Environmental: 95, Social: 88, Governance: 90, Trend: TrendImproving},
}

var knownNames = map[string]string{
	"MSFT": "Microsoft Corporation",
	"AMZN": "Amazon.com Inc.",
}

// MockProvider serves fixed scores for a few well-known companies and
// stable pseudo-random scores in [60, 99] for every other symbol.
type MockProvider struct {
	now func() time.Time
}

// NewMockProvider creates a new mock ESG provider
func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

// FetchScore returns the simulated score of symbol
func (p *MockProvider) FetchScore(ctx context.Context, symbol string) (*CompanyScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if known, ok := knownScores[symbol]; ok {
		c := known
		c.Symbol = symbol
		c.Overall = CompositeOverall(c.Environmental, c.Social, c.Governance)
		c.Rating = Rating(c.Overall)
		c.DataSource = MockDataSource
		c.LastUpdated = p.now()
		return &c, nil
	}

	environmental := 60 + int(seed(symbol, "E")%40)
	social := 60 + int(seed(symbol, "S")%40)
	governance := 60 + int(seed(symbol, "G")%40)
	carbon := 1000 + float64(seed(symbol, "carbon")%9000)
	renewable := 20 + float64(seed(symbol, "renewable")%60)

	name, ok := knownNames[symbol]
	if !ok {
		name = symbol + " Corporation"
	}

	overall := CompositeOverall(environmental, social, governance)
	return &CompanyScore{
		Symbol:               symbol,
		CompanyName:          name,
		Overall:              overall,
		Environmental:        environmental,
		Social:               social,
		Governance:           governance,
		Rating:               Rating(overall),
		CarbonEmissions:      &carbon,
		RenewableEnergyUsage: &renewable,
		Trend:                TrendStable,
		DataSource:           MockDataSource,
		LastUpdated:          p.now(),
	}, nil
}

func seed(symbol, dimension string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol + ":" + dimension))
	return h.Sum32()
}
