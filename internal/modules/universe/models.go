// Package universe provides the investable security universe.
package universe

// Asset types
const (
	AssetTypeStock = "STOCK"
	AssetTypeETF   = "ETF"
	AssetTypeBond  = "BOND"
)

// Fallback classification for symbols missing from the universe
const (
	UnknownSector = "OTHER"
	UnknownRegion = "OTHER"
)

// Security represents a security in the investment universe
type Security struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	AssetType string `json:"asset_type"`
	Sector    string `json:"sector"`
	Region    string `json:"region"`
}

// Unclassified returns a placeholder security for a symbol with no universe entry
func Unclassified(symbol string) Security {
	return Security{
		Symbol:    symbol,
		Name:      symbol,
		AssetType: AssetTypeStock,
		Sector:    UnknownSector,
		Region:    UnknownRegion,
	}
}
