package clientdata

import "time"

// TTL constants for cached lookups.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLCurrentPrice is the default lifetime of a quoted price
	TTLCurrentPrice = 30 * time.Second
	// TTLPreviousClose only changes once per session
	TTLPreviousClose = 12 * time.Hour
)
