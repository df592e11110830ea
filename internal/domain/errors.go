package domain

import (
	"errors"
	"strings"
)

// Error taxonomy for portfolio operations. Callers wrap these with
// fmt.Errorf("%w: detail", ErrX) and match them with errors.Is.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientShares     = errors.New("insufficient shares")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrExternalLookup         = errors.New("external lookup failed")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrArithmetic             = errors.New("arithmetic error")
)

// IsRetryable reports whether err may succeed if the unit of work runs again.
// Only version conflicts and SQLite lock contention qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrentModification) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}
