package testing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// D parses a decimal literal, panicking on malformed input
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// AssertDecimal asserts that actual equals the decimal literal expected,
// ignoring trailing zeros
func AssertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) bool {
	t.Helper()
	want := D(expected)
	if want.Equal(actual) {
		return true
	}
	return assert.Fail(t, "decimals differ",
		append([]interface{}{"expected " + want.String() + ", got " + actual.String()}, msgAndArgs...)...)
}
