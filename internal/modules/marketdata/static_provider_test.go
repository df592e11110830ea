package marketdata

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_GetPrice(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()

	testCases := []struct {
		symbol   string
		expected string
	}{
		{"AAPL", "150"},
		{"googl", "2800"},
		{"MSFT", "330"},
		{"TSLA", "800"},
		{"VTI", "220"},
		{"SPY", "450"},
		{"UNKNOWN", "100"},
	}

	for _, tc := range testCases {
		t.Run(tc.symbol, func(t *testing.T) {
			price, err := p.GetPrice(ctx, tc.symbol)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.expected).Equal(price), "got %s", price)
		})
	}
}

func TestStaticProvider_GetPreviousClose(t *testing.T) {
	p := NewStaticProvider()

	prev, err := p.GetPreviousClose(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "149.25", prev.String())
}

func TestStaticProvider_SetPrice(t *testing.T) {
	p := NewStaticProvider()
	p.SetPrice("nee", decimal.RequireFromString("72.5"))

	price, err := p.GetPrice(context.Background(), "NEE")
	require.NoError(t, err)
	assert.Equal(t, "72.5", price.String())
}

func TestStaticProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticProvider().GetPrice(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}
