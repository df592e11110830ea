package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"insufficient funds", fmt.Errorf("%w: need 10", ErrInsufficientFunds), http.StatusPaymentRequired},
		{"insufficient shares", ErrInsufficientShares, http.StatusConflict},
		{"not found", fmt.Errorf("%w: portfolio p1", ErrNotFound), http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"external lookup", ErrExternalLookup, http.StatusBadGateway},
		{"concurrent modification", ErrConcurrentModification, http.StatusConflict},
		{"arithmetic", ErrArithmetic, http.StatusUnprocessableEntity},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "not found: portfolio p1", PublicMessage(fmt.Errorf("%w: portfolio p1", ErrNotFound)))
	assert.Equal(t, "internal error", PublicMessage(errors.New("SQL logic error near line 3")))
}
