package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"wrapped not found", fmt.Errorf("ticket: %w", ErrNotFound), "NOT_FOUND", http.StatusNotFound},
		{"wrapped conflict", fmt.Errorf("update: %w", ErrConflict), "CONFLICT", http.StatusConflict},
		{"deadline", context.DeadlineExceeded, "TIMEOUT", http.StatusGatewayTimeout},
		{"domain error passes through", NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestNewNotFoundIsErrNotFound(t *testing.T) {
	err := NewNotFound("ticket", map[string]any{"ticket_id": "t-1"})
	assert.True(t, errors.Is(err, ErrNotFound))
	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "ticket not found", domainErr.Message)
	assert.Equal(t, "t-1", domainErr.Details["ticket_id"])
}

func TestMapErrorPreservesNil(t *testing.T) {
	assert.NoError(t, MapError(nil))

	err := MapError(errors.New("boom"))
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
}
