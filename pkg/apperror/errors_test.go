package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New("LED_001", "Insufficient reserve balance", http.StatusPaymentRequired)
	assert.Equal(t, "[LED_001] Insufficient reserve balance", e.Error())

	wrapped := Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, errors.New("conn refused"))
	assert.Contains(t, wrapped.Error(), "conn refused")
	assert.Contains(t, wrapped.Error(), "SYS_001")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	e := InternalError(inner)
	assert.True(t, errors.Is(e, inner))
}

func TestErrRateNotFound_DistinctFromNotFound(t *testing.T) {
	rate := ErrRateNotFound("USD", "XYZ")
	generic := ErrNotFound("merchant")

	assert.NotEqual(t, generic.Code, rate.Code)
	assert.Equal(t, http.StatusNotFound, rate.HTTPStatus)
	assert.Contains(t, rate.Message, "USD/XYZ")
}

func TestErrorCatalogue_Statuses(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"insufficient reserve", ErrInsufficientReserve(), http.StatusPaymentRequired},
		{"insufficient available", ErrInsufficientAvailable(), http.StatusPaymentRequired},
		{"invalid amount", ErrInvalidAmount(), http.StatusBadRequest},
		{"invalid adjustment", ErrInvalidAdjustment(), http.StatusBadRequest},
		{"invalid spread", ErrInvalidSpread(), http.StatusBadRequest},
		{"unknown setting", ErrUnknownSetting("x"), http.StatusBadRequest},
		{"conflict", ErrConflictRetryable(errors.New("serialize")), http.StatusConflict},
		{"invalid token", ErrInvalidToken(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus)
		})
	}
}
