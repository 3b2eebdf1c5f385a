package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/wallet-relay-go/internal/errors"
)

func TestClientIP(t *testing.T) {
	t.Run("prefers first X-Forwarded-For entry", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		r.Header.Set("X-Real-IP", "198.51.100.2")

		assert.Equal(t, "203.0.113.7", ClientIP(r))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "  203.0.113.7 , 10.0.0.1")

		assert.Equal(t, "203.0.113.7", ClientIP(r))
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.2")

		assert.Equal(t, "198.51.100.2", ClientIP(r))
	})

	t.Run("unknown without proxy headers", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		assert.Equal(t, "unknown", ClientIP(r))
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    *apperrors.AppError
		status int
	}{
		{"session not found", apperrors.SessionNotFound(), http.StatusNotFound},
		{"session terminated", apperrors.SessionTerminated(), http.StatusGone},
		{"mobile locked", apperrors.MobileLocked(), http.StatusConflict},
		{"invalid secret", apperrors.InvalidSecret(), http.StatusForbidden},
		{"at capacity", apperrors.AtCapacity(), http.StatusServiceUnavailable},
		{"rate limited", apperrors.RateLimitExceeded(), http.StatusTooManyRequests},
		{"missing field", apperrors.MissingRequired("session"), http.StatusBadRequest},
		{"internal", apperrors.Internal("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.err.Code, body.Code)
			assert.Equal(t, tc.err.Message, body.Error)
		})
	}

	t.Run("wraps plain errors as internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
