package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDEcho() (http.Handler, *string) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seen
}

func TestRequestID_GeneratedWhenMissing(t *testing.T) {
	handler, seen := requestIDEcho()

	req := httptest.NewRequest(http.MethodGet, "/v1/content", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	_, err := uuid.Parse(*seen)
	require.NoError(t, err)
	assert.Equal(t, *seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_HonorsWellFormedHeader(t *testing.T) {
	handler, seen := requestIDEcho()
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/v1/content", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, id, *seen)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesMalformedHeader(t *testing.T) {
	handler, seen := requestIDEcho()

	req := httptest.NewRequest(http.MethodGet, "/v1/content", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, "not-a-uuid", *seen)
	_, err := uuid.Parse(*seen)
	require.NoError(t, err)
}
