package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens/echolens/internal/api/handlers"
	"github.com/echolens/echolens/internal/ledger"
)

func newTestRouter(token string) http.Handler {
	return NewRouter(RouterConfig{
		APIToken:        token,
		CollectHandler:  handlers.NewCollectHandler(nil),
		ContentHandler:  handlers.NewContentHandler(nil, nil),
		PatternsHandler: handlers.NewPatternsHandler(nil),
		UsageHandler:    handlers.NewUsageHandler(ledger.NewCostLedger(0), 0),
	})
}

func TestRouter_HealthIsOpen(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	newTestRouter("secret").ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_V1RequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	w := httptest.NewRecorder()

	newTestRouter("secret").ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_V1AcceptsValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()

	newTestRouter("secret").ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnknownRouteIs404(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/nope", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()

	newTestRouter("secret").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
