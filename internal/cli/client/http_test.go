package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig("test-token", srv.URL)
	require.NoError(t, err)

	resp, err := api.Get("/health")
	require.NoError(t, err)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "ok", data["status"])
}

func TestAPIClient_EmptyTokenOmitsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig("", srv.URL)
	require.NoError(t, err)

	_, err = api.Get("/health")
	assert.NoError(t, err)
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "golang", body["target"])
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig("test-token", srv.URL)
	require.NoError(t, err)

	_, err = api.Post("/v1/collect", map[string]string{"target": "golang"})
	assert.NoError(t, err)
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"session cost budget exceeded"}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig("test-token", srv.URL)
	require.NoError(t, err)

	_, err = api.Post("/v1/ingest", map[string]string{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "session cost budget exceeded", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig("test-token", srv.URL)
	require.NoError(t, err)

	_, err = api.Get("/health")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestNewAPIClientWithCmd_EnvCascade(t *testing.T) {
	t.Setenv(envAPIToken, "env-token")
	t.Setenv(envAPIURL, "http://example.com:9090")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "env-token", api.apiToken)
	assert.Equal(t, "http://example.com:9090", api.baseURL)
}

func TestNewAPIClientWithCmd_Defaults(t *testing.T) {
	t.Setenv(envAPIToken, "")
	t.Setenv(envAPIURL, "")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
	assert.Empty(t, api.apiToken)
}
