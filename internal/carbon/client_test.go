package carbon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/carbon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchIntensity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("auth-token"))
		assert.Equal(t, "DE", r.URL.Query().Get("zone"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"carbonIntensity": 412.5, "zone": "DE"}`))
	}))
	defer srv.Close()

	client := carbon.NewClient("secret", time.Second, carbon.WithAPIURL(srv.URL))

	value, err := client.FetchIntensity(context.Background(), "DE")
	require.NoError(t, err)
	assert.InDelta(t, 412.5, value, 0.001)
}

func TestFetchIntensityNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := carbon.NewClient("bad-key", time.Second, carbon.WithAPIURL(srv.URL))

	_, err := client.FetchIntensity(context.Background(), "DE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carbon_unexpected_status")
}

func TestFetchIntensityMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := carbon.NewClient("secret", time.Second, carbon.WithAPIURL(srv.URL))

	_, err := client.FetchIntensity(context.Background(), "DE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carbon_malformed_response")
}

func TestFetchIntensityMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"zone": "DE", "datetime": "2026-08-28T00:00:00Z"}`))
	}))
	defer srv.Close()

	client := carbon.NewClient("secret", time.Second, carbon.WithAPIURL(srv.URL))

	_, err := client.FetchIntensity(context.Background(), "DE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carbon_malformed_response")
}

func TestFetchIntensityEmptyZone(t *testing.T) {
	client := carbon.NewClient("secret", time.Second)

	_, err := client.FetchIntensity(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carbon_empty_zone")
}

func TestFetchIntensityNegativeValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"carbonIntensity": -10}`))
	}))
	defer srv.Close()

	client := carbon.NewClient("secret", time.Second, carbon.WithAPIURL(srv.URL))

	_, err := client.FetchIntensity(context.Background(), "DE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carbon_invalid_intensity")
}
