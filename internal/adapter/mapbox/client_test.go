package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-review-service/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/-64.188800,-31.420100.json", r.URL.Path, "lon,lat order")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{{
				PlaceName: "Córdoba, Córdoba, Argentina",
				Text:      "Córdoba",
				Relevance: 0.98,
			}},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ReverseGeocode(context.Background(), -31.4201, -64.1888)
	require.NoError(t, err)

	assert.Equal(t, "Córdoba, Córdoba, Argentina", result.FormattedAddress)
	assert.Equal(t, "Córdoba", result.PlaceName)
	assert.InDelta(t, 0.98, result.Confidence, 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("success")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.metrics.GeocodeAPIDuration))
}

func TestClient_ReverseGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ReverseGeocode(context.Background(), -55.0, -40.0)
	require.NoError(t, err)
	assert.Empty(t, result.FormattedAddress)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("empty")), 0)
}

func TestClient_ReverseGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	c.token = "bad-token"

	_, err := c.ReverseGeocode(context.Background(), -31.4, -64.2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("error")), 0)
}

func TestClient_ReverseGeocode_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.ReverseGeocode(context.Background(), -31.4, -64.2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 50*time.Millisecond)
	_, err := c.ReverseGeocode(context.Background(), -31.4, -64.2)
	require.Error(t, err)
}
