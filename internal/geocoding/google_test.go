package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"potholytics-service/internal/config"
	"potholytics-service/internal/domain/pothole"
)

func newTestClient(url string) *GoogleClient {
	return NewGoogleClient(config.GeocodingConfig{BaseURL: url, APIKey: "test-key"}, zerolog.Nop())
}

func TestGoogleClient_Locate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Jalan Ampang, Kuala Lumpur", r.URL.Query().Get("address"))
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{"address_components": [
				{"long_name": "Jalan Ampang", "short_name": "Jln Ampang", "types": ["route"]},
				{"long_name": "Kuala Lumpur", "short_name": "KL", "types": ["locality", "political"]},
				{"long_name": "Wilayah Persekutuan Kuala Lumpur", "short_name": "WP KL", "types": ["administrative_area_level_1", "political"]},
				{"long_name": "Malaysia", "short_name": "MY", "types": ["country", "political"]}
			]}]
		}`))
	}))
	defer server.Close()

	loc, err := newTestClient(server.URL).Locate(context.Background(), "Jalan Ampang, Kuala Lumpur")
	require.NoError(t, err)
	require.Equal(t, "Kuala Lumpur", loc.City)
	require.Equal(t, "Wilayah Persekutuan Kuala Lumpur", loc.State)
}

func TestGoogleClient_LocateFallsBackForCity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"address_components":[
			{"long_name": "Petaling", "types": ["administrative_area_level_2"]},
			{"long_name": "Selangor", "types": ["administrative_area_level_1"]}
		]}]}`))
	}))
	defer server.Close()

	loc, err := newTestClient(server.URL).Locate(context.Background(), "somewhere")
	require.NoError(t, err)
	require.Equal(t, pothole.Locality{City: "Petaling", State: "Selangor"}, loc)
}

func TestGoogleClient_LocateFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"zero results": {http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`},
		"denied":       {http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`},
		"http error":   {http.StatusInternalServerError, ``},
		"bad json":     {http.StatusOK, `{`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Locate(context.Background(), "nowhere")
			require.True(t, errors.Is(err, pothole.ErrGeocodingFailed))
		})
	}
}

func TestGoogleClient_LocateEmptyAddress(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:0").Locate(context.Background(), "  ")
	require.True(t, errors.Is(err, pothole.ErrGeocodingFailed))
}
