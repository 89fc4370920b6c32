package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeocodeParsesProviderResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Av. Paulista 1000, São Paulo", r.URL.Query().Get("q"))
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"-23.5632103","lon":"-46.6542503"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	lat, lng, err := c.Geocode(context.Background(), "Av. Paulista 1000, São Paulo")
	require.NoError(t, err)
	require.InDelta(t, -23.5632103, lat, 1e-9)
	require.InDelta(t, -46.6542503, lng, 1e-9)
}

func TestGeocodeNoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, _, err := c.Geocode(context.Background(), "nowhere at all")
	require.ErrorIs(t, err, ErrNoResults)
}

func TestGeocodeProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key")
	_, _, err := c.Geocode(context.Background(), "Av. Paulista 1000")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoResults)
}
