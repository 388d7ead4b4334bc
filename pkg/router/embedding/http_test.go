package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPProviderEmbedsAndNormalizes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"hello"}, req.Inputs)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([][]float32{{3, 4}})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 2, 0)
	v, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.InDelta(t, 0.6, v[0], 1e-6)
	require.InDelta(t, 0.8, v[1], 1e-6)
}

func TestHTTPProviderRejectsWrongDimension(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float32{{1, 2, 3}})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 2, 0)
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestHTTPProviderSurfacesNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 2, 0)
	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestHTTPProviderRejectsEmptyText(t *testing.T) {
	t.Parallel()
	p := NewHTTPProvider("http://unused", 2, 0)
	_, err := p.Embed(context.Background(), "")
	require.Error(t, err)
}
