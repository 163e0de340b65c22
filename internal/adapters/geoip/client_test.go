package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/url-verdict/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGeoIPLookup(t *testing.T) {
	var gotPath, gotFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("fields")
		w.Write([]byte(`{"status": "success", "country": "United States", "countryCode": "us", "as": "AS15133 Edgecast Inc."}`))
	}))
	defer server.Close()

	client := NewGeoIPClient(server.URL+"/json", server.Client(), zap.NewNop())
	payload, err := client.Lookup(context.Background(), "example.com")

	require.NoError(t, err)
	assert.Equal(t, "/json/example.com", gotPath)
	assert.Equal(t, responseFields, gotFields)
	require.NotNil(t, payload.Geo)
	assert.Equal(t, "US", payload.Geo.CountryCode)
	assert.Equal(t, "United States", payload.Geo.Country)
	assert.Equal(t, "AS15133 Edgecast Inc.", payload.Geo.ASN)
}

func TestGeoIPFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"private range", http.StatusOK, `{"status": "fail", "message": "private range"}`, sources.ErrNotFound},
		{"invalid query", http.StatusOK, `{"status": "fail", "message": "invalid query"}`, sources.ErrInvalidKey},
		{"throttled", http.StatusTooManyRequests, ``, sources.ErrRateLimited},
		{"garbage", http.StatusOK, `<html>`, sources.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewGeoIPClient(server.URL, server.Client(), zap.NewNop())
			_, err := client.Lookup(context.Background(), "10.0.0.1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
