package virustotal

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

func TestURLID(t *testing.T) {
	assert.Equal(t, "aHR0cDovL3d3dy5leGFtcGxlLmNvbS8", URLID("http://www.example.com/"))
}

func TestVirusTotalLookup(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-apikey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"id": "x", "type": "url", "attributes": {
			"last_analysis_stats": {"harmless": 60, "malicious": 3, "suspicious": 1, "undetected": 8, "timeout": 0}
		}}}`))
	}))
	defer server.Close()

	client := NewVirusTotalClient(server.URL+"/api/v3/urls", "secret", server.Client(), zap.NewNop())
	payload, err := client.Lookup(context.Background(), "http://www.example.com/")

	require.NoError(t, err)
	assert.Equal(t, "/api/v3/urls/aHR0cDovL3d3dy5leGFtcGxlLmNvbS8", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.NotNil(t, payload.Reputation)
	assert.True(t, payload.Reputation.Threat)
	assert.Equal(t, 4, payload.Reputation.Detections)
	assert.Equal(t, 72, payload.Reputation.Engines)
}

func TestVirusTotalErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"quota", http.StatusTooManyRequests, `{"error": {"code": "QuotaExceededError"}}`, sources.ErrRateLimited},
		{"outage", http.StatusInternalServerError, ``, sources.ErrUnavailable},
		{"missing stats", http.StatusOK, `{"data": {"attributes": {}}}`, sources.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewVirusTotalClient(server.URL, "secret", server.Client(), zap.NewNop())
			_, err := client.Lookup(context.Background(), "https://example.com/")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVirusTotalUnknownURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "NotFoundError"}}`))
	}))
	defer server.Close()

	client := NewVirusTotalClient(server.URL, "secret", server.Client(), zap.NewNop())
	payload, err := client.Lookup(context.Background(), "https://never-seen.example/")

	require.NoError(t, err)
	require.NotNil(t, payload.Reputation)
	assert.True(t, payload.Reputation.Unknown)
	assert.False(t, payload.Reputation.Threat)
}
