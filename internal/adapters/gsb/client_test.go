package gsb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/url-verdict/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *SafeBrowsingClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewSafeBrowsingClient(context.Background(), "test-key", zap.NewNop(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return client
}

func TestSafeBrowsingMatch(t *testing.T) {
	var gotURL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ThreatInfo struct {
				ThreatEntries []struct {
					URL string `json:"url"`
				} `json:"threatEntries"`
			} `json:"threatInfo"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.ThreatInfo.ThreatEntries) > 0 {
			gotURL = body.ThreatInfo.ThreatEntries[0].URL
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matches": [
			{"threatType": "SOCIAL_ENGINEERING", "platformType": "ANY_PLATFORM", "threat": {"url": "http://phish.example/"}},
			{"threatType": "SOCIAL_ENGINEERING", "platformType": "WINDOWS", "threat": {"url": "http://phish.example/"}}
		]}`))
	})

	payload, err := client.Lookup(context.Background(), "http://phish.example/")

	require.NoError(t, err)
	assert.Equal(t, "http://phish.example/", gotURL)
	require.NotNil(t, payload.Reputation)
	assert.True(t, payload.Reputation.Threat)
	assert.Equal(t, []string{"SOCIAL_ENGINEERING"}, payload.Reputation.ThreatTypes)
}

func TestSafeBrowsingClean(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	payload, err := client.Lookup(context.Background(), "https://example.com/")

	require.NoError(t, err)
	require.NotNil(t, payload.Reputation)
	assert.False(t, payload.Reputation.Threat)
	assert.Zero(t, payload.Reputation.Detections)
}

func TestSafeBrowsingErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"quota exhausted", http.StatusTooManyRequests, sources.ErrRateLimited},
		{"backend error", http.StatusServiceUnavailable, sources.ErrUnavailable},
		{"bad request", http.StatusBadRequest, sources.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"code": 0, "message": "test"}}`))
			})

			_, err := client.Lookup(context.Background(), "https://example.com/")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
