package virustotal

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// DefaultEndpoint is the VirusTotal v3 URL report endpoint
const DefaultEndpoint = "https://www.virustotal.com/api/v3/urls/"

// VirusTotalClient fetches the last analysis report for a URL
type VirusTotalClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

type analysisStats struct {
	Harmless   int `json:"harmless"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Timeout    int `json:"timeout"`
}

type urlReport struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			LastAnalysisStats *analysisStats `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// NewVirusTotalClient creates a new VirusTotal client
func NewVirusTotalClient(endpoint, apiKey string, httpClient *http.Client, logger *zap.Logger) *VirusTotalClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &VirusTotalClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// URLID returns the VirusTotal identifier for a URL
func URLID(url string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(url))
}

// Lookup fetches the detection counts for a URL
func (c *VirusTotalClient) Lookup(ctx context.Context, url string) (core.SourcePayload, error) {
	header := http.Header{}
	header.Set("x-apikey", c.apiKey)

	var report urlReport
	err := sources.GetJSON(ctx, c.httpClient, c.endpoint+URLID(url), header, &report)
	if errors.Is(err, sources.ErrNotFound) {
		c.logger.Debug("VirusTotal has no report", zap.String("url", url))
		return core.SourcePayload{Reputation: &core.ReputationData{Unknown: true}}, nil
	}
	if err != nil {
		return core.SourcePayload{}, err
	}

	stats := report.Data.Attributes.LastAnalysisStats
	if stats == nil {
		return core.SourcePayload{}, sources.ErrMalformed
	}

	detections := stats.Malicious + stats.Suspicious
	data := &core.ReputationData{
		Threat:     stats.Malicious > 0,
		Detections: detections,
		Engines:    stats.Harmless + stats.Malicious + stats.Suspicious + stats.Undetected + stats.Timeout,
	}

	c.logger.Debug("VirusTotal lookup complete",
		zap.String("url", url),
		zap.Int("detections", data.Detections),
		zap.Int("engines", data.Engines))

	return core.SourcePayload{Reputation: data}, nil
}
