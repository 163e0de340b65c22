package geoip

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// DefaultEndpoint is the ip-api.com JSON endpoint
const DefaultEndpoint = "http://ip-api.com/json/"

const responseFields = "status,message,country,countryCode,as"

// GeoIPClient geolocates a host through ip-api.com
type GeoIPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

type geoResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	AS          string `json:"as"`
}

// NewGeoIPClient creates a new geolocation client
func NewGeoIPClient(endpoint string, httpClient *http.Client, logger *zap.Logger) *GeoIPClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GeoIPClient{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Lookup geolocates a host name or IP address
func (c *GeoIPClient) Lookup(ctx context.Context, host string) (core.SourcePayload, error) {
	target := c.endpoint + url.PathEscape(host) + "?fields=" + responseFields

	var resp geoResponse
	if err := sources.GetJSON(ctx, c.httpClient, target, nil, &resp); err != nil {
		return core.SourcePayload{}, err
	}

	if resp.Status != "success" {
		switch resp.Message {
		case "private range", "reserved range":
			return core.SourcePayload{}, fmt.Errorf("%w: %s", sources.ErrNotFound, resp.Message)
		case "invalid query":
			return core.SourcePayload{}, fmt.Errorf("%w: %s", sources.ErrInvalidKey, resp.Message)
		default:
			return core.SourcePayload{}, fmt.Errorf("%w: status %q: %s", sources.ErrMalformed, resp.Status, resp.Message)
		}
	}

	data := &core.GeoData{
		CountryCode: strings.ToUpper(resp.CountryCode),
		Country:     resp.Country,
		ASN:         resp.AS,
	}

	c.logger.Debug("Geolocation lookup complete",
		zap.String("host", host),
		zap.String("country_code", data.CountryCode))

	return core.SourcePayload{Geo: data}, nil
}
