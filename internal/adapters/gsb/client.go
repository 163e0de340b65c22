package gsb

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/safebrowsing/v4"
)

// ClientID identifies this service to the Safe Browsing API
const ClientID = "url-verdict"

// ClientVersion is reported alongside ClientID
const ClientVersion = "1.0.0"

var threatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

// SafeBrowsingClient checks URLs against the Google Safe Browsing v4 lookup API
type SafeBrowsingClient struct {
	service *safebrowsing.Service
	logger  *zap.Logger
}

// NewSafeBrowsingClient creates a new Safe Browsing client
func NewSafeBrowsingClient(ctx context.Context, apiKey string, logger *zap.Logger, opts ...option.ClientOption) (*SafeBrowsingClient, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := safebrowsing.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Safe Browsing client: %w", err)
	}

	return &SafeBrowsingClient{
		service: service,
		logger:  logger,
	}, nil
}

// Lookup reports whether the URL matches any threat list
func (c *SafeBrowsingClient) Lookup(ctx context.Context, url string) (core.SourcePayload, error) {
	req := &safebrowsing.GoogleSecuritySafebrowsingV4FindThreatMatchesRequest{
		Client: &safebrowsing.GoogleSecuritySafebrowsingV4ClientInfo{
			ClientId:      ClientID,
			ClientVersion: ClientVersion,
		},
		ThreatInfo: &safebrowsing.GoogleSecuritySafebrowsingV4ThreatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries: []*safebrowsing.GoogleSecuritySafebrowsingV4ThreatEntry{
				{Url: url},
			},
		},
	}

	resp, err := c.service.ThreatMatches.Find(req).Context(ctx).Do()
	if err != nil {
		return core.SourcePayload{}, classifyError(ctx, err)
	}

	data := &core.ReputationData{}
	seen := make(map[string]bool)
	for _, match := range resp.Matches {
		data.Threat = true
		if match.ThreatType != "" && !seen[match.ThreatType] {
			seen[match.ThreatType] = true
			data.ThreatTypes = append(data.ThreatTypes, match.ThreatType)
		}
	}
	if data.Threat {
		data.Detections = 1
	}

	c.logger.Debug("Safe Browsing lookup complete",
		zap.String("url", url),
		zap.Bool("threat", data.Threat),
		zap.Strings("threat_types", data.ThreatTypes))

	return core.SourcePayload{Reputation: data}, nil
}

func classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", sources.ErrRateLimited, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", sources.ErrUnavailable, err)
		case apiErr.Code == http.StatusBadRequest:
			return fmt.Errorf("%w: %v", sources.ErrInvalidKey, err)
		default:
			return fmt.Errorf("safe browsing request rejected: %w", err)
		}
	}

	// Transport errors surface as plain errors from the generated client
	return fmt.Errorf("%w: %v", sources.ErrUnavailable, err)
}
