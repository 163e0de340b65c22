package rdap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// DefaultEndpoint is the RDAP bootstrap redirector
const DefaultEndpoint = "https://rdap.org/domain/"

// RDAPClient looks up domain registration data over RDAP
type RDAPClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

type rdapEvent struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type rdapEntity struct {
	Roles      []string `json:"roles"`
	VCardArray []any    `json:"vcardArray"`
}

type rdapDomain struct {
	LDHName  string       `json:"ldhName"`
	Events   []rdapEvent  `json:"events"`
	Entities []rdapEntity `json:"entities"`
}

// NewRDAPClient creates a new RDAP client
func NewRDAPClient(endpoint string, httpClient *http.Client, logger *zap.Logger) *RDAPClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RDAPClient{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Lookup fetches the registration record for a registrable domain
func (c *RDAPClient) Lookup(ctx context.Context, domain string) (core.SourcePayload, error) {
	if net.ParseIP(domain) != nil {
		return core.SourcePayload{}, fmt.Errorf("%w: %s is an IP address", sources.ErrNotFound, domain)
	}

	var record rdapDomain
	if err := sources.GetJSON(ctx, c.httpClient, c.endpoint+url.PathEscape(domain), nil, &record); err != nil {
		return core.SourcePayload{}, err
	}

	data := &core.RegistrationData{Registrar: registrarName(record.Entities)}
	for _, event := range record.Events {
		switch event.Action {
		case "registration":
			t, err := time.Parse(time.RFC3339, event.Date)
			if err != nil {
				return core.SourcePayload{}, fmt.Errorf("%w: registration date %q", sources.ErrMalformed, event.Date)
			}
			data.CreatedAt = t.UTC()
		case "expiration":
			t, err := time.Parse(time.RFC3339, event.Date)
			if err != nil {
				return core.SourcePayload{}, fmt.Errorf("%w: expiration date %q", sources.ErrMalformed, event.Date)
			}
			data.ExpiresAt = t.UTC()
		}
	}

	c.logger.Debug("RDAP lookup complete",
		zap.String("domain", domain),
		zap.Time("created_at", data.CreatedAt),
		zap.String("registrar", data.Registrar))

	return core.SourcePayload{Registration: data}, nil
}

// registrarName pulls the formatted name out of the registrar's jCard
func registrarName(entities []rdapEntity) string {
	for _, entity := range entities {
		isRegistrar := false
		for _, role := range entity.Roles {
			if role == "registrar" {
				isRegistrar = true
				break
			}
		}
		if !isRegistrar || len(entity.VCardArray) < 2 {
			continue
		}
		props, ok := entity.VCardArray[1].([]any)
		if !ok {
			continue
		}
		for _, p := range props {
			prop, ok := p.([]any)
			if !ok || len(prop) < 4 {
				continue
			}
			if name, _ := prop[0].(string); name == "fn" {
				value, _ := prop[3].(string)
				return value
			}
		}
	}
	return ""
}
