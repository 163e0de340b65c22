package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/sources"
	"go.uber.org/zap"
)

// FallbackNameserver is used when none is configured and resolv.conf is unreadable
const FallbackNameserver = "8.8.8.8:53"

// DNSClient resolves A, AAAA and MX records for a host
type DNSClient struct {
	nameserver string
	client     *dns.Client
	logger     *zap.Logger
}

// NewDNSClient creates a new DNS client. An empty nameserver selects the first
// server from /etc/resolv.conf.
func NewDNSClient(nameserver string, timeout time.Duration, logger *zap.Logger) *DNSClient {
	if nameserver == "" {
		nameserver = systemNameserver()
	}
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		nameserver = net.JoinHostPort(nameserver, "53")
	}

	return &DNSClient{
		nameserver: nameserver,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
		logger: logger,
	}
}

func systemNameserver() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return FallbackNameserver
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

// Lookup queries the records for host. A name that does not exist is a valid
// answer with no addresses.
func (c *DNSClient) Lookup(ctx context.Context, host string) (core.SourcePayload, error) {
	if ip := net.ParseIP(host); ip != nil {
		return core.SourcePayload{DNS: &core.DNSData{Addresses: []string{ip.String()}}}, nil
	}

	data := &core.DNSData{}
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX} {
		answer, err := c.exchange(ctx, host, qtype)
		if err != nil {
			return core.SourcePayload{}, err
		}

		for _, rr := range answer {
			switch record := rr.(type) {
			case *dns.A:
				data.Addresses = append(data.Addresses, record.A.String())
			case *dns.AAAA:
				data.Addresses = append(data.Addresses, record.AAAA.String())
			case *dns.MX:
				data.HasMX = true
			}
		}
	}

	c.logger.Debug("DNS lookup complete",
		zap.String("host", host),
		zap.Int("address_count", len(data.Addresses)),
		zap.Bool("has_mx", data.HasMX))

	return core.SourcePayload{DNS: data}, nil
}

func (c *DNSClient) exchange(ctx context.Context, host string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.nameserver)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s query for %s: %v", sources.ErrUnavailable, dns.TypeToString[qtype], host, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
		return resp.Answer, nil
	case dns.RcodeFormatError:
		return nil, fmt.Errorf("%w: %s rejected as malformed", sources.ErrInvalidKey, host)
	default:
		return nil, fmt.Errorf("%w: rcode %s", sources.ErrUnavailable, dns.RcodeToString[resp.Rcode])
	}
}
