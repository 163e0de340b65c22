package features

import (
	"time"

	"github.com/mikey/url-verdict/internal/core"
)

const (
	maxDomainAgeDays       = 3650
	maxRegistrationYears   = 10
	maxDNSRecords          = 20
	maxReputationDetection = 100
	daysPerYear            = 365.25
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func domainAgeDays(agg *core.EnrichmentAggregate, _ map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceRegistration)
	if !ok || payload.Registration == nil || payload.Registration.CreatedAt.IsZero() {
		return 0, false
	}
	age := collectedAt(agg).Sub(payload.Registration.CreatedAt).Hours() / 24
	return clamp(age, 0, maxDomainAgeDays), true
}

func registrationLengthYears(agg *core.EnrichmentAggregate, _ map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceRegistration)
	if !ok || payload.Registration == nil {
		return 0, false
	}
	reg := payload.Registration
	if reg.CreatedAt.IsZero() || reg.ExpiresAt.IsZero() {
		return 0, false
	}
	years := reg.ExpiresAt.Sub(reg.CreatedAt).Hours() / 24 / daysPerYear
	return clamp(years, 0, maxRegistrationYears), true
}

func dnsResolves(agg *core.EnrichmentAggregate, _ map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceDNS)
	if !ok || payload.DNS == nil {
		return 0, false
	}
	return boolFeature(len(payload.DNS.Addresses) > 0), true
}

func dnsRecordCount(agg *core.EnrichmentAggregate, _ map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceDNS)
	if !ok || payload.DNS == nil {
		return 0, false
	}
	count := len(payload.DNS.Addresses)
	if payload.DNS.HasMX {
		count++
	}
	return clamp(float64(count), 0, maxDNSRecords), true
}

func reputationAThreat(agg *core.EnrichmentAggregate, _ map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceSafeBrowsing)
	if !ok || payload.Reputation == nil {
		return 0, false
	}
	return boolFeature(payload.Reputation.Threat), true
}

func reputationBDetections(agg *core.EnrichmentAggregate, _ map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceVirusTotal)
	if !ok || payload.Reputation == nil || payload.Reputation.Unknown {
		return 0, false
	}
	return clamp(float64(payload.Reputation.Detections), 0, maxReputationDetection), true
}

func highRiskCountry(agg *core.EnrichmentAggregate, highRisk map[string]bool) (float64, bool) {
	payload, ok := agg.Successful(core.SourceGeolocation)
	if !ok || payload.Geo == nil || payload.Geo.CountryCode == "" {
		return 0, false
	}
	return boolFeature(highRisk[payload.Geo.CountryCode]), true
}

// DefaultHighRiskCountries is used when no list is configured
var DefaultHighRiskCountries = []string{"CN", "RU", "KP", "IR", "NG"}

// collectedAt returns the aggregate's reference time
func collectedAt(agg *core.EnrichmentAggregate) time.Time {
	if agg == nil || agg.CollectedAt.IsZero() {
		return time.Now()
	}
	return agg.CollectedAt
}
