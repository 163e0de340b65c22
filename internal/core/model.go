package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Verdict is the final classification of a URL
type Verdict string

const (
	VerdictBenign     Verdict = "benign"
	VerdictSuspicious Verdict = "suspicious"
	VerdictMalicious  Verdict = "malicious"
)

// SourceKind identifies one external enrichment source
type SourceKind string

const (
	SourceRegistration SourceKind = "registration"
	SourceDNS          SourceKind = "dns"
	SourceSafeBrowsing SourceKind = "safebrowsing"
	SourceVirusTotal   SourceKind = "virustotal"
	SourceGeolocation  SourceKind = "geolocation"
)

// AllSourceKinds lists every source kind in a stable order
var AllSourceKinds = []SourceKind{
	SourceRegistration,
	SourceDNS,
	SourceSafeBrowsing,
	SourceVirusTotal,
	SourceGeolocation,
}

// NormalizedURL is the canonical form of a submitted URL. It is created by
// Normalize and never mutated afterwards.
type NormalizedURL struct {
	Original  string
	Scheme    string
	Host      string
	Port      string
	Path      string
	RawQuery  string
	Canonical string
}

// IsIP reports whether the host is an IP literal
func (u NormalizedURL) IsIP() bool {
	return isIPHost(u.Host)
}

// RegistrationData is the part of a registration record the features need
type RegistrationData struct {
	CreatedAt time.Time `json:"created_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Registrar string    `json:"registrar,omitempty"`
}

// DNSData summarizes the answer set for a host
type DNSData struct {
	Addresses []string `json:"addresses,omitempty"`
	HasMX     bool     `json:"has_mx"`
}

// ReputationData is a reputation service verdict for a URL
type ReputationData struct {
	Threat      bool     `json:"threat"`
	ThreatTypes []string `json:"threat_types,omitempty"`
	Detections  int      `json:"detections"`
	Engines     int      `json:"engines"`
	// Unknown is set when the service has never analysed the URL
	Unknown bool `json:"unknown,omitempty"`
}

// GeoData is the geolocation record for a host
type GeoData struct {
	CountryCode string `json:"country_code,omitempty"`
	Country     string `json:"country,omitempty"`
	ASN         string `json:"asn,omitempty"`
}

// SourcePayload carries the normalized response of one source. Exactly one
// field is set, matching the source kind that produced it.
type SourcePayload struct {
	Registration *RegistrationData `json:"registration,omitempty"`
	DNS          *DNSData          `json:"dns,omitempty"`
	Reputation   *ReputationData   `json:"reputation,omitempty"`
	Geo          *GeoData          `json:"geo,omitempty"`
}

// ResultStatus tags a SourceResult variant
type ResultStatus int

const (
	StatusSuccess ResultStatus = iota
	StatusFailure
)

func (s ResultStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Failure kinds recorded on SourceFailure
const (
	FailureTimeout     = "timeout"
	FailureDeadline    = "deadline"
	FailureRateLimited = "rate_limited"
	FailureUnavailable = "unavailable"
	FailureMalformed   = "malformed"
	FailureNotFound    = "not_found"
	FailureInternal    = "internal"
)

// SourceFailure describes why a source produced no data
type SourceFailure struct {
	Kind      string
	Retriable bool
	Err       error
}

func (f *SourceFailure) Error() string {
	if f.Err != nil {
		return f.Kind + ": " + f.Err.Error()
	}
	return f.Kind
}

func (f *SourceFailure) Unwrap() error {
	return ErrSourceFailure
}

// SourceResult is the tagged outcome of one adapter invocation
type SourceResult struct {
	Status  ResultStatus
	Payload SourcePayload
	Failure *SourceFailure
	Cached  bool
}

// Success builds a successful result
func Success(payload SourcePayload) SourceResult {
	return SourceResult{Status: StatusSuccess, Payload: payload}
}

// Failed builds a failed result
func Failed(kind string, retriable bool, err error) SourceResult {
	return SourceResult{
		Status:  StatusFailure,
		Failure: &SourceFailure{Kind: kind, Retriable: retriable, Err: err},
	}
}

// OK reports whether the result carries data
func (r SourceResult) OK() bool {
	return r.Status == StatusSuccess
}

// Retriable reports whether a failed result may be retried
func (r SourceResult) Retriable() bool {
	return r.Status == StatusFailure && r.Failure != nil && r.Failure.Retriable
}

// EnrichmentAggregate collects the outcome of every enabled source for one URL
type EnrichmentAggregate struct {
	Results     map[SourceKind]SourceResult
	Degraded    bool
	CollectedAt time.Time
}

// NewEnrichmentAggregate creates an empty aggregate stamped with collectedAt
func NewEnrichmentAggregate(collectedAt time.Time) *EnrichmentAggregate {
	return &EnrichmentAggregate{
		Results:     make(map[SourceKind]SourceResult),
		CollectedAt: collectedAt,
	}
}

// Record stores the result for a source and updates the degraded flag
func (a *EnrichmentAggregate) Record(kind SourceKind, result SourceResult) {
	a.Results[kind] = result
	if !result.OK() {
		a.Degraded = true
	}
}

// Successful returns the payload for kind if that source succeeded
func (a *EnrichmentAggregate) Successful(kind SourceKind) (SourcePayload, bool) {
	if a == nil {
		return SourcePayload{}, false
	}
	r, ok := a.Results[kind]
	if !ok || !r.OK() {
		return SourcePayload{}, false
	}
	return r.Payload, true
}

// AllFailed reports whether no source produced data
func (a *EnrichmentAggregate) AllFailed() bool {
	if a == nil {
		return true
	}
	for _, r := range a.Results {
		if r.OK() {
			return false
		}
	}
	return true
}

// FeatureSchema is the ordered list of features a model version expects
type FeatureSchema struct {
	Version string
	Names   []string
}

// FeatureVector is an ordered sequence of named numeric features
type FeatureVector struct {
	SchemaVersion string
	Names         []string
	Values        []float64
}

// Len returns the number of features in the vector
func (v FeatureVector) Len() int {
	return len(v.Values)
}

// FeatureContribution explains how much one feature moved the score
type FeatureContribution struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Scoring is the classifier output for one feature vector
type Scoring struct {
	Verdict       Verdict
	RawLabel      Verdict
	Confidence    float64
	Probability   float64
	ModelVersion  string
	Contributions []FeatureContribution
}

// SourceStatus summarizes one source on the verdict record
type SourceStatus struct {
	Source  SourceKind `json:"source"`
	Success bool       `json:"success"`
	Cached  bool       `json:"cached"`
	Failure string     `json:"failure,omitempty"`
}

// RequestMetadata holds optional caller metadata. Recognized fields are
// typed; any other top-level key is kept in Extra and written back untouched.
type RequestMetadata struct {
	ClientIP  string
	Channel   string
	Submitter string
	Extra     map[string]json.RawMessage
}

// MarshalJSON writes the recognized fields alongside the opaque ones
func (m RequestMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	for key, value := range map[string]string{
		"client_ip": m.ClientIP,
		"channel":   m.Channel,
		"submitter": m.Submitter,
	} {
		if value == "" {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out[key] = encoded
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the recognized fields and moves every other key into Extra
func (m *RequestMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = RequestMetadata{}
	for key, dst := range map[string]*string{
		"client_ip": &m.ClientIP,
		"channel":   &m.Channel,
		"submitter": &m.Submitter,
	} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return fmt.Errorf("metadata field %q: %w", key, err)
		}
		delete(raw, key)
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// ClassifyRequest is the boundary request for one URL
type ClassifyRequest struct {
	URL      string
	Metadata *RequestMetadata
}

// VerdictRecord is the result of one pipeline run
type VerdictRecord struct {
	ID                   string                `json:"id"`
	URL                  string                `json:"url"`
	Verdict              Verdict               `json:"verdict"`
	Confidence           float64               `json:"confidence"`
	ModelVersion         string                `json:"model_version"`
	RawLabel             Verdict               `json:"raw_label,omitempty"`
	FeatureContributions []FeatureContribution `json:"feature_contributions"`
	Degraded             bool                  `json:"degraded"`
	Allowlisted          bool                  `json:"allowlisted,omitempty"`
	Sources              []SourceStatus        `json:"sources,omitempty"`
	Metadata             *RequestMetadata      `json:"metadata,omitempty"`
	AnalyzedAt           time.Time             `json:"analyzed_at"`
}
