package features

import (
	"fmt"
	"strings"

	"github.com/mikey/url-verdict/internal/core"
	"go.uber.org/zap"
)

// SchemaVersion identifies the feature layout produced by this package
const SchemaVersion = "url-features/v2"

// Feature is one entry of the catalog. Exactly one of Lexical and Enriched
// is set. Enriched features fall back to Fallback when their source has no
// data.
type Feature struct {
	Name     string
	Lexical  func(u core.NormalizedURL) float64
	Enriched func(agg *core.EnrichmentAggregate, highRisk map[string]bool) (float64, bool)
	Fallback float64
}

// Catalog lists every feature in schema order. Fallbacks sit at the neutral
// midpoint of each feature's range, which is also the standardization mean
// of the bundled model.
var Catalog = []Feature{
	{Name: "url_length", Lexical: urlLength},
	{Name: "domain_dots", Lexical: domainDots},
	{Name: "hyphen_count", Lexical: hyphenCount},
	{Name: "path_depth", Lexical: pathDepth},
	{Name: "query_param_count", Lexical: queryParamCount},
	{Name: "digit_ratio", Lexical: digitRatio},
	{Name: "has_ip_address", Lexical: hasIPAddress},
	{Name: "char_entropy", Lexical: charEntropy},
	{Name: "suspicious_keywords", Lexical: suspiciousKeywords},
	{Name: "is_shortened", Lexical: isShortened},
	{Name: "has_https", Lexical: hasHTTPS},
	{Name: "subdomain_count", Lexical: subdomainCount},
	{Name: "has_at_symbol", Lexical: hasAtSymbol},
	{Name: "is_punycode", Lexical: isPunycode},
	{Name: "impersonates_brand", Lexical: impersonatesBrand},
	{Name: "domain_age_days", Enriched: domainAgeDays, Fallback: 1825},
	{Name: "registration_length_years", Enriched: registrationLengthYears, Fallback: 3},
	{Name: "dns_resolves", Enriched: dnsResolves, Fallback: 0.5},
	{Name: "dns_record_count", Enriched: dnsRecordCount, Fallback: 2},
	{Name: "reputation_a_threat", Enriched: reputationAThreat, Fallback: 0.5},
	{Name: "reputation_b_detections", Enriched: reputationBDetections, Fallback: 2},
	{Name: "high_risk_country", Enriched: highRiskCountry, Fallback: 0.5},
}

// Names returns the feature names in schema order
func Names() []string {
	names := make([]string, len(Catalog))
	for i, f := range Catalog {
		names[i] = f.Name
	}
	return names
}

// Schema returns the schema produced by the assembler
func Schema() core.FeatureSchema {
	return core.FeatureSchema{Version: SchemaVersion, Names: Names()}
}

// Assembler builds feature vectors from a URL and its enrichment
type Assembler struct {
	highRisk map[string]bool
	logger   *zap.Logger
}

// NewAssembler creates a new assembler. highRiskCountries holds ISO 3166-1
// alpha-2 codes; an empty list selects DefaultHighRiskCountries.
func NewAssembler(highRiskCountries []string, logger *zap.Logger) *Assembler {
	if len(highRiskCountries) == 0 {
		highRiskCountries = DefaultHighRiskCountries
	}
	highRisk := make(map[string]bool, len(highRiskCountries))
	for _, code := range highRiskCountries {
		highRisk[strings.ToUpper(strings.TrimSpace(code))] = true
	}
	return &Assembler{
		highRisk: highRisk,
		logger:   logger,
	}
}

// Assemble builds the vector declared by schema. The schema must match the
// catalog exactly; it is never reordered or padded.
func (a *Assembler) Assemble(u core.NormalizedURL, agg *core.EnrichmentAggregate, schema core.FeatureSchema) (core.FeatureVector, error) {
	if err := checkSchema(schema); err != nil {
		return core.FeatureVector{}, err
	}

	values := make([]float64, len(Catalog))
	var fallbacks []string
	for i, f := range Catalog {
		if f.Lexical != nil {
			values[i] = f.Lexical(u)
			continue
		}
		v, ok := f.Enriched(agg, a.highRisk)
		if !ok {
			v = f.Fallback
			fallbacks = append(fallbacks, f.Name)
		}
		values[i] = v
	}

	if len(fallbacks) > 0 {
		a.logger.Debug("Using fallback feature values",
			zap.String("url", u.Canonical),
			zap.Strings("features", fallbacks))
	}

	return core.FeatureVector{
		SchemaVersion: SchemaVersion,
		Names:         Names(),
		Values:        values,
	}, nil
}

func checkSchema(schema core.FeatureSchema) error {
	if schema.Version != SchemaVersion {
		return fmt.Errorf("%w: model expects schema %q, assembler produces %q",
			core.ErrFeatureSchemaMismatch, schema.Version, SchemaVersion)
	}
	if len(schema.Names) != len(Catalog) {
		return fmt.Errorf("%w: model expects %d features, assembler produces %d",
			core.ErrFeatureSchemaMismatch, len(schema.Names), len(Catalog))
	}
	for i, name := range schema.Names {
		if name != Catalog[i].Name {
			return fmt.Errorf("%w: feature %d is %q, expected %q",
				core.ErrFeatureSchemaMismatch, i, name, Catalog[i].Name)
		}
	}
	return nil
}
