package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllowlistModelVersion is reported on records produced by the allowlist bypass
const AllowlistModelVersion = "allowlist"

// URLClassifierService sequences normalization, enrichment, feature assembly
// and scoring into a verdict
type URLClassifierService struct {
	enricher  Enricher
	assembler FeatureAssembler
	models    ModelProvider
	allowlist Allowlist
	logger    *zap.Logger
	now       func() time.Time
}

// NewURLClassifierService creates a new classifier service. allowlist may be nil.
func NewURLClassifierService(
	enricher Enricher,
	assembler FeatureAssembler,
	models ModelProvider,
	allowlist Allowlist,
	logger *zap.Logger,
) *URLClassifierService {
	return &URLClassifierService{
		enricher:  enricher,
		assembler: assembler,
		models:    models,
		allowlist: allowlist,
		logger:    logger,
		now:       time.Now,
	}
}

// Classify classifies a raw URL
func (s *URLClassifierService) Classify(ctx context.Context, rawURL string) (*VerdictRecord, error) {
	return s.ClassifyRequest(ctx, ClassifyRequest{URL: rawURL})
}

// ClassifyRequest classifies the URL in req and echoes its metadata on the record
func (s *URLClassifierService) ClassifyRequest(ctx context.Context, req ClassifyRequest) (*VerdictRecord, error) {
	u, err := Normalize(req.URL)
	if err != nil {
		return nil, err
	}

	// Trusted hosts skip enrichment and scoring
	if s.allowlist != nil && s.allowlist.IsAllowed(u.Host) {
		s.logger.Info("Skipping classification for allowlisted host",
			zap.String("url", u.Canonical),
			zap.String("action", "allowlist_bypass"))

		return &VerdictRecord{
			ID:                   uuid.NewString(),
			URL:                  u.Canonical,
			Verdict:              VerdictBenign,
			Confidence:           1.0,
			ModelVersion:         AllowlistModelVersion,
			FeatureContributions: []FeatureContribution{},
			Allowlisted:          true,
			Metadata:             req.Metadata,
			AnalyzedAt:           s.now(),
		}, nil
	}

	// Resolve the model before any external lookups so a missing or broken
	// artifact fails the call without spending source quota
	model, err := s.models.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to load active model: %w", err)
	}

	agg := s.enricher.Enrich(ctx, u)
	if agg.Degraded {
		s.logger.Warn("Enrichment degraded",
			zap.String("url", u.Canonical),
			zap.Bool("all_failed", agg.AllFailed()))
	}

	vec, err := s.assembler.Assemble(u, agg, model.Schema())
	if err != nil {
		return nil, fmt.Errorf("failed to assemble features: %w", err)
	}

	scoring, err := model.Score(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to score features: %w", err)
	}

	record := &VerdictRecord{
		ID:                   uuid.NewString(),
		URL:                  u.Canonical,
		Verdict:              scoring.Verdict,
		Confidence:           scoring.Confidence,
		ModelVersion:         scoring.ModelVersion,
		RawLabel:             scoring.RawLabel,
		FeatureContributions: scoring.Contributions,
		Degraded:             agg.Degraded,
		Sources:              summarizeSources(agg),
		Metadata:             req.Metadata,
		AnalyzedAt:           s.now(),
	}

	s.logger.Info("Classified URL",
		zap.String("id", record.ID),
		zap.String("url", record.URL),
		zap.String("verdict", string(record.Verdict)),
		zap.Float64("confidence", record.Confidence),
		zap.String("model", record.ModelVersion),
		zap.Bool("degraded", record.Degraded))

	return record, nil
}

func summarizeSources(agg *EnrichmentAggregate) []SourceStatus {
	var out []SourceStatus
	for _, kind := range AllSourceKinds {
		r, ok := agg.Results[kind]
		if !ok {
			continue
		}
		st := SourceStatus{Source: kind, Success: r.OK(), Cached: r.Cached}
		if r.Failure != nil {
			st.Failure = r.Failure.Kind
		}
		out = append(out, st)
	}
	return out
}
