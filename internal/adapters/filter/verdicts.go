package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallelLinks bounds how many links of one message are classified at once
const maxParallelLinks = 4

// verdictRank orders verdicts from least to most severe
var verdictRank = map[core.Verdict]int{
	core.VerdictBenign:     0,
	core.VerdictSuspicious: 1,
	core.VerdictMalicious:  2,
}

// messageVerdict is the outcome for a whole message: the most severe link wins
type messageVerdict struct {
	Verdict    core.Verdict
	Confidence float64
	Reason     string
	LinkCount  int
}

// classifyLinks classifies urls concurrently and returns the records in input
// order. Links that fail normalization are skipped; any other error aborts.
func classifyLinks(ctx context.Context, classifier ports.URLClassifier, urls []string, logger *zap.Logger) ([]*core.VerdictRecord, error) {
	records := make([]*core.VerdictRecord, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLinks)

	var mu sync.Mutex
	var skipped int
	for i, link := range urls {
		g.Go(func() error {
			record, err := classifier.ClassifyRequest(gctx, core.ClassifyRequest{URL: link})
			if err != nil {
				if errors.Is(err, core.ErrInvalidURL) {
					logger.Debug("Skipping unparseable link", zap.String("url", link), zap.Error(err))
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("failed to classify %s: %w", link, err)
			}
			records[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*core.VerdictRecord, 0, len(records)-skipped)
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// summarizeVerdicts folds link records into a single message verdict
func summarizeVerdicts(records []*core.VerdictRecord) messageVerdict {
	if len(records) == 0 {
		return messageVerdict{
			Verdict:    core.VerdictBenign,
			Confidence: 1.0,
			Reason:     "no links found",
		}
	}

	worst := records[0]
	for _, r := range records[1:] {
		if verdictRank[r.Verdict] > verdictRank[worst.Verdict] ||
			(r.Verdict == worst.Verdict && r.Confidence > worst.Confidence) {
			worst = r
		}
	}

	reason := fmt.Sprintf("%d link(s); %s is %s", len(records), worst.URL, worst.Verdict)
	if worst.Verdict != core.VerdictBenign && len(worst.FeatureContributions) > 0 {
		names := make([]string, 0, len(worst.FeatureContributions))
		for _, c := range worst.FeatureContributions {
			names = append(names, c.Name)
		}
		reason += " (" + strings.Join(names, ", ") + ")"
	}
	if worst.Degraded {
		reason += " [degraded]"
	}

	return messageVerdict{
		Verdict:    worst.Verdict,
		Confidence: worst.Confidence,
		Reason:     reason,
		LinkCount:  len(records),
	}
}
