package filter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/ports"
	"github.com/mikey/url-verdict/internal/utils"
	"go.uber.org/zap"
)

// CliFilter classifies URLs read one per line and writes one JSON record per line
type CliFilter struct {
	classifier ports.URLClassifier
	texts      *utils.TextProcessor
	logger     *zap.Logger
	in         io.Reader
	out        io.Writer
	maxURLs    int
}

// cliResult is one output line; Error is set when classification failed
type cliResult struct {
	Input  string              `json:"input"`
	Record *core.VerdictRecord `json:"record,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(
	classifier ports.URLClassifier,
	texts *utils.TextProcessor,
	in io.Reader,
	out io.Writer,
	maxURLs int,
	logger *zap.Logger,
) *CliFilter {
	return &CliFilter{
		classifier: classifier,
		texts:      texts,
		logger:     logger,
		in:         in,
		out:        out,
		maxURLs:    maxURLs,
	}
}

// ProcessText classifies every link found in text
func (f *CliFilter) ProcessText(ctx context.Context, text string) ([]*core.VerdictRecord, error) {
	urls := f.texts.ExtractURLs(text, f.maxURLs)
	if len(urls) == 0 {
		return nil, nil
	}
	return classifyLinks(ctx, f.classifier, urls, f.logger)
}

// Run classifies each non-empty input line until the input is exhausted
func (f *CliFilter) Run(ctx context.Context) error {
	enc := json.NewEncoder(f.out)
	scanner := bufio.NewScanner(f.in)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		result := cliResult{Input: line}
		record, err := f.classifier.ClassifyRequest(ctx, core.ClassifyRequest{
			URL:      line,
			Metadata: &core.RequestMetadata{Channel: "cli"},
		})
		if err != nil {
			f.logger.Debug("Failed to classify URL", zap.String("url", line), zap.Error(err))
			result.Error = err.Error()
		} else {
			result.Record = record
		}

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
