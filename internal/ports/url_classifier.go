package ports

import (
	"context"

	"github.com/mikey/url-verdict/internal/core"
)

// URLClassifier classifies one URL into a verdict record
type URLClassifier interface {
	ClassifyRequest(ctx context.Context, req core.ClassifyRequest) (*core.VerdictRecord, error)
}
