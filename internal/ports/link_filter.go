package ports

import (
	"context"

	"github.com/mikey/url-verdict/internal/core"
)

// LinkFilter defines the interface for inbound surfaces that classify links
type LinkFilter interface {
	// ProcessText classifies every link found in a piece of text
	ProcessText(ctx context.Context, text string) ([]*core.VerdictRecord, error)

	// Start starts the filter service
	Start() error

	// Stop stops the filter service
	Stop() error
}
