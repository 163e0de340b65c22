package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mikey/url-verdict/internal/adapters/cache"
	"github.com/mikey/url-verdict/internal/di"
	"go.uber.org/zap"
)

// invoke builds the CLI container from the global flags and runs fn with
// its dependencies. The logger is flushed and the cache stopped afterwards.
func invoke(fn any) error {
	flags := globalFlags
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}

	defer func() {
		_ = container.Invoke(func(logger *zap.Logger) { _ = logger.Sync() })
	}()

	return container.Invoke(fn)
}

// stopCache releases the cache once a pipeline command is done with it
func stopCache(store cache.Store) {
	store.Stop()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
