package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/url-verdict/internal/adapters/cache"
	"github.com/mikey/url-verdict/internal/classifier"
	"github.com/mikey/url-verdict/internal/di"
	"github.com/mikey/url-verdict/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	linkFilter ports.LinkFilter,
	registry *classifier.Registry,
	store cache.Store,
) error {
	defer logger.Sync()
	defer store.Stop()

	// Fail fast on a missing or broken model instead of on the first message
	artifact, err := registry.Active()
	if err != nil {
		logger.Error("Failed to load active model", zap.Error(err))
		return err
	}
	logger.Info("Loaded model",
		zap.String("version", artifact.Version),
		zap.String("schema", artifact.SchemaVersion))

	if err := linkFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown; SIGHUP reloads the active model
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		if err := reloadModel(registry, logger); err != nil {
			logger.Error("Failed to reload model", zap.Error(err))
		}
	}
	logger.Info("Shutting down...")

	if err := linkFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

// reloadModel re-reads the version recorded in state.json, or the configured
// default when nothing was activated, so a `url-check model activate` takes
// effect without a restart
func reloadModel(registry *classifier.Registry, logger *zap.Logger) error {
	version, err := registry.Reload()
	if err != nil {
		return err
	}
	logger.Info("Reloaded model", zap.String("version", version))
	return nil
}
