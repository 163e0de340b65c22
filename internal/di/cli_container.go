package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/url-verdict/internal/config"
	"github.com/mikey/url-verdict/internal/core"
	"github.com/mikey/url-verdict/internal/logging"
)

// CLIFlags contains the command line flags shared by the CLI commands
type CLIFlags struct {
	ConfigFile string
	ModelsDir  string
	Verbose    bool
	JSONLog    bool
	// Offline disables every network source
	Offline bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(flags)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the configuration and applies flag overrides
func loadCLIConfig(flags *CLIFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.ConfigFile != "" {
		cfg, err = config.NewFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	// Set some cli specific settings
	cfg.Set("server.filter_type", "cli")
	if flags.ModelsDir != "" {
		cfg.Set("classifier.models_dir", flags.ModelsDir)
	}
	if flags.Offline {
		for _, kind := range core.AllSourceKinds {
			cfg.Set("sources."+string(kind)+".enabled", false)
		}
	}

	return cfg, nil
}
