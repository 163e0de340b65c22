package logging

import (
	"fmt"
	"strings"

	"github.com/mikey/url-verdict/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry written by the daemon logger
const ServiceName = "url-verdict"

// InitLogger initializes the daemon logger from the logging.* configuration
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	logConfig := baseConfig(cfg.GetString("logging.format") == "json", parseLevel(cfg.GetString("logging.level")))

	if outputs := cfg.GetStringSlice("logging.output_paths"); len(outputs) > 0 {
		logConfig.OutputPaths = outputs
	}

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.With(zap.String("service", ServiceName)), nil
}

// InitConsoleLogger initializes a console-friendly logger. It always writes to
// stderr so command output on stdout stays machine readable.
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	logConfig := baseConfig(jsonFormat, level)
	logConfig.OutputPaths = []string{"stderr"}

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

func baseConfig(jsonFormat bool, level zapcore.Level) zap.Config {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
		logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
