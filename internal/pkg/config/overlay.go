package config

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ApplyYAMLOverlay loads an optional YAML file of environment-variable
// overrides and applies any keys not already set in the process environment.
// Real env vars always win; the file only fills gaps, matching the
// fail-open strategy the rest of this package follows -- a missing or
// unreadable file is logged and otherwise ignored, never fatal.
//
// path defaults to "config.yaml" when empty. The file is a flat mapping,
// e.g.:
//
//	DISCORD_BOT_TOKEN: "..."
//	TRANSLATION_PROVIDER: "openai"
func ApplyYAMLOverlay(logger *slog.Logger, path string) {
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read config overlay file", slog.String("path", path), slog.Any("error", err))
		}
		return
	}

	var overlay map[string]string
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		logger.Warn("failed to parse config overlay file, ignoring", slog.String("path", path), slog.Any("error", err))
		return
	}

	applied := 0
	for key, value := range overlay {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Warn("failed to apply config overlay key", slog.String("key", key), slog.Any("error", err))
			continue
		}
		applied++
	}
	if applied > 0 {
		logger.Info("applied config overlay file", slog.String("path", path), slog.Int("keys_applied", applied))
	}
}
