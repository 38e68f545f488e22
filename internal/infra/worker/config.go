package worker

import (
	"fmt"
	"log/slog"
	"time"

	"newsflow-bridge/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker component: the
// scheduler's two cron expressions (dispatch cycle, janitor cleanup), the
// timezone they tick in, the per-cycle dispatch timeout, and the health
// check server port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules to ensure
// the worker can operate safely even with invalid or missing configuration.
//
// Example usage:
//
//	// Use defaults
//	config := DefaultConfig()
//
//	// Load from environment with fallback
//	config, err := LoadConfigFromEnv(logger, metrics)
//	if err != nil {
//	    // This should never happen with fail-open strategy
//	    log.Fatal("Unexpected configuration error: %v", err)
//	}
type WorkerConfig struct {
	// DispatchCronSchedule is the cron expression driving the Dispatcher's
	// fetch -> collate -> send cycle.
	// Format: "minute hour day month weekday"
	// Example: "*/15 * * * *" (every 15 minutes)
	// Default: "*/15 * * * *"
	DispatchCronSchedule string

	// JanitorCronSchedule is the cron expression driving the periodic
	// FeedEntry/SentReceipt purge.
	// Default: "0 * * * *" (hourly)
	JanitorCronSchedule string

	// Timezone is the IANA timezone name both cron schedules tick in.
	// Default: "UTC"
	Timezone string

	// DispatchTimeout bounds a single dispatch cycle (feed refresh plus
	// fan-out sends). After this timeout the cycle's context is cancelled.
	// Default: 10 minutes
	DispatchTimeout time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		DispatchCronSchedule: "*/15 * * * *",
		JanitorCronSchedule:  "0 * * * *",
		Timezone:             "UTC",
		DispatchTimeout:      10 * time.Minute,
		HealthPort:           9091,
	}
}

// Validate checks if the configuration values are valid.
// This method validates each field using the reusable validators from internal/pkg/config.
// If multiple fields are invalid, all errors are collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.DispatchCronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("dispatch cron schedule: %w", err))
	}

	if err := config.ValidateCronSchedule(c.JanitorCronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("janitor cron schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.DispatchTimeout); err != nil {
		errors = append(errors, fmt.Errorf("dispatch timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - CRON_SCHEDULE: Dispatch cycle cron expression (default: "*/15 * * * *")
//   - CLEANUP_CRON_SCHEDULE: Janitor cron expression (default: "0 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - DISPATCH_TIMEOUT: Duration string, e.g., "10m" (default: 10 minutes)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	applyString := func(field, envKey, current string, validator func(string) error) string {
		result := config.LoadEnvWithFallback(envKey, current, validator)
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("Configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
			}
		}
		return result.Value.(string)
	}

	cfg.DispatchCronSchedule = applyString("dispatch_cron_schedule", "CRON_SCHEDULE", cfg.DispatchCronSchedule, config.ValidateCronSchedule)
	cfg.JanitorCronSchedule = applyString("janitor_cron_schedule", "CLEANUP_CRON_SCHEDULE", cfg.JanitorCronSchedule, config.ValidateCronSchedule)
	cfg.Timezone = applyString("timezone", "WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)

	timeoutResult := config.LoadEnvDuration("DISPATCH_TIMEOUT", cfg.DispatchTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 1*time.Hour)
	})
	cfg.DispatchTimeout = timeoutResult.Value.(time.Duration)
	if timeoutResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("dispatch_timeout")
		metrics.RecordFallback("dispatch_timeout", "default")
		for _, warning := range timeoutResult.Warnings {
			logger.Warn("Configuration fallback applied", slog.String("field", "DispatchTimeout"), slog.String("warning", warning))
		}
	}

	portResult := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = portResult.Value.(int)
	if portResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range portResult.Warnings {
			logger.Warn("Configuration fallback applied", slog.String("field", "HealthPort"), slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
