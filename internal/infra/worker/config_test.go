package worker

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DispatchCronSchedule != "*/15 * * * *" {
		t.Errorf("Expected DispatchCronSchedule '*/15 * * * *', got '%s'", config.DispatchCronSchedule)
	}
	if config.JanitorCronSchedule != "0 * * * *" {
		t.Errorf("Expected JanitorCronSchedule '0 * * * *', got '%s'", config.JanitorCronSchedule)
	}
	if config.Timezone != "UTC" {
		t.Errorf("Expected Timezone 'UTC', got '%s'", config.Timezone)
	}
	if config.DispatchTimeout != 10*time.Minute {
		t.Errorf("Expected DispatchTimeout 10m, got %v", config.DispatchTimeout)
	}
	if config.HealthPort != 9091 {
		t.Errorf("Expected HealthPort 9091, got %d", config.HealthPort)
	}
}

func TestDefaultConfig_IsIndependentCopy(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	config1.DispatchCronSchedule = "0 6 * * *"
	config1.HealthPort = 8080

	if config2.DispatchCronSchedule != "*/15 * * * *" {
		t.Errorf("config2.DispatchCronSchedule was mutated by config1 changes")
	}
	if config2.HealthPort != 9091 {
		t.Errorf("config2.HealthPort was mutated by config1 changes")
	}
}

func TestWorkerConfig_FieldsSettable(t *testing.T) {
	config := WorkerConfig{
		DispatchCronSchedule: "0 0 * * *",
		JanitorCronSchedule:  "30 2 * * *",
		Timezone:             "America/New_York",
		DispatchTimeout:      15 * time.Minute,
		HealthPort:           9100,
	}

	if config.DispatchCronSchedule != "0 0 * * *" {
		t.Errorf("DispatchCronSchedule field not set correctly: %s", config.DispatchCronSchedule)
	}
	if config.JanitorCronSchedule != "30 2 * * *" {
		t.Errorf("JanitorCronSchedule field not set correctly: %s", config.JanitorCronSchedule)
	}
	if config.DispatchTimeout != 15*time.Minute {
		t.Errorf("DispatchTimeout field not set correctly: %v", config.DispatchTimeout)
	}
}

func TestWorkerConfig_Validate_Defaults(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig() should be valid, got error: %v", err)
	}
}

func TestWorkerConfig_Validate_InvalidDispatchCronSchedule(t *testing.T) {
	config := DefaultConfig()
	config.DispatchCronSchedule = "invalid cron"
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for invalid DispatchCronSchedule")
	} else if !strings.Contains(err.Error(), "dispatch cron schedule") {
		t.Errorf("Expected error to mention dispatch cron schedule, got: %v", err)
	}
}

func TestWorkerConfig_Validate_InvalidJanitorCronSchedule(t *testing.T) {
	config := DefaultConfig()
	config.JanitorCronSchedule = "not a cron expression at all"
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for invalid JanitorCronSchedule")
	}
}

func TestWorkerConfig_Validate_EmptyTimezone(t *testing.T) {
	config := DefaultConfig()
	config.Timezone = ""
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for empty Timezone")
	}
}

func TestWorkerConfig_Validate_DispatchTimeoutZero(t *testing.T) {
	config := DefaultConfig()
	config.DispatchTimeout = 0
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for DispatchTimeout = 0")
	}
}

func TestWorkerConfig_Validate_DispatchTimeoutNegative(t *testing.T) {
	config := DefaultConfig()
	config.DispatchTimeout = -1 * time.Minute
	if err := config.Validate(); err == nil {
		t.Error("Expected validation error for negative DispatchTimeout")
	}
}

func TestWorkerConfig_Validate_HealthPortOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		port  int
		valid bool
	}{
		{"too low", 80, false},
		{"boundary low", 1024, true},
		{"typical", 9091, true},
		{"boundary high", 65535, true},
		{"too high", 70000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.HealthPort = tt.port
			err := config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected port %d to be valid, got error: %v", tt.port, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected port %d to be invalid", tt.port)
			}
		})
	}
}

func TestWorkerConfig_Validate_MultipleErrors(t *testing.T) {
	config := WorkerConfig{
		DispatchCronSchedule: "invalid",
		JanitorCronSchedule:  "also invalid",
		Timezone:             "Not/A/Real/Zone",
		DispatchTimeout:      0,
		HealthPort:           80,
	}
	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation error for multiply-invalid config")
	}
}

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	os.Setenv(key, value)
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	os.Unsetenv(key)
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	unsetEnv(t, "CRON_SCHEDULE")
	unsetEnv(t, "CLEANUP_CRON_SCHEDULE")
	unsetEnv(t, "WORKER_TIMEZONE")
	unsetEnv(t, "DISPATCH_TIMEOUT")
	unsetEnv(t, "WORKER_HEALTH_PORT")

	metrics := globalTestMetrics
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, metrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv should never return an error, got: %v", err)
	}
	if config.DispatchCronSchedule != "*/15 * * * *" {
		t.Errorf("Expected default DispatchCronSchedule, got '%s'", config.DispatchCronSchedule)
	}
	if config.HealthPort != 9091 {
		t.Errorf("Expected default HealthPort, got %d", config.HealthPort)
	}
}

func TestLoadConfigFromEnv_CustomValues(t *testing.T) {
	setEnv(t, "CRON_SCHEDULE", "0 */6 * * *")
	setEnv(t, "CLEANUP_CRON_SCHEDULE", "0 3 * * *")
	setEnv(t, "WORKER_TIMEZONE", "UTC")
	setEnv(t, "DISPATCH_TIMEOUT", "20m")
	setEnv(t, "WORKER_HEALTH_PORT", "9200")
	defer func() {
		unsetEnv(t, "CRON_SCHEDULE")
		unsetEnv(t, "CLEANUP_CRON_SCHEDULE")
		unsetEnv(t, "WORKER_TIMEZONE")
		unsetEnv(t, "DISPATCH_TIMEOUT")
		unsetEnv(t, "WORKER_HEALTH_PORT")
	}()

	metrics := globalTestMetrics
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, metrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv should never return an error, got: %v", err)
	}
	if config.DispatchCronSchedule != "0 */6 * * *" {
		t.Errorf("Expected DispatchCronSchedule '0 */6 * * *', got '%s'", config.DispatchCronSchedule)
	}
	if config.DispatchTimeout != 20*time.Minute {
		t.Errorf("Expected DispatchTimeout 20m, got %v", config.DispatchTimeout)
	}
	if config.HealthPort != 9200 {
		t.Errorf("Expected HealthPort 9200, got %d", config.HealthPort)
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBackToDefault(t *testing.T) {
	setEnv(t, "CRON_SCHEDULE", "not a cron expression")
	setEnv(t, "WORKER_HEALTH_PORT", "999999")
	defer func() {
		unsetEnv(t, "CRON_SCHEDULE")
		unsetEnv(t, "WORKER_HEALTH_PORT")
	}()

	metrics := globalTestMetrics
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	config, err := LoadConfigFromEnv(logger, metrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv should never return an error, got: %v", err)
	}
	if config.DispatchCronSchedule != "*/15 * * * *" {
		t.Errorf("Expected fallback to default DispatchCronSchedule, got '%s'", config.DispatchCronSchedule)
	}
	if config.HealthPort != 9091 {
		t.Errorf("Expected fallback to default HealthPort, got %d", config.HealthPort)
	}

	// The resulting config must still validate cleanly even after fallback.
	if err := config.Validate(); err != nil {
		t.Errorf("Config after fallback should be valid, got: %v", err)
	}
}
