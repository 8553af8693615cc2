package worker

import (
	"fmt"
	"log/slog"
	"time"

	"feedcrawler/internal/pkg/config"
)

// Config holds the process-level tunables that are not part of the
// domain Config singleton: the cron schedule driving automatic cycles,
// the health-check listen port, and the overall per-cycle deadline.
// Everything that can change pipeline *behavior* (concurrency caps,
// score threshold, LLM/webhook credentials) instead lives in the Store's
// Config row and is reloaded at the top of every cycle.
type Config struct {
	// CronSchedule triggers an ingestion cycle automatically; empty
	// disables the scheduler (manual/API-triggered runs only).
	CronSchedule string
	Timezone     string
	// CycleTimeout bounds one full lease-to-teardown cycle.
	CycleTimeout time.Duration
	HealthPort   int
	DBPath       string
}

// DefaultConfig mirrors the daily-at-dawn cadence and 30-minute cycle
// budget used for this class of ingestion worker.
func DefaultConfig() Config {
	return Config{
		CronSchedule: "30 5 * * *",
		Timezone:     "Asia/Tokyo",
		CycleTimeout: 30 * time.Minute,
		HealthPort:   9091,
		DBPath:       "./rss_reader.db",
	}
}

// Validate checks every field using the shared validators.
func (c *Config) Validate() error {
	var errs []error
	if c.CronSchedule != "" {
		if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
			errs = append(errs, fmt.Errorf("cron schedule: %w", err))
		}
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads Config from the environment with a fail-open
// strategy: an invalid value logs a warning and falls back to the
// default rather than aborting startup.
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	cfg.DBPath = config.LoadEnvString("DB_PATH", cfg.DBPath)

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	logFallback(logger, "CronSchedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	logFallback(logger, "Timezone", result)

	result = config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.CycleTimeout = result.Value.(time.Duration)
	logFallback(logger, "CycleTimeout", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	logFallback(logger, "HealthPort", result)

	return cfg
}

func logFallback(logger *slog.Logger, field string, result config.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
	}
}
