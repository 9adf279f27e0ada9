package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	return nil
}

// RequireLLM reports a configuration error when no API key is available. It is
// checked lazily so commands that never call the model still work without one.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set HANDCUT_LLM_API_KEY or OPENROUTER_API_KEY, or edit %s (create with 'handcut config init')", defaultPath)
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if d.SampleInterval <= 0 || math.IsNaN(d.SampleInterval) {
		return errors.New("detection.sample_interval must be positive")
	}
	if d.Quality < 1 || d.Quality > 31 {
		return errors.New("detection.quality must be between 1 and 31")
	}
	if d.Concurrency < 1 {
		return errors.New("detection.concurrency must be >= 1")
	}
	if d.Threshold <= 0 || d.Threshold > 1 {
		return errors.New("detection.threshold must be above 0 and at most 1")
	}
	if d.MinHandDuration < 0 {
		return errors.New("detection.min_hand_duration must be >= 0")
	}
	if d.MaxHandDuration < d.MinHandDuration {
		return errors.New("detection.max_hand_duration must be >= detection.min_hand_duration")
	}
	switch d.FailurePolicy {
	case FailurePolicyFailFast, FailurePolicySkip:
	default:
		return fmt.Errorf("detection.failure_policy: unsupported value %q (use %s or %s)", d.FailurePolicy, FailurePolicyFailFast, FailurePolicySkip)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return errors.New("storage.sqlite_path must be set when storage.backend is sqlite")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("storage.postgres_dsn must be set when storage.backend is postgres (or set HANDCUT_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":                c.LLM.TimeoutSeconds,
		"detection.parse_attempts":           c.Detection.ParseAttempts,
		"detection.classify_timeout_seconds": c.Detection.ClassifyTimeoutSeconds,
		"detection.run_timeout_seconds":      c.Detection.RunTimeoutSeconds,
		"notifications.request_timeout":      c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
