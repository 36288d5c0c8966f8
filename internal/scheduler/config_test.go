package scheduler

import (
	"testing"
	"time"
)

func TestConfigValidateFillsZeroValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Validate()

	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.BatchSize)
	}
	if cfg.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", cfg.MaxConcurrent)
	}
	if cfg.StaleThreshold != 10*time.Minute {
		t.Errorf("StaleThreshold = %v, want 10m", cfg.StaleThreshold)
	}
}

func TestConfigValidateKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		PollInterval:  5 * time.Second,
		BatchSize:     25,
		MaxConcurrent: 2,
	}
	cfg.Validate()

	if cfg.PollInterval != 5*time.Second || cfg.BatchSize != 25 || cfg.MaxConcurrent != 2 {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}
