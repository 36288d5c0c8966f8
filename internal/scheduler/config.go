package scheduler

import "time"

type Config struct {
	// Polling
	PollInterval time.Duration
	BatchSize    int

	// Dispatch
	MaxConcurrent     int
	DispatchPerSecond float64
	DispatchBurst     int

	// Recovery
	StaleThreshold time.Duration
	RetentionDays  int

	// Shutdown
	ShutdownTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		PollInterval:      time.Second,
		BatchSize:         100,
		MaxConcurrent:     10,
		DispatchPerSecond: 50,
		DispatchBurst:     100,
		StaleThreshold:    10 * time.Minute,
		RetentionDays:     30,
		ShutdownTimeout:   30 * time.Second,
	}
}

func (c *Config) Validate() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.DispatchPerSecond <= 0 {
		c.DispatchPerSecond = 50
	}
	if c.DispatchBurst <= 0 {
		c.DispatchBurst = 100
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 10 * time.Minute
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}
