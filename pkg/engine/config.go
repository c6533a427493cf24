package engine

import "github.com/rhuss/laph/pkg/api"

// Config holds configuration for the run engine.
type Config struct {
	// DefaultIterations is used when a request omits max_iterations.
	// Zero or negative means 10.
	DefaultIterations int

	// MaxConcurrentRuns caps the number of runs in flight. Further
	// requests are rejected with a conflict error. Zero or negative
	// means 1, since every run shares the same generators and sandbox.
	MaxConcurrentRuns int

	// HistorySize is the number of runs kept in memory for lookup.
	// Zero or negative means 100.
	HistorySize int

	// Validation holds request limits. A zero value uses
	// api.DefaultValidationConfig.
	Validation api.ValidationConfig
}

func (c Config) defaultIterations() int {
	if c.DefaultIterations <= 0 {
		return 10
	}
	return c.DefaultIterations
}

func (c Config) maxConcurrent() int {
	if c.MaxConcurrentRuns <= 0 {
		return 1
	}
	return c.MaxConcurrentRuns
}

func (c Config) historySize() int {
	if c.HistorySize <= 0 {
		return 100
	}
	return c.HistorySize
}

func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
