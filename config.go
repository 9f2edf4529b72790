package checkout

import (
	"fmt"
	"time"
)

// TimeoutConfig holds timeout configuration for settlement operations.
type TimeoutConfig struct {
	// BackendTimeout is the maximum time for one backend API request.
	BackendTimeout time.Duration

	// SubmitTimeout is the maximum time to wait for the wallet to sign and
	// broadcast a transaction. An abandoned wallet prompt surfaces as a
	// rejection once this elapses rather than hanging.
	SubmitTimeout time.Duration

	// FinalityTimeout is the total ceiling on waiting for a transaction
	// receipt before the flow reports a finality timeout.
	FinalityTimeout time.Duration

	// FinalityPollInterval is the delay between receipt queries.
	FinalityPollInterval time.Duration
}

// DefaultTimeouts provides sensible defaults for settlement operations.
var DefaultTimeouts = TimeoutConfig{
	BackendTimeout:       10 * time.Second,
	SubmitTimeout:        120 * time.Second,
	FinalityTimeout:      90 * time.Second,
	FinalityPollInterval: 2 * time.Second,
}

// WithBackendTimeout returns a new TimeoutConfig with updated backend timeout.
func (tc TimeoutConfig) WithBackendTimeout(d time.Duration) TimeoutConfig {
	tc.BackendTimeout = d
	return tc
}

// WithSubmitTimeout returns a new TimeoutConfig with updated submit timeout.
func (tc TimeoutConfig) WithSubmitTimeout(d time.Duration) TimeoutConfig {
	tc.SubmitTimeout = d
	return tc
}

// WithFinalityTimeout returns a new TimeoutConfig with updated finality ceiling.
func (tc TimeoutConfig) WithFinalityTimeout(d time.Duration) TimeoutConfig {
	tc.FinalityTimeout = d
	return tc
}

// WithFinalityPollInterval returns a new TimeoutConfig with updated poll interval.
func (tc TimeoutConfig) WithFinalityPollInterval(d time.Duration) TimeoutConfig {
	tc.FinalityPollInterval = d
	return tc
}

// Validate ensures timeout values are reasonable.
func (tc TimeoutConfig) Validate() error {
	if tc.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %v", tc.BackendTimeout)
	}
	if tc.SubmitTimeout <= 0 {
		return fmt.Errorf("submit timeout must be positive, got %v", tc.SubmitTimeout)
	}
	if tc.FinalityTimeout <= 0 {
		return fmt.Errorf("finality timeout must be positive, got %v", tc.FinalityTimeout)
	}
	if tc.FinalityPollInterval <= 0 {
		return fmt.Errorf("finality poll interval must be positive, got %v", tc.FinalityPollInterval)
	}
	if tc.FinalityTimeout < tc.FinalityPollInterval {
		return fmt.Errorf("finality timeout (%v) should be >= poll interval (%v)",
			tc.FinalityTimeout, tc.FinalityPollInterval)
	}
	return nil
}
