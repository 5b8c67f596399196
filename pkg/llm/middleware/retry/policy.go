// Package retry provides retry logic with exponential backoff for provider calls.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
)

// Config defines configuration for retry behavior.
type Config struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"` // Retries after the initial attempt
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`   // Delay unit before exponential growth
	Jitter     float64       `json:"jitter" yaml:"jitter"`           // Relative spread around the computed delay
}

// DefaultConfig provides the standard backoff: 3 retries, 1s base, +/-50% jitter.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  1000 * time.Millisecond,
	Jitter:     0.5,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// ShouldRetry is the default classifier. Auth and model-unavailable errors are
// fatal, context cancellation is never retried, everything else is.
func ShouldRetry(err error) bool {
	if errors.Is(err, llm.ErrStreamingUnsupported) {
		return false
	}
	return llmerrors.IsRetryable(err)
}

// Policy encapsulates retry configuration and logic.
//
//nolint:govet // Simple struct, logical grouping preferred
type Policy struct {
	Config     Config
	Classifier Classifier

	// Sleep waits for d or until ctx is done. Replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0, 1). Replaced in tests.
	Rand func() float64
	// OnRetry is called before each backoff wait, if set.
	OnRetry func(retry int, err error, delay time.Duration)
}

// NewPolicy creates a new retry policy with the given configuration and classifier.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &Policy{
		Config:     config,
		Classifier: classifier,
		Sleep:      sleepContext,
		Rand:       rand.Float64,
	}
}

// CalculateDelay computes the wait before the given retry (1-based):
// BaseDelay * 2^retry scaled by a jitter factor in [1-Jitter, 1+Jitter).
func (p *Policy) CalculateDelay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}

	delay := float64(p.Config.BaseDelay) * math.Pow(2, float64(retry))

	if p.Config.Jitter > 0 {
		r := 0.5
		if p.Rand != nil {
			r = p.Rand()
		}
		delay *= 1 - p.Config.Jitter + 2*p.Config.Jitter*r
	}

	return time.Duration(delay)
}

// ShouldRetry determines if an error should be retried based on the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

func (p *Policy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return p.Sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
