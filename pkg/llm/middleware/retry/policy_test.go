package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"debatearena/pkg/llm"
	"debatearena/pkg/llmerrors"
)

func TestShouldRetry_NilError(t *testing.T) {
	if ShouldRetry(nil) {
		t.Error("Expected false for nil error")
	}
}

func TestShouldRetry_ContextCanceled(t *testing.T) {
	if ShouldRetry(fmt.Errorf("operation failed: %w", context.Canceled)) {
		t.Error("Expected false for wrapped context.Canceled")
	}
}

func TestShouldRetry_StreamingUnsupported(t *testing.T) {
	if ShouldRetry(fmt.Errorf("groq: %w", llm.ErrStreamingUnsupported)) {
		t.Error("Expected false for unsupported streaming")
	}
}

func TestShouldRetry_Categories(t *testing.T) {
	tests := []struct {
		name     string
		errType  llmerrors.ErrorType
		expected bool
	}{
		{"auth", llmerrors.ErrorTypeAuth, false},
		{"model unavailable", llmerrors.ErrorTypeModelUnavailable, false},
		{"rate limit", llmerrors.ErrorTypeRateLimit, true},
		{"server", llmerrors.ErrorTypeServer, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &llmerrors.Error{Type: tt.errType, Message: tt.name}
			if got := ShouldRetry(err); got != tt.expected {
				t.Errorf("ShouldRetry(%s) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	policy := NewPolicy(DefaultConfig, nil)

	tests := []struct {
		retry    int
		rand     float64
		expected time.Duration
	}{
		{0, 0.5, 0},
		{1, 0.5, 2 * time.Second},         // 1000ms * 2^1, neutral jitter
		{2, 0.5, 4 * time.Second},         // 1000ms * 2^2
		{3, 0.5, 8 * time.Second},         // 1000ms * 2^3
		{1, 0.0, 1 * time.Second},         // lower jitter bound: x0.5
		{1, 0.999, 2998 * time.Millisecond}, // just under x1.5
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("retry_%d_rand_%v", tt.retry, tt.rand), func(t *testing.T) {
			r := tt.rand
			policy.Rand = func() float64 { return r }
			got := policy.CalculateDelay(tt.retry)
			if diff := got - tt.expected; diff < -time.Millisecond || diff > time.Millisecond {
				t.Errorf("CalculateDelay(%d) = %v, want %v", tt.retry, got, tt.expected)
			}
		})
	}
}

func TestCalculateDelay_JitterBounds(t *testing.T) {
	policy := NewPolicy(DefaultConfig, nil)
	for i := 0; i < 200; i++ {
		d := policy.CalculateDelay(1)
		if d < time.Second || d >= 3*time.Second {
			t.Fatalf("delay %v outside [1s, 3s)", d)
		}
	}
}

// recordingPolicy returns a policy whose sleeps are recorded instead of waited.
func recordingPolicy(sleeps *[]time.Duration) *Policy {
	policy := NewPolicy(DefaultConfig, nil)
	policy.Rand = func() float64 { return 0.5 }
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return policy
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(&sleeps)

	calls := 0
	result, err := Do(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", llmerrors.FromStatus("openai", 503, errors.New("overloaded"))
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", result, calls)
	}
	if len(sleeps) != 2 || sleeps[0] != 2*time.Second || sleeps[1] != 4*time.Second {
		t.Errorf("unexpected backoff sequence %v", sleeps)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(&sleeps)

	calls := 0
	_, err := Do(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		return "", llmerrors.FromStatus("anthropic", 429, errors.New("slow down"))
	})

	if calls != 4 {
		t.Errorf("expected 1 attempt + 3 retries = 4 calls, got %d", calls)
	}
	if len(sleeps) != 3 {
		t.Errorf("expected 3 backoff waits, got %d", len(sleeps))
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T: %v", err, err)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("expected 4 attempts recorded, got %d", exhausted.Attempts)
	}
	if !llmerrors.Is(err, llmerrors.ErrorTypeRateLimit) {
		t.Errorf("expected rate limit category to survive, got %v", err)
	}
}

func TestDo_FatalErrorNotRetried(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(&sleeps)

	calls := 0
	authErr := llmerrors.FromStatus("anthropic", 401, errors.New("bad key"))
	_, err := Do(context.Background(), policy, func(context.Context) (string, error) {
		calls++
		return "", authErr
	})

	if calls != 1 || len(sleeps) != 0 {
		t.Errorf("expected a single call and no waits, got %d calls %d waits", calls, len(sleeps))
	}
	if !errors.Is(err, authErr) {
		t.Errorf("expected auth error returned unchanged, got %v", err)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := NewPolicy(DefaultConfig, nil)
	policy.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	_, err := Do(ctx, policy, func(context.Context) (string, error) {
		calls++
		return "", llmerrors.FromStatus("groq", 500, nil)
	})

	if calls != 1 {
		t.Errorf("expected no call after cancellation, got %d calls", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDo_OnRetryHook(t *testing.T) {
	var sleeps []time.Duration
	policy := recordingPolicy(&sleeps)

	var retries []int
	policy.OnRetry = func(retry int, _ error, _ time.Duration) { retries = append(retries, retry) }

	_, _ = Do(context.Background(), policy, func(context.Context) (int, error) {
		return 0, errors.New("connection reset by peer")
	})

	if len(retries) != 3 || retries[0] != 1 || retries[2] != 3 {
		t.Errorf("expected retry hook for retries 1..3, got %v", retries)
	}
}
