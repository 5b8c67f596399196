package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{429, ErrorTypeRateLimit},
		{400, ErrorTypeModelUnavailable},
		{404, ErrorTypeModelUnavailable},
		{413, ErrorTypeModelUnavailable},
		{422, ErrorTypeModelUnavailable},
		{500, ErrorTypeServer},
		{502, ErrorTypeServer},
		{503, ErrorTypeServer},
		{529, ErrorTypeServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeForStatus(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, FromStatus("openai", 429, nil).IsRetryable())
	assert.True(t, FromStatus("openai", 503, nil).IsRetryable())
	assert.False(t, FromStatus("openai", 401, nil).IsRetryable())
	assert.False(t, FromStatus("openai", 404, nil).IsRetryable())

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(errors.New("something odd")))
	assert.False(t, IsRetryable(fmt.Errorf("call: %w", NewError(ErrorTypeAuth, "bad key"))))
}

func TestClassify(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Classify("anthropic", nil))
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		err := Classify("anthropic", context.Canceled)
		assert.True(t, errors.Is(err, context.Canceled))
		var llmErr *Error
		assert.False(t, errors.As(err, &llmErr))
	})

	t.Run("classified error is preserved", func(t *testing.T) {
		orig := FromStatus("groq", 429, errors.New("slow down"))
		err := Classify("groq", orig)
		assert.Same(t, orig, err)
	})

	t.Run("transport error becomes server", func(t *testing.T) {
		err := Classify("ollama", io.ErrUnexpectedEOF)
		assert.True(t, Is(err, ErrorTypeServer))
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})

	t.Run("unknown error becomes server", func(t *testing.T) {
		err := Classify("google", errors.New("mystery"))
		assert.Equal(t, ErrorTypeServer, TypeOf(err))
	})
}

func TestErrorMessage(t *testing.T) {
	err := FromStatus("anthropic", 401, errors.New("invalid x-api-key"))
	assert.Equal(t, "anthropic error (auth): invalid x-api-key", err.Error())

	err = NewErrorWithStatus(ErrorTypeServer, 502, "")
	assert.Equal(t, "LLM error (server): status 502", err.Error())

	wrapped := fmt.Errorf("dispatch: %w", NewErrorWithCause(ErrorTypeRateLimit, io.EOF, "quota"))
	assert.True(t, Is(wrapped, ErrorTypeRateLimit))
	assert.True(t, errors.Is(wrapped, io.EOF))
}

func TestSanitizePrompt(t *testing.T) {
	short := "short prompt"
	assert.Equal(t, short, SanitizePrompt(short, 100))

	long := strings.Repeat("a", 300) + strings.Repeat("b", 300)
	out := SanitizePrompt(long, 200)
	require.Contains(t, out, "[600 chars, hash:")
	assert.True(t, strings.HasPrefix(out, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 100)))
}
