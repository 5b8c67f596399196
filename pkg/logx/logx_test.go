package logx

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// setupTestLogger captures log output in a buffer.
func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	return &buf
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("dispatch")

	if logger.Component() != "dispatch" {
		t.Errorf("Expected component 'dispatch', got '%s'", logger.Component())
	}
}

func TestLogFormat(t *testing.T) {
	buf := setupTestLogger(t)

	logger := NewLogger("debate")
	logger.Info("Round %d of %d", 1, 4)

	output := buf.String()

	if !strings.Contains(output, "[debate]") {
		t.Errorf("Expected component in output, got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("Expected log level in output, got: %s", output)
	}
	if !strings.Contains(output, "Round 1 of 4") {
		t.Errorf("Expected formatted message in output, got: %s", output)
	}
}

func TestLogLevels(t *testing.T) {
	logger := NewLogger("test-component")

	tests := []struct {
		level    Level
		logFunc  func(string, ...any)
		expected string
	}{
		{LevelDebug, logger.Debug, "DEBUG"},
		{LevelInfo, logger.Info, "INFO"},
		{LevelWarn, logger.Warn, "WARN"},
		{LevelError, logger.Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := setupTestLogger(t)

			if tt.level == LevelDebug {
				SetDebugConfig(true)
				defer SetDebugConfig(false)
			}

			tt.logFunc("test message")

			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("Expected level '%s' in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebugConfig(false)

	NewLogger("judge").Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("Expected no output with debug disabled, got: %s", buf.String())
	}
}

func TestDebugDomainFiltering(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebugConfig(true)
	SetDebugDomains([]string{"judge"})
	defer func() {
		SetDebugConfig(false)
		SetDebugDomains(nil)
	}()

	ctx := context.Background()
	Debug(ctx, "judge", "visible")
	Debug(ctx, "dispatch", "filtered")

	output := buf.String()
	if !strings.Contains(output, "visible") {
		t.Errorf("Expected judge domain line, got: %s", output)
	}
	if strings.Contains(output, "filtered") {
		t.Errorf("Expected dispatch domain to be filtered, got: %s", output)
	}
}

func TestDebugIncludesRequestID(t *testing.T) {
	buf := setupTestLogger(t)
	SetDebugConfig(true)
	defer SetDebugConfig(false)

	ctx := WithRequestID(context.Background(), "req-42")
	Debug(ctx, "dispatch", "calling model")

	if !strings.Contains(buf.String(), "(request req-42)") {
		t.Errorf("Expected request id in output, got: %s", buf.String())
	}
	if RequestID(ctx) != "req-42" {
		t.Errorf("Expected RequestID to return req-42, got %q", RequestID(ctx))
	}
}

func TestTimestampFormat(t *testing.T) {
	buf := setupTestLogger(t)

	NewLogger("test").Info("timestamp test")

	output := buf.String()
	start := strings.Index(output, "[")
	end := strings.Index(output, "]")
	if start == -1 || end == -1 || end <= start {
		t.Fatalf("Could not find timestamp in output: %s", output)
	}

	if _, err := time.Parse(timestampFormat, output[start+1:end]); err != nil {
		t.Errorf("Invalid timestamp format '%s': %v", output[start+1:end], err)
	}
}
