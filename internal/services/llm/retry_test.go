package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"429 status", errors.New("Error 429, Message: quota exceeded"), true},
		{"resource exhausted", errors.New("Status: RESOURCE_EXHAUSTED"), true},
		{"anthropic rate limit", errors.New("rate_limit_error: Number of requests exceeded"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.expected {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	if delay < 45*time.Second || delay > 46*time.Second {
		t.Errorf("Expected delay around 45s, got %v", delay)
	}

	if ExtractRetryDelay(errors.New("no delay here")) != 0 {
		t.Error("Expected zero delay for message without a hint")
	}

	if ExtractRetryDelay(nil) != 0 {
		t.Error("Expected zero delay for nil error")
	}
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	config := &RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	first := config.CalculateBackoff(0, 0)
	second := config.CalculateBackoff(1, 0)
	if second <= first {
		t.Errorf("Expected backoff to grow: %v then %v", first, second)
	}

	capped := config.CalculateBackoff(10, 0)
	if capped > config.MaxBackoff {
		t.Errorf("Backoff %v exceeds cap %v", capped, config.MaxBackoff)
	}
}

func TestCalculateBackoffUsesAPIDelay(t *testing.T) {
	config := NewDefaultRetryConfig()
	config.JitterFraction = 0

	backoff := config.CalculateBackoff(0, 30*time.Second)
	if backoff < 30*time.Second {
		t.Errorf("Expected API-provided delay to be respected, got %v", backoff)
	}
}

func TestCalculateBackoffJitterStaysInBounds(t *testing.T) {
	config := &RetryConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Minute,
		BackoffMultiplier: 1.0,
		JitterFraction:    0.2,
	}

	for i := 0; i < 50; i++ {
		backoff := config.CalculateBackoff(0, 0)
		if backoff < 800*time.Millisecond || backoff > 1200*time.Millisecond {
			t.Fatalf("Jittered backoff %v outside [0.8s, 1.2s]", backoff)
		}
	}
}
