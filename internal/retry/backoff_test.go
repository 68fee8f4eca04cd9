package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false, // Disable jitter for predictable testing
		LogRetries: false,
	}
}

func TestPageFetchRetryConfig(t *testing.T) {
	config := PageFetchRetryConfig()

	if config.MaxRetries != 2 {
		t.Errorf("Expected MaxRetries=2, got %d", config.MaxRetries)
	}
	if config.BaseDelay != 500*time.Millisecond {
		t.Errorf("Expected BaseDelay=500ms, got %v", config.BaseDelay)
	}
	if config.Retryable != nil {
		t.Error("Expected classification to be left to the caller")
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	result := RetryWithBackoff(context.Background(), testConfig(2), func() error {
		return nil
	}, nil)

	if !result.Success {
		t.Error("Expected success=true")
	}
	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}
	if result.LastError != nil {
		t.Errorf("Expected no error, got %v", result.LastError)
	}
	if len(result.RetryReasons) != 0 {
		t.Errorf("Expected no retry reasons, got %d", len(result.RetryReasons))
	}
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	result := RetryWithBackoff(context.Background(), testConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil
	}, nil)

	if !result.Success {
		t.Error("Expected success=true")
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if len(result.RetryReasons) != 2 {
		t.Errorf("Expected 2 retry reasons, got %d", len(result.RetryReasons))
	}
	if result.TotalDuration == 0 {
		t.Error("Expected non-zero total duration")
	}
}

func TestRetryWithBackoff_AllAttemptsFailure(t *testing.T) {
	expectedError := errors.New("persistent failure")
	result := RetryWithBackoff(context.Background(), testConfig(2), func() error {
		return expectedError
	}, nil)

	if result.Success {
		t.Error("Expected success=false")
	}
	if result.Attempts != 3 { // MaxRetries + 1
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if result.LastError != expectedError {
		t.Errorf("Expected last error to be %v, got %v", expectedError, result.LastError)
	}
}

func TestRetryWithBackoff_PermanentErrorStopsImmediately(t *testing.T) {
	config := testConfig(5)
	config.Retryable = IsRetryableError

	attempts := 0
	result := RetryWithBackoff(context.Background(), config, func() error {
		attempts++
		return errors.New("page returned status 404")
	}, nil)

	if result.Success {
		t.Error("Expected success=false")
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt, got %d", attempts)
	}
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	config := testConfig(5)
	config.BaseDelay = 100 * time.Millisecond
	config.MaxDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := RetryWithBackoff(ctx, config, func() error {
		return errors.New("always fails")
	}, nil)

	if result.Success {
		t.Error("Expected success=false due to context cancellation")
	}
	if result.LastError != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", result.LastError)
	}
	if result.Attempts > 2 {
		t.Errorf("Expected few attempts due to quick timeout, got %d", result.Attempts)
	}
}

func TestCalculateDelay(t *testing.T) {
	config := RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	if d := calculateDelay(config, 0); d != 1*time.Second {
		t.Errorf("Expected delay0=1s, got %v", d)
	}
	if d := calculateDelay(config, 1); d != 2*time.Second {
		t.Errorf("Expected delay1=2s, got %v", d)
	}
	if d := calculateDelay(config, 2); d != 4*time.Second {
		t.Errorf("Expected delay2=4s, got %v", d)
	}
	if d := calculateDelay(config, 10); d != 10*time.Second {
		t.Errorf("Expected delay10=10s (capped), got %v", d)
	}
}

func TestCalculateDelay_WithJitter(t *testing.T) {
	config := RetryConfig{
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}

	expectedBase := 2 * time.Second
	tolerance := 200 * time.Millisecond // 10% of 2s

	for i := 0; i < 20; i++ {
		d := calculateDelay(config, 1)
		diff := d - expectedBase
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			t.Fatalf("delay %v too far from expected %v", d, expectedBase)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		errors.New("connection refused"),
		errors.New("HTTP 503 Service Unavailable"),
		errors.New("context deadline exceeded"),
		errors.New("unexpected EOF"),
	}
	for _, err := range retryable {
		if !IsRetryableError(err) {
			t.Errorf("Expected %v to be retryable", err)
		}
	}

	permanent := []error{
		errors.New("invalid input"),
		errors.New("HTTP 401 Unauthorized"),
		errors.New("HTTP 404 Not Found"),
	}
	for _, err := range permanent {
		if IsRetryableError(err) {
			t.Errorf("Expected %v to NOT be retryable", err)
		}
	}

	if IsRetryableError(nil) {
		t.Error("Expected nil error to NOT be retryable")
	}
}
