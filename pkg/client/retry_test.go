package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", config.MaxAttempts)
	}
	if config.InitialBackoff != 200*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 200ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 2*time.Second {
		t.Errorf("MaxBackoff = %v, want 2s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithBackoff(t *testing.T) {
	serverErr := &UpstreamError{StatusCode: 500, ErrorClass: ErrorClassServer}
	clientErr := &UpstreamError{StatusCode: 404, ErrorClass: ErrorClassClient}

	tests := []struct {
		name          string
		config        RetryConfig
		errs          []error
		wantCalls     int
		wantErr       bool
		wantExhausted bool
	}{
		{
			name:      "success on first attempt",
			config:    fastRetry(3),
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "success after server error",
			config:    fastRetry(3),
			errs:      []error{serverErr, nil},
			wantCalls: 2,
		},
		{
			name:      "client error not retried",
			config:    fastRetry(3),
			errs:      []error{clientErr, nil},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:          "server error exhausts attempts",
			config:        fastRetry(3),
			errs:          []error{serverErr, serverErr, serverErr, nil},
			wantCalls:     3,
			wantErr:       true,
			wantExhausted: true,
		},
		{
			name:      "single attempt returns error as is",
			config:    fastRetry(1),
			errs:      []error{serverErr, nil},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryWithBackoff(context.Background(), tt.config, func() error {
				e := tt.errs[calls]
				calls++
				return e
			}, classifyError)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrRetryExhausted) != tt.wantExhausted {
				t.Errorf("errors.Is(err, ErrRetryExhausted) = %v, want %v", !tt.wantExhausted, tt.wantExhausted)
			}
			if err != nil {
				if _, ok := AsUpstreamError(err); !ok {
					t.Errorf("returned error should wrap *UpstreamError, got %v", err)
				}
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 1,
	}

	calls := 0
	err := retryWithBackoff(ctx, config, func() error {
		calls++
		cancel()
		return &UpstreamError{StatusCode: 503, ErrorClass: ErrorClassServer}
	}, classifyError)

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("err = %v, want ErrContextCancelled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"upstream server", &UpstreamError{ErrorClass: ErrorClassServer}, ErrorClassServer},
		{"upstream client", &UpstreamError{ErrorClass: ErrorClassClient}, ErrorClassClient},
		{"deadline", context.DeadlineExceeded, ErrorClassNetwork},
		{"unknown", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}
