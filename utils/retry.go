// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qolzam/telar-db/interfaces"
)

// RetryPolicy describes how transient repository failures are retried.
type RetryPolicy struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []string // repository error codes
}

// DefaultRetryPolicy returns the policy used when callers pass nil.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"TRANSACTION_CONFLICT",
			"CONNECTION_FAILED",
		},
	}
}

// ValidateRetryPolicy rejects configurations that would spin or stall.
func ValidateRetryPolicy(policy *RetryPolicy) error {
	if policy == nil {
		return nil
	}
	if policy.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if policy.MaxRetries > 10 {
		return fmt.Errorf("max retries cannot exceed 10")
	}
	if policy.InitialDelay < 0 {
		return fmt.Errorf("initial delay cannot be negative")
	}
	if policy.MaxDelay < policy.InitialDelay {
		return fmt.Errorf("max delay cannot be less than initial delay")
	}
	if policy.BackoffFactor <= 0 {
		return fmt.Errorf("backoff factor must be positive")
	}
	return nil
}

// IsRetryableError reports whether err carries a repository error code the
// policy allows retrying.
func IsRetryableError(err error, policy *RetryPolicy) bool {
	if err == nil || policy == nil || len(policy.RetryableErrors) == 0 {
		return false
	}

	errorCode := err.Error()
	var repoErr *interfaces.RepositoryError
	if errors.As(err, &repoErr) {
		errorCode = repoErr.Code
	}

	for _, retryableCode := range policy.RetryableErrors {
		if errorCode == retryableCode {
			return true
		}
	}
	return false
}

// CalculateBackoffDelay returns the wait before the given retry attempt,
// growing geometrically and capped at the policy maximum.
func CalculateBackoffDelay(attempt int, policy *RetryPolicy) time.Duration {
	if policy == nil {
		return time.Second
	}
	delay := policy.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
			break
		}
	}
	return delay
}

// ExecuteWithRetry runs fn, retrying retryable failures with backoff until
// the attempt budget runs out or the context is canceled.
func ExecuteWithRetry(ctx context.Context, policy *RetryPolicy, fn func() error) error {
	if policy == nil || policy.MaxRetries == 0 {
		return fn()
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == policy.MaxRetries || !IsRetryableError(err, policy) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(CalculateBackoffDelay(attempt, policy)):
		}
	}
	return lastErr
}

// CreateTimeoutContext bounds ctx with the given timeout, defaulting to 30
// seconds when none is provided.
func CreateTimeoutContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithTimeout(ctx, 30*time.Second)
}
