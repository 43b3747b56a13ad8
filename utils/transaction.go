// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package utils

import (
	"crypto/rand"
	"fmt"
	"time"

	uuid "github.com/gofrs/uuid"
)

// GenerateTransactionID returns a unique transaction identifier.
func GenerateTransactionID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// Timestamp-based fallback when UUID generation fails.
		return fmt.Sprintf("tx_%d_%x", time.Now().UnixNano(), randomBytes(4))
	}
	return fmt.Sprintf("tx_%s", id.String())
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// TransactionConfig bounds a managed transaction run: a wall-clock timeout
// for the whole attempt and a retry policy for transient failures.
type TransactionConfig struct {
	Timeout     time.Duration
	RetryPolicy *RetryPolicy
}

// DefaultTransactionConfig returns the configuration used when callers
// pass nil.
func DefaultTransactionConfig() *TransactionConfig {
	return &TransactionConfig{
		Timeout:     30 * time.Second,
		RetryPolicy: DefaultRetryPolicy(),
	}
}

// MergeTransactionConfig overlays the user configuration on the defaults,
// field by field. Zero values keep the default.
func MergeTransactionConfig(userConfig *TransactionConfig) *TransactionConfig {
	config := DefaultTransactionConfig()
	if userConfig == nil {
		return config
	}

	if userConfig.Timeout > 0 {
		config.Timeout = userConfig.Timeout
	}

	if userConfig.RetryPolicy != nil {
		if userConfig.RetryPolicy.MaxRetries >= 0 {
			config.RetryPolicy.MaxRetries = userConfig.RetryPolicy.MaxRetries
		}
		if userConfig.RetryPolicy.InitialDelay > 0 {
			config.RetryPolicy.InitialDelay = userConfig.RetryPolicy.InitialDelay
		}
		if userConfig.RetryPolicy.MaxDelay > 0 {
			config.RetryPolicy.MaxDelay = userConfig.RetryPolicy.MaxDelay
		}
		if userConfig.RetryPolicy.BackoffFactor > 0 {
			config.RetryPolicy.BackoffFactor = userConfig.RetryPolicy.BackoffFactor
		}
		if len(userConfig.RetryPolicy.RetryableErrors) > 0 {
			config.RetryPolicy.RetryableErrors = userConfig.RetryPolicy.RetryableErrors
		}
	}

	return config
}

// ValidateTransactionConfig rejects configurations that would spin or hold
// a server-side transaction open past any reasonable lease.
func ValidateTransactionConfig(config *TransactionConfig) error {
	if config == nil {
		return nil
	}
	if config.Timeout < 0 {
		return fmt.Errorf("transaction timeout cannot be negative")
	}
	if config.Timeout > 10*time.Minute {
		return fmt.Errorf("transaction timeout cannot exceed 10 minutes")
	}
	return ValidateRetryPolicy(config.RetryPolicy)
}
