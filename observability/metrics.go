// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package observability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qolzam/telar-db/interfaces"
)

// TransactionMetrics captures the lifecycle of a single transaction.
type TransactionMetrics struct {
	TransactionID   string
	StartTime       time.Time
	Duration        time.Duration
	OperationsCount int64
	Status          string // "active", "committed", "aborted" or "failed"
	ErrorMessage    string
	ErrorCode       string
}

// MetricsCollector tracks transaction counts and durations for one context.
// All counter updates are atomic; the per-transaction map is guarded by mu.
type MetricsCollector struct {
	activeTransactions    int64
	totalTransactions     int64
	committedTransactions int64
	abortedTransactions   int64
	failedTransactions    int64
	totalDuration         int64 // nanoseconds

	mu                 sync.RWMutex
	transactionMetrics map[string]*TransactionMetrics

	logger interfaces.Logger
}

// NewMetricsCollector creates a collector reporting through logger.
func NewMetricsCollector(logger interfaces.Logger) *MetricsCollector {
	return &MetricsCollector{
		transactionMetrics: make(map[string]*TransactionMetrics),
		logger:             logger,
	}
}

// StartTransaction records the start of a new transaction.
func (mc *MetricsCollector) StartTransaction(txID string) *TransactionMetrics {
	atomic.AddInt64(&mc.activeTransactions, 1)
	atomic.AddInt64(&mc.totalTransactions, 1)

	metrics := &TransactionMetrics{
		TransactionID: txID,
		StartTime:     time.Now(),
		Status:        "active",
	}

	mc.mu.Lock()
	mc.transactionMetrics[txID] = metrics
	mc.mu.Unlock()

	mc.logger.Debugf("transaction started: %s", txID)
	return metrics
}

// IncrementOperations increments the operation count for a transaction.
func (mc *MetricsCollector) IncrementOperations(txID string) {
	mc.mu.RLock()
	if metrics, exists := mc.transactionMetrics[txID]; exists {
		atomic.AddInt64(&metrics.OperationsCount, 1)
	}
	mc.mu.RUnlock()
}

// CommitTransaction records a successful commit.
func (mc *MetricsCollector) CommitTransaction(txID string) {
	atomic.AddInt64(&mc.activeTransactions, -1)
	atomic.AddInt64(&mc.committedTransactions, 1)

	mc.mu.Lock()
	if metrics, exists := mc.transactionMetrics[txID]; exists {
		metrics.Status = "committed"
		metrics.Duration = time.Since(metrics.StartTime)
		atomic.AddInt64(&mc.totalDuration, int64(metrics.Duration))
		mc.logger.Infof("transaction committed: %s (duration: %v, operations: %d)",
			txID, metrics.Duration, metrics.OperationsCount)
	}
	mc.mu.Unlock()
}

// AbortTransaction records a deliberate abort.
func (mc *MetricsCollector) AbortTransaction(txID string, err error) {
	atomic.AddInt64(&mc.activeTransactions, -1)
	atomic.AddInt64(&mc.abortedTransactions, 1)

	mc.mu.Lock()
	if metrics, exists := mc.transactionMetrics[txID]; exists {
		metrics.Status = "aborted"
		metrics.Duration = time.Since(metrics.StartTime)
		atomic.AddInt64(&mc.totalDuration, int64(metrics.Duration))
		setErrorDetails(metrics, err)
		mc.logger.Warnf("transaction aborted: %s (duration: %v, error: %v)",
			txID, metrics.Duration, err)
	}
	mc.mu.Unlock()
}

// FailTransaction records a commit or abort that itself failed.
func (mc *MetricsCollector) FailTransaction(txID string, err error) {
	atomic.AddInt64(&mc.activeTransactions, -1)
	atomic.AddInt64(&mc.failedTransactions, 1)

	mc.mu.Lock()
	if metrics, exists := mc.transactionMetrics[txID]; exists {
		metrics.Status = "failed"
		metrics.Duration = time.Since(metrics.StartTime)
		atomic.AddInt64(&mc.totalDuration, int64(metrics.Duration))
		setErrorDetails(metrics, err)
		mc.logger.Errorf("transaction failed: %s (duration: %v, error: %v)",
			txID, metrics.Duration, err)
	}
	mc.mu.Unlock()
}

func setErrorDetails(metrics *TransactionMetrics, err error) {
	if err == nil {
		return
	}
	metrics.ErrorMessage = err.Error()
	var repoErr *interfaces.RepositoryError
	if errors.As(err, &repoErr) {
		metrics.ErrorCode = repoErr.Code
	}
}

// GetTransactionMetrics returns a copy of the metrics for txID, or nil.
func (mc *MetricsCollector) GetTransactionMetrics(txID string) *TransactionMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if metrics, exists := mc.transactionMetrics[txID]; exists {
		copied := *metrics
		return &copied
	}
	return nil
}

// Stats returns aggregate transaction statistics.
func (mc *MetricsCollector) Stats() map[string]interface{} {
	active := atomic.LoadInt64(&mc.activeTransactions)
	total := atomic.LoadInt64(&mc.totalTransactions)
	committed := atomic.LoadInt64(&mc.committedTransactions)
	aborted := atomic.LoadInt64(&mc.abortedTransactions)
	failed := atomic.LoadInt64(&mc.failedTransactions)
	totalDur := atomic.LoadInt64(&mc.totalDuration)

	var avgDuration time.Duration
	if completed := committed + aborted + failed; completed > 0 {
		avgDuration = time.Duration(totalDur / completed)
	}

	var successRate float64
	if total > 0 {
		successRate = float64(committed) / float64(total) * 100
	}

	return map[string]interface{}{
		"active_transactions":    active,
		"total_transactions":     total,
		"committed_transactions": committed,
		"aborted_transactions":   aborted,
		"failed_transactions":    failed,
		"average_duration":       avgDuration,
		"success_rate":           successRate,
	}
}

// CleanupCompletedTransactions drops records of finished transactions older
// than the given age.
func (mc *MetricsCollector) CleanupCompletedTransactions(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	for txID, metrics := range mc.transactionMetrics {
		if metrics.Status != "active" && metrics.StartTime.Before(cutoff) {
			delete(mc.transactionMetrics, txID)
		}
	}
}

// StartPeriodicCleanup cleans up finished transaction records on a timer
// until ctx is canceled.
func (mc *MetricsCollector) StartPeriodicCleanup(ctx context.Context, interval, retentionPeriod time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mc.CleanupCompletedTransactions(retentionPeriod)
			}
		}
	}()
}
