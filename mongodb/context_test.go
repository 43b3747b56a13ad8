// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qolzam/telar-db/interfaces"
	"github.com/qolzam/telar-db/log"
	"github.com/qolzam/telar-db/observability"
	"github.com/qolzam/telar-db/utils"
)

// fakeSession satisfies mongo.Session by embedding the interface and
// overriding the methods the state machine touches. The embedded interface
// stays nil; tests must never reach an un-overridden method.
type fakeSession struct {
	mongo.Session

	startTxnErr  error
	commitErr    error
	abortErr     error
	startedTxns  int
	commits      int
	aborts       int
	endedSession int
}

func (f *fakeSession) StartTransaction(...*options.TransactionOptions) error {
	f.startedTxns++
	return f.startTxnErr
}

func (f *fakeSession) CommitTransaction(context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeSession) AbortTransaction(context.Context) error {
	f.aborts++
	return f.abortErr
}

func (f *fakeSession) EndSession(context.Context) {
	f.endedSession++
}

func (f *fakeSession) WithTransaction(ctx context.Context, fn func(mongo.SessionContext) (interface{}, error), _ ...*options.TransactionOptions) (interface{}, error) {
	f.startedTxns++
	out, err := fn(mongo.NewSessionContext(ctx, f))
	if err != nil {
		f.aborts++
		return nil, err
	}
	f.commits++
	return out, nil
}

func newTestContext(t *testing.T) (*Context, *fakeSession) {
	t.Helper()
	session := &fakeSession{}
	c := &Context{
		name:       "TestContext",
		logger:     log.Nop{},
		metrics:    observability.NewMetricsCollector(log.Nop{}),
		state:      StateNoSession,
		newSession: func() (mongo.Session, error) { return session, nil },
	}
	return c, session
}

func TestContext_StartSessionIsIdempotent(t *testing.T) {
	c, session := newTestContext(t)

	first, err := c.StartSession()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.State())

	second, err := c.StartSession()
	require.NoError(t, err)
	assert.Same(t, session, first.(*fakeSession))
	assert.Same(t, first, second)
}

func TestContext_TransactionLifecycle(t *testing.T) {
	c, session := newTestContext(t)

	require.NoError(t, c.StartTransaction())
	assert.Equal(t, StateInTransaction, c.State())
	assert.True(t, c.InTransaction())
	assert.Equal(t, 1, session.startedTxns)

	require.NoError(t, c.CommitTransaction(context.Background()))
	assert.Equal(t, StateCommitted, c.State())
	assert.Equal(t, 1, session.commits)
	// Commit disposes the session.
	assert.Equal(t, 1, session.endedSession)
	assert.False(t, c.InTransaction())
}

func TestContext_DoubleBeginFails(t *testing.T) {
	c, _ := newTestContext(t)

	require.NoError(t, c.StartTransaction())
	err := c.StartTransaction()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrTransactionState)
}

func TestContext_CommitWithoutBeginFails(t *testing.T) {
	c, _ := newTestContext(t)

	err := c.CommitTransaction(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTransactionState)

	_, err = c.StartSession()
	require.NoError(t, err)
	err = c.CommitTransaction(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTransactionState)

	err = c.AbortTransaction(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrTransactionState)
}

func TestContext_AbortKeepsSessionReusable(t *testing.T) {
	c, session := newTestContext(t)

	require.NoError(t, c.StartTransaction())
	require.NoError(t, c.AbortTransaction(context.Background()))
	assert.Equal(t, StateAborted, c.State())
	assert.Equal(t, 0, session.endedSession)

	// Aborted is a restartable state on the same session.
	require.NoError(t, c.StartTransaction())
	assert.Equal(t, StateInTransaction, c.State())
	assert.Equal(t, 2, session.startedTxns)
}

func TestContext_AbortClearsUseTransaction(t *testing.T) {
	c, _ := newTestContext(t)

	require.NoError(t, c.StartTransaction())
	require.NoError(t, c.AbortTransaction(context.Background()))

	routed, err := c.routeSession(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, mongo.SessionFromContext(routed))
}

func TestContext_ConstructorLatchSurvivesAbort(t *testing.T) {
	c, _ := newTestContext(t)
	c.setOnConstructor = true
	c.useTransaction = true

	require.NoError(t, c.StartTransaction())
	require.NoError(t, c.AbortTransaction(context.Background()))

	// The latch keeps transactional routing on after an abort.
	routed, err := c.routeSession(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, mongo.SessionFromContext(routed))
}

func TestContext_RouteSessionPolicy(t *testing.T) {
	background := context.Background()

	t.Run("force true always yields a session", func(t *testing.T) {
		c, _ := newTestContext(t)
		force := true
		routed, err := c.routeSession(background, &force)
		require.NoError(t, err)
		assert.NotNil(t, mongo.SessionFromContext(routed))
	})

	t.Run("force false never yields a session", func(t *testing.T) {
		c, _ := newTestContext(t)
		require.NoError(t, c.StartTransaction())
		force := false
		routed, err := c.routeSession(background, &force)
		require.NoError(t, err)
		assert.Nil(t, mongo.SessionFromContext(routed))
	})

	t.Run("nil follows the context mode", func(t *testing.T) {
		c, _ := newTestContext(t)
		routed, err := c.routeSession(background, nil)
		require.NoError(t, err)
		assert.Nil(t, mongo.SessionFromContext(routed))

		require.NoError(t, c.StartTransaction())
		routed, err = c.routeSession(background, nil)
		require.NoError(t, err)
		assert.NotNil(t, mongo.SessionFromContext(routed))
	})
}

func TestContext_RouteSessionCountsOperations(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.StartTransaction())

	txID := c.txID
	for i := 0; i < 3; i++ {
		_, err := c.routeSession(context.Background(), nil)
		require.NoError(t, err)
	}

	metrics := c.Metrics().GetTransactionMetrics(txID)
	require.NotNil(t, metrics)
	assert.Equal(t, int64(3), metrics.OperationsCount)
}

func TestContext_SessionCreationFailurePropagates(t *testing.T) {
	c, _ := newTestContext(t)
	c.newSession = func() (mongo.Session, error) {
		return nil, fmt.Errorf("no server")
	}

	_, err := c.StartSession()
	require.Error(t, err)
	assert.Equal(t, StateNoSession, c.State())

	err = c.StartTransaction()
	require.Error(t, err)
}

func TestContext_WithTransactionRejectsNesting(t *testing.T) {
	c, _ := newTestContext(t)
	require.NoError(t, c.StartTransaction())

	err := c.WithTransaction(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, interfaces.ErrNestedTransaction)
}

func TestContext_WithTransactionRunsOnDedicatedSession(t *testing.T) {
	c, session := newTestContext(t)

	ran := false
	err := c.WithTransaction(context.Background(), func(ctx context.Context) error {
		ran = true
		assert.NotNil(t, mongo.SessionFromContext(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, session.commits)
	assert.Equal(t, 1, session.endedSession)
	// The manual state machine stays untouched.
	assert.Equal(t, StateNoSession, c.State())
}

func TestContext_WithTransactionConfigDefaults(t *testing.T) {
	c, session := newTestContext(t)

	ran := 0
	err := c.WithTransactionConfig(context.Background(), nil, func(ctx context.Context) error {
		ran++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, session.commits)
}

func TestContext_WithTransactionConfigRetriesRetryableFailures(t *testing.T) {
	c, session := newTestContext(t)

	cfg := &utils.TransactionConfig{
		Timeout: time.Minute,
		RetryPolicy: &utils.RetryPolicy{
			MaxRetries:      3,
			InitialDelay:    time.Millisecond,
			MaxDelay:        10 * time.Millisecond,
			BackoffFactor:   2.0,
			RetryableErrors: []string{"CONNECTION_FAILED"},
		},
	}

	calls := 0
	err := c.WithTransactionConfig(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return interfaces.ErrConnectionFailed
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, session.aborts)
	assert.Equal(t, 1, session.commits)
}

func TestContext_WithTransactionConfigStopsOnNonRetryable(t *testing.T) {
	c, _ := newTestContext(t)

	calls := 0
	err := c.WithTransactionConfig(context.Background(), nil, func(ctx context.Context) error {
		calls++
		return interfaces.ErrInvalidArgument
	})
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
	assert.Equal(t, 1, calls)
}

func TestContext_WithTransactionConfigRejectsBadConfig(t *testing.T) {
	c, session := newTestContext(t)

	err := c.WithTransactionConfig(context.Background(), &utils.TransactionConfig{
		Timeout: 11 * time.Minute,
	}, func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Equal(t, 0, session.startedTxns)
}

func TestContext_CloseAbortsOpenTransaction(t *testing.T) {
	c, session := newTestContext(t)
	require.NoError(t, c.StartTransaction())

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StateNoSession, c.State())
	assert.Equal(t, 1, session.aborts)
	assert.Equal(t, 1, session.endedSession)

	// Close is safe to call twice.
	require.NoError(t, c.Close(context.Background()))
}

func TestContext_ConcurrentTransitionsAreSerialized(t *testing.T) {
	c, _ := newTestContext(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.StartTransaction()
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
		}
	}
	assert.Equal(t, 1, started, "exactly one begin may win")
	assert.Equal(t, StateInTransaction, c.State())
}

func TestContext_HookWrappers(t *testing.T) {
	ctx := context.Background()

	t.Run("absent hooks pass through", func(t *testing.T) {
		c, _ := newTestContext(t)
		doc := map[string]any{"a": 1}
		out, err := c.beforeInsertInternal(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, doc, out)
	})

	t.Run("nil result is a caller bug", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.hooks.BeforeInsert = func(context.Context, any) (any, error) { return nil, nil }
		_, err := c.beforeInsertInternal(ctx, map[string]any{})
		assert.ErrorIs(t, err, interfaces.ErrHookNil)

		c.hooks.BeforeUpdate = func(context.Context, any) (any, error) { return nil, nil }
		_, err = c.beforeUpdateInternal(ctx, map[string]any{})
		assert.ErrorIs(t, err, interfaces.ErrHookNil)

		c.hooks.BeforeReplace = func(context.Context, any) (any, error) { return nil, nil }
		_, err = c.beforeReplaceInternal(ctx, map[string]any{})
		assert.ErrorIs(t, err, interfaces.ErrHookNil)

		c.hooks.BeforeAggregate = func(context.Context, mongo.Pipeline) (mongo.Pipeline, error) { return nil, nil }
		_, err = c.beforeAggregateInternal(ctx, mongo.Pipeline{{}})
		assert.ErrorIs(t, err, interfaces.ErrHookNil)
	})

	t.Run("hook errors propagate", func(t *testing.T) {
		c, _ := newTestContext(t)
		boom := fmt.Errorf("boom")
		c.hooks.BeforeInsert = func(context.Context, any) (any, error) { return nil, boom }
		_, err := c.beforeInsertInternal(ctx, map[string]any{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("transformed payload is returned", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.hooks.BeforeInsert = func(_ context.Context, doc any) (any, error) {
			m := doc.(map[string]any)
			m["createdBy"] = "sys"
			return m, nil
		}
		out, err := c.beforeInsertInternal(ctx, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "sys", out.(map[string]any)["createdBy"])
	})
}

func TestTransactionStateString(t *testing.T) {
	assert.Equal(t, "no_session", StateNoSession.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "in_transaction", StateInTransaction.String())
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "aborted", StateAborted.String())
	assert.Equal(t, "unknown", TransactionState(99).String())
}
