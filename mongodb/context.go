// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qolzam/telar-db/interfaces"
	"github.com/qolzam/telar-db/log"
	"github.com/qolzam/telar-db/observability"
	"github.com/qolzam/telar-db/utils"
)

// TransactionState is the session/transaction phase of a Context.
type TransactionState int32

const (
	StateNoSession TransactionState = iota
	StateIdle
	StateInTransaction
	StateCommitted
	StateAborted
)

func (s TransactionState) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateIdle:
		return "idle"
	case StateInTransaction:
		return "in_transaction"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Hooks are the pre-write extension points a caller can attach to a
// Context. Each hook receives the outgoing payload and returns the payload
// to send; returning nil (or an empty pipeline) is treated as a caller bug
// and surfaces as ErrHookNil. Collection handles invoke the matching hook
// before every write or aggregation.
type Hooks struct {
	BeforeInsert    func(ctx context.Context, doc any) (any, error)
	BeforeUpdate    func(ctx context.Context, update any) (any, error)
	BeforeReplace   func(ctx context.Context, doc any) (any, error)
	BeforeAggregate func(ctx context.Context, pipeline mongo.Pipeline) (mongo.Pipeline, error)
}

// ContextConfig configures a Context.
type ContextConfig struct {
	// Name distinguishes bootstrap scopes when several logical contexts
	// share one connection string. Defaults to "TelarDbContext".
	Name string

	ConnectionString string
	// DatabaseName overrides the database parsed from the URI path.
	DatabaseName string
	// MongoConfig carries optional pool and timeout tuning.
	MongoConfig *interfaces.MongoDBConfig

	// ForceTransaction starts a session and transaction at construction and
	// latches transactional routing on for the context lifetime.
	ForceTransaction bool

	Logger  interfaces.Logger
	Hooks   Hooks
	OnEvent EventHandler

	// Map registers additional serializers on the context registry. It runs
	// once per process for each bootstrap key.
	Map func(registry *bsoncodec.Registry) error
	// Index creates caller-defined indexes beyond the per-type defaults. It
	// runs once per process for each bootstrap key.
	Index func(ctx context.Context, c *Context) error
}

// Context owns one client, one database handle and at most one active
// session. It routes operations into the active transaction, runs the
// pre-write hooks and re-emits driver events. A Context is safe for
// concurrent use; the transaction state machine is guarded by a single
// lock.
type Context struct {
	name     string
	uri      string
	dbName   string
	client   *mongo.Client
	database *mongo.Database

	logger  interfaces.Logger
	metrics *observability.MetricsCollector
	hooks   Hooks
	onEvent EventHandler

	// newSession is the session source, split out so state machine behavior
	// is testable without a server.
	newSession func() (mongo.Session, error)

	mu               sync.Mutex
	session          mongo.Session
	state            TransactionState
	txID             string
	useTransaction   bool
	setOnConstructor bool

	collections []string
}

// NewContext connects to the database and bootstraps the context. The
// serializer registry build, the caller's Index hook and the collection
// name snapshot each run once per process for the bootstrap key
// (name, sha256(connection string), database).
func NewContext(ctx context.Context, cfg *ContextConfig) (*Context, error) {
	if cfg == nil || cfg.ConnectionString == "" {
		return nil, interfaces.NewRepositoryError("connection string is required", "ARGUMENT")
	}

	name := cfg.Name
	if name == "" {
		name = "TelarDbContext"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	dbName := cfg.DatabaseName
	if dbName == "" {
		parsed, err := DatabaseNameFromURI(cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		dbName = parsed
	}
	if dbName == "" {
		return nil, interfaces.NewRepositoryError("database name missing from connection string", "ARGUMENT")
	}

	c := &Context{
		name:    name,
		uri:     cfg.ConnectionString,
		dbName:  dbName,
		logger:  logger,
		metrics: observability.NewMetricsCollector(logger),
		hooks:   cfg.Hooks,
		onEvent: cfg.OnEvent,
		state:   StateNoSession,
	}

	entry := bootstrapFor(name, cfg.ConnectionString, dbName)
	registry, err := entry.buildRegistry(cfg.Map)
	if err != nil {
		return nil, err
	}

	clientOptions := options.Client().
		ApplyURI(cfg.ConnectionString).
		SetRegistry(registry).
		SetMonitor(c.commandMonitor()).
		SetPoolMonitor(c.poolMonitor())
	applyMongoConfig(clientOptions, cfg.MongoConfig)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c.client = client
	c.database = client.Database(dbName)
	c.newSession = func() (mongo.Session, error) { return client.StartSession() }

	collections, err := entry.runInit(func() ([]string, error) {
		if cfg.Index != nil {
			if err := cfg.Index(ctx, c); err != nil {
				return nil, err
			}
		}
		return c.database.ListCollectionNames(ctx, bson.D{})
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	c.collections = collections

	if cfg.ForceTransaction {
		c.setOnConstructor = true
		c.useTransaction = true
		if err := c.StartTransaction(); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
	}

	return c, nil
}

func applyMongoConfig(clientOptions *options.ClientOptions, config *interfaces.MongoDBConfig) {
	if config == nil {
		return
	}
	if config.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(uint64(config.MaxPoolSize))
	}
	if config.MinPoolSize > 0 {
		clientOptions.SetMinPoolSize(uint64(config.MinPoolSize))
	}
	if config.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(time.Duration(config.ConnectTimeout) * time.Second)
	}
	if config.SocketTimeout > 0 {
		clientOptions.SetSocketTimeout(time.Duration(config.SocketTimeout) * time.Second)
	}
	if config.MaxIdleTime > 0 {
		clientOptions.SetMaxConnIdleTime(time.Duration(config.MaxIdleTime) * time.Second)
	}
	if config.ServerSelectionTimeout > 0 {
		clientOptions.SetServerSelectionTimeout(time.Duration(config.ServerSelectionTimeout) * time.Second)
	}
}

// Name returns the context name used in the bootstrap key.
func (c *Context) Name() string { return c.name }

// DatabaseName returns the resolved database name.
func (c *Context) DatabaseName() string { return c.dbName }

// Client returns the underlying mongo.Client.
// This is useful for administrative operations in tests, like dropping a
// database.
func (c *Context) Client() *mongo.Client { return c.client }

// Database returns the underlying database handle.
func (c *Context) Database() *mongo.Database { return c.database }

// Logger returns the context logger.
func (c *Context) Logger() interfaces.Logger { return c.logger }

// Metrics returns the transaction metrics collector.
func (c *Context) Metrics() *observability.MetricsCollector { return c.metrics }

// CollectionNames returns the collection names snapshotted at bootstrap.
func (c *Context) CollectionNames() []string {
	out := make([]string, len(c.collections))
	copy(out, c.collections)
	return out
}

// State returns the current transaction state.
func (c *Context) State() TransactionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InTransaction reports whether a transaction is active.
func (c *Context) InTransaction() bool {
	return c.State() == StateInTransaction
}

// StartSession returns the active session, creating one when none exists.
func (c *Context) StartSession() (mongo.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startSessionLocked()
}

func (c *Context) startSessionLocked() (mongo.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	session, err := c.newSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	c.session = session
	c.state = StateIdle
	return session, nil
}

// StartTransaction begins a transaction on the context session, creating
// the session on demand. Only the idle and aborted states may begin; a
// second begin fails with ErrTransactionState.
func (c *Context) StartTransaction() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.startSessionLocked(); err != nil {
		return err
	}
	if c.state != StateIdle && c.state != StateAborted {
		return fmt.Errorf("%w: cannot start transaction while %s", interfaces.ErrTransactionState, c.state)
	}
	if err := c.session.StartTransaction(); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	c.state = StateInTransaction
	c.useTransaction = true
	c.txID = utils.GenerateTransactionID()
	c.metrics.StartTransaction(c.txID)
	return nil
}

// CommitTransaction commits and disposes the session. The commit itself is
// shielded from caller cancellation; once initiated it runs to completion.
func (c *Context) CommitTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInTransaction {
		return fmt.Errorf("%w: cannot commit while %s", interfaces.ErrTransactionState, c.state)
	}

	commitCtx := context.WithoutCancel(ctx)
	err := c.session.CommitTransaction(commitCtx)
	c.session.EndSession(commitCtx)
	c.session = nil
	c.state = StateCommitted
	if !c.setOnConstructor {
		c.useTransaction = false
	}

	if err != nil {
		c.metrics.FailTransaction(c.txID, err)
	} else {
		c.metrics.CommitTransaction(c.txID)
	}
	c.txID = ""
	return err
}

// AbortTransaction rolls the transaction back. The session stays alive, so
// a later StartTransaction reuses it.
func (c *Context) AbortTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInTransaction {
		return fmt.Errorf("%w: cannot abort while %s", interfaces.ErrTransactionState, c.state)
	}

	err := c.session.AbortTransaction(ctx)
	c.state = StateAborted
	if !c.setOnConstructor {
		c.useTransaction = false
	}

	c.metrics.AbortTransaction(c.txID, err)
	c.txID = ""
	return err
}

// routeSession applies the transaction routing policy. force true always
// yields a session-bound context; force false never does; otherwise a
// session is provided only when the context is in transactional mode.
func (c *Context) routeSession(ctx context.Context, force *bool) (context.Context, error) {
	if force != nil && !*force {
		return ctx, nil
	}
	if force == nil {
		c.mu.Lock()
		use := c.useTransaction
		c.mu.Unlock()
		if !use {
			return ctx, nil
		}
	}
	session, err := c.StartSession()
	if err != nil {
		return nil, err
	}
	c.noteOperation()
	return mongo.NewSessionContext(ctx, session), nil
}

func (c *Context) noteOperation() {
	c.mu.Lock()
	txID := c.txID
	active := c.state == StateInTransaction
	c.mu.Unlock()
	if active && txID != "" {
		c.metrics.IncrementOperations(txID)
	}
}

// WithTransaction runs fn inside a driver-managed transaction with the
// driver's retry semantics, on a dedicated session. It cannot be nested
// inside a manual transaction on the same context.
func (c *Context) WithTransaction(ctx context.Context, fn func(ctx context.Context) error, opts ...*options.TransactionOptions) error {
	c.mu.Lock()
	nested := c.state == StateInTransaction
	c.mu.Unlock()
	if nested {
		return interfaces.ErrNestedTransaction
	}

	session, err := c.newSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txID := utils.GenerateTransactionID()
	c.metrics.StartTransaction(txID)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		c.metrics.IncrementOperations(txID)
		return nil, fn(sessCtx)
	}, opts...)

	if err != nil {
		c.metrics.FailTransaction(txID, err)
	} else {
		c.metrics.CommitTransaction(txID)
	}
	return err
}

// WithTransactionConfig runs fn like WithTransaction, bounded by the merged
// configuration: the timeout caps the whole run and failures carrying a
// retryable error code are retried with backoff. A nil cfg uses the
// defaults.
func (c *Context) WithTransactionConfig(ctx context.Context, cfg *utils.TransactionConfig, fn func(ctx context.Context) error, opts ...*options.TransactionOptions) error {
	merged := utils.MergeTransactionConfig(cfg)
	if err := utils.ValidateTransactionConfig(merged); err != nil {
		return err
	}

	runCtx, cancel := utils.CreateTimeoutContext(ctx, merged.Timeout)
	defer cancel()

	return utils.ExecuteWithRetry(runCtx, merged.RetryPolicy, func() error {
		return c.WithTransaction(runCtx, fn, opts...)
	})
}

// Ping tests the database connection.
func (c *Context) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// CreateTimeSeriesCollection creates a time-series collection. Creation is
// not idempotent at the server; callers typically guard with
// CollectionNames.
func (c *Context) CreateTimeSeriesCollection(ctx context.Context, name string, tsOpts *interfaces.TimeSeriesOptions) error {
	if tsOpts == nil || tsOpts.TimeField == "" {
		return interfaces.NewRepositoryError("time field is required", "ARGUMENT")
	}
	timeSeries := options.TimeSeries().SetTimeField(tsOpts.TimeField)
	if tsOpts.MetaField != nil {
		timeSeries.SetMetaField(*tsOpts.MetaField)
	}
	if tsOpts.Granularity != nil {
		timeSeries.SetGranularity(*tsOpts.Granularity)
	}
	createOptions := options.CreateCollection().SetTimeSeriesOptions(timeSeries)
	if tsOpts.ExpireAfterSeconds != nil {
		createOptions.SetExpireAfterSeconds(*tsOpts.ExpireAfterSeconds)
	}
	return c.database.CreateCollection(ctx, name, createOptions)
}

// Close aborts any active transaction, drains the session and disconnects
// the client.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	state := c.state
	txID := c.txID
	c.session = nil
	c.state = StateNoSession
	c.txID = ""
	c.mu.Unlock()

	if session != nil {
		if state == StateInTransaction {
			if err := session.AbortTransaction(ctx); err != nil {
				c.logger.Warnf("abort on close failed: %v", err)
			}
			c.metrics.AbortTransaction(txID, nil)
		}
		session.EndSession(ctx)
	}
	if c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}

// Hook wrappers. Handles call these instead of the raw hooks so a nil
// result never reaches the wire.

func (c *Context) beforeInsertInternal(ctx context.Context, doc any) (any, error) {
	if c.hooks.BeforeInsert == nil {
		return doc, nil
	}
	out, err := c.hooks.BeforeInsert(ctx, doc)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, interfaces.ErrHookNil
	}
	return out, nil
}

func (c *Context) beforeUpdateInternal(ctx context.Context, update any) (any, error) {
	if c.hooks.BeforeUpdate == nil {
		return update, nil
	}
	out, err := c.hooks.BeforeUpdate(ctx, update)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, interfaces.ErrHookNil
	}
	return out, nil
}

func (c *Context) beforeReplaceInternal(ctx context.Context, doc any) (any, error) {
	if c.hooks.BeforeReplace == nil {
		return doc, nil
	}
	out, err := c.hooks.BeforeReplace(ctx, doc)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, interfaces.ErrHookNil
	}
	return out, nil
}

func (c *Context) beforeAggregateInternal(ctx context.Context, pipeline mongo.Pipeline) (mongo.Pipeline, error) {
	if c.hooks.BeforeAggregate == nil {
		return pipeline, nil
	}
	out, err := c.hooks.BeforeAggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, interfaces.ErrHookNil
	}
	return out, nil
}
