// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qolzam/telar-db/interfaces"
)

// DbSet is the typed handle for one collection. Handles are cheap to
// construct and carry no mutable state; the per-type default index creation
// runs once per process on first construction.
//
// Read operations returning a single document yield (nil, nil) when no
// document matches, mirroring the lookup-or-null contract.
type DbSet[T interfaces.Identifiable[ID], ID comparable] struct {
	context              *Context
	collection           *mongo.Collection
	name                 string
	throwIndexExceptions bool
}

// DbSetOptions tunes handle construction.
type DbSetOptions struct {
	// Name overrides the collection name (defaults to the document type
	// name).
	Name string
	// ThrowIndexExceptions surfaces default index build failures instead of
	// logging and swallowing them.
	ThrowIndexExceptions bool
}

// GetDbSet returns the collection handle for T. On the first construction
// for (context scope, collection, type) it creates the default tenant
// indexes when T exposes the tenant facet. Index build failures are logged
// and swallowed unless ThrowIndexExceptions is set.
func GetDbSet[T interfaces.Identifiable[ID], ID comparable](ctx context.Context, c *Context, opts ...*DbSetOptions) (*DbSet[T, ID], error) {
	if c == nil {
		return nil, interfaces.NewRepositoryError("context is required", "ARGUMENT")
	}
	var zero T
	typeName := reflect.TypeOf(zero).Name()

	name := typeName
	throwIndexExceptions := false
	if len(opts) > 0 && opts[0] != nil {
		if opts[0].Name != "" {
			name = opts[0].Name
		}
		throwIndexExceptions = opts[0].ThrowIndexExceptions
	}
	if name == "" {
		return nil, interfaces.NewRepositoryError("collection name is required", "ARGUMENT")
	}

	s := &DbSet[T, ID]{
		context:              c,
		collection:           c.database.Collection(name),
		name:                 name,
		throwIndexExceptions: throwIndexExceptions,
	}

	scope := bootstrapKey(c.name, c.uri, c.dbName)
	err := typeInitFor(scope, name, typeName).run(func() error {
		return s.createDefaultIndexes(ctx)
	})
	if err != nil {
		if throwIndexExceptions {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrIndexBuild, err.Error())
		}
		c.logger.Warnf("default index creation for %s failed: %v", name, err)
	}
	return s, nil
}

func (s *DbSet[T, ID]) createDefaultIndexes(ctx context.Context) error {
	var zero T
	if _, tenant := any(zero).(interfaces.TenantAudit); !tenant {
		return nil
	}
	_, err := s.collection.Indexes().CreateMany(ctx, tenantDefaultIndexes())
	return err
}

// Name returns the collection name.
func (s *DbSet[T, ID]) Name() string { return s.name }

// Collection returns the underlying driver collection.
func (s *DbSet[T, ID]) Collection() *mongo.Collection { return s.collection }

// notPerform translates an option's NotPerformInTransaction flag into the
// routing force parameter: opting out forces the sessionless path, anything
// else defers to the context mode.
func notPerform(skip bool) *bool {
	if skip {
		force := false
		return &force
	}
	return nil
}

func (s *DbSet[T, ID]) idFilter(id ID) bson.M {
	return bson.M{interfaces.FieldID: id}
}

func (s *DbSet[T, ID]) idsFilter(ids []ID) bson.M {
	return bson.M{interfaces.FieldID: bson.M{"$in": ids}}
}

// writeCount normalizes a write outcome: unacknowledged writes map to the
// NotAcknowledged sentinel instead of an error, driver errors propagate
// unchanged.
func writeCount(count int64, err error) (int64, error) {
	if err != nil {
		if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return interfaces.NotAcknowledged, nil
		}
		return 0, err
	}
	return count, nil
}

func (s *DbSet[T, ID]) stampInsert(doc *T, now time.Time) {
	if stamper, ok := any(doc).(interfaces.TenantStamper); ok {
		stamper.TouchForInsert(now)
	}
}

func (s *DbSet[T, ID]) stampUpdate(doc *T, now time.Time) {
	if stamper, ok := any(doc).(interfaces.TenantStamper); ok {
		stamper.TouchForUpdate(now)
	}
}

// hasTenantFacet reports whether T carries the tenant audit fields.
func (s *DbSet[T, ID]) hasTenantFacet() bool {
	var zero T
	_, ok := any(zero).(interfaces.TenantAudit)
	return ok
}

// Read, single document.

// Get fetches a document by identifier, or nil when absent.
func (s *DbSet[T, ID]) Get(ctx context.Context, id ID, opts *interfaces.FindOptions) (*T, error) {
	return s.findOne(ctx, s.idFilter(id), opts)
}

// GetOne fetches the first document matching the query, or nil.
func (s *DbSet[T, ID]) GetOne(ctx context.Context, query *Query[T], opts *interfaces.FindOptions) (*T, error) {
	filter, err := query.Render()
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, filter, opts)
}

// FirstOrDefault is GetOne under its other conventional name.
func (s *DbSet[T, ID]) FirstOrDefault(ctx context.Context, query *Query[T], opts *interfaces.FindOptions) (*T, error) {
	return s.GetOne(ctx, query, opts)
}

func (s *DbSet[T, ID]) findOne(ctx context.Context, filter any, opts *interfaces.FindOptions) (*T, error) {
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return nil, err
	}

	var doc T
	err = s.collection.FindOne(routed, filter, toFindOneOptions(opts)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// Read, many documents.

// GetMany streams the documents whose identifiers appear in ids.
func (s *DbSet[T, ID]) GetMany(ctx context.Context, ids []ID, opts *interfaces.FindOptions) *Stream[T] {
	return s.find(ctx, s.idsFilter(ids), opts)
}

// Find streams the documents matching the query.
func (s *DbSet[T, ID]) Find(ctx context.Context, query *Query[T], opts *interfaces.FindOptions) *Stream[T] {
	filter, err := query.Render()
	if err != nil {
		return errStream[T](err)
	}
	return s.find(ctx, filter, opts)
}

func (s *DbSet[T, ID]) find(ctx context.Context, filter any, opts *interfaces.FindOptions) *Stream[T] {
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return errStream[T](err)
	}
	cursor, err := s.collection.Find(routed, filter, toFindOptions(opts))
	if err != nil {
		return errStream[T](err)
	}
	return newStream[T](routed, cursor)
}

// FullTextSearch streams documents matching a $text search, optionally
// narrowed by a conjunctive filter.
func (s *DbSet[T, ID]) FullTextSearch(ctx context.Context, text string, textOpts *interfaces.FullTextSearchOptions, extraFilter *Query[T], opts *interfaces.FindOptions) *Stream[T] {
	query := QueryFromText[T](text, textOpts)
	if extraFilter != nil {
		query = query.And(extraFilter)
	}
	return s.Find(ctx, query, opts)
}

// Any reports whether at least one document matches the query. It is a
// count capped at one, so large matches cost the same as small ones.
func (s *DbSet[T, ID]) Any(ctx context.Context, query *Query[T], opts *interfaces.CountOptions) (bool, error) {
	capped := interfaces.CountOptions{}
	if opts != nil {
		capped = *opts
	}
	one := int64(1)
	zero := int64(0)
	capped.Limit = &one
	capped.Skip = &zero

	count, err := s.Count(ctx, query, &capped)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of documents matching the query. The options
// are copied, never mutated.
func (s *DbSet[T, ID]) Count(ctx context.Context, query *Query[T], opts *interfaces.CountOptions) (int64, error) {
	filter, err := query.Render()
	if err != nil {
		return 0, err
	}
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}
	return s.collection.CountDocuments(routed, filter, toCountOptions(opts))
}

// Distinct returns the distinct values of a field under the query filter.
func (s *DbSet[T, ID]) Distinct(ctx context.Context, field string, query *Query[T], opts *interfaces.FindOptions) ([]any, error) {
	filter, err := query.Render()
	if err != nil {
		return nil, err
	}
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return nil, err
	}
	return s.collection.Distinct(routed, field, filter, toDistinctOptions(opts))
}

// Read, paged.

// GetPaged reads one page under the query: a count with the window cleared
// observes the total, then the find applies skip and limit derived from the
// page coordinates. The two reads are ordered, not atomic; totals are
// approximate under concurrent writers.
func (s *DbSet[T, ID]) GetPaged(ctx context.Context, query *Query[T], opts *interfaces.FindOptionsPaging) (*interfaces.PagedResult[T], error) {
	return getPaged[T](s, ctx, query, opts)
}

// getPaged carries the shared implementation for GetPaged and GetPagedAs.
func getPaged[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, query *Query[T], opts *interfaces.FindOptionsPaging) (*interfaces.PagedResult[P], error) {
	if opts == nil {
		return nil, interfaces.NewRepositoryError("paging options are required", "ARGUMENT")
	}
	skip, limit, err := opts.SkipLimit()
	if err != nil {
		return nil, err
	}

	total, err := s.Count(ctx, query, countOptionsFromFind(&opts.FindOptions))
	if err != nil {
		return nil, err
	}

	filter, err := query.Render()
	if err != nil {
		return nil, err
	}
	windowed := opts.FindOptions
	windowed.Skip = &skip
	windowed.Limit = &limit

	routed, err := s.context.routeSession(ctx, notPerform(windowed.NotPerformInTransaction))
	if err != nil {
		return nil, err
	}
	cursor, err := s.collection.Find(routed, filter, toFindOptions(&windowed))
	if err != nil {
		return nil, err
	}
	var items []P
	if err := cursor.All(routed, &items); err != nil {
		return nil, err
	}
	return interfaces.NewPagedResult(items, opts.CurrentPage, opts.PageSize, total), nil
}

// Write.

// InsertOne inserts a document after stamping and the BeforeInsert hook.
// It returns 1 on success and 0 when the stored identifier is still the
// zero value.
func (s *DbSet[T, ID]) InsertOne(ctx context.Context, doc *T, opts *interfaces.InsertOneOptions) (int64, error) {
	if doc == nil {
		return 0, interfaces.NewRepositoryError("document is required", "ARGUMENT")
	}
	s.stampInsert(doc, time.Now().UTC())
	payload, err := s.context.beforeInsertInternal(ctx, doc)
	if err != nil {
		return 0, err
	}

	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}
	result, err := s.collection.InsertOne(routed, payload, toInsertOneOptions(opts))
	if err != nil {
		if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return interfaces.NotAcknowledged, nil
		}
		return 0, err
	}

	var zeroID ID
	if (*doc).GetID() == zeroID {
		if setter, ok := any(doc).(interfaces.IDSetter[ID]); ok {
			if generated, ok := result.InsertedID.(ID); ok {
				setter.SetID(generated)
			}
		}
	}
	if (*doc).GetID() == zeroID {
		return 0, nil
	}
	return 1, nil
}

// InsertMany inserts documents through a bulk write of one-document insert
// models, so stamping and the BeforeInsert hook run per document. The
// options map onto bulk options field by field and keep the ordered
// default.
func (s *DbSet[T, ID]) InsertMany(ctx context.Context, docs []*T, opts *interfaces.InsertManyOptions) (int64, error) {
	return s.BulkInsert(ctx, docs, bulkFromInsertMany(opts))
}

// BulkInsert inserts documents through a bulk write with explicit bulk
// options.
func (s *DbSet[T, ID]) BulkInsert(ctx context.Context, docs []*T, opts *interfaces.BulkWriteOptions) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			return 0, interfaces.NewRepositoryError("document is required", "ARGUMENT")
		}
		s.stampInsert(doc, now)
		payload, err := s.context.beforeInsertInternal(ctx, doc)
		if err != nil {
			return 0, err
		}
		models = append(models, mongo.NewInsertOneModel().SetDocument(payload))
	}
	return s.BulkWrite(ctx, models, opts)
}

// BulkWrite issues prepared write models and returns the acknowledged
// total: inserted + modified + matched + deleted.
func (s *DbSet[T, ID]) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts *interfaces.BulkWriteOptions) (int64, error) {
	if len(models) == 0 {
		return 0, nil
	}
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}
	result, err := s.collection.BulkWrite(routed, models, toBulkWriteOptions(opts))
	if err != nil {
		return writeCount(0, err)
	}
	return result.InsertedCount + result.ModifiedCount + result.MatchedCount + result.DeletedCount, nil
}

// ReplaceOne replaces one document. A nil query falls back to the identifier
// predicate; a parameterized query is completed with the document itself.
// Returns the modified count, or the NotAcknowledged sentinel.
func (s *DbSet[T, ID]) ReplaceOne(ctx context.Context, doc *T, query *Query[T], opts *interfaces.ReplaceOptions) (int64, error) {
	if doc == nil {
		return 0, interfaces.NewRepositoryError("document is required", "ARGUMENT")
	}
	s.stampUpdate(doc, time.Now().UTC())
	payload, err := s.context.beforeReplaceInternal(ctx, doc)
	if err != nil {
		return 0, err
	}
	filter, err := s.replaceFilter(doc, query)
	if err != nil {
		return 0, err
	}

	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}
	result, err := s.collection.ReplaceOne(routed, filter, payload, toReplaceOptions(opts))
	if err != nil {
		return writeCount(0, err)
	}
	return result.ModifiedCount, nil
}

// ReplaceMany replaces documents through a bulk write of replace-one
// models, one per document, and returns the number of replacements.
func (s *DbSet[T, ID]) ReplaceMany(ctx context.Context, docs []*T, query *Query[T], opts *interfaces.BulkWriteOptions) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			return 0, interfaces.NewRepositoryError("document is required", "ARGUMENT")
		}
		s.stampUpdate(doc, now)
		payload, err := s.context.beforeReplaceInternal(ctx, doc)
		if err != nil {
			return 0, err
		}
		filter, err := s.replaceFilter(doc, query)
		if err != nil {
			return 0, err
		}
		models = append(models, mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(payload))
	}

	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}
	result, err := s.collection.BulkWrite(routed, models, toBulkWriteOptions(opts))
	if err != nil {
		return writeCount(0, err)
	}
	return result.ModifiedCount, nil
}

// replaceFilter resolves the per-document key predicate: the provided
// query, completed with the document when parameterized, or Id equality.
func (s *DbSet[T, ID]) replaceFilter(doc *T, query *Query[T]) (any, error) {
	if query == nil {
		return s.idFilter((*doc).GetID()), nil
	}
	if query.kind == kindHole {
		completed, err := query.CompleteExpression(*doc)
		if err != nil {
			return nil, err
		}
		return completed.Render()
	}
	return query.Render()
}

// UpdateOne applies an update to the first matching document. A nil update
// falls back to the query's attached payload. Returns the modified count,
// or the NotAcknowledged sentinel.
func (s *DbSet[T, ID]) UpdateOne(ctx context.Context, query *Query[T], update *Update, opts *interfaces.UpdateOptions) (int64, error) {
	return s.update(ctx, query, update, opts, false)
}

// UpdateMany applies an update to every matching document.
func (s *DbSet[T, ID]) UpdateMany(ctx context.Context, query *Query[T], update *Update, opts *interfaces.UpdateOptions) (int64, error) {
	return s.update(ctx, query, update, opts, true)
}

// UpdateManyJSON applies a raw JSON update to the documents matching a raw
// JSON filter.
func (s *DbSet[T, ID]) UpdateManyJSON(ctx context.Context, filterJSON, updateJSON string, opts *interfaces.UpdateOptions) (int64, error) {
	return s.update(ctx, QueryFromJSON[T](filterJSON), UpdateFromJSON(updateJSON), opts, true)
}

// UpdateAddToSet applies the query's attached update, conventionally an
// $addToSet payload, to the first matching document.
func (s *DbSet[T, ID]) UpdateAddToSet(ctx context.Context, query *Query[T], opts *interfaces.UpdateOptions) (int64, error) {
	return s.update(ctx, query, nil, opts, false)
}

func (s *DbSet[T, ID]) update(ctx context.Context, query *Query[T], update *Update, opts *interfaces.UpdateOptions, many bool) (int64, error) {
	filter, err := query.Render()
	if err != nil {
		return 0, err
	}
	updateDoc, err := s.updatePayload(ctx, query, update)
	if err != nil {
		return 0, err
	}

	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}

	var result *mongo.UpdateResult
	if many {
		result, err = s.collection.UpdateMany(routed, filter, updateDoc, toUpdateOptions(opts))
	} else {
		result, err = s.collection.UpdateOne(routed, filter, updateDoc, toUpdateOptions(opts))
	}
	if err != nil {
		return writeCount(0, err)
	}
	return result.ModifiedCount, nil
}

// updatePayload renders the effective update document, runs it through the
// BeforeUpdate hook and stamps the tenant modification time.
func (s *DbSet[T, ID]) updatePayload(ctx context.Context, query *Query[T], update *Update) (any, error) {
	if update == nil {
		update = query.Update()
	}
	doc, err := update.Document()
	if err != nil {
		return nil, err
	}
	payload, err := s.context.beforeUpdateInternal(ctx, doc)
	if err != nil {
		return nil, err
	}
	if s.hasTenantFacet() {
		payload = stampUpdatedAt(payload, time.Now().UTC())
	}
	return payload, nil
}

// FindOneAndUpdate atomically updates one document and returns it, pre- or
// post-update according to the options. Returns nil when nothing matched.
func (s *DbSet[T, ID]) FindOneAndUpdate(ctx context.Context, query *Query[T], opts *interfaces.FindOneAndUpdateOptions) (*T, error) {
	filter, err := query.Render()
	if err != nil {
		return nil, err
	}
	updateDoc, err := s.updatePayload(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return nil, err
	}

	var doc T
	err = s.collection.FindOneAndUpdate(routed, filter, updateDoc, toFindOneAndUpdateOptions(opts)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// DeleteOne deletes a document by identifier and returns 1 or 0, or the
// NotAcknowledged sentinel.
func (s *DbSet[T, ID]) DeleteOne(ctx context.Context, id ID, opts *interfaces.DeleteOptions) (int64, error) {
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return 0, err
	}
	result, err := s.collection.DeleteOne(routed, s.idFilter(id), toDeleteOptions(opts))
	if err != nil {
		return writeCount(0, err)
	}
	return result.DeletedCount, nil
}

// DeleteMany deletes the given identifiers through a bulk write of
// one-document delete models and returns the deleted count.
func (s *DbSet[T, ID]) DeleteMany(ctx context.Context, ids []ID, opts *interfaces.BulkWriteOptions) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		models = append(models, mongo.NewDeleteOneModel().SetFilter(s.idFilter(id)))
	}
	return s.BulkWrite(ctx, models, opts)
}

// Delete deletes every document matching the query through a bulk write
// and returns the deleted count.
func (s *DbSet[T, ID]) Delete(ctx context.Context, query *Query[T], opts *interfaces.BulkWriteOptions) (int64, error) {
	filter, err := query.Render()
	if err != nil {
		return 0, err
	}
	models := []mongo.WriteModel{mongo.NewDeleteManyModel().SetFilter(filter)}
	return s.BulkWrite(ctx, models, opts)
}

// Aggregate.

// Aggregate materializes an aggregation pipeline into a slice. The
// BeforeAggregate hook sees the pipeline first.
func (s *DbSet[T, ID]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptions) ([]T, error) {
	return s.AggregateStream(ctx, pipeline, opts).All()
}

// AggregateStream runs an aggregation pipeline and streams the results.
func (s *DbSet[T, ID]) AggregateStream(ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptions) *Stream[T] {
	return aggregateStream[T](s, ctx, pipeline, opts)
}

func aggregateStream[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptions) *Stream[P] {
	transformed, err := s.context.beforeAggregateInternal(ctx, pipeline)
	if err != nil {
		return errStream[P](err)
	}
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return errStream[P](err)
	}
	cursor, err := s.collection.Aggregate(routed, transformed, toAggregateOptions(opts))
	if err != nil {
		return errStream[P](err)
	}
	return newStream[P](routed, cursor)
}

// Index management.

// IndexInfo describes one index: its name and its keyed fields in order.
type IndexInfo struct {
	Name   string
	Fields []string
	Unique bool
}

// GetIndexes lists the collection indexes.
func (s *DbSet[T, ID]) GetIndexes(ctx context.Context) ([]IndexInfo, error) {
	cursor, err := s.collection.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var indexes []IndexInfo
	for cursor.Next(ctx) {
		var raw struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		info := IndexInfo{Name: raw.Name, Unique: raw.Unique}
		for _, key := range raw.Key {
			info.Fields = append(info.Fields, key.Key)
		}
		indexes = append(indexes, info)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return indexes, nil
}

// EnsureIndex creates the indexes described by the builder, preserving the
// build order. force overrides the transaction routing for the call. A
// build failure is logged and reported as false unless the handle was
// constructed with ThrowIndexExceptions.
func (s *DbSet[T, ID]) EnsureIndex(ctx context.Context, keys *IndexKeys, force *bool) (bool, error) {
	if keys == nil {
		return false, interfaces.NewRepositoryError("index keys are required", "ARGUMENT")
	}
	models := keys.Models()
	if len(models) == 0 {
		return false, interfaces.NewRepositoryError("index keys are empty", "ARGUMENT")
	}

	routed, err := s.context.routeSession(ctx, force)
	if err != nil {
		return false, err
	}
	if _, err := s.collection.Indexes().CreateMany(routed, models); err != nil {
		if s.throwIndexExceptions {
			return false, fmt.Errorf("%w: %s", interfaces.ErrIndexBuild, err.Error())
		}
		s.context.logger.Warnf("index creation for %s failed: %v", s.name, err)
		return false, nil
	}
	return true, nil
}

// DropIndex drops an index by name.
func (s *DbSet[T, ID]) DropIndex(ctx context.Context, name string) error {
	_, err := s.collection.Indexes().DropOne(ctx, name)
	return err
}

// stampUpdatedAt merges the tenant modification timestamp into an update
// document's $set entry unless the caller already set one. Documents in
// shapes the merge cannot safely rewrite pass through untouched.
func stampUpdatedAt(update any, now time.Time) any {
	switch doc := update.(type) {
	case bson.M:
		set, _ := doc["$set"].(bson.M)
		if set == nil {
			if _, exists := doc["$set"]; exists {
				return doc
			}
			set = bson.M{}
		}
		if _, exists := set[interfaces.FieldUpdatedAt]; !exists {
			set[interfaces.FieldUpdatedAt] = now
			doc["$set"] = set
		}
		return doc
	case bson.D:
		for i, entry := range doc {
			if entry.Key != "$set" {
				continue
			}
			fields, ok := entry.Value.(bson.D)
			if !ok {
				return doc
			}
			for _, field := range fields {
				if field.Key == interfaces.FieldUpdatedAt {
					return doc
				}
			}
			doc[i].Value = append(fields, bson.E{Key: interfaces.FieldUpdatedAt, Value: now})
			return doc
		}
		return append(doc, bson.E{Key: "$set", Value: bson.D{{Key: interfaces.FieldUpdatedAt, Value: now}}})
	default:
		return update
	}
}
