// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qolzam/telar-db/interfaces"
)

// Typed projection variants of the read and aggregation families. Go
// methods cannot introduce type parameters, so projecting into another
// shape P goes through these package-level functions; callers name P and
// the handle binds the rest:
//
//	titles := mongodb.FindAs[ProductTitle](set, ctx, query, opts)

// FindAs streams the documents matching the query decoded into P. The
// options' projection document usually narrows the fields to P's shape.
func FindAs[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, query *Query[T], opts *interfaces.FindOptions) *Stream[P] {
	filter, err := query.Render()
	if err != nil {
		return errStream[P](err)
	}
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return errStream[P](err)
	}
	cursor, err := s.collection.Find(routed, filter, toFindOptions(opts))
	if err != nil {
		return errStream[P](err)
	}
	return newStream[P](routed, cursor)
}

// GetOneAs fetches the first match decoded into P, or nil.
func GetOneAs[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, query *Query[T], opts *interfaces.FindOptions) (*P, error) {
	filter, err := query.Render()
	if err != nil {
		return nil, err
	}
	skip := opts != nil && opts.NotPerformInTransaction
	routed, err := s.context.routeSession(ctx, notPerform(skip))
	if err != nil {
		return nil, err
	}

	var projected P
	err = s.collection.FindOne(routed, filter, toFindOneOptions(opts)).Decode(&projected)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &projected, nil
}

// GetPagedAs reads one page decoded into P with the same count-then-find
// protocol as GetPaged.
func GetPagedAs[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, query *Query[T], opts *interfaces.FindOptionsPaging) (*interfaces.PagedResult[P], error) {
	return getPaged[P](s, ctx, query, opts)
}

// AggregateAs materializes an aggregation pipeline decoded into P.
func AggregateAs[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptions) ([]P, error) {
	return aggregateStream[P](s, ctx, pipeline, opts).All()
}

// AggregateStreamAs streams an aggregation pipeline decoded into P.
func AggregateStreamAs[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptions) *Stream[P] {
	return aggregateStream[P](s, ctx, pipeline, opts)
}

// AggregateFacetAs pages an aggregation in one round trip, decoding the
// page items into P.
func AggregateFacetAs[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptionsPaging) (*interfaces.PagedResult[P], error) {
	return aggregateFacet[P](s, ctx, pipeline, opts)
}
