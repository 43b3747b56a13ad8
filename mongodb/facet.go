// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qolzam/telar-db/interfaces"
)

// facetEnvelope deserializes the single document produced by the paging
// $facet stage. It never escapes this package.
type facetEnvelope[P any] struct {
	Result []P          `bson:"result"`
	Total  []facetTotal `bson:"total"`
}

type facetTotal struct {
	Total int64 `bson:"total"`
}

func (e *facetEnvelope[P]) totalRows() int64 {
	if len(e.Total) == 0 {
		return 0
	}
	return e.Total[0].Total
}

// AggregateFacet pages an aggregation in one round trip. The
// hook-transformed pipeline P is wrapped as
//
//	[{ $facet: { result: P ++ [{$skip}, {$limit}], total: P ++ [{$count: "total"}] } }]
//
// so the page slice and the total under the same pipeline come back
// together.
func (s *DbSet[T, ID]) AggregateFacet(ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptionsPaging) (*interfaces.PagedResult[T], error) {
	return aggregateFacet[T](s, ctx, pipeline, opts)
}

func aggregateFacet[P any, T interfaces.Identifiable[ID], ID comparable](s *DbSet[T, ID], ctx context.Context, pipeline mongo.Pipeline, opts *interfaces.AggregateOptionsPaging) (*interfaces.PagedResult[P], error) {
	if opts == nil {
		return nil, interfaces.NewRepositoryError("paging options are required", "ARGUMENT")
	}
	skip, limit, err := opts.SkipLimit()
	if err != nil {
		return nil, err
	}

	transformed, err := s.context.beforeAggregateInternal(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	paged := make(mongo.Pipeline, 0, len(transformed)+2)
	paged = append(paged, transformed...)
	paged = append(paged,
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	total := make(mongo.Pipeline, 0, len(transformed)+1)
	total = append(total, transformed...)
	total = append(total, bson.D{{Key: "$count", Value: "total"}})

	facet := mongo.Pipeline{bson.D{{Key: "$facet", Value: bson.D{
		{Key: "result", Value: paged},
		{Key: "total", Value: total},
	}}}}

	routed, err := s.context.routeSession(ctx, notPerform(opts.NotPerformInTransaction))
	if err != nil {
		return nil, err
	}
	cursor, err := s.collection.Aggregate(routed, facet, toAggregateOptions(&opts.AggregateOptions))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(routed)

	var envelope facetEnvelope[P]
	if cursor.Next(routed) {
		if err := cursor.Decode(&envelope); err != nil {
			return nil, err
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	currentPage, pageSize := facetPageCoordinates(opts, skip, limit)
	return interfaces.NewPagedResult(envelope.Result, currentPage, pageSize, envelope.totalRows()), nil
}

// facetPageCoordinates recovers page metadata when the caller provided an
// explicit window instead of page coordinates.
func facetPageCoordinates(opts *interfaces.AggregateOptionsPaging, skip, limit int64) (int64, int64) {
	if opts.PageSize > 0 {
		return opts.CurrentPage, opts.PageSize
	}
	return skip / limit, limit
}
