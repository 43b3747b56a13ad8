// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"time"

	mopts "go.mongodb.org/mongo-driver/mongo/options"
)

// Every option record carries NotPerformInTransaction. Setting it opts the
// single call out of the ambient transaction even when the owning context is
// transactional; leaving it false defers to the context routing policy.

// FindOptions represents options for find operations.
type FindOptions struct {
	NotPerformInTransaction bool

	AllowDiskUse        *bool
	AllowPartialResults *bool
	BatchSize           *int32
	Collation           *mopts.Collation
	Comment             *string
	CursorType          *mopts.CursorType
	Hint                any
	Limit               *int64
	MaxAwaitTime        *time.Duration
	MaxTime             *time.Duration
	NoCursorTimeout     *bool
	Projection          any
	ReturnKey           *bool
	ShowRecordID        *bool
	Skip                *int64
	Sort                any // e.g. bson.D{{"createdAt", -1}}
}

// FindOptionsPaging extends FindOptions with page coordinates. Skip and
// limit are always derived: skip = CurrentPage * PageSize, limit = PageSize.
type FindOptionsPaging struct {
	FindOptions

	CurrentPage int64 // zero-based page index
	PageSize    int64
}

// SkipLimit derives the cursor window from the page coordinates.
func (o *FindOptionsPaging) SkipLimit() (skip int64, limit int64, err error) {
	if o.PageSize <= 0 {
		return 0, 0, NewRepositoryError("page size must be positive", "ARGUMENT")
	}
	if o.CurrentPage < 0 {
		return 0, 0, NewRepositoryError("current page must not be negative", "ARGUMENT")
	}
	return o.CurrentPage * o.PageSize, o.PageSize, nil
}

// CountOptions represents options for count operations.
type CountOptions struct {
	NotPerformInTransaction bool

	Collation *mopts.Collation
	Comment   *string
	Hint      any
	Limit     *int64
	MaxTime   *time.Duration
	Skip      *int64
}

// UpdateOptions represents options for update operations.
type UpdateOptions struct {
	NotPerformInTransaction bool

	ArrayFilters             []any
	BypassDocumentValidation *bool
	Collation                *mopts.Collation
	Hint                     any
	Let                      any
	Upsert                   *bool
}

// FindOneAndUpdateOptions represents options for atomic find-and-update.
type FindOneAndUpdateOptions struct {
	NotPerformInTransaction bool

	ArrayFilters             []any
	BypassDocumentValidation *bool
	Collation                *mopts.Collation
	Hint                     any
	Let                      any
	IsUpsert                 bool
	MaxTime                  *time.Duration
	Projection               any
	ReturnDocumentAfter      bool // false returns the pre-update document
	Sort                     any
}

// ReplaceOptions represents options for replace operations.
type ReplaceOptions struct {
	NotPerformInTransaction bool

	BypassDocumentValidation *bool
	Collation                *mopts.Collation
	Comment                  *string
	Hint                     any
	Let                      any
	Upsert                   *bool
}

// BulkWriteOptions represents options for bulk write operations.
type BulkWriteOptions struct {
	NotPerformInTransaction bool

	BypassDocumentValidation *bool
	Comment                  any
	IsOrdered                *bool // nil keeps the driver default (ordered)
	Let                      any
}

// DeleteOptions represents options for delete operations.
type DeleteOptions struct {
	NotPerformInTransaction bool

	Collation *mopts.Collation
	Comment   any
	Hint      any
	Let       any
}

// InsertOneOptions represents options for single-document inserts.
type InsertOneOptions struct {
	NotPerformInTransaction bool

	BypassDocumentValidation *bool
	Comment                  any
}

// InsertManyOptions represents options for multi-document inserts.
type InsertManyOptions struct {
	NotPerformInTransaction bool

	BypassDocumentValidation *bool
	Comment                  any
	Ordered                  *bool // nil keeps the driver default (ordered)
}

// AggregateOptions represents options for aggregation pipelines.
type AggregateOptions struct {
	NotPerformInTransaction bool

	AllowDiskUse             *bool
	BatchSize                *int32
	BypassDocumentValidation *bool
	Collation                *mopts.Collation
	Comment                  *string
	Hint                     any
	Let                      any
	MaxAwaitTime             *time.Duration
	MaxTime                  *time.Duration
}

// AggregateOptionsPaging extends AggregateOptions with a result window for
// the faceted count+slice envelope. Skip and Limit take precedence when set;
// otherwise they are derived from the page coordinates.
type AggregateOptionsPaging struct {
	AggregateOptions

	CurrentPage int64 // zero-based page index
	PageSize    int64
	Skip        *int64
	Limit       *int64
}

// SkipLimit resolves the effective window.
func (o *AggregateOptionsPaging) SkipLimit() (skip int64, limit int64, err error) {
	if o.Skip != nil || o.Limit != nil {
		if o.Skip != nil {
			skip = *o.Skip
		}
		if o.Limit != nil {
			limit = *o.Limit
		}
		if skip < 0 {
			return 0, 0, NewRepositoryError("skip must not be negative", "ARGUMENT")
		}
		if limit <= 0 {
			return 0, 0, NewRepositoryError("limit must be positive", "ARGUMENT")
		}
		return skip, limit, nil
	}
	if o.PageSize <= 0 {
		return 0, 0, NewRepositoryError("page size must be positive", "ARGUMENT")
	}
	if o.CurrentPage < 0 {
		return 0, 0, NewRepositoryError("current page must not be negative", "ARGUMENT")
	}
	return o.CurrentPage * o.PageSize, o.PageSize, nil
}

// FullTextSearchOptions represents options for $text queries.
type FullTextSearchOptions struct {
	NotPerformInTransaction bool

	Language           string
	CaseSensitive      bool
	DiacriticSensitive bool
}

// TimeSeriesOptions represents options for time-series collection creation.
type TimeSeriesOptions struct {
	TimeField          string
	MetaField          *string
	Granularity        *string // "seconds", "minutes" or "hours"
	ExpireAfterSeconds *int64
}
