// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qolzam/telar-db/interfaces"
)

// Conversions from the option records to driver options. Each function is
// total: nil input yields the driver defaults, set fields are copied one by
// one and the input is never mutated.

func toFindOptions(opts *interfaces.FindOptions) *options.FindOptions {
	findOptions := options.Find()
	if opts == nil {
		return findOptions
	}
	if opts.AllowDiskUse != nil {
		findOptions.SetAllowDiskUse(*opts.AllowDiskUse)
	}
	if opts.AllowPartialResults != nil {
		findOptions.SetAllowPartialResults(*opts.AllowPartialResults)
	}
	if opts.BatchSize != nil {
		findOptions.SetBatchSize(*opts.BatchSize)
	}
	if opts.Collation != nil {
		findOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		findOptions.SetComment(*opts.Comment)
	}
	if opts.CursorType != nil {
		findOptions.SetCursorType(*opts.CursorType)
	}
	if opts.Hint != nil {
		findOptions.SetHint(opts.Hint)
	}
	if opts.Limit != nil {
		findOptions.SetLimit(*opts.Limit)
	}
	if opts.MaxAwaitTime != nil {
		findOptions.SetMaxAwaitTime(*opts.MaxAwaitTime)
	}
	if opts.MaxTime != nil {
		findOptions.SetMaxTime(*opts.MaxTime)
	}
	if opts.NoCursorTimeout != nil {
		findOptions.SetNoCursorTimeout(*opts.NoCursorTimeout)
	}
	if opts.Projection != nil {
		findOptions.SetProjection(opts.Projection)
	}
	if opts.ReturnKey != nil {
		findOptions.SetReturnKey(*opts.ReturnKey)
	}
	if opts.ShowRecordID != nil {
		findOptions.SetShowRecordID(*opts.ShowRecordID)
	}
	if opts.Skip != nil {
		findOptions.SetSkip(*opts.Skip)
	}
	if opts.Sort != nil {
		findOptions.SetSort(opts.Sort)
	}
	return findOptions
}

func toFindOneOptions(opts *interfaces.FindOptions) *options.FindOneOptions {
	findOneOptions := options.FindOne()
	if opts == nil {
		return findOneOptions
	}
	if opts.AllowPartialResults != nil {
		findOneOptions.SetAllowPartialResults(*opts.AllowPartialResults)
	}
	if opts.Collation != nil {
		findOneOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		findOneOptions.SetComment(*opts.Comment)
	}
	if opts.Hint != nil {
		findOneOptions.SetHint(opts.Hint)
	}
	if opts.MaxTime != nil {
		findOneOptions.SetMaxTime(*opts.MaxTime)
	}
	if opts.Projection != nil {
		findOneOptions.SetProjection(opts.Projection)
	}
	if opts.ReturnKey != nil {
		findOneOptions.SetReturnKey(*opts.ReturnKey)
	}
	if opts.ShowRecordID != nil {
		findOneOptions.SetShowRecordID(*opts.ShowRecordID)
	}
	if opts.Skip != nil {
		findOneOptions.SetSkip(*opts.Skip)
	}
	if opts.Sort != nil {
		findOneOptions.SetSort(opts.Sort)
	}
	return findOneOptions
}

func toCountOptions(opts *interfaces.CountOptions) *options.CountOptions {
	countOptions := options.Count()
	if opts == nil {
		return countOptions
	}
	if opts.Collation != nil {
		countOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		countOptions.SetComment(*opts.Comment)
	}
	if opts.Hint != nil {
		countOptions.SetHint(opts.Hint)
	}
	if opts.Limit != nil {
		countOptions.SetLimit(*opts.Limit)
	}
	if opts.MaxTime != nil {
		countOptions.SetMaxTime(*opts.MaxTime)
	}
	if opts.Skip != nil {
		countOptions.SetSkip(*opts.Skip)
	}
	return countOptions
}

// countOptionsFromFind copies the count-relevant fields of find options with
// skip and limit cleared, so a paged read can observe the total under the
// same filter.
func countOptionsFromFind(opts *interfaces.FindOptions) *interfaces.CountOptions {
	if opts == nil {
		return nil
	}
	return &interfaces.CountOptions{
		NotPerformInTransaction: opts.NotPerformInTransaction,
		Collation:               opts.Collation,
		Comment:                 opts.Comment,
		Hint:                    opts.Hint,
		MaxTime:                 opts.MaxTime,
	}
}

// toDistinctOptions carries the find-option fields the distinct command
// recognizes.
func toDistinctOptions(opts *interfaces.FindOptions) *options.DistinctOptions {
	distinctOptions := options.Distinct()
	if opts == nil {
		return distinctOptions
	}
	if opts.Collation != nil {
		distinctOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		distinctOptions.SetComment(*opts.Comment)
	}
	if opts.MaxTime != nil {
		distinctOptions.SetMaxTime(*opts.MaxTime)
	}
	return distinctOptions
}

func toUpdateOptions(opts *interfaces.UpdateOptions) *options.UpdateOptions {
	updateOptions := options.Update()
	if opts == nil {
		return updateOptions
	}
	if len(opts.ArrayFilters) > 0 {
		updateOptions.SetArrayFilters(options.ArrayFilters{Filters: opts.ArrayFilters})
	}
	if opts.BypassDocumentValidation != nil {
		updateOptions.SetBypassDocumentValidation(*opts.BypassDocumentValidation)
	}
	if opts.Collation != nil {
		updateOptions.SetCollation(opts.Collation)
	}
	if opts.Hint != nil {
		updateOptions.SetHint(opts.Hint)
	}
	if opts.Let != nil {
		updateOptions.SetLet(opts.Let)
	}
	if opts.Upsert != nil {
		updateOptions.SetUpsert(*opts.Upsert)
	}
	return updateOptions
}

func toFindOneAndUpdateOptions(opts *interfaces.FindOneAndUpdateOptions) *options.FindOneAndUpdateOptions {
	driverOpts := options.FindOneAndUpdate()
	if opts == nil {
		return driverOpts
	}
	if len(opts.ArrayFilters) > 0 {
		driverOpts.SetArrayFilters(options.ArrayFilters{Filters: opts.ArrayFilters})
	}
	if opts.BypassDocumentValidation != nil {
		driverOpts.SetBypassDocumentValidation(*opts.BypassDocumentValidation)
	}
	if opts.Collation != nil {
		driverOpts.SetCollation(opts.Collation)
	}
	if opts.Hint != nil {
		driverOpts.SetHint(opts.Hint)
	}
	if opts.Let != nil {
		driverOpts.SetLet(opts.Let)
	}
	if opts.MaxTime != nil {
		driverOpts.SetMaxTime(*opts.MaxTime)
	}
	if opts.Projection != nil {
		driverOpts.SetProjection(opts.Projection)
	}
	if opts.Sort != nil {
		driverOpts.SetSort(opts.Sort)
	}
	driverOpts.SetUpsert(opts.IsUpsert)
	if opts.ReturnDocumentAfter {
		driverOpts.SetReturnDocument(options.After)
	} else {
		driverOpts.SetReturnDocument(options.Before)
	}
	return driverOpts
}

func toReplaceOptions(opts *interfaces.ReplaceOptions) *options.ReplaceOptions {
	replaceOptions := options.Replace()
	if opts == nil {
		return replaceOptions
	}
	if opts.BypassDocumentValidation != nil {
		replaceOptions.SetBypassDocumentValidation(*opts.BypassDocumentValidation)
	}
	if opts.Collation != nil {
		replaceOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		replaceOptions.SetComment(*opts.Comment)
	}
	if opts.Hint != nil {
		replaceOptions.SetHint(opts.Hint)
	}
	if opts.Let != nil {
		replaceOptions.SetLet(opts.Let)
	}
	if opts.Upsert != nil {
		replaceOptions.SetUpsert(*opts.Upsert)
	}
	return replaceOptions
}

func toBulkWriteOptions(opts *interfaces.BulkWriteOptions) *options.BulkWriteOptions {
	bulkOptions := options.BulkWrite()
	if opts == nil {
		// Bulk writes assembled from individual models run unordered.
		return bulkOptions.SetOrdered(false)
	}
	if opts.BypassDocumentValidation != nil {
		bulkOptions.SetBypassDocumentValidation(*opts.BypassDocumentValidation)
	}
	if opts.Comment != nil {
		bulkOptions.SetComment(opts.Comment)
	}
	if opts.Let != nil {
		bulkOptions.SetLet(opts.Let)
	}
	if opts.IsOrdered != nil {
		bulkOptions.SetOrdered(*opts.IsOrdered)
	} else {
		bulkOptions.SetOrdered(false)
	}
	return bulkOptions
}

// bulkFromInsertMany maps InsertManyOptions onto BulkWriteOptions field by
// field. Unlike ad-hoc bulk writes, inserts translated from InsertMany keep
// the driver's ordered default.
func bulkFromInsertMany(opts *interfaces.InsertManyOptions) *interfaces.BulkWriteOptions {
	if opts == nil {
		return &interfaces.BulkWriteOptions{IsOrdered: boolPtr(true)}
	}
	ordered := true
	if opts.Ordered != nil {
		ordered = *opts.Ordered
	}
	return &interfaces.BulkWriteOptions{
		NotPerformInTransaction:  opts.NotPerformInTransaction,
		BypassDocumentValidation: opts.BypassDocumentValidation,
		Comment:                  opts.Comment,
		IsOrdered:                &ordered,
	}
}

func toDeleteOptions(opts *interfaces.DeleteOptions) *options.DeleteOptions {
	deleteOptions := options.Delete()
	if opts == nil {
		return deleteOptions
	}
	if opts.Collation != nil {
		deleteOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		deleteOptions.SetComment(opts.Comment)
	}
	if opts.Hint != nil {
		deleteOptions.SetHint(opts.Hint)
	}
	if opts.Let != nil {
		deleteOptions.SetLet(opts.Let)
	}
	return deleteOptions
}

func toInsertOneOptions(opts *interfaces.InsertOneOptions) *options.InsertOneOptions {
	insertOptions := options.InsertOne()
	if opts == nil {
		return insertOptions
	}
	if opts.BypassDocumentValidation != nil {
		insertOptions.SetBypassDocumentValidation(*opts.BypassDocumentValidation)
	}
	if opts.Comment != nil {
		insertOptions.SetComment(opts.Comment)
	}
	return insertOptions
}

func toAggregateOptions(opts *interfaces.AggregateOptions) *options.AggregateOptions {
	aggregateOptions := options.Aggregate()
	if opts == nil {
		return aggregateOptions
	}
	if opts.AllowDiskUse != nil {
		aggregateOptions.SetAllowDiskUse(*opts.AllowDiskUse)
	}
	if opts.BatchSize != nil {
		aggregateOptions.SetBatchSize(*opts.BatchSize)
	}
	if opts.BypassDocumentValidation != nil {
		aggregateOptions.SetBypassDocumentValidation(*opts.BypassDocumentValidation)
	}
	if opts.Collation != nil {
		aggregateOptions.SetCollation(opts.Collation)
	}
	if opts.Comment != nil {
		aggregateOptions.SetComment(*opts.Comment)
	}
	if opts.Hint != nil {
		aggregateOptions.SetHint(opts.Hint)
	}
	if opts.Let != nil {
		aggregateOptions.SetLet(opts.Let)
	}
	if opts.MaxAwaitTime != nil {
		aggregateOptions.SetMaxAwaitTime(*opts.MaxAwaitTime)
	}
	if opts.MaxTime != nil {
		aggregateOptions.SetMaxTime(*opts.MaxTime)
	}
	return aggregateOptions
}

func boolPtr(v bool) *bool { return &v }
