// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"encoding/json"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PagedResult is an immutable page of results plus paging metadata. The
// constructor copies the input slice; accessors never expose a way to
// mutate the page.
type PagedResult[T any] struct {
	results     []T
	currentPage int64
	pageSize    int64
	rowCount    int64
}

// NewPagedResult builds a page from any slice of items. rowCount is the
// total number of rows matching the originating filter, not the page length.
func NewPagedResult[T any](items []T, currentPage, pageSize, rowCount int64) *PagedResult[T] {
	copied := make([]T, len(items))
	copy(copied, items)
	return &PagedResult[T]{
		results:     copied,
		currentPage: currentPage,
		pageSize:    pageSize,
		rowCount:    rowCount,
	}
}

// Results returns the page items. Callers must treat the slice as read-only.
func (p *PagedResult[T]) Results() []T      { return p.results }
func (p *PagedResult[T]) CurrentPage() int64 { return p.currentPage }
func (p *PagedResult[T]) PageSize() int64    { return p.pageSize }
func (p *PagedResult[T]) RowCount() int64    { return p.rowCount }

// PageCount derives the number of pages from RowCount and PageSize.
func (p *PagedResult[T]) PageCount() int64 {
	if p.pageSize <= 0 {
		return 0
	}
	return (p.rowCount + p.pageSize - 1) / p.pageSize
}

// Len returns the number of items on this page.
func (p *PagedResult[T]) Len() int { return len(p.results) }

// At returns the item at index i, or the zero value and false when i is out
// of range.
func (p *PagedResult[T]) At(i int) (T, bool) {
	if i < 0 || i >= len(p.results) {
		var zero T
		return zero, false
	}
	return p.results[i], true
}

// Each calls fn for every item in page order.
func (p *PagedResult[T]) Each(fn func(index int, item T)) {
	for i, item := range p.results {
		fn(i, item)
	}
}

// MarshalJSON renders the page with its metadata for API payloads.
func (p *PagedResult[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Results     []T   `json:"results"`
		CurrentPage int64 `json:"currentPage"`
		PageSize    int64 `json:"pageSize"`
		RowCount    int64 `json:"rowCount"`
		PageCount   int64 `json:"pageCount"`
	}{p.results, p.currentPage, p.pageSize, p.rowCount, p.PageCount()})
}

// ConvertPage maps a page of TIn into a page of TOut with the same paging
// metadata. A nil fn falls back to a JSON round-trip per item. In parallel
// mode items are converted concurrently and written into fixed positions so
// order is preserved; onItem, when non-nil, is invoked once per converted
// item and must be safe for concurrent use in parallel mode.
func ConvertPage[TOut, TIn any](p *PagedResult[TIn], fn func(TIn) (TOut, error), parallel bool, onItem func(index int, item TOut)) (*PagedResult[TOut], error) {
	if p == nil {
		return nil, NewRepositoryError("paged result is nil", "ARGUMENT")
	}
	if fn == nil {
		fn = jsonRoundTrip[TOut, TIn]
	}
	out := make([]TOut, len(p.results))

	convert := func(i int) error {
		converted, err := fn(p.results[i])
		if err != nil {
			return err
		}
		out[i] = converted
		if onItem != nil {
			onItem(i, converted)
		}
		return nil
	}

	if parallel && len(p.results) > 1 {
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range p.results {
			i := i
			g.Go(func() error { return convert(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range p.results {
			if err := convert(i); err != nil {
				return nil, err
			}
		}
	}
	return &PagedResult[TOut]{
		results:     out,
		currentPage: p.currentPage,
		pageSize:    p.pageSize,
		rowCount:    p.rowCount,
	}, nil
}

func jsonRoundTrip[TOut, TIn any](in TIn) (TOut, error) {
	var out TOut
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
