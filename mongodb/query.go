// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"bytes"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/qolzam/telar-db/interfaces"
)

type queryKind uint8

const (
	kindEmpty queryKind = iota
	kindJSON
	kindFilter
	kindHole
	kindText
	kindAnd
	kindOr
	kindNot
)

// Query is a deferred filter expression for documents of type T. A query is
// one of: a raw JSON document, an already-built filter document, a filter
// factory with one unbound parameter, a full-text search, or a boolean
// combination of those. Rendering lowers the query to the driver filter
// document; rendering a query whose parameter was never bound fails with
// ErrQueryIncomplete.
//
// An optional Update payload can travel with the query for the update
// operation families.
type Query[T any] struct {
	kind     queryKind
	json     string
	filter   any
	factory  func(value any) any
	text     string
	textOpts *interfaces.FullTextSearchOptions
	operands []*Query[T]
	update   *Update
}

// NewQuery returns the empty query, which renders to a match-all filter.
func NewQuery[T any]() *Query[T] {
	return &Query[T]{kind: kindEmpty}
}

// QueryFromJSON wraps a raw extended-JSON filter document, e.g.
// `{"disabled": false}`.
func QueryFromJSON[T any](s string) *Query[T] {
	return &Query[T]{kind: kindJSON, json: s}
}

// QueryFromFilter wraps an already-built filter document (bson.M, bson.D or
// any value the driver can marshal as a filter).
func QueryFromFilter[T any](filter any) *Query[T] {
	return &Query[T]{kind: kindFilter, filter: filter}
}

// QueryFromText builds a $text search query.
func QueryFromText[T any](text string, opts *interfaces.FullTextSearchOptions) *Query[T] {
	return &Query[T]{kind: kindText, text: text, textOpts: opts}
}

// QueryWithParameter wraps a filter factory whose single parameter is bound
// later via CompleteExpression. Rendering before binding fails with
// ErrQueryIncomplete.
func QueryWithParameter[T any](factory func(value any) any) *Query[T] {
	return &Query[T]{kind: kindHole, factory: factory}
}

// CompleteExpression binds the free parameter and returns the resulting
// filter query. Applying it to any other variant fails with
// ErrQueryIncomplete.
func (q *Query[T]) CompleteExpression(value any) (*Query[T], error) {
	if q == nil || q.kind != kindHole || q.factory == nil {
		return nil, interfaces.ErrQueryIncomplete
	}
	return &Query[T]{kind: kindFilter, filter: q.factory(value), update: q.update}, nil
}

// WithUpdate returns a copy of q carrying an update payload.
func (q *Query[T]) WithUpdate(u *Update) *Query[T] {
	copied := *q
	copied.update = u
	return &copied
}

// Update returns the attached update payload, or nil.
func (q *Query[T]) Update() *Update {
	if q == nil {
		return nil
	}
	return q.update
}

// And combines two queries conjunctively. Lowering to filters happens at
// render time so unbound parameters still surface as ErrQueryIncomplete.
func (q *Query[T]) And(other *Query[T]) *Query[T] {
	return &Query[T]{kind: kindAnd, operands: []*Query[T]{q, other}, update: q.update}
}

// Or combines two queries disjunctively.
func (q *Query[T]) Or(other *Query[T]) *Query[T] {
	return &Query[T]{kind: kindOr, operands: []*Query[T]{q, other}, update: q.update}
}

// Not negates the query with $nor.
func (q *Query[T]) Not() *Query[T] {
	return &Query[T]{kind: kindNot, operands: []*Query[T]{q}, update: q.update}
}

// Render lowers the query to a driver filter document.
func (q *Query[T]) Render() (any, error) {
	if q == nil {
		return bson.D{}, nil
	}
	switch q.kind {
	case kindEmpty:
		return bson.D{}, nil
	case kindJSON:
		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(q.json), false, &doc); err != nil {
			return nil, interfaces.NewRepositoryError("invalid filter: "+err.Error(), "INVALID_FILTER")
		}
		return doc, nil
	case kindFilter:
		if q.filter == nil {
			return bson.D{}, nil
		}
		return q.filter, nil
	case kindHole:
		return nil, interfaces.ErrQueryIncomplete
	case kindText:
		return q.textFilter(), nil
	case kindAnd, kindOr:
		lowered := make(bson.A, 0, len(q.operands))
		for _, operand := range q.operands {
			filter, err := operand.Render()
			if err != nil {
				return nil, err
			}
			lowered = append(lowered, filter)
		}
		op := "$and"
		if q.kind == kindOr {
			op = "$or"
		}
		return bson.M{op: lowered}, nil
	case kindNot:
		filter, err := q.operands[0].Render()
		if err != nil {
			return nil, err
		}
		return bson.M{"$nor": bson.A{filter}}, nil
	}
	return nil, interfaces.ErrInvalidFilter
}

func (q *Query[T]) textFilter() bson.M {
	search := bson.M{"$search": q.text}
	if q.textOpts != nil {
		if q.textOpts.Language != "" {
			search["$language"] = q.textOpts.Language
		}
		if q.textOpts.CaseSensitive {
			search["$caseSensitive"] = true
		}
		if q.textOpts.DiacriticSensitive {
			search["$diacriticSensitive"] = true
		}
	}
	return bson.M{"$text": search}
}

// Marshal renders the query and serializes the filter to canonical BSON.
func (q *Query[T]) Marshal() ([]byte, error) {
	filter, err := q.Render()
	if err != nil {
		return nil, err
	}
	return bson.Marshal(filter)
}

// Equals reports whether two queries render to the same BSON bytes and
// carry equal update payloads. Queries that fail to render are never equal.
func (q *Query[T]) Equals(other *Query[T]) bool {
	left, err := q.Marshal()
	if err != nil {
		return false
	}
	right, err := other.Marshal()
	if err != nil {
		return false
	}
	if !bytes.Equal(left, right) {
		return false
	}
	return q.Update().equalTo(other.Update())
}
