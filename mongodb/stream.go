// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qolzam/telar-db/interfaces"
)

// Stream is a typed lazy cursor over documents of type T. One batch is
// pulled from the driver per Next; callers own the cursor and must Close it
// on early exit. A Stream is not safe for concurrent consumers.
type Stream[T any] struct {
	cursor *mongo.Cursor
	ctx    context.Context
	err    error
}

func newStream[T any](ctx context.Context, cursor *mongo.Cursor) *Stream[T] {
	return &Stream[T]{cursor: cursor, ctx: ctx}
}

func errStream[T any](err error) *Stream[T] {
	return &Stream[T]{err: err}
}

// Next advances to the next document. It returns false at the end of the
// cursor, on cursor error or on context cancellation.
func (s *Stream[T]) Next() bool {
	if s.cursor == nil || s.err != nil {
		return false
	}
	if s.cursor.Next(s.ctx) {
		return true
	}
	s.err = s.cursor.Err()
	return false
}

// Decode unmarshals the current document into v.
func (s *Stream[T]) Decode(v *T) error {
	if s.cursor == nil {
		if s.err != nil {
			return s.err
		}
		return interfaces.ErrNoDocuments
	}
	return s.cursor.Decode(v)
}

// Value decodes and returns the current document.
func (s *Stream[T]) Value() (T, error) {
	var v T
	err := s.Decode(&v)
	return v, err
}

// Error returns the first error observed by the stream.
func (s *Stream[T]) Error() error {
	return s.err
}

// Close disposes the underlying cursor. Safe to call more than once.
func (s *Stream[T]) Close() {
	if s.cursor != nil {
		_ = s.cursor.Close(s.ctx)
	}
}

// All drains the stream into a slice. The driver closes the cursor as part
// of draining it.
func (s *Stream[T]) All() ([]T, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cursor == nil {
		return nil, nil
	}
	var out []T
	if err := s.cursor.All(s.ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// One returns the first document and closes the stream. It fails with
// ErrNoDocuments when the stream is empty.
func (s *Stream[T]) One() (T, error) {
	var v T
	if s.err != nil {
		return v, s.err
	}
	defer s.Close()
	if !s.Next() {
		if s.err != nil {
			return v, s.err
		}
		return v, interfaces.ErrNoDocuments
	}
	err := s.Decode(&v)
	return v, err
}
