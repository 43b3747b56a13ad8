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

type updateEntry struct {
	operator string
	field    string
	value    any
}

// Update is an ordered update-operator builder. Fields are grouped per
// operator in first-use order, so
//
//	NewUpdate().Set("name", "a").Inc("views", 1).Set("tenant", "t")
//
// renders to {$set: {name: "a", tenant: "t"}, $inc: {views: 1}}.
// A raw document or JSON string can be wrapped instead of building.
type Update struct {
	entries []updateEntry
	raw     any
	json    string
}

// NewUpdate returns an empty builder.
func NewUpdate() *Update {
	return &Update{}
}

// UpdateFromDocument wraps an already-built update document.
func UpdateFromDocument(doc any) *Update {
	return &Update{raw: doc}
}

// UpdateFromJSON wraps a raw extended-JSON update document, e.g.
// `{"$set": {"disabled": true}}`.
func UpdateFromJSON(s string) *Update {
	return &Update{json: s}
}

func (u *Update) add(operator, field string, value any) *Update {
	u.entries = append(u.entries, updateEntry{operator: operator, field: field, value: value})
	return u
}

func (u *Update) Set(field string, value any) *Update   { return u.add("$set", field, value) }
func (u *Update) Unset(field string) *Update            { return u.add("$unset", field, "") }
func (u *Update) Inc(field string, by any) *Update      { return u.add("$inc", field, by) }
func (u *Update) Mul(field string, by any) *Update      { return u.add("$mul", field, by) }
func (u *Update) Min(field string, value any) *Update   { return u.add("$min", field, value) }
func (u *Update) Max(field string, value any) *Update   { return u.add("$max", field, value) }
func (u *Update) Rename(field, to string) *Update       { return u.add("$rename", field, to) }
func (u *Update) CurrentDate(field string) *Update      { return u.add("$currentDate", field, true) }
func (u *Update) Push(field string, value any) *Update  { return u.add("$push", field, value) }
func (u *Update) Pull(field string, value any) *Update  { return u.add("$pull", field, value) }
func (u *Update) PopFirst(field string) *Update         { return u.add("$pop", field, -1) }
func (u *Update) PopLast(field string) *Update          { return u.add("$pop", field, 1) }
func (u *Update) AddToSet(field string, value any) *Update {
	return u.add("$addToSet", field, value)
}

// AddEachToSet appends all values with $each semantics.
func (u *Update) AddEachToSet(field string, values ...any) *Update {
	return u.add("$addToSet", field, bson.M{"$each": bson.A(values)})
}

// PushEach appends all values with $each semantics.
func (u *Update) PushEach(field string, values ...any) *Update {
	return u.add("$push", field, bson.M{"$each": bson.A(values)})
}

// SetOnInsert applies only when an upsert inserts the document.
func (u *Update) SetOnInsert(field string, value any) *Update {
	return u.add("$setOnInsert", field, value)
}

// Document materializes the update. An empty builder fails with
// ErrUpdateEmpty so a {} update never reaches the server.
func (u *Update) Document() (any, error) {
	if u == nil {
		return nil, interfaces.ErrUpdateEmpty
	}
	if u.raw != nil {
		return u.raw, nil
	}
	if u.json != "" {
		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(u.json), false, &doc); err != nil {
			return nil, interfaces.NewRepositoryError("invalid update: "+err.Error(), "INVALID_FILTER")
		}
		if len(doc) == 0 {
			return nil, interfaces.ErrUpdateEmpty
		}
		return doc, nil
	}
	if len(u.entries) == 0 {
		return nil, interfaces.ErrUpdateEmpty
	}

	grouped := bson.D{}
	position := map[string]int{}
	for _, entry := range u.entries {
		idx, seen := position[entry.operator]
		if !seen {
			grouped = append(grouped, bson.E{Key: entry.operator, Value: bson.D{}})
			idx = len(grouped) - 1
			position[entry.operator] = idx
		}
		fields := grouped[idx].Value.(bson.D)
		grouped[idx].Value = append(fields, bson.E{Key: entry.field, Value: entry.value})
	}
	return grouped, nil
}

// Marshal materializes the update and serializes it to canonical BSON.
func (u *Update) Marshal() ([]byte, error) {
	doc, err := u.Document()
	if err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

// equalTo compares two payloads by their rendered BSON. Two nil payloads
// are equal; nil never equals non-nil.
func (u *Update) equalTo(other *Update) bool {
	if u == nil || other == nil {
		return u == nil && other == nil
	}
	left, err := u.Marshal()
	if err != nil {
		return false
	}
	right, err := other.Marshal()
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
