// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/qolzam/telar-db/interfaces"
)

type testDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

func TestQuery_EmptyRendersMatchAll(t *testing.T) {
	filter, err := NewQuery[testDoc]().Render()
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, filter)

	var nilQuery *Query[testDoc]
	filter, err = nilQuery.Render()
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, filter)
}

func TestQuery_FromJSON(t *testing.T) {
	filter, err := QueryFromJSON[testDoc](`{"disabled": false, "tenant": "t1"}`).Render()
	require.NoError(t, err)

	doc, ok := filter.(bson.D)
	require.True(t, ok)
	assert.Equal(t, bson.D{
		{Key: "disabled", Value: false},
		{Key: "tenant", Value: "t1"},
	}, doc)
}

func TestQuery_FromJSONInvalid(t *testing.T) {
	_, err := QueryFromJSON[testDoc](`{not json`).Render()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrInvalidFilter)
}

func TestQuery_FromFilter(t *testing.T) {
	filter, err := QueryFromFilter[testDoc](bson.M{"name": "a"}).Render()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"name": "a"}, filter)

	filter, err = QueryFromFilter[testDoc](nil).Render()
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, filter)
}

func TestQuery_TextSearch(t *testing.T) {
	filter, err := QueryFromText[testDoc]("mongo db", &interfaces.FullTextSearchOptions{
		Language:           "en",
		CaseSensitive:      true,
		DiacriticSensitive: true,
	}).Render()
	require.NoError(t, err)

	assert.Equal(t, bson.M{"$text": bson.M{
		"$search":             "mongo db",
		"$language":           "en",
		"$caseSensitive":      true,
		"$diacriticSensitive": true,
	}}, filter)
}

func TestQuery_TextSearchDefaults(t *testing.T) {
	filter, err := QueryFromText[testDoc]("mongo", nil).Render()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$text": bson.M{"$search": "mongo"}}, filter)
}

func TestQuery_CompleteExpression(t *testing.T) {
	parameterized := QueryWithParameter[testDoc](func(value any) any {
		return bson.M{"name": value}
	})

	_, err := parameterized.Render()
	assert.ErrorIs(t, err, interfaces.ErrQueryIncomplete)

	completed, err := parameterized.CompleteExpression("bob")
	require.NoError(t, err)
	filter, err := completed.Render()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"name": "bob"}, filter)
}

func TestQuery_CompleteExpressionWrongVariant(t *testing.T) {
	_, err := QueryFromJSON[testDoc](`{}`).CompleteExpression("x")
	assert.ErrorIs(t, err, interfaces.ErrQueryIncomplete)
}

func TestQuery_AndOr(t *testing.T) {
	left := QueryFromFilter[testDoc](bson.M{"a": 1})
	right := QueryFromFilter[testDoc](bson.M{"b": 2})

	filter, err := left.And(right).Render()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": bson.A{bson.M{"a": 1}, bson.M{"b": 2}}}, filter)

	filter, err = left.Or(right).Render()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$or": bson.A{bson.M{"a": 1}, bson.M{"b": 2}}}, filter)
}

func TestQuery_AndIsNotLeftBiased(t *testing.T) {
	left := QueryFromFilter[testDoc](bson.M{"a": 1})
	right := QueryFromFilter[testDoc](bson.M{"b": 2})

	combined, err := left.And(right).Render()
	require.NoError(t, err)
	operands := combined.(bson.M)["$and"].(bson.A)
	require.Len(t, operands, 2)
	assert.NotEqual(t, operands[0], operands[1])
}

func TestQuery_Not(t *testing.T) {
	filter, err := QueryFromFilter[testDoc](bson.M{"a": 1}).Not().Render()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$nor": bson.A{bson.M{"a": 1}}}, filter)
}

func TestQuery_CombinatorsSurfaceUnboundParameter(t *testing.T) {
	bound := QueryFromFilter[testDoc](bson.M{"a": 1})
	unbound := QueryWithParameter[testDoc](func(value any) any { return bson.M{"b": value} })

	_, err := bound.And(unbound).Render()
	assert.ErrorIs(t, err, interfaces.ErrQueryIncomplete)
	_, err = bound.Or(unbound).Render()
	assert.ErrorIs(t, err, interfaces.ErrQueryIncomplete)
	_, err = unbound.Not().Render()
	assert.ErrorIs(t, err, interfaces.ErrQueryIncomplete)
}

func TestQuery_CombinatorsLowerTextSearch(t *testing.T) {
	text := QueryFromText[testDoc]("mongo", nil)
	extra := QueryFromFilter[testDoc](bson.M{"disabled": false})

	filter, err := text.And(extra).Render()
	require.NoError(t, err)
	operands := filter.(bson.M)["$and"].(bson.A)
	require.Len(t, operands, 2)
	assert.Equal(t, bson.M{"$text": bson.M{"$search": "mongo"}}, operands[0])
}

func TestQuery_WithUpdate(t *testing.T) {
	update := NewUpdate().Set("name", "x")
	q := QueryFromFilter[testDoc](bson.M{"a": 1}).WithUpdate(update)

	assert.Same(t, update, q.Update())
	assert.Nil(t, NewQuery[testDoc]().Update())
}

func TestQuery_Equals(t *testing.T) {
	a := QueryFromFilter[testDoc](bson.M{"name": "x"})
	b := QueryFromJSON[testDoc](`{"name": "x"}`)
	c := QueryFromFilter[testDoc](bson.M{"name": "y"})

	assert.True(t, a.Equals(b), "same rendered BSON must compare equal across variants")
	assert.False(t, a.Equals(c))

	withUpdate := a.WithUpdate(NewUpdate().Set("k", 1))
	assert.False(t, a.Equals(withUpdate))
	assert.True(t, withUpdate.Equals(a.WithUpdate(NewUpdate().Set("k", 1))))
}

func TestQuery_EqualsUnrenderable(t *testing.T) {
	unbound := QueryWithParameter[testDoc](func(value any) any { return value })
	assert.False(t, unbound.Equals(unbound))
}

func TestQuery_RenderRoundTripStable(t *testing.T) {
	q := QueryFromJSON[testDoc](`{"tenant": "t1", "disabled": false}`)

	first, err := q.Marshal()
	require.NoError(t, err)

	var roundTripped bson.D
	require.NoError(t, bson.Unmarshal(first, &roundTripped))
	second, err := QueryFromFilter[testDoc](roundTripped).Marshal()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQuery_ErrorsAreRepositoryErrors(t *testing.T) {
	_, err := QueryWithParameter[testDoc](nil).Render()
	var repoErr *interfaces.RepositoryError
	require.True(t, errors.As(err, &repoErr))
	assert.Equal(t, "QUERY_INCOMPLETE", repoErr.Code)
}
