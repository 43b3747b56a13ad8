// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexKeys_SingleFieldIndexes(t *testing.T) {
	models := NewIndexKeys().
		Ascending("ref", &IndexOptions{Unique: true, Background: true, Name: "IDX_A"}).
		Descending("createdAt", &IndexOptions{Name: "IDX_B"}).
		Models()

	require.Len(t, models, 2)
	assert.Equal(t, bson.D{{Key: "ref", Value: int32(1)}}, models[0].Keys)
	assert.True(t, *models[0].Options.Unique)
	assert.True(t, *models[0].Options.Background)
	assert.Equal(t, "IDX_A", *models[0].Options.Name)

	assert.Equal(t, bson.D{{Key: "createdAt", Value: int32(-1)}}, models[1].Keys)
	assert.Equal(t, "IDX_B", *models[1].Options.Name)
	assert.Nil(t, models[1].Options.Unique)
}

func TestIndexKeys_CompoundIndex(t *testing.T) {
	models := NewIndexKeys().
		Ascending("tenant").
		Ascending("ref").
		Descending("createdAt", &IndexOptions{Unique: true, Name: "IDX_COMPOUND"}).
		Models()

	require.Len(t, models, 1)
	assert.Equal(t, bson.D{
		{Key: "tenant", Value: int32(1)},
		{Key: "ref", Value: int32(1)},
		{Key: "createdAt", Value: int32(-1)},
	}, models[0].Keys)
	assert.True(t, *models[0].Options.Unique)
}

func TestIndexKeys_UnfinalizedCompoundFlushesOnModels(t *testing.T) {
	models := NewIndexKeys().
		Ascending("a").
		Ascending("b").
		Models()

	require.Len(t, models, 1)
	assert.Equal(t, bson.D{
		{Key: "a", Value: int32(1)},
		{Key: "b", Value: int32(1)},
	}, models[0].Keys)
}

func TestIndexKeys_TextAndHashed(t *testing.T) {
	models := NewIndexKeys().
		Text("body", &IndexOptions{Name: "IDX_BODY_TEXT"}).
		Hashed("tenant", &IndexOptions{Name: "IDX_TENANT_HASHED"}).
		Models()

	require.Len(t, models, 2)
	assert.Equal(t, bson.D{{Key: "body", Value: "text"}}, models[0].Keys)
	assert.Equal(t, bson.D{{Key: "tenant", Value: "hashed"}}, models[1].Keys)
}

func TestIndexKeys_Options(t *testing.T) {
	expire := 90 * time.Second
	models := NewIndexKeys().
		Ascending("expiresAt", &IndexOptions{
			Sparse:        true,
			ExpireAfter:   &expire,
			PartialFilter: bson.M{"disabled": false},
		}).
		Models()

	require.Len(t, models, 1)
	opts := models[0].Options
	assert.True(t, *opts.Sparse)
	assert.Equal(t, int32(90), *opts.ExpireAfterSeconds)
	assert.Equal(t, bson.M{"disabled": false}, opts.PartialFilterExpression)
}

func TestTenantDefaultIndexes(t *testing.T) {
	models := tenantDefaultIndexes()
	require.Len(t, models, 5)

	names := make([]string, 0, len(models))
	for _, model := range models {
		names = append(names, *model.Options.Name)
	}
	assert.Equal(t, []string{
		IndexNameRef,
		IndexNameDisabled,
		IndexNameRefDisabled,
		IndexNameTenant,
		IndexNameTenantRefDisabled,
	}, names)

	// IDX_TENANT_REF_DISABLED is the unique triple the tenant facet relies on.
	triple := models[4]
	assert.Equal(t, bson.D{
		{Key: "tenant", Value: int32(1)},
		{Key: "ref", Value: int32(1)},
		{Key: "disabled", Value: int32(1)},
	}, triple.Keys)
	assert.True(t, *triple.Options.Unique)
	assert.True(t, *triple.Options.Background)

	// ref, ref+disabled and the tenant triple are the unique ones.
	assert.True(t, *models[0].Options.Unique)
	assert.Nil(t, models[1].Options.Unique)
	assert.True(t, *models[2].Options.Unique)
	assert.Nil(t, models[3].Options.Unique)
}
