// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qolzam/telar-db/interfaces"
)

func TestNotPerform(t *testing.T) {
	force := notPerform(true)
	require.NotNil(t, force)
	assert.False(t, *force)

	assert.Nil(t, notPerform(false))
}

func TestWriteCount(t *testing.T) {
	count, err := writeCount(7, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	count, err = writeCount(0, mongo.ErrUnacknowledgedWrite)
	require.NoError(t, err)
	assert.Equal(t, interfaces.NotAcknowledged, count)

	boom := fmt.Errorf("server down")
	_, err = writeCount(0, boom)
	assert.ErrorIs(t, err, boom)
}

func TestStampUpdatedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("adds to existing $set map", func(t *testing.T) {
		update := bson.M{"$set": bson.M{"name": "a"}}
		out := stampUpdatedAt(update, now).(bson.M)
		set := out["$set"].(bson.M)
		assert.Equal(t, "a", set["name"])
		assert.Equal(t, now, set[interfaces.FieldUpdatedAt])
	})

	t.Run("creates $set when missing", func(t *testing.T) {
		update := bson.M{"$inc": bson.M{"views": 1}}
		out := stampUpdatedAt(update, now).(bson.M)
		set := out["$set"].(bson.M)
		assert.Equal(t, now, set[interfaces.FieldUpdatedAt])
	})

	t.Run("caller timestamp wins", func(t *testing.T) {
		earlier := now.Add(-time.Hour)
		update := bson.M{"$set": bson.M{interfaces.FieldUpdatedAt: earlier}}
		out := stampUpdatedAt(update, now).(bson.M)
		assert.Equal(t, earlier, out["$set"].(bson.M)[interfaces.FieldUpdatedAt])
	})

	t.Run("ordered document gets the stamp appended", func(t *testing.T) {
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: "a"}}}}
		out := stampUpdatedAt(update, now).(bson.D)
		fields := out[0].Value.(bson.D)
		require.Len(t, fields, 2)
		assert.Equal(t, interfaces.FieldUpdatedAt, fields[1].Key)
	})

	t.Run("ordered document without $set grows one", func(t *testing.T) {
		update := bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}}
		out := stampUpdatedAt(update, now).(bson.D)
		require.Len(t, out, 2)
		assert.Equal(t, "$set", out[1].Key)
	})

	t.Run("opaque shapes pass through", func(t *testing.T) {
		update := "not a document"
		assert.Equal(t, update, stampUpdatedAt(update, now))
	})
}

func TestStream_ErrStream(t *testing.T) {
	boom := fmt.Errorf("find failed")
	stream := errStream[testDoc](boom)

	assert.False(t, stream.Next())
	assert.ErrorIs(t, stream.Error(), boom)

	_, err := stream.All()
	assert.ErrorIs(t, err, boom)

	_, err = stream.One()
	assert.ErrorIs(t, err, boom)

	var doc testDoc
	assert.ErrorIs(t, stream.Decode(&doc), boom)
	stream.Close()
}

func TestGetDbSet_RequiresContext(t *testing.T) {
	_, err := GetDbSet[tenantProduct, string](context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrInvalidArgument)
}

// tenantProduct is the tenant-facet document used across handle tests.
type tenantProduct struct {
	interfaces.TenantDocument[string] `bson:",inline"`

	Name  string `bson:"name"`
	Price int    `bson:"price"`
}

func TestTenantProduct_ImplementsCapabilities(t *testing.T) {
	var doc tenantProduct
	_, isTenant := any(doc).(interfaces.TenantAudit)
	assert.True(t, isTenant)
	_, stamps := any(&doc).(interfaces.TenantStamper)
	assert.True(t, stamps)
	_, setsID := any(&doc).(interfaces.IDSetter[string])
	assert.True(t, setsID)
}
