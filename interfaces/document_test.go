// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type order struct {
	TenantDocument[string] `bson:",inline"`

	Total int `bson:"total"`
}

func TestTenantDocument_Capabilities(t *testing.T) {
	doc := order{}
	doc.ID = "o1"
	doc.Ref = "r1"
	doc.Tenant = "t1"

	var identifiable Identifiable[string] = doc
	assert.Equal(t, "o1", identifiable.GetID())

	var tenant TenantAudit = doc
	assert.Equal(t, "r1", tenant.GetRef())
	assert.Equal(t, "t1", tenant.GetTenant())
	assert.False(t, tenant.IsDisabled())

	var setter IDSetter[string] = &doc
	setter.SetID("o2")
	assert.Equal(t, "o2", doc.ID)
}

func TestTenantDocument_TouchForInsert(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	doc := order{}
	doc.TouchForInsert(now)
	assert.Equal(t, now, doc.CreatedAt)

	// A replayed insert keeps the original creation instant.
	later := now.Add(time.Hour)
	doc.TouchForInsert(later)
	assert.Equal(t, now, doc.CreatedAt)
}

func TestTenantDocument_TouchForUpdate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	doc := order{}
	doc.TouchForUpdate(now)
	assert.Equal(t, now, doc.UpdatedAt)

	later := now.Add(time.Hour)
	doc.TouchForUpdate(later)
	assert.Equal(t, later, doc.UpdatedAt)
}

func TestTenantDocument_ExtraElementsRoundTrip(t *testing.T) {
	doc := order{Total: 7}
	doc.ID = "o1"
	doc.Ref = "r1"
	doc.Tenant = "t1"
	doc.Extra = map[string]any{"color": "red"}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	// Unknown fields land inline next to the declared ones.
	var asMap bson.M
	require.NoError(t, bson.Unmarshal(raw, &asMap))
	assert.Equal(t, "red", asMap["color"])
	assert.Equal(t, int32(7), asMap["total"])

	var back order
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, "red", back.Extra["color"])
	assert.Equal(t, 7, back.Total)
}
