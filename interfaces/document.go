// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

import (
	"time"
)

// BSON field names shared by the default indexes and the tenant document.
const (
	FieldID        = "_id"
	FieldRef       = "ref"
	FieldTenant    = "tenant"
	FieldDisabled  = "disabled"
	FieldCreatedBy = "createdBy"
	FieldCreatedAt = "createdAt"
	FieldUpdatedBy = "updatedBy"
	FieldUpdatedAt = "updatedAt"
)

// Identifiable is the capability every stored document carries: a stable,
// comparable identifier. Value receivers are enough here so that plain
// document values satisfy the constraint.
type Identifiable[ID comparable] interface {
	GetID() ID
}

// IDSetter is asserted on *T when the library needs to write an identifier
// back into a document (e.g. after the server generated one).
type IDSetter[ID comparable] interface {
	SetID(ID)
}

// TenantAudit is the optional tenant facet: a logical key, a tenant key, a
// soft-disable flag and audit metadata. Documents exposing it get the five
// default tenant indexes and automatic timestamp stamping on writes.
type TenantAudit interface {
	GetRef() string
	GetTenant() string
	IsDisabled() bool
	GetCreatedBy() string
	GetCreatedAt() time.Time
	GetUpdatedBy() string
	GetUpdatedAt() time.Time
}

// TenantStamper is asserted on *T before writes to stamp audit timestamps.
type TenantStamper interface {
	TouchForInsert(time.Time)
	TouchForUpdate(time.Time)
}

// TenantDocument is the embeddable composition record implementing both
// capabilities. Unknown fields read from the server land in Extra and are
// written back unchanged, keeping documents forward compatible.
//
//	type Product struct {
//		interfaces.TenantDocument[string] `bson:",inline"`
//		Name string `bson:"name"`
//	}
type TenantDocument[ID comparable] struct {
	ID        ID             `bson:"_id,omitempty" json:"id"`
	Ref       string         `bson:"ref" json:"ref"`
	Tenant    string         `bson:"tenant" json:"tenant"`
	Disabled  bool           `bson:"disabled" json:"disabled"`
	CreatedBy string         `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt time.Time      `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedBy string         `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt time.Time      `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Extra     map[string]any `bson:",inline" json:"extra,omitempty"`
}

func (d TenantDocument[ID]) GetID() ID      { return d.ID }
func (d *TenantDocument[ID]) SetID(id ID)   { d.ID = id }
func (d TenantDocument[ID]) GetRef() string { return d.Ref }

func (d TenantDocument[ID]) GetTenant() string       { return d.Tenant }
func (d TenantDocument[ID]) IsDisabled() bool        { return d.Disabled }
func (d TenantDocument[ID]) GetCreatedBy() string    { return d.CreatedBy }
func (d TenantDocument[ID]) GetCreatedAt() time.Time { return d.CreatedAt }
func (d TenantDocument[ID]) GetUpdatedBy() string    { return d.UpdatedBy }
func (d TenantDocument[ID]) GetUpdatedAt() time.Time { return d.UpdatedAt }

// TouchForInsert stamps creation time. CreatedAt is only written once so
// replays keep the original creation instant. Disabled needs no reset: the
// zero value is the insert default.
func (d *TenantDocument[ID]) TouchForInsert(now time.Time) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
}

// TouchForUpdate stamps the last-modified time.
func (d *TenantDocument[ID]) TouchForUpdate(now time.Time) {
	d.UpdatedAt = now
}
