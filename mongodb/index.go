// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qolzam/telar-db/interfaces"
)

// Names of the default indexes created for documents with the tenant facet.
const (
	IndexNameRef               = "IDX_REF"
	IndexNameDisabled          = "IDX_DISABLED"
	IndexNameRefDisabled       = "IDX_REF_DISABLED"
	IndexNameTenant            = "IDX_TENANT"
	IndexNameTenantRefDisabled = "IDX_TENANT_REF_DISABLED"
)

// IndexOptions mirrors the recognized per-index options.
type IndexOptions struct {
	Background    bool
	Unique        bool
	Sparse        bool
	Name          string
	ExpireAfter   *time.Duration
	PartialFilter any
	Collation     *options.Collation
}

// IndexKeys builds an ordered list of index models. Ascending and
// Descending append a key to the compound index under construction;
// passing options finalizes that index and starts the next one. Models
// flushes any index still open.
//
//	keys := NewIndexKeys().
//		Ascending("tenant").
//		Ascending("ref", &IndexOptions{Unique: true, Background: true, Name: "IDX_TENANT_REF"}).
//		Descending("createdAt", nil)
type IndexKeys struct {
	models  []mongo.IndexModel
	pending bson.D
}

// NewIndexKeys returns an empty builder.
func NewIndexKeys() *IndexKeys {
	return &IndexKeys{}
}

// Ascending appends an ascending key. Non-empty opts finalize the compound
// index collected so far.
func (k *IndexKeys) Ascending(field string, opts ...*IndexOptions) *IndexKeys {
	return k.key(field, int32(1), opts)
}

// Descending appends a descending key. Non-empty opts finalize the compound
// index collected so far.
func (k *IndexKeys) Descending(field string, opts ...*IndexOptions) *IndexKeys {
	return k.key(field, int32(-1), opts)
}

// Text appends a text-search key.
func (k *IndexKeys) Text(field string, opts ...*IndexOptions) *IndexKeys {
	return k.key(field, "text", opts)
}

// Hashed appends a hashed key.
func (k *IndexKeys) Hashed(field string, opts ...*IndexOptions) *IndexKeys {
	return k.key(field, "hashed", opts)
}

func (k *IndexKeys) key(field string, order any, opts []*IndexOptions) *IndexKeys {
	k.pending = append(k.pending, bson.E{Key: field, Value: order})
	if len(opts) > 0 {
		k.flush(firstIndexOption(opts))
	}
	return k
}

func firstIndexOption(opts []*IndexOptions) *IndexOptions {
	if len(opts) == 0 {
		return nil
	}
	return opts[0]
}

func (k *IndexKeys) flush(opt *IndexOptions) {
	if len(k.pending) == 0 {
		return
	}
	k.models = append(k.models, mongo.IndexModel{
		Keys:    k.pending,
		Options: opt.toDriver(),
	})
	k.pending = nil
}

// Models materializes the ordered index list, flushing an unfinalized
// compound with default options.
func (k *IndexKeys) Models() []mongo.IndexModel {
	k.flush(nil)
	return k.models
}

func (o *IndexOptions) toDriver() *options.IndexOptions {
	driverOpts := options.Index()
	if o == nil {
		return driverOpts
	}
	if o.Background {
		driverOpts.SetBackground(true)
	}
	if o.Unique {
		driverOpts.SetUnique(true)
	}
	if o.Sparse {
		driverOpts.SetSparse(true)
	}
	if o.Name != "" {
		driverOpts.SetName(o.Name)
	}
	if o.ExpireAfter != nil {
		driverOpts.SetExpireAfterSeconds(int32(o.ExpireAfter.Seconds()))
	}
	if o.PartialFilter != nil {
		driverOpts.SetPartialFilterExpression(o.PartialFilter)
	}
	if o.Collation != nil {
		driverOpts.SetCollation(o.Collation)
	}
	return driverOpts
}

// tenantDefaultIndexes is the index set guaranteed for every document type
// exposing the tenant facet.
func tenantDefaultIndexes() []mongo.IndexModel {
	return NewIndexKeys().
		Ascending(interfaces.FieldRef, &IndexOptions{Unique: true, Background: true, Name: IndexNameRef}).
		Ascending(interfaces.FieldDisabled, &IndexOptions{Background: true, Name: IndexNameDisabled}).
		Ascending(interfaces.FieldRef).
		Ascending(interfaces.FieldDisabled, &IndexOptions{Unique: true, Background: true, Name: IndexNameRefDisabled}).
		Ascending(interfaces.FieldTenant, &IndexOptions{Background: true, Name: IndexNameTenant}).
		Ascending(interfaces.FieldTenant).
		Ascending(interfaces.FieldRef).
		Ascending(interfaces.FieldDisabled, &IndexOptions{Unique: true, Background: true, Name: IndexNameTenantRefDisabled}).
		Models()
}
