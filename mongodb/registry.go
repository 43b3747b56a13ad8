// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// Process-wide bootstrap registry. Contexts sharing a bootstrap key share
// one serializer registry and run the init sequence (caller Index hook plus
// collection name snapshot) exactly once, even when constructed
// concurrently. A failed init poisons its key; later constructions observe
// the same error.
var bootstrapRegistry sync.Map // key string -> *bootstrapEntry

type bootstrapEntry struct {
	registryOnce sync.Once
	registry     *bsoncodec.Registry
	registryErr  error

	initOnce    sync.Once
	initErr     error
	collections []string
}

func bootstrapKey(name, uri, dbName string) string {
	return fmt.Sprintf("%s|%x|%s", name, sha256.Sum256([]byte(uri)), dbName)
}

func bootstrapFor(name, uri, dbName string) *bootstrapEntry {
	key := bootstrapKey(name, uri, dbName)
	entry, _ := bootstrapRegistry.LoadOrStore(key, &bootstrapEntry{})
	return entry.(*bootstrapEntry)
}

// buildRegistry assembles the serializer registry once: driver defaults
// (struct tags, inline documents for open-ended fields) plus the caller's
// registrations.
func (e *bootstrapEntry) buildRegistry(mapFn func(registry *bsoncodec.Registry) error) (*bsoncodec.Registry, error) {
	e.registryOnce.Do(func() {
		registry := bson.NewRegistry()
		if mapFn != nil {
			if err := mapFn(registry); err != nil {
				e.registryErr = fmt.Errorf("serializer registration failed: %w", err)
				return
			}
		}
		e.registry = registry
	})
	return e.registry, e.registryErr
}

// runInit runs fn once per process for this key and returns the snapshot it
// produced. Concurrent and later callers observe the first outcome.
func (e *bootstrapEntry) runInit(fn func() ([]string, error)) ([]string, error) {
	e.initOnce.Do(func() {
		e.collections, e.initErr = fn()
	})
	return e.collections, e.initErr
}

// Per-type one-time initialization (default index creation) for collection
// handles, keyed per bootstrap scope, collection and document type.
var typeInitRegistry sync.Map // key string -> *typeInit

type typeInit struct {
	once sync.Once
	err  error
}

func typeInitFor(contextKey, collection, typeName string) *typeInit {
	key := contextKey + "|" + collection + "|" + typeName
	entry, _ := typeInitRegistry.LoadOrStore(key, &typeInit{})
	return entry.(*typeInit)
}

func (t *typeInit) run(fn func() error) error {
	t.once.Do(func() {
		t.err = fn()
	})
	return t.err
}
