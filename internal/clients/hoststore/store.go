// Package hoststore is the boundary to the host document store: named
// collections exposing a cheap index and per-id document fetches.
package hoststore

//go:generate mockgen -destination=mock/mock_store.go -package=hoststoremock github.com/KirkDiggler/rpg-compendium/internal/clients/hoststore Store

import (
	"context"
	"sort"
	"sync"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// Store is the document store the engine reads from.
// There is no lookup by name; callers build their own from the index.
type Store interface {
	// ListCollections returns every collection the host knows about
	ListCollections(ctx context.Context) ([]*compendium.Collection, error)

	// GetIndex returns the index entries of one collection.
	// Unknown collections return a NotFound error.
	GetIndex(ctx context.Context, collection string) ([]compendium.IndexEntry, error)

	// GetDocument fetches one full document
	GetDocument(ctx context.Context, collection, id string) (*compendium.Document, error)
}

type memoryCollection struct {
	meta  compendium.Collection
	order []string
	docs  map[string]*compendium.Document
}

// Memory is an in-process Store, used for fixtures and tests
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

// AddCollection registers a collection and its documents, replacing any
// collection with the same name. Documents are cloned on the way in.
func (m *Memory) AddCollection(meta compendium.Collection, docs ...*compendium.Document) {
	c := &memoryCollection{
		meta: meta,
		docs: make(map[string]*compendium.Document, len(docs)),
	}
	for _, doc := range docs {
		if doc == nil || doc.ID == "" {
			continue
		}
		if _, exists := c.docs[doc.ID]; !exists {
			c.order = append(c.order, doc.ID)
		}
		c.docs[doc.ID] = doc.Clone()
	}

	m.mu.Lock()
	m.collections[meta.Name] = c
	m.mu.Unlock()
}

// RemoveCollection drops a collection
func (m *Memory) RemoveCollection(name string) {
	m.mu.Lock()
	delete(m.collections, name)
	m.mu.Unlock()
}

// ListCollections returns the collections sorted by name
func (m *Memory) ListCollections(ctx context.Context) ([]*compendium.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeCanceled, "list collections")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*compendium.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		meta := c.meta
		out = append(out, &meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetIndex returns the index of a collection in insertion order
func (m *Memory) GetIndex(ctx context.Context, collection string) ([]compendium.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeCanceled, "get index")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, errors.NotFoundf("collection %s not found", collection)
	}

	entries := make([]compendium.IndexEntry, 0, len(c.order))
	for _, id := range c.order {
		entries = append(entries, c.docs[id].IndexEntry())
	}
	return entries, nil
}

// GetDocument returns a clone of the stored document
func (m *Memory) GetDocument(ctx context.Context, collection, id string) (*compendium.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeCanceled, "get document")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, errors.NotFoundf("collection %s not found", collection)
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, errors.NotFoundf("document %s not found in %s", id, collection)
	}
	return doc.Clone(), nil
}
