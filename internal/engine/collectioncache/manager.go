// Package collectioncache holds the in-memory compendium snapshot and the
// lazily built per-collection views over it.
package collectioncache

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// Config configures a Manager
type Config struct {
	Normalizer *search.Normalizer
}

// Validate validates the config
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if cfg.Normalizer == nil {
		vb.RequiredField("Normalizer")
	}
	return vb.Build()
}

// view is the derived state of one collection for one generation
type view struct {
	docs    []*compendium.Document
	byID    map[string]*compendium.Document
	byName  map[string]*compendium.Document
	entries []compendium.IndexEntry
}

// Manager owns the current snapshot. Replacing the snapshot starts a new
// generation and drops every derived view at once.
type Manager struct {
	normalizer *search.Normalizer

	mu         sync.RWMutex
	snapshot   *compendium.Snapshot
	generation uint64
	views      map[string]*view

	warnMu sync.Mutex
	warned map[string]struct{}
}

// NewManager creates an empty manager
func NewManager(cfg *Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Manager{
		normalizer: cfg.Normalizer,
		views:      make(map[string]*view),
		warned:     make(map[string]struct{}),
	}, nil
}

// SetSnapshot installs a snapshot and bumps the generation.
// A missing packsByType is derived from the packs.
func (m *Manager) SetSnapshot(s *compendium.Snapshot) {
	if s != nil && len(s.PacksByType) == 0 {
		s.RefreshPacksByType()
	}

	m.mu.Lock()
	m.snapshot = s
	m.generation++
	m.views = make(map[string]*view)
	generation := m.generation
	m.mu.Unlock()

	slog.Info("Installed compendium snapshot",
		"generation", generation,
		"packs", packCount(s),
		"documents", s.DocumentCount())
}

func packCount(s *compendium.Snapshot) int {
	if s == nil {
		return 0
	}
	return len(s.Packs)
}

// Snapshot returns the current snapshot, nil when none is installed
func (m *Manager) Snapshot() *compendium.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Generation identifies the current snapshot; it changes on every SetSnapshot
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// Collections returns the cached collection names, sorted
func (m *Manager) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil
	}
	names := make([]string, 0, len(m.snapshot.Packs))
	for name := range m.snapshot.Packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCollection reports whether the snapshot holds the collection
func (m *Manager) HasCollection(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return false
	}
	_, ok := m.snapshot.Packs[name]
	return ok
}

// WarnMissing logs that a collection is unavailable, once per name
func (m *Manager) WarnMissing(name, source string) {
	m.warnMu.Lock()
	_, seen := m.warned[name]
	if !seen {
		m.warned[name] = struct{}{}
	}
	m.warnMu.Unlock()

	if !seen {
		slog.Warn("Collection unavailable, treating as empty", "collection", name, "source", source)
	}
}

// collection returns the view of a collection, building it on first use
func (m *Manager) collection(name string) *view {
	m.mu.RLock()
	v, ok := m.views[name]
	snapshot := m.snapshot
	generation := m.generation
	m.mu.RUnlock()
	if ok {
		return v
	}

	var pack *compendium.PackSnapshot
	if snapshot != nil {
		pack = snapshot.Packs[name]
	}
	if pack == nil {
		m.WarnMissing(name, "cache")
		return nil
	}

	v = m.buildView(pack)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation {
		// snapshot replaced while building; serve the stale view uncached
		return v
	}
	if existing, ok := m.views[name]; ok {
		return existing
	}
	m.views[name] = v
	return v
}

func (m *Manager) buildView(pack *compendium.PackSnapshot) *view {
	v := &view{
		byID:    make(map[string]*compendium.Document, len(pack.Documents)),
		byName:  make(map[string]*compendium.Document, len(pack.Documents)),
		entries: pack.Entries,
	}

	// entry order first, then documents without entries by id
	placed := make(map[string]struct{}, len(pack.Documents))
	for _, entry := range pack.Entries {
		if doc, ok := pack.Documents[entry.ID]; ok && doc != nil {
			if _, dup := placed[entry.ID]; !dup {
				placed[entry.ID] = struct{}{}
				v.docs = append(v.docs, doc)
			}
		}
	}
	var rest []string
	for id, doc := range pack.Documents {
		if _, ok := placed[id]; !ok && doc != nil {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		v.docs = append(v.docs, pack.Documents[id])
	}

	for _, doc := range v.docs {
		v.byID[doc.ID] = doc
		for _, token := range m.normalizer.Tokens(doc) {
			if _, taken := v.byName[token]; !taken {
				v.byName[token] = doc
			}
		}
	}
	return v
}

// GetDocument returns the cached document, nil on miss
func (m *Manager) GetDocument(collection, id string) *compendium.Document {
	v := m.collection(collection)
	if v == nil {
		return nil
	}
	return v.byID[id]
}

// CollectionDocument is a cached document tagged with its collection
type CollectionDocument struct {
	Collection string
	Document   *compendium.Document
}

// GetDocumentsForCollections returns every cached document of the given
// collections, in collection order
func (m *Manager) GetDocumentsForCollections(collections []string) []CollectionDocument {
	var out []CollectionDocument
	for _, name := range collections {
		v := m.collection(name)
		if v == nil {
			continue
		}
		for _, doc := range v.docs {
			out = append(out, CollectionDocument{Collection: name, Document: doc})
		}
	}
	return out
}

// GetDocumentByName finds a document whose search tokens contain the name.
// Collections are scanned in the given order and the first hit wins.
func (m *Manager) GetDocumentByName(collections []string, name string) (*compendium.Document, string) {
	lowered := search.Lower(name)
	canonical := search.Canonical(name)
	if lowered == "" {
		return nil, ""
	}

	for _, collection := range collections {
		v := m.collection(collection)
		if v == nil {
			continue
		}
		if doc, ok := v.byName[lowered]; ok {
			return doc, collection
		}
		if doc, ok := v.byName[canonical]; ok {
			return doc, collection
		}
	}
	return nil, ""
}

// Entries returns the index entries of a cached collection
func (m *Manager) Entries(collection string) []compendium.IndexEntry {
	v := m.collection(collection)
	if v == nil {
		return nil
	}
	return v.entries
}

// PacksForType returns the collections holding any of the types, in type
// order without duplicates
func (m *Manager) PacksForType(types []compendium.DocumentType) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, t := range types {
		for _, name := range m.snapshot.PacksByType[string(t)] {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
