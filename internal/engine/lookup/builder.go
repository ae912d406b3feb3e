// Package lookup builds token and word indexes over cached collections,
// scoped to a collection set and an allowed-type set.
package lookup

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/collectioncache"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// DefaultMaxKeys bounds the number of distinct (collections, types) indexes
const DefaultMaxKeys = 64

// Candidate is an indexed document with the collection it came from
type Candidate struct {
	Collection string
	Document   *compendium.Document
}

// Index is the searchable view of one (collections, types) key
type Index struct {
	Key         string
	Generation  uint64
	Docs        []*Candidate
	TokenToDocs map[string][]*Candidate
	WordToDocs  map[string][]*Candidate
}

// Config configures a Builder
type Config struct {
	Cache      *collectioncache.Manager
	Normalizer *search.Normalizer
	// MaxKeys caps the index table; exceeding it clears the whole table
	MaxKeys int
}

// Validate validates the config and sets defaults
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if cfg.Cache == nil {
		vb.RequiredField("Cache")
	}
	if cfg.Normalizer == nil {
		vb.RequiredField("Normalizer")
	}
	if cfg.MaxKeys == 0 {
		cfg.MaxKeys = DefaultMaxKeys
	}
	if cfg.MaxKeys < 0 {
		vb.InvalidField("MaxKeys", "cannot be negative")
	}
	return vb.Build()
}

// Builder lazily builds and memoizes indexes. Indexes are rebuilt only when
// the cache generation changes.
type Builder struct {
	cache      *collectioncache.Manager
	normalizer *search.Normalizer
	maxKeys    int

	mu         sync.Mutex
	generation uint64
	indexes    map[string]*Index
	builds     atomic.Int64
}

// NewBuilder creates an index builder
func NewBuilder(cfg *Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Builder{
		cache:      cfg.Cache,
		normalizer: cfg.Normalizer,
		maxKeys:    cfg.MaxKeys,
		indexes:    make(map[string]*Index),
	}, nil
}

// Builds counts how many indexes have been built
func (b *Builder) Builds() int64 {
	return b.builds.Load()
}

// Len returns the number of memoized indexes
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.indexes)
}

func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Key renders the memo key of a collection set and type set
func Key(collections []string, types []compendium.DocumentType) string {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	return strings.Join(sortedUnique(collections), ",") + "|" + strings.Join(sortedUnique(typeNames), ",")
}

// GetIndex returns the index for the collections restricted to the types.
// An empty type list allows every type.
func (b *Builder) GetIndex(collections []string, types []compendium.DocumentType) *Index {
	key := Key(collections, types)
	generation := b.cache.Generation()

	b.mu.Lock()
	if b.generation != generation {
		b.indexes = make(map[string]*Index)
		b.generation = generation
	}
	if idx, ok := b.indexes[key]; ok {
		b.mu.Unlock()
		return idx
	}
	b.mu.Unlock()

	idx := b.build(key, generation, sortedUnique(collections), types)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != generation {
		return idx
	}
	if existing, ok := b.indexes[key]; ok {
		return existing
	}
	if len(b.indexes) >= b.maxKeys {
		slog.Debug("Lookup index table full, clearing", "keys", len(b.indexes))
		b.indexes = make(map[string]*Index)
	}
	b.indexes[key] = idx
	return idx
}

func (b *Builder) build(key string, generation uint64, collections []string, types []compendium.DocumentType) *Index {
	b.builds.Add(1)

	allowed := make(map[compendium.DocumentType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}

	idx := &Index{
		Key:         key,
		Generation:  generation,
		TokenToDocs: make(map[string][]*Candidate),
		WordToDocs:  make(map[string][]*Candidate),
	}

	for _, cd := range b.cache.GetDocumentsForCollections(collections) {
		if len(allowed) > 0 {
			if _, ok := allowed[cd.Document.Type]; !ok {
				continue
			}
		}
		c := &Candidate{Collection: cd.Collection, Document: cd.Document}
		idx.Docs = append(idx.Docs, c)

		tokens := b.normalizer.Tokens(cd.Document)
		for _, token := range tokens {
			idx.TokenToDocs[token] = append(idx.TokenToDocs[token], c)
		}
		for _, word := range search.Words(tokens) {
			idx.WordToDocs[word] = append(idx.WordToDocs[word], c)
		}
	}
	return idx
}

// CollectCandidates expands every term through the alias table, probes the
// token and word maps and returns the union in first-hit order. When nothing
// matched and fallbackToAll is set, every indexed document is returned.
func (b *Builder) CollectCandidates(idx *Index, terms []string, fallbackToAll bool) []*Candidate {
	if idx == nil {
		return nil
	}

	var out []*Candidate
	seen := make(map[*Candidate]struct{})
	add := func(list []*Candidate) {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	for _, term := range terms {
		expanded := b.normalizer.Expand(term)
		for _, token := range expanded {
			add(idx.TokenToDocs[token])
		}
		for _, word := range search.Words(expanded) {
			add(idx.WordToDocs[word])
		}
	}

	if len(out) == 0 && fallbackToAll {
		return append([]*Candidate(nil), idx.Docs...)
	}
	return out
}
