// Package matching resolves an item reference to a single document through a
// fixed pipeline of strategies over the cached lookup index and the live host
// store.
package matching

import (
	"context"
	"log/slog"
	"time"

	"github.com/KirkDiggler/rpg-compendium/internal/clients/hoststore"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/budget"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/collectioncache"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/lookup"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

const (
	// DefaultHostTimeout bounds every host store call
	DefaultHostTimeout = 5 * time.Second

	// DefaultFuzzyThreshold is the minimum bigram similarity that counts
	DefaultFuzzyThreshold = 0.72
)

// Group is one slice of a resolution request sharing packs and type rules
type Group struct {
	Key          string
	References   []compendium.ItemReference
	Packs        []string
	AllowedTypes []compendium.DocumentType
	// Keywords drive the keyword steps; derived from the reference when empty
	Keywords                []string
	Equip                   bool
	EnsureFeatureActivities bool
}

// Validate checks the contract of a group
func (g *Group) Validate() error {
	if g == nil {
		return errors.InvalidArgument("group cannot be nil")
	}
	if len(g.AllowedTypes) == 0 {
		return errors.InvalidArgumentf("group %q has no allowed types", g.Key)
	}
	return nil
}

// FeatureActivityTemplate is attached to feats without activation data
var FeatureActivityTemplate = compendium.Activity{Type: "utility", Activation: "action"}

// Config configures an Engine
type Config struct {
	Store      hoststore.Store
	Cache      *collectioncache.Manager
	Index      *lookup.Builder
	Normalizer *search.Normalizer
	Allocator  *budget.Allocator
	// Locale drives the preferred display script (BCP 47, e.g. "ru")
	Locale         string
	HostTimeout    time.Duration
	FuzzyThreshold float64
}

// Validate validates the config and sets defaults
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if cfg.Store == nil {
		vb.RequiredField("Store")
	}
	if cfg.Cache == nil {
		vb.RequiredField("Cache")
	}
	if cfg.Index == nil {
		vb.RequiredField("Index")
	}
	if cfg.Normalizer == nil {
		vb.RequiredField("Normalizer")
	}
	if cfg.Allocator == nil {
		vb.RequiredField("Allocator")
	}
	if cfg.HostTimeout == 0 {
		cfg.HostTimeout = DefaultHostTimeout
	}
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1 {
		vb.InvalidField("FuzzyThreshold", "must be between 0 and 1")
	}
	return vb.Build()
}

// Engine resolves references. It is safe for concurrent use.
type Engine struct {
	store          hoststore.Store
	cache          *collectioncache.Manager
	index          *lookup.Builder
	normalizer     *search.Normalizer
	allocator      *budget.Allocator
	locale         string
	hostTimeout    time.Duration
	fuzzyThreshold float64
}

// New creates a matching engine
func New(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Engine{
		store:          cfg.Store,
		cache:          cfg.Cache,
		index:          cfg.Index,
		normalizer:     cfg.Normalizer,
		allocator:      cfg.Allocator,
		locale:         cfg.Locale,
		hostTimeout:    cfg.HostTimeout,
		fuzzyThreshold: cfg.FuzzyThreshold,
	}, nil
}

// request is the per-call state shared by the strategies
type request struct {
	ref       compendium.ItemReference
	group     *Group
	budget    compendium.Budget
	packs     []string
	allowed   map[compendium.DocumentType]struct{}
	keywords  []string
	liveIndex map[string][]compendium.IndexEntry
}

func (r *request) typeAllowed(t compendium.DocumentType) bool {
	_, ok := r.allowed[t]
	return ok
}

// ResolveItem runs the strategies in order and returns the first match.
// A nil result is a normal outcome; the strategy is the last one attempted.
// Errors are reserved for contract violations.
func (e *Engine) ResolveItem(
	ctx context.Context,
	ref compendium.ItemReference,
	group *Group,
	b compendium.Budget,
) (*compendium.MatchResult, compendium.Strategy, error) {
	if err := group.Validate(); err != nil {
		return nil, compendium.StrategyNone, err
	}
	if ref.Name == "" && ref.Lookup == "" {
		return nil, compendium.StrategyNone, errors.InvalidArgument("reference has no name or lookup")
	}

	req := &request{
		ref:       ref,
		group:     group,
		budget:    b,
		packs:     group.Packs,
		allowed:   make(map[compendium.DocumentType]struct{}, len(group.AllowedTypes)),
		liveIndex: make(map[string][]compendium.IndexEntry),
	}
	for _, t := range group.AllowedTypes {
		req.allowed[t] = struct{}{}
	}
	if len(req.packs) == 0 {
		req.packs = e.cache.PacksForType(group.AllowedTypes)
	}
	req.keywords = e.keywordsFor(ref, group)

	steps := []struct {
		strategy compendium.Strategy
		run      func(context.Context, *request) (*compendium.MatchResult, error)
	}{
		{compendium.StrategyCachedLocalized, e.localizedCachedPick},
		{compendium.StrategyExactPackName, e.exactPackName},
		{compendium.StrategyCachedExactName, e.exactCachedName},
		{compendium.StrategyCachedKeywords, e.keywordCachedPick},
		{compendium.StrategyFuzzyKeywords, e.liveFuzzyPick},
	}

	last := compendium.StrategyNone
	for _, step := range steps {
		last = step.strategy
		result, err := step.run(ctx, req)
		if err != nil {
			return nil, last, err
		}
		if result != nil {
			result.Meta.Strategy = step.strategy
			e.finish(result, group)
			slog.Debug("Resolved reference",
				"reference", ref.Label(),
				"matched", result.Meta.MatchedName,
				"pack", result.Meta.MatchedPack,
				"strategy", step.strategy)
			return result, step.strategy, nil
		}
	}

	slog.Debug("Reference not matched", "reference", ref.Label(), "group", group.Key)
	return nil, last, nil
}

// keywordsFor returns the group keywords or the words of the reference
func (e *Engine) keywordsFor(ref compendium.ItemReference, group *Group) []string {
	if len(group.Keywords) > 0 {
		var out []string
		seen := make(map[string]struct{}, len(group.Keywords))
		for _, k := range group.Keywords {
			c := search.Canonical(k)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
		return out
	}

	var tokens []string
	if ref.Name != "" {
		tokens = append(tokens, search.Canonical(ref.Name))
	}
	if ref.Lookup != "" {
		tokens = append(tokens, search.Canonical(ref.Lookup))
	}
	return search.Words(tokens)
}

// finish clones the matched document and applies the group flags
func (e *Engine) finish(result *compendium.MatchResult, group *Group) {
	item := result.Item.Clone()
	if group.Equip {
		item.Attributes.Equipped = true
		item.Attributes.Proficient = true
	}
	if group.EnsureFeatureActivities && item.Type == compendium.TypeFeat && len(item.Attributes.Activities) == 0 {
		item.Attributes.Activities = []compendium.Activity{FeatureActivityTemplate}
	}
	result.Item = item
}

func newResult(doc *compendium.Document, pack string) *compendium.MatchResult {
	return &compendium.MatchResult{
		Item: doc,
		Meta: compendium.MatchMeta{
			MatchedName: doc.Name,
			MatchedType: doc.Type,
			MatchedPack: pack,
		},
	}
}

// inBudget reports whether the document's price fits the budget range
func (e *Engine) inBudget(doc *compendium.Document, b compendium.Budget) bool {
	copper, ok := doc.PriceCopper()
	if !ok {
		return false
	}
	return e.allocator.Range(b).Contains(copper)
}

// names returns the reference name variants, name first then lookup
func (e *Engine) names(ref compendium.ItemReference) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, source := range []string{ref.Name, ref.Lookup} {
		for _, v := range e.normalizer.Variants(source) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// exactPackName looks every name variant up in the live index of each pack
func (e *Engine) exactPackName(ctx context.Context, req *request) (*compendium.MatchResult, error) {
	for _, variant := range e.names(req.ref) {
		want := search.Canonical(variant)
		if want == "" {
			continue
		}
		for _, pack := range req.packs {
			for _, entry := range e.liveEntries(ctx, req, pack) {
				if !req.typeAllowed(entry.Type) || search.Canonical(entry.Name) != want {
					continue
				}
				doc := e.fetchDocument(ctx, pack, entry.ID)
				if doc == nil {
					continue
				}
				return newResult(doc, pack), nil
			}
		}
	}
	return nil, nil
}

// exactCachedName looks every name variant up in the collection cache
func (e *Engine) exactCachedName(_ context.Context, req *request) (*compendium.MatchResult, error) {
	for _, variant := range e.names(req.ref) {
		doc, pack := e.cache.GetDocumentByName(req.packs, variant)
		if doc != nil && req.typeAllowed(doc.Type) {
			return newResult(doc, pack), nil
		}
	}
	return nil, nil
}

// liveEntries fetches and memoizes the live index of a pack for one request.
// Failures degrade to an empty index.
func (e *Engine) liveEntries(ctx context.Context, req *request, pack string) []compendium.IndexEntry {
	if entries, ok := req.liveIndex[pack]; ok {
		return entries
	}

	callCtx, cancel := context.WithTimeout(ctx, e.hostTimeout)
	defer cancel()

	entries, err := e.store.GetIndex(callCtx, pack)
	if err != nil {
		if errors.IsNotFound(err) {
			e.cache.WarnMissing(pack, "host")
		} else {
			slog.Warn("Host index fetch failed, treating as empty", "pack", pack, "error", err)
		}
		entries = nil
	}
	req.liveIndex[pack] = entries
	return entries
}

// fetchDocument loads one document from the host, nil on failure
func (e *Engine) fetchDocument(ctx context.Context, pack, id string) *compendium.Document {
	callCtx, cancel := context.WithTimeout(ctx, e.hostTimeout)
	defer cancel()

	doc, err := e.store.GetDocument(callCtx, pack, id)
	if err != nil {
		slog.Warn("Host document fetch failed", "pack", pack, "id", id, "error", err)
		return nil
	}
	return doc
}
