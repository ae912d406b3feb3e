// Package cachebuilder materializes host collections into a persisted
// snapshot and installs it into the collection cache.
package cachebuilder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/rpg-compendium/internal/clients/hoststore"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/collectioncache"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	"github.com/KirkDiggler/rpg-compendium/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-compendium/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
)

const (
	// DefaultConcurrency is how many collections build at once
	DefaultConcurrency = 4

	// DefaultHostTimeout bounds each host call
	DefaultHostTimeout = 10 * time.Second

	progressSteps = 5
)

// DefaultCollectionTypes are the host collection kinds rebuilt when the
// caller names none
var DefaultCollectionTypes = []string{"Item"}

// Config holds the dependencies for the cache builder
type Config struct {
	Store       hoststore.Store
	Repository  snapshot.Repository
	Cache       *collectioncache.Manager
	Clock       clock.Clock
	IDGenerator idgen.Generator
	// EventBus receives progress and completion events when set
	EventBus    events.EventBus

	ModuleVersion string
	SystemVersion string
	// CacheableTypes is the allow-list of document types kept in the snapshot
	CacheableTypes  []compendium.DocumentType
	CollectionTypes []string
	Concurrency     int
	HostTimeout     time.Duration
}

// Validate ensures all required dependencies are provided and sets defaults
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if c.Store == nil {
		vb.RequiredField("Store")
	}
	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.Cache == nil {
		vb.RequiredField("Cache")
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.IDGenerator == nil {
		c.IDGenerator = idgen.NewUUID("build")
	}
	if c.ModuleVersion == "" {
		c.ModuleVersion = "dev"
	}
	if c.SystemVersion == "" {
		c.SystemVersion = "unknown"
	}
	if len(c.CacheableTypes) == 0 {
		c.CacheableTypes = compendium.AllTypes
	}
	if len(c.CollectionTypes) == 0 {
		c.CollectionTypes = DefaultCollectionTypes
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Concurrency < 0 {
		vb.InvalidField("Concurrency", "must be positive")
	}
	if c.HostTimeout == 0 {
		c.HostTimeout = DefaultHostTimeout
	}
	return vb.Build()
}

// Orchestrator implements compendiumsvc.CacheBuilder
type Orchestrator struct {
	store       hoststore.Store
	repository  snapshot.Repository
	cache       *collectioncache.Manager
	clock       clock.Clock
	idGenerator idgen.Generator
	eventBus    events.EventBus

	moduleVersion   string
	systemVersion   string
	cacheable       map[compendium.DocumentType]struct{}
	collectionTypes map[string]struct{}
	concurrency     int
	hostTimeout     time.Duration

	// one rebuild at a time
	buildMu sync.Mutex
}

var _ compendiumsvc.CacheBuilder = (*Orchestrator)(nil)

// New creates a new cache builder
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	o := &Orchestrator{
		store:           cfg.Store,
		repository:      cfg.Repository,
		cache:           cfg.Cache,
		clock:           cfg.Clock,
		idGenerator:     cfg.IDGenerator,
		eventBus:        cfg.EventBus,
		moduleVersion:   cfg.ModuleVersion,
		systemVersion:   cfg.SystemVersion,
		cacheable:       make(map[compendium.DocumentType]struct{}, len(cfg.CacheableTypes)),
		collectionTypes: make(map[string]struct{}, len(cfg.CollectionTypes)),
		concurrency:     cfg.Concurrency,
		hostTimeout:     cfg.HostTimeout,
	}
	for _, t := range cfg.CacheableTypes {
		o.cacheable[t] = struct{}{}
	}
	for _, t := range cfg.CollectionTypes {
		o.collectionTypes[t] = struct{}{}
	}
	return o, nil
}

// CacheVersion fingerprints a snapshot. Consumers compare it, never parse it.
func CacheVersion(moduleVersion, systemVersion string, collections int) string {
	return fmt.Sprintf("%s-%s-%d", moduleVersion, systemVersion, collections)
}

// RebuildCache fetches every target collection, saves the new snapshot and
// installs it. Collection failures are reported in Errors; the run fails only
// when nothing at all could be cached.
func (o *Orchestrator) RebuildCache(
	ctx context.Context,
	input *compendiumsvc.RebuildCacheInput,
) (*compendiumsvc.RebuildCacheOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if !input.Caller.IsGM() {
		return nil, errors.PermissionDeniedf("caller %q may not rebuild the compendium cache", input.Caller.ID)
	}

	o.buildMu.Lock()
	defer o.buildMu.Unlock()

	buildID := o.idGenerator.Generate()
	targets, err := o.targets(ctx, input.CollectionNames)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errors.FailedPrecondition("host has no collections to cache")
	}

	slog.Info("Rebuilding compendium cache", "build_id", buildID, "collections", len(targets))

	var (
		mu       sync.Mutex
		packs    = make(map[string]*compendium.PackSnapshot, len(targets))
		failures []compendiumsvc.CollectionError
		done     int
		lastStep int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, target := range targets {
		g.Go(func() error {
			pack, err := o.buildPack(gctx, target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Collection not cached", "collection", target.Name, "error", err)
				failures = append(failures, compendiumsvc.CollectionError{
					Collection: target.Name,
					Message:    err.Error(),
				})
			} else {
				packs[target.Name] = pack
			}

			done++
			if step := done * progressSteps / len(targets); step > lastStep {
				lastStep = step
				slog.Info("Cache rebuild progress", "build_id", buildID, "done", done, "total", len(targets))
				if input.Progress != nil {
					input.Progress(done, len(targets))
				}
				o.publish(gctx, EventCacheProgress, buildID, map[string]any{
					KeyDone:  done,
					KeyTotal: len(targets),
				})
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "cache rebuild interrupted")
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Collection < failures[j].Collection })
	if len(packs) == 0 {
		return nil, errors.Unavailablef("no collection could be cached, %d failed", len(failures)).
			WithMeta("errors", failures)
	}

	s := &compendium.Snapshot{
		GeneratedAt:  o.clock.Now(),
		CacheVersion: CacheVersion(o.moduleVersion, o.systemVersion, len(packs)),
		Packs:        packs,
	}
	s.RefreshPacksByType()

	if _, err := o.repository.Save(ctx, &snapshot.SaveInput{Snapshot: s}); err != nil {
		return nil, errors.Wrap(err, "failed to save snapshot")
	}
	o.cache.SetSnapshot(s)

	slog.Info("Compendium cache rebuilt",
		"build_id", buildID,
		"cache_version", s.CacheVersion,
		"packs", len(packs),
		"documents", s.DocumentCount(),
		"failed", len(failures))
	o.publish(ctx, EventCacheRebuilt, buildID, map[string]any{
		KeyCacheVersion: s.CacheVersion,
		KeyPacks:        len(packs),
		KeyDocuments:    s.DocumentCount(),
		KeyFailed:       len(failures),
	})

	return &compendiumsvc.RebuildCacheOutput{
		BuildID:  buildID,
		Snapshot: s,
		Errors:   failures,
	}, nil
}

// targets resolves the collections to build. Named collections keep their
// order; unknown names still get a target so their failure is reported.
func (o *Orchestrator) targets(ctx context.Context, names []string) ([]compendium.Collection, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.hostTimeout)
	defer cancel()

	listed, err := o.store.ListCollections(callCtx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list host collections")
	}
	byName := make(map[string]*compendium.Collection, len(listed))
	for _, c := range listed {
		if c != nil {
			byName[c.Name] = c
		}
	}

	var out []compendium.Collection
	if len(names) == 0 {
		for _, c := range listed {
			if c == nil {
				continue
			}
			if _, ok := o.collectionTypes[c.DocumentType]; ok {
				out = append(out, *c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if c, ok := byName[name]; ok {
			out = append(out, *c)
			continue
		}
		out = append(out, compendium.Collection{Name: name, Title: name})
	}
	return out, nil
}

// buildPack fetches the index and the cacheable documents of one collection.
// Documents that fail to load are dropped from the pack with their entries.
func (o *Orchestrator) buildPack(ctx context.Context, c compendium.Collection) (*compendium.PackSnapshot, error) {
	indexCtx, cancel := context.WithTimeout(ctx, o.hostTimeout)
	entries, err := o.store.GetIndex(indexCtx, c.Name)
	cancel()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch index of %s", c.Name)
	}

	label := c.Title
	if label == "" {
		label = c.Name
	}
	pack := &compendium.PackSnapshot{
		Label:        label,
		DocumentType: c.DocumentType,
		Documents:    make(map[string]*compendium.Document),
	}

	for _, entry := range entries {
		if _, ok := o.cacheable[entry.Type]; !ok {
			continue
		}

		docCtx, cancel := context.WithTimeout(ctx, o.hostTimeout)
		doc, err := o.store.GetDocument(docCtx, c.Name, entry.ID)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrapf(ctx.Err(), "building %s", c.Name)
			}
			slog.Warn("Document not cached", "collection", c.Name, "id", entry.ID, "error", err)
			continue
		}

		pack.Entries = append(pack.Entries, doc.IndexEntry())
		pack.Documents[doc.ID] = doc
	}

	slog.Debug("Cached collection", "collection", c.Name, "entries", len(pack.Entries))
	return pack, nil
}

// LoadSnapshot installs the persisted snapshot, if any. Decode warnings are
// logged; a missing snapshot leaves the cache empty without error.
func (o *Orchestrator) LoadSnapshot(ctx context.Context) (*compendium.Snapshot, error) {
	out, err := o.repository.Load(ctx, &snapshot.LoadInput{})
	if err != nil {
		if errors.IsNotFound(err) {
			slog.Info("No persisted compendium snapshot")
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load snapshot")
	}

	if out.Report != nil {
		for _, w := range out.Report.Warnings {
			slog.Warn("Snapshot decoded with warning", "warning", w)
		}
	}
	o.cache.SetSnapshot(out.Snapshot)

	slog.Info("Compendium snapshot loaded",
		"cache_version", out.Snapshot.CacheVersion,
		"packs", len(out.Snapshot.Packs),
		"documents", out.Snapshot.DocumentCount())
	return out.Snapshot, nil
}
