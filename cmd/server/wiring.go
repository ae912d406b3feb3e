package main

import (
	"fmt"
	"strings"

	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/rpg-compendium/internal/clients/hoststore"
	"github.com/KirkDiggler/rpg-compendium/internal/config"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/budget"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/collectioncache"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/lookup"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/matching"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	v1alpha1 "github.com/KirkDiggler/rpg-compendium/internal/handlers/compendium/v1alpha1"
	"github.com/KirkDiggler/rpg-compendium/internal/orchestrators/cachebuilder"
	"github.com/KirkDiggler/rpg-compendium/internal/orchestrators/character"
	"github.com/KirkDiggler/rpg-compendium/internal/orchestrators/resolution"
	redisclient "github.com/KirkDiggler/rpg-compendium/internal/redis"
	"github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot"
)

// app is the wired object graph shared by the server and the local commands
type app struct {
	cfg       *config.Config
	cache     *collectioncache.Manager
	builder   *cachebuilder.Orchestrator
	resolver  *resolution.Orchestrator
	generator *character.Orchestrator
	handler   *v1alpha1.Handler
	events    events.EventBus

	// snapshotFile is set for the file backend
	snapshotFile string
	closers      []func() error
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, events: events.NewBus()}

	normalizer, err := search.NewNormalizer(cfg.SearchConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	a.cache, err = collectioncache.NewManager(&collectioncache.Config{Normalizer: normalizer})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection cache: %w", err)
	}

	index, err := lookup.NewBuilder(&lookup.Config{
		Cache:      a.cache,
		Normalizer: normalizer,
		MaxKeys:    cfg.Search.LookupMaxKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup builder: %w", err)
	}

	allocator, err := budget.NewAllocator(&budget.Config{Table: cfg.BudgetTable()})
	if err != nil {
		return nil, fmt.Errorf("failed to create budget allocator: %w", err)
	}

	store, err := hoststore.NewSRD(&hoststore.SRDConfig{
		BaseURL:           cfg.Host.BaseURL,
		HTTPTimeout:       cfg.Host.HTTPTimeout.Std(),
		CacheTTL:          cfg.Host.CacheTTL.Std(),
		RequestsPerSecond: cfg.Host.RequestsPerSecond,
		Concurrency:       cfg.Host.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create host store: %w", err)
	}

	engine, err := matching.New(&matching.Config{
		Store:          store,
		Cache:          a.cache,
		Index:          index,
		Normalizer:     normalizer,
		Allocator:      allocator,
		Locale:         cfg.Locale,
		HostTimeout:    cfg.Resolution.HostTimeout.Std(),
		FuzzyThreshold: cfg.Resolution.FuzzyThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create matching engine: %w", err)
	}

	a.resolver, err = resolution.New(&resolution.Config{
		Matcher:            engine,
		Cache:              a.cache,
		DefaultConcurrency: cfg.Resolution.Concurrency,
		MaxReferenceLength: cfg.Resolution.MaxReferenceLength,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution orchestrator: %w", err)
	}

	repo, err := a.snapshotRepository()
	if err != nil {
		return nil, err
	}

	cacheable, err := cfg.CacheableTypes()
	if err != nil {
		return nil, err
	}
	a.builder, err = cachebuilder.New(&cachebuilder.Config{
		Store:           store,
		Repository:      repo,
		Cache:           a.cache,
		EventBus:        a.events,
		ModuleVersion:   version,
		SystemVersion:   cfg.Cache.SystemVersion,
		CacheableTypes:  cacheable,
		CollectionTypes: cfg.Cache.CollectionTypes,
		Concurrency:     cfg.Cache.Concurrency,
		HostTimeout:     cfg.Cache.HostTimeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache builder: %w", err)
	}

	a.generator, err = character.New(&character.Config{Resolver: a.resolver})
	if err != nil {
		return nil, fmt.Errorf("failed to create character orchestrator: %w", err)
	}

	a.handler, err = v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		Resolver:           a.resolver,
		CacheBuilder:       a.builder,
		CharacterGenerator: a.generator,
		GMToken:            cfg.Server.GMToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handler: %w", err)
	}
	return a, nil
}

func (a *app) snapshotRepository() (snapshot.Repository, error) {
	switch a.cfg.Snapshot.Backend {
	case config.BackendRedis:
		var (
			client redisclient.Client
			err    error
		)
		// a comma separated address list selects cluster mode
		if addrs := strings.Split(a.cfg.Snapshot.RedisAddr, ","); len(addrs) > 1 {
			client, err = redisclient.NewClusterClient(addrs, &redisclient.Options{})
		} else {
			client, err = redisclient.NewClient(a.cfg.Snapshot.RedisAddr, &redisclient.Options{})
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return snapshot.NewRedis(&snapshot.RedisConfig{Client: client, Key: a.cfg.Snapshot.RedisKey})
	default:
		repo, err := snapshot.NewFile(&snapshot.FileConfig{Path: a.cfg.Snapshot.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot file store: %w", err)
		}
		a.snapshotFile = repo.Path()
		return repo, nil
	}
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		_ = closeFn() // nolint:errcheck // best effort on shutdown
	}
}
