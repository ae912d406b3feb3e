package cachebuilder_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/rpg-compendium/internal/clients/hoststore"
	hoststoremock "github.com/KirkDiggler/rpg-compendium/internal/clients/hoststore/mock"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/collectioncache"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	"github.com/KirkDiggler/rpg-compendium/internal/orchestrators/cachebuilder"
	"github.com/KirkDiggler/rpg-compendium/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-compendium/internal/pkg/idgen"
	"github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot"
	snapshotmock "github.com/KirkDiggler/rpg-compendium/internal/repositories/snapshot/mock"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/testutils"
)

var (
	gm      = compendiumsvc.Caller{ID: "dm-1", Role: compendiumsvc.RoleGM}
	player  = compendiumsvc.Caller{ID: "pc-1", Role: compendiumsvc.RolePlayer}
	builtAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	mockRepo *snapshotmock.MockRepository
	store    *hoststore.Memory
	manager  *collectioncache.Manager
	builder  *cachebuilder.Orchestrator
	ctx      context.Context
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRepo = snapshotmock.NewMockRepository(s.ctrl)
	s.ctx = context.Background()

	s.store = hoststore.NewMemory()
	s.store.AddCollection(
		compendium.Collection{Name: "weapons", Title: "Weapons", DocumentType: "Item"},
		testutils.CreateTestDocument("w-dagger", compendium.TypeWeapon, "Dagger", 200),
		testutils.CreateTestDocument("w-club", compendium.TypeWeapon, "Club", 10),
	)
	s.store.AddCollection(
		compendium.Collection{Name: "gear", Title: "Gear", DocumentType: "Item"},
		testutils.CreateTestDocument("g-rope", compendium.TypeLoot, "Rope", 100),
		testutils.CreateTestDocument("g-rage", compendium.TypeFeat, "Rage", testutils.Unpriced),
	)
	s.store.AddCollection(
		compendium.Collection{Name: "monsters", Title: "Monsters", DocumentType: "Actor"},
		testutils.CreateTestDocument("m-goblin", compendium.TypeLoot, "Goblin", testutils.Unpriced),
	)

	manager, err := collectioncache.NewManager(&collectioncache.Config{
		Normalizer: testutils.CreateTestNormalizer(s.T()),
	})
	s.Require().NoError(err)
	s.manager = manager

	s.builder = s.newBuilder(s.store)
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorTestSuite) newBuilder(store hoststore.Store) *cachebuilder.Orchestrator {
	builder, err := cachebuilder.New(&cachebuilder.Config{
		Store:          store,
		Repository:     s.mockRepo,
		Cache:          s.manager,
		Clock:          &clock.Fixed{At: builtAt},
		IDGenerator:    idgen.NewSequential("build"),
		ModuleVersion:  "1.2.0",
		SystemVersion:  "srd-5.1",
		CacheableTypes: []compendium.DocumentType{compendium.TypeWeapon, compendium.TypeLoot},
	})
	s.Require().NoError(err)
	return builder
}

func (s *OrchestratorTestSuite) TestRejectsNonGMBeforeAnyWork() {
	// no expectations: any host or repository call fails the test
	builder := s.newBuilder(hoststoremock.NewMockStore(s.ctrl))

	_, err := builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{Caller: player})
	s.True(errors.IsPermissionDenied(err))
	s.Nil(s.manager.Snapshot())
}

func (s *OrchestratorTestSuite) TestDefaultsToItemCollections() {
	var saved *compendium.Snapshot
	s.mockRepo.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input *snapshot.SaveInput) (*snapshot.SaveOutput, error) {
			saved = input.Snapshot
			return &snapshot.SaveOutput{Bytes: 1}, nil
		})

	out, err := s.builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{Caller: gm})
	s.Require().NoError(err)

	s.Equal("build_1", out.BuildID)
	s.Empty(out.Errors)
	s.Len(out.Snapshot.Packs, 2)
	s.NotContains(out.Snapshot.Packs, "monsters")
	s.Equal("1.2.0-srd-5.1-2", out.Snapshot.CacheVersion)
	s.True(builtAt.Equal(out.Snapshot.GeneratedAt))

	gear := out.Snapshot.Packs["gear"]
	s.Equal("Gear", gear.Label)
	s.Len(gear.Entries, 1, "feats are not cacheable here")
	s.Contains(gear.Documents, "g-rope")

	s.Equal([]string{"weapons"}, out.Snapshot.PacksByType["weapon"])
	s.Same(out.Snapshot, saved)
	s.Same(out.Snapshot, s.manager.Snapshot())
	s.Equal(uint64(1), s.manager.Generation())
}

func (s *OrchestratorTestSuite) TestReportsPerCollectionErrors() {
	s.mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(&snapshot.SaveOutput{}, nil)

	out, err := s.builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{
		Caller:          gm,
		CollectionNames: []string{"weapons", " weapons ", "homebrew"},
	})
	s.Require().NoError(err)

	s.Len(out.Snapshot.Packs, 1)
	s.Require().Len(out.Errors, 1)
	s.Equal("homebrew", out.Errors[0].Collection)
	s.Equal("1.2.0-srd-5.1-1", out.Snapshot.CacheVersion)
}

func (s *OrchestratorTestSuite) TestProgressMilestones() {
	store := hoststore.NewMemory()
	for i := 0; i < 10; i++ {
		store.AddCollection(
			compendium.Collection{Name: fmt.Sprintf("pack-%02d", i), DocumentType: "Item"},
			testutils.CreateTestDocument(fmt.Sprintf("d-%d", i), compendium.TypeLoot, fmt.Sprintf("Thing %d", i), 5),
		)
	}
	s.mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(&snapshot.SaveOutput{}, nil)

	var reported []int
	out, err := s.newBuilder(store).RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{
		Caller: gm,
		Progress: func(done, total int) {
			s.Equal(10, total)
			reported = append(reported, done)
		},
	})
	s.Require().NoError(err)
	s.Len(out.Snapshot.Packs, 10)
	s.Equal([]int{2, 4, 6, 8, 10}, reported)
}

func (s *OrchestratorTestSuite) TestPublishesRebuildEvents() {
	store := hoststore.NewMemory()
	for i := 0; i < 5; i++ {
		store.AddCollection(
			compendium.Collection{Name: fmt.Sprintf("pack-%02d", i), DocumentType: "Item"},
			testutils.CreateTestDocument(fmt.Sprintf("d-%d", i), compendium.TypeLoot, fmt.Sprintf("Thing %d", i), 5),
		)
	}
	s.mockRepo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(&snapshot.SaveOutput{}, nil)

	bus := events.NewBus()
	var progress []int
	var rebuilt []events.Event
	bus.SubscribeFunc(cachebuilder.EventCacheProgress, 0, func(_ context.Context, e events.Event) error {
		done, ok := e.Context().Get(cachebuilder.KeyDone)
		s.Require().True(ok)
		progress = append(progress, done.(int))
		return nil
	})
	bus.SubscribeFunc(cachebuilder.EventCacheRebuilt, 0, func(_ context.Context, e events.Event) error {
		rebuilt = append(rebuilt, e)
		return nil
	})

	builder, err := cachebuilder.New(&cachebuilder.Config{
		Store:          store,
		Repository:     s.mockRepo,
		Cache:          s.manager,
		Clock:          &clock.Fixed{At: builtAt},
		IDGenerator:    idgen.NewSequential("build"),
		EventBus:       bus,
		ModuleVersion:  "1.2.0",
		SystemVersion:  "srd-5.1",
		CacheableTypes: []compendium.DocumentType{compendium.TypeLoot},
	})
	s.Require().NoError(err)

	out, err := builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{Caller: gm})
	s.Require().NoError(err)

	s.Equal([]int{1, 2, 3, 4, 5}, progress)
	s.Require().Len(rebuilt, 1)
	s.Equal(out.BuildID, rebuilt[0].Source().GetID())
	version, _ := rebuilt[0].Context().Get(cachebuilder.KeyCacheVersion)
	s.Equal(out.Snapshot.CacheVersion, version)
	documents, _ := rebuilt[0].Context().Get(cachebuilder.KeyDocuments)
	s.Equal(5, documents)
}

func (s *OrchestratorTestSuite) TestRejectedRebuildPublishesNothing() {
	bus := events.NewBus()
	published := 0
	for _, eventType := range []string{cachebuilder.EventCacheProgress, cachebuilder.EventCacheRebuilt} {
		bus.SubscribeFunc(eventType, 0, func(_ context.Context, _ events.Event) error {
			published++
			return nil
		})
	}
	builder, err := cachebuilder.New(&cachebuilder.Config{
		Store:      hoststoremock.NewMockStore(s.ctrl),
		Repository: s.mockRepo,
		Cache:      s.manager,
		EventBus:   bus,
	})
	s.Require().NoError(err)

	_, err = builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{Caller: player})
	s.True(errors.IsPermissionDenied(err))
	s.Zero(published)
}

func (s *OrchestratorTestSuite) TestNothingCachedKeepsPreviousSnapshot() {
	previous := testutils.CreateTestArsenal()
	s.manager.SetSnapshot(previous)

	_, err := s.builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{
		Caller:          gm,
		CollectionNames: []string{"homebrew"},
	})
	s.True(errors.IsUnavailable(err))
	s.Same(previous, s.manager.Snapshot())
}

func (s *OrchestratorTestSuite) TestSaveFailureDoesNotInstall() {
	s.mockRepo.EXPECT().
		Save(gomock.Any(), gomock.Any()).
		Return(nil, errors.Unavailable("redis down"))

	_, err := s.builder.RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{Caller: gm})
	s.True(errors.IsUnavailable(err))
	s.Nil(s.manager.Snapshot())
}

func (s *OrchestratorTestSuite) TestHostListFailure() {
	mockStore := hoststoremock.NewMockStore(s.ctrl)
	mockStore.EXPECT().ListCollections(gomock.Any()).Return(nil, errors.Unavailable("host offline"))

	_, err := s.newBuilder(mockStore).RebuildCache(s.ctx, &compendiumsvc.RebuildCacheInput{Caller: gm})
	s.True(errors.IsUnavailable(err))
}

func (s *OrchestratorTestSuite) TestCacheVersion() {
	s.Equal("dev-unknown-0", cachebuilder.CacheVersion("dev", "unknown", 0))
}

func (s *OrchestratorTestSuite) TestLoadSnapshotInstalls() {
	persisted := testutils.CreateTestArsenal()
	s.mockRepo.EXPECT().
		Load(gomock.Any(), gomock.Any()).
		Return(&snapshot.LoadOutput{
			Snapshot: persisted,
			Report:   &snapshot.Report{Warnings: []string{"generatedAt: missing"}},
		}, nil)

	loaded, err := s.builder.LoadSnapshot(s.ctx)
	s.Require().NoError(err)
	s.Same(persisted, loaded)
	s.Same(persisted, s.manager.Snapshot())
}

func (s *OrchestratorTestSuite) TestLoadSnapshotNothingPersisted() {
	s.mockRepo.EXPECT().
		Load(gomock.Any(), gomock.Any()).
		Return(nil, errors.NotFound("no snapshot"))

	loaded, err := s.builder.LoadSnapshot(s.ctx)
	s.NoError(err)
	s.Nil(loaded)
	s.Nil(s.manager.Snapshot())
}

func (s *OrchestratorTestSuite) TestLoadSnapshotCorrupt() {
	s.mockRepo.EXPECT().
		Load(gomock.Any(), gomock.Any()).
		Return(nil, errors.DataLoss("not a json object"))

	_, err := s.builder.LoadSnapshot(s.ctx)
	s.True(errors.IsDataLoss(err))
}
