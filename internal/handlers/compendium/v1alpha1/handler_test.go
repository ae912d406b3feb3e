package v1alpha1_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	v1alpha1 "github.com/KirkDiggler/rpg-compendium/internal/handlers/compendium/v1alpha1"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
	compendiummock "github.com/KirkDiggler/rpg-compendium/internal/services/compendium/mock"
	"github.com/KirkDiggler/rpg-compendium/internal/testutils"
)

type HandlerTestSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockResolver  *compendiummock.MockResolver
	mockBuilder   *compendiummock.MockCacheBuilder
	mockGenerator *compendiummock.MockCharacterGenerator
	handler       *v1alpha1.Handler
	ctx           context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockResolver = compendiummock.NewMockResolver(s.ctrl)
	s.mockBuilder = compendiummock.NewMockCacheBuilder(s.ctrl)
	s.mockGenerator = compendiummock.NewMockCharacterGenerator(s.ctrl)
	s.ctx = context.Background()

	handler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		Resolver:           s.mockResolver,
		CacheBuilder:       s.mockBuilder,
		CharacterGenerator: s.mockGenerator,
	})
	s.Require().NoError(err)
	s.handler = handler
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerTestSuite) TestNewHandlerRequiresServices() {
	_, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{})
	s.True(errors.IsInvalidArgument(err))
}

func (s *HandlerTestSuite) TestResolveItemConvertsRequest() {
	dagger := testutils.CreateTestDocument("w-dagger", compendium.TypeWeapon, "Dagger", 200)

	s.mockResolver.EXPECT().
		ResolveItem(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *compendiumsvc.ResolveItemInput) (*compendiumsvc.ResolveItemOutput, error) {
			s.Equal("Dagger", input.Reference.Name)
			s.Equal([]compendium.DocumentType{compendium.TypeWeapon}, input.Group.AllowedTypes)
			s.Equal(compendium.Budget{Tier: compendium.BudgetWell, AllowMagic: true}, input.Budget)
			return &compendiumsvc.ResolveItemOutput{
				Result:   &compendium.MatchResult{Item: dagger},
				Strategy: compendium.StrategyCachedExactName,
			}, nil
		})

	resp, err := s.handler.ResolveItem(s.ctx, &v1alpha1.ResolveItemRequest{
		Reference: compendium.ItemReference{Name: "Dagger"},
		Group:     v1alpha1.GroupSpec{Key: "weapons", AllowedTypes: []string{"Weapon"}},
		Budget:    v1alpha1.BudgetSpec{Tier: "well", AllowMagic: true},
	})
	s.Require().NoError(err)
	s.True(resp.Found)
	s.Equal(compendium.StrategyCachedExactName, resp.Strategy)
	s.Equal("w-dagger", resp.Result.Item.ID)
}

func (s *HandlerTestSuite) TestRejectsBadRequests() {
	testCases := []struct {
		name string
		req  *v1alpha1.ResolveItemRequest
	}{
		{
			name: "unknown tier",
			req: &v1alpha1.ResolveItemRequest{
				Reference: compendium.ItemReference{Name: "Dagger"},
				Group:     v1alpha1.GroupSpec{AllowedTypes: []string{"weapon"}},
				Budget:    v1alpha1.BudgetSpec{Tier: "royal"},
			},
		},
		{
			name: "no types",
			req:  &v1alpha1.ResolveItemRequest{Reference: compendium.ItemReference{Name: "Dagger"}},
		},
		{
			name: "unknown type",
			req: &v1alpha1.ResolveItemRequest{
				Reference: compendium.ItemReference{Name: "Dagger"},
				Group:     v1alpha1.GroupSpec{AllowedTypes: []string{"vehicle"}},
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// no resolver expectations: conversion fails first
			_, err := s.handler.ResolveItem(s.ctx, tc.req)
			s.Equal(codes.InvalidArgument, status.Code(err))
		})
	}
}

func (s *HandlerTestSuite) TestResolveRequestGroups() {
	s.mockResolver.EXPECT().
		ResolveRequestGroups(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *compendiumsvc.ResolveRequestGroupsInput) (*compendiumsvc.ResolveRequestGroupsOutput, error) {
			s.Len(input.Groups, 2)
			s.Equal(3, input.Concurrency)
			s.True(input.CollectDetails)
			s.Equal(compendium.BudgetNormal, input.Budget.Tier)
			return &compendiumsvc.ResolveRequestGroupsOutput{BatchID: "batch_1", MissingCount: 2}, nil
		})

	resp, err := s.handler.ResolveRequestGroups(s.ctx, &v1alpha1.ResolveRequestGroupsRequest{
		Groups: []v1alpha1.GroupSpec{
			{Key: "weapons", AllowedTypes: []string{"weapon"}, References: []compendium.ItemReference{{Name: "Bow"}}},
			{Key: "spells", AllowedTypes: []string{"spell"}, References: []compendium.ItemReference{{Name: "Light"}}},
		},
		Concurrency:    3,
		CollectDetails: true,
	})
	s.Require().NoError(err)
	s.Equal("batch_1", resp.BatchID)
	s.Equal(2, resp.MissingCount)
	s.NotNil(resp.Items)
}

func (s *HandlerTestSuite) TestResolveRequestGroupsMapsErrors() {
	s.mockResolver.EXPECT().
		ResolveRequestGroups(s.ctx, gomock.Any()).
		Return(nil, errors.InvalidArgument("concurrency must be positive"))

	_, err := s.handler.ResolveRequestGroups(s.ctx, &v1alpha1.ResolveRequestGroupsRequest{
		Groups:      []v1alpha1.GroupSpec{{Key: "loot", AllowedTypes: []string{"loot"}}},
		Concurrency: -1,
	})
	s.Equal(codes.InvalidArgument, status.Code(err))
}

func (s *HandlerTestSuite) TestRebuildCacheReadsRole() {
	ctx := metadata.NewIncomingContext(s.ctx, metadata.Pairs(
		v1alpha1.CallerIDHeader, "dm-1",
		v1alpha1.CallerRoleHeader, "GM",
	))
	arsenal := testutils.CreateTestArsenal()

	s.mockBuilder.EXPECT().
		RebuildCache(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *compendiumsvc.RebuildCacheInput) (*compendiumsvc.RebuildCacheOutput, error) {
			s.Equal(compendiumsvc.Caller{ID: "dm-1", Role: compendiumsvc.RoleGM}, input.Caller)
			s.Equal([]string{"gear"}, input.CollectionNames)
			return &compendiumsvc.RebuildCacheOutput{
				BuildID:  "build_1",
				Snapshot: arsenal,
				Errors:   []compendiumsvc.CollectionError{{Collection: "homebrew", Message: "not found"}},
			}, nil
		})

	resp, err := s.handler.RebuildCache(ctx, &v1alpha1.RebuildCacheRequest{CollectionNames: []string{"gear"}})
	s.Require().NoError(err)
	s.Equal("build_1", resp.BuildID)
	s.Equal(len(arsenal.Packs), resp.Packs)
	s.Equal(arsenal.DocumentCount(), resp.Documents)
	s.Equal([]v1alpha1.CollectionError{{Collection: "homebrew", Message: "not found"}}, resp.Errors)
}

func (s *HandlerTestSuite) TestCallerDefaultsToPlayer() {
	s.Equal(compendiumsvc.RolePlayer, v1alpha1.CallerFromContext(s.ctx).Role)

	ctx := metadata.NewIncomingContext(s.ctx, metadata.Pairs(v1alpha1.CallerRoleHeader, "admin"))
	s.Equal(compendiumsvc.RolePlayer, v1alpha1.CallerFromContext(ctx).Role)
}

func (s *HandlerTestSuite) TestRebuildCacheChecksGMToken() {
	handler, err := v1alpha1.NewHandler(&v1alpha1.HandlerConfig{
		Resolver:           s.mockResolver,
		CacheBuilder:       s.mockBuilder,
		CharacterGenerator: s.mockGenerator,
		GMToken:            "s3cret",
	})
	s.Require().NoError(err)

	testCases := []struct {
		name     string
		pairs    []string
		expected compendiumsvc.Role
	}{
		{
			name:     "matching token keeps gm",
			pairs:    []string{v1alpha1.CallerRoleHeader, "gm", v1alpha1.CallerTokenHeader, "s3cret"},
			expected: compendiumsvc.RoleGM,
		},
		{
			name:     "missing token demotes",
			pairs:    []string{v1alpha1.CallerRoleHeader, "gm"},
			expected: compendiumsvc.RolePlayer,
		},
		{
			name:     "wrong token demotes",
			pairs:    []string{v1alpha1.CallerRoleHeader, "gm", v1alpha1.CallerTokenHeader, "guess"},
			expected: compendiumsvc.RolePlayer,
		},
		{
			name:     "token alone is not gm",
			pairs:    []string{v1alpha1.CallerTokenHeader, "s3cret"},
			expected: compendiumsvc.RolePlayer,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			ctx := metadata.NewIncomingContext(s.ctx, metadata.Pairs(tc.pairs...))
			s.mockBuilder.EXPECT().
				RebuildCache(ctx, gomock.Any()).
				DoAndReturn(func(_ context.Context, input *compendiumsvc.RebuildCacheInput) (*compendiumsvc.RebuildCacheOutput, error) {
					s.Equal(tc.expected, input.Caller.Role)
					return &compendiumsvc.RebuildCacheOutput{BuildID: "build_1", Snapshot: testutils.CreateTestArsenal()}, nil
				})

			_, err := handler.RebuildCache(ctx, &v1alpha1.RebuildCacheRequest{})
			s.Require().NoError(err)
		})
	}
}

func (s *HandlerTestSuite) TestGenerateCharacter() {
	s.mockGenerator.EXPECT().
		GenerateCharacter(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input *compendiumsvc.GenerateCharacterInput) (*compendiumsvc.GenerateCharacterOutput, error) {
			s.Equal("Mira", input.Name)
			s.Equal(compendiumsvc.MethodThreeD6, input.Method)
			s.Equal([]compendium.ItemReference{{Name: "Longbow"}}, input.Kit.Weapons)
			return &compendiumsvc.GenerateCharacterOutput{
				Character: &compendium.Character{Name: "Mira", Level: 3},
				Resolved:  &compendiumsvc.ResolveRequestGroupsOutput{BatchID: "batch_9", ResolvedCount: 1},
			}, nil
		})

	resp, err := s.handler.GenerateCharacter(s.ctx, &v1alpha1.GenerateCharacterRequest{
		Name:   "Mira",
		Level:  3,
		Method: "3d6",
		Kit:    v1alpha1.KitSpec{Weapons: []compendium.ItemReference{{Name: "Longbow"}}},
	})
	s.Require().NoError(err)
	s.Equal("Mira", resp.Character.Name)
	s.Equal("batch_9", resp.Resolved.BatchID)
}

// Round trip through a real grpc server to cover the codec and descriptor
func (s *HandlerTestSuite) TestServesOverGRPC() {
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	v1alpha1.RegisterCompendiumServiceServer(server, s.handler)
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	defer conn.Close()

	s.mockBuilder.EXPECT().
		RebuildCache(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input *compendiumsvc.RebuildCacheInput) (*compendiumsvc.RebuildCacheOutput, error) {
			if !input.Caller.IsGM() {
				return nil, errors.PermissionDenied("gm only")
			}
			return &compendiumsvc.RebuildCacheOutput{BuildID: "build_2"}, nil
		}).
		Times(2)

	client := v1alpha1.NewClient(conn)

	_, err = client.RebuildCache(s.ctx, &v1alpha1.RebuildCacheRequest{})
	s.Equal(codes.PermissionDenied, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(s.ctx, v1alpha1.CallerRoleHeader, "gm")
	resp, err := client.RebuildCache(ctx, &v1alpha1.RebuildCacheRequest{})
	s.Require().NoError(err)
	s.Equal("build_2", resp.BuildID)
}
