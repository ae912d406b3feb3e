// Package v1alpha1 handles the compendium grpc service interface
package v1alpha1

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/matching"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
)

// Metadata keys identifying the caller
const (
	CallerIDHeader    = "x-compendium-caller"
	CallerRoleHeader  = "x-compendium-role"
	CallerTokenHeader = "x-compendium-token"
)

// HandlerConfig holds dependencies for the handler
type HandlerConfig struct {
	Resolver           compendiumsvc.Resolver
	CacheBuilder       compendiumsvc.CacheBuilder
	CharacterGenerator compendiumsvc.CharacterGenerator

	// GMToken, when set, must accompany the gm role header. Empty trusts the
	// role header as sent.
	GMToken string
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if c.Resolver == nil {
		vb.RequiredField("Resolver")
	}
	if c.CacheBuilder == nil {
		vb.RequiredField("CacheBuilder")
	}
	if c.CharacterGenerator == nil {
		vb.RequiredField("CharacterGenerator")
	}
	return vb.Build()
}

// Handler implements CompendiumServiceServer
type Handler struct {
	resolver  compendiumsvc.Resolver
	builder   compendiumsvc.CacheBuilder
	generator compendiumsvc.CharacterGenerator
	gmToken   string
}

var _ CompendiumServiceServer = (*Handler)(nil)

// NewHandler creates a new handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		resolver:  cfg.Resolver,
		builder:   cfg.CacheBuilder,
		generator: cfg.CharacterGenerator,
		gmToken:   cfg.GMToken,
	}, nil
}

// ResolveItem resolves one reference
func (h *Handler) ResolveItem(ctx context.Context, req *ResolveItemRequest) (*ResolveItemResponse, error) {
	b, err := toBudget(req.Budget)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	group, err := toGroup(req.Group)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.resolver.ResolveItem(ctx, &compendiumsvc.ResolveItemInput{
		Reference: req.Reference,
		Group:     group,
		Budget:    b,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	return &ResolveItemResponse{
		Found:    out.Result != nil,
		Result:   out.Result,
		Strategy: out.Strategy,
	}, nil
}

// ResolveRequestGroups resolves a batch of groups
func (h *Handler) ResolveRequestGroups(
	ctx context.Context,
	req *ResolveRequestGroupsRequest,
) (*ResolveRequestGroupsResponse, error) {
	if len(req.Groups) == 0 {
		return nil, errors.ToGRPCError(errors.InvalidArgument("groups are required"))
	}
	b, err := toBudget(req.Budget)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	groups := make([]*matching.Group, 0, len(req.Groups))
	for _, spec := range req.Groups {
		g, err := toGroup(spec)
		if err != nil {
			return nil, errors.ToGRPCError(err)
		}
		groups = append(groups, g)
	}

	out, err := h.resolver.ResolveRequestGroups(ctx, &compendiumsvc.ResolveRequestGroupsInput{
		Groups:         groups,
		Budget:         b,
		Concurrency:    req.Concurrency,
		CollectDetails: req.CollectDetails,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}
	return fromBatch(out), nil
}

// RebuildCache rebuilds the compendium snapshot. Only GM callers may do so.
func (h *Handler) RebuildCache(ctx context.Context, req *RebuildCacheRequest) (*RebuildCacheResponse, error) {
	out, err := h.builder.RebuildCache(ctx, &compendiumsvc.RebuildCacheInput{
		Caller:          h.caller(ctx),
		CollectionNames: req.CollectionNames,
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	resp := &RebuildCacheResponse{BuildID: out.BuildID}
	if s := out.Snapshot; s != nil {
		resp.CacheVersion = s.CacheVersion
		resp.GeneratedAt = s.GeneratedAt
		resp.Packs = len(s.Packs)
		resp.Documents = s.DocumentCount()
	}
	for _, e := range out.Errors {
		resp.Errors = append(resp.Errors, CollectionError{Collection: e.Collection, Message: e.Message})
	}
	return resp, nil
}

// GenerateCharacter rolls a character and resolves its kit
func (h *Handler) GenerateCharacter(
	ctx context.Context,
	req *GenerateCharacterRequest,
) (*GenerateCharacterResponse, error) {
	b, err := toBudget(req.Budget)
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	out, err := h.generator.GenerateCharacter(ctx, &compendiumsvc.GenerateCharacterInput{
		Name:   req.Name,
		Level:  req.Level,
		Budget: b,
		Method: compendiumsvc.AbilityMethod(req.Method),
		Kit: compendiumsvc.Kit{
			Weapons:     req.Kit.Weapons,
			Armor:       req.Kit.Armor,
			Equipment:   req.Kit.Equipment,
			Consumables: req.Kit.Consumables,
			Loot:        req.Kit.Loot,
			Spells:      req.Kit.Spells,
			Features:    req.Kit.Features,
		},
	})
	if err != nil {
		return nil, errors.ToGRPCError(err)
	}

	resp := &GenerateCharacterResponse{Character: out.Character}
	if out.Resolved != nil {
		resp.Resolved = fromBatch(out.Resolved)
	}
	return resp, nil
}

// CallerFromContext reads the caller identity from incoming metadata.
// Anything other than the gm role is a player.
func CallerFromContext(ctx context.Context) compendiumsvc.Caller {
	caller := compendiumsvc.Caller{Role: compendiumsvc.RolePlayer}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return caller
	}
	if v := md.Get(CallerIDHeader); len(v) > 0 {
		caller.ID = v[0]
	}
	if v := md.Get(CallerRoleHeader); len(v) > 0 && strings.EqualFold(strings.TrimSpace(v[0]), string(compendiumsvc.RoleGM)) {
		caller.Role = compendiumsvc.RoleGM
	}
	return caller
}

func toBudget(spec BudgetSpec) (compendium.Budget, error) {
	tier, err := compendium.ParseBudgetTier(spec.Tier)
	if err != nil {
		return compendium.Budget{}, errors.InvalidArgument(err.Error())
	}
	return compendium.Budget{Tier: tier, AllowMagic: spec.AllowMagic}, nil
}

func toGroup(spec GroupSpec) (*matching.Group, error) {
	if len(spec.AllowedTypes) == 0 {
		return nil, errors.InvalidArgumentf("group %q has no allowed types", spec.Key)
	}
	types := make([]compendium.DocumentType, 0, len(spec.AllowedTypes))
	for _, name := range spec.AllowedTypes {
		t, ok := compendium.ParseDocumentType(name)
		if !ok {
			return nil, errors.InvalidArgumentf("group %q: unknown document type %q", spec.Key, name)
		}
		types = append(types, t)
	}
	return &matching.Group{
		Key:                     spec.Key,
		References:              spec.References,
		AllowedTypes:            types,
		Keywords:                spec.Keywords,
		Equip:                   spec.Equip,
		EnsureFeatureActivities: spec.EnsureFeatureActivities,
	}, nil
}

func fromBatch(out *compendiumsvc.ResolveRequestGroupsOutput) *ResolveRequestGroupsResponse {
	items := out.Items
	if items == nil {
		items = []*compendium.Document{}
	}
	return &ResolveRequestGroupsResponse{
		BatchID:        out.BatchID,
		Items:          items,
		ResolvedCount:  out.ResolvedCount,
		MissingCount:   out.MissingCount,
		DuplicateCount: out.DuplicateCount,
		MatchDetails:   out.MatchDetails,
	}
}

// caller reads the caller and drops a gm claim that lacks the configured token
func (h *Handler) caller(ctx context.Context) compendiumsvc.Caller {
	caller := CallerFromContext(ctx)
	if !caller.IsGM() || h.gmToken == "" {
		return caller
	}
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(CallerTokenHeader); len(v) > 0 &&
		subtle.ConstantTimeCompare([]byte(v[0]), []byte(h.gmToken)) == 1 {
		return caller
	}
	slog.Warn("GM role claimed without a valid token", "caller", caller.ID)
	caller.Role = compendiumsvc.RolePlayer
	return caller
}
