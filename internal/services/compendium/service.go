// Package compendium defines the operations exposed over the compendium API
package compendium

//go:generate mockgen -destination=mock/mock_service.go -package=compendiummock github.com/KirkDiggler/rpg-compendium/internal/services/compendium Resolver,CacheBuilder,CharacterGenerator

import (
	"context"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/matching"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

// Resolver turns item references into documents
type Resolver interface {
	ResolveItem(ctx context.Context, input *ResolveItemInput) (*ResolveItemOutput, error)
	ResolveRequestGroups(ctx context.Context, input *ResolveRequestGroupsInput) (*ResolveRequestGroupsOutput, error)
}

// CacheBuilder materializes host collections into a snapshot
type CacheBuilder interface {
	RebuildCache(ctx context.Context, input *RebuildCacheInput) (*RebuildCacheOutput, error)
}

// CharacterGenerator rolls a character and resolves its kit
type CharacterGenerator interface {
	GenerateCharacter(ctx context.Context, input *GenerateCharacterInput) (*GenerateCharacterOutput, error)
}

// Role is the privilege level of a caller
type Role string

// Caller roles
const (
	RolePlayer Role = "player"
	RoleGM     Role = "gm"
)

// Caller identifies who invoked an operation
type Caller struct {
	ID   string
	Role Role
}

// IsGM reports whether the caller holds game-master privileges
func (c Caller) IsGM() bool {
	return c.Role == RoleGM
}

// ResolveItemInput defines the request for resolving one reference
type ResolveItemInput struct {
	Reference compendium.ItemReference
	Group     *matching.Group
	Budget    compendium.Budget
}

// ResolveItemOutput defines the response for resolving one reference.
// Result is nil when nothing matched.
type ResolveItemOutput struct {
	Result   *compendium.MatchResult
	Strategy compendium.Strategy
}

// ResolveRequestGroupsInput defines the request for a batch resolution
type ResolveRequestGroupsInput struct {
	Groups []*matching.Group
	Budget compendium.Budget
	// Concurrency caps in-flight lookups; zero uses the configured default
	Concurrency int
	// CollectDetails records one MatchDetail per reference
	CollectDetails bool
}

// ResolveRequestGroupsOutput defines the response for a batch resolution.
// Items follow reference order across groups.
type ResolveRequestGroupsOutput struct {
	BatchID        string
	Items          []*compendium.Document
	ResolvedCount  int
	MissingCount   int
	DuplicateCount int
	MatchDetails   []compendium.MatchDetail
}

// Progress is called as collections finish during a rebuild
type Progress func(done, total int)

// RebuildCacheInput defines the request for rebuilding the snapshot
type RebuildCacheInput struct {
	Caller Caller
	// CollectionNames defaults to every item collection on the host
	CollectionNames []string
	Progress        Progress
}

// CollectionError is a collection that could not be cached
type CollectionError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

// RebuildCacheOutput defines the response for rebuilding the snapshot
type RebuildCacheOutput struct {
	BuildID  string
	Snapshot *compendium.Snapshot
	Errors   []CollectionError
}

// AbilityMethod selects how ability scores are rolled
type AbilityMethod string

// Ability score methods
const (
	MethodFourDropLowest AbilityMethod = "4d6-drop-lowest"
	MethodThreeD6        AbilityMethod = "3d6"
)

// Kit lists what a generated character should carry, by category
type Kit struct {
	Weapons     []compendium.ItemReference
	Armor       []compendium.ItemReference
	Equipment   []compendium.ItemReference
	Consumables []compendium.ItemReference
	Loot        []compendium.ItemReference
	Spells      []compendium.ItemReference
	Features    []compendium.ItemReference
}

// GenerateCharacterInput defines the request for generating a character
type GenerateCharacterInput struct {
	Name   string
	Level  int
	Budget compendium.Budget
	Method AbilityMethod
	Kit    Kit
}

// GenerateCharacterOutput defines the response for generating a character
type GenerateCharacterOutput struct {
	Character *compendium.Character
	Resolved  *ResolveRequestGroupsOutput
}
