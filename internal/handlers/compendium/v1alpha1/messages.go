package v1alpha1

import (
	"time"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

// BudgetSpec selects a spending tier
type BudgetSpec struct {
	Tier       string `json:"tier,omitempty"`
	AllowMagic bool   `json:"allowMagic,omitempty"`
}

// GroupSpec is a request group on the wire. Packs are chosen by the server
// from the allowed types.
type GroupSpec struct {
	Key                     string                     `json:"key"`
	References              []compendium.ItemReference `json:"references"`
	AllowedTypes            []string                   `json:"allowedTypes"`
	Keywords                []string                   `json:"keywords,omitempty"`
	Equip                   bool                       `json:"equip,omitempty"`
	EnsureFeatureActivities bool                       `json:"ensureFeatureActivities,omitempty"`
}

type ResolveItemRequest struct {
	Reference compendium.ItemReference `json:"reference"`
	Group     GroupSpec                `json:"group"`
	Budget    BudgetSpec               `json:"budget"`
}

type ResolveItemResponse struct {
	Found    bool                    `json:"found"`
	Result   *compendium.MatchResult `json:"result,omitempty"`
	Strategy compendium.Strategy     `json:"strategy"`
}

type ResolveRequestGroupsRequest struct {
	Groups         []GroupSpec `json:"groups"`
	Budget         BudgetSpec  `json:"budget"`
	Concurrency    int         `json:"concurrency,omitempty"`
	CollectDetails bool        `json:"collectDetails,omitempty"`
}

type ResolveRequestGroupsResponse struct {
	BatchID        string                   `json:"batchId"`
	Items          []*compendium.Document   `json:"items"`
	ResolvedCount  int                      `json:"resolvedCount"`
	MissingCount   int                      `json:"missingCount"`
	DuplicateCount int                      `json:"duplicateCount"`
	MatchDetails   []compendium.MatchDetail `json:"matchDetails,omitempty"`
}

type RebuildCacheRequest struct {
	CollectionNames []string `json:"collectionNames,omitempty"`
}

type CollectionError struct {
	Collection string `json:"collection"`
	Message    string `json:"message"`
}

type RebuildCacheResponse struct {
	BuildID      string            `json:"buildId"`
	CacheVersion string            `json:"cacheVersion"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	Packs        int               `json:"packs"`
	Documents    int               `json:"documents"`
	Errors       []CollectionError `json:"errors,omitempty"`
}

type KitSpec struct {
	Weapons     []compendium.ItemReference `json:"weapons,omitempty"`
	Armor       []compendium.ItemReference `json:"armor,omitempty"`
	Equipment   []compendium.ItemReference `json:"equipment,omitempty"`
	Consumables []compendium.ItemReference `json:"consumables,omitempty"`
	Loot        []compendium.ItemReference `json:"loot,omitempty"`
	Spells      []compendium.ItemReference `json:"spells,omitempty"`
	Features    []compendium.ItemReference `json:"features,omitempty"`
}

type GenerateCharacterRequest struct {
	Name   string     `json:"name"`
	Level  int        `json:"level,omitempty"`
	Budget BudgetSpec `json:"budget"`
	Method string     `json:"method,omitempty"`
	Kit    KitSpec    `json:"kit"`
}

type GenerateCharacterResponse struct {
	Character *compendium.Character         `json:"character"`
	Resolved  *ResolveRequestGroupsResponse `json:"resolved,omitempty"`
}
