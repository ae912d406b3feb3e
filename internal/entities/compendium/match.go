package compendium

import (
	"fmt"
	"strings"
)

// Strategy names the matching layer that produced (or last attempted) a match
type Strategy string

// Matching strategies, in the order the engine attempts them
const (
	StrategyNone            Strategy = ""
	StrategyCachedLocalized Strategy = "cached-localized"
	StrategyExactPackName   Strategy = "exact-pack-name"
	StrategyCachedExactName Strategy = "cached-exact-name"
	StrategyCachedKeywords  Strategy = "cached-keywords"
	StrategyFuzzyKeywords   Strategy = "fuzzy-keywords"
)

// MatchMeta is the provenance of a match
type MatchMeta struct {
	MatchedName string       `json:"matchedName"`
	MatchedType DocumentType `json:"matchedType"`
	MatchedPack string       `json:"matchedPack"`
	Strategy    Strategy     `json:"strategy"`
}

// MatchResult is a resolved, cloned document with its provenance
type MatchResult struct {
	Item *Document `json:"item"`
	Meta MatchMeta `json:"meta"`
}

// BudgetTier is a named monetary bracket
type BudgetTier string

// Budget tiers
const (
	BudgetPoor   BudgetTier = "poor"
	BudgetNormal BudgetTier = "normal"
	BudgetWell   BudgetTier = "well"
	BudgetElite  BudgetTier = "elite"
)

// BudgetTiers lists the tiers from cheapest to richest
var BudgetTiers = []BudgetTier{BudgetPoor, BudgetNormal, BudgetWell, BudgetElite}

// ParseBudgetTier parses a tier name; empty means normal
func ParseBudgetTier(s string) (BudgetTier, error) {
	switch t := BudgetTier(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return BudgetNormal, nil
	case BudgetPoor, BudgetNormal, BudgetWell, BudgetElite:
		return t, nil
	default:
		return "", fmt.Errorf("unknown budget tier %q", s)
	}
}

// PriceRange is an inclusive copper range
type PriceRange struct {
	Min int `json:"min" toml:"min"`
	Max int `json:"max" toml:"max"`
}

// Contains reports whether copper lies inside the range
func (r PriceRange) Contains(copper int) bool {
	return copper >= r.Min && copper <= r.Max
}

// Distance is how far copper lies outside the range (0 when inside)
func (r PriceRange) Distance(copper int) int {
	switch {
	case copper < r.Min:
		return r.Min - copper
	case copper > r.Max:
		return copper - r.Max
	default:
		return 0
	}
}

// Budget is the monetary constraint of one resolution call
type Budget struct {
	Tier       BudgetTier `json:"tier"`
	AllowMagic bool       `json:"allowMagic"`
}

// ResolutionStatus is the outcome of one reference in a batch
type ResolutionStatus string

// Resolution statuses
const (
	StatusResolved  ResolutionStatus = "resolved"
	StatusDuplicate ResolutionStatus = "duplicate"
	StatusMissing   ResolutionStatus = "missing"
)

// MatchDetail is the per-reference provenance record of a batch
type MatchDetail struct {
	GroupKey  string           `json:"groupKey"`
	Reference ItemReference    `json:"reference"`
	Status    ResolutionStatus `json:"status"`
	MatchMeta
}
