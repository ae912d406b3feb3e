// Package character generates a character: rolled ability scores plus a kit
// resolved against the compendium within the character's budget.
package character

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/matching"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
)

const (
	minLevel = 1
	maxLevel = 20
)

// Config holds the dependencies for the character orchestrator
type Config struct {
	Resolver compendiumsvc.Resolver
	Roller   dice.Roller
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if c.Resolver == nil {
		vb.RequiredField("Resolver")
	}
	if c.Roller == nil {
		c.Roller = dice.DefaultRoller
	}
	return vb.Build()
}

// Orchestrator implements compendiumsvc.CharacterGenerator
type Orchestrator struct {
	resolver compendiumsvc.Resolver
	roller   dice.Roller
}

var _ compendiumsvc.CharacterGenerator = (*Orchestrator)(nil)

// New creates a new character orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Orchestrator{resolver: cfg.Resolver, roller: cfg.Roller}, nil
}

// kitSlot maps one kit category to the group it resolves through
type kitSlot struct {
	key   string
	refs  func(compendiumsvc.Kit) []compendium.ItemReference
	types []compendium.DocumentType
	equip bool
	feats bool
}

var kitSlots = []kitSlot{
	{
		key:   "weapons",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Weapons },
		types: []compendium.DocumentType{compendium.TypeWeapon},
		equip: true,
	},
	{
		key:   "armor",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Armor },
		types: []compendium.DocumentType{compendium.TypeEquipment},
		equip: true,
	},
	{
		key:   "equipment",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Equipment },
		types: []compendium.DocumentType{compendium.TypeEquipment, compendium.TypeTool, compendium.TypeContainer},
	},
	{
		key:   "consumables",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Consumables },
		types: []compendium.DocumentType{compendium.TypeConsumable},
	},
	{
		key:   "loot",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Loot },
		types: []compendium.DocumentType{compendium.TypeLoot, compendium.TypeContainer},
	},
	{
		key:   "spells",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Spells },
		types: []compendium.DocumentType{compendium.TypeSpell},
	},
	{
		key:   "features",
		refs:  func(k compendiumsvc.Kit) []compendium.ItemReference { return k.Features },
		types: []compendium.DocumentType{compendium.TypeFeat},
		feats: true,
	},
}

// Groups turns a kit into resolution groups, skipping empty categories
func Groups(kit compendiumsvc.Kit) []*matching.Group {
	var groups []*matching.Group
	for _, slot := range kitSlots {
		refs := slot.refs(kit)
		if len(refs) == 0 {
			continue
		}
		groups = append(groups, &matching.Group{
			Key:                     slot.key,
			References:              refs,
			AllowedTypes:            slot.types,
			Equip:                   slot.equip,
			EnsureFeatureActivities: slot.feats,
		})
	}
	return groups
}

// GenerateCharacter rolls abilities and resolves the kit
func (o *Orchestrator) GenerateCharacter(
	ctx context.Context,
	input *compendiumsvc.GenerateCharacterInput,
) (*compendiumsvc.GenerateCharacterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	vb := errors.NewValidationBuilder()
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vb.RequiredField("Name")
	}
	level := input.Level
	if level == 0 {
		level = minLevel
	}
	if level < minLevel || level > maxLevel {
		vb.Fieldf("Level", "must be between %d and %d", minLevel, maxLevel)
	}
	method := input.Method
	if method == "" {
		method = compendiumsvc.MethodFourDropLowest
	}
	if method != compendiumsvc.MethodFourDropLowest && method != compendiumsvc.MethodThreeD6 {
		vb.InvalidField("Method", string(method))
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	abilities, err := o.rollAbilities(method)
	if err != nil {
		return nil, err
	}

	character := &compendium.Character{
		Name:      name,
		Level:     level,
		Abilities: abilities,
	}

	var resolved *compendiumsvc.ResolveRequestGroupsOutput
	if groups := Groups(input.Kit); len(groups) > 0 {
		resolved, err = o.resolver.ResolveRequestGroups(ctx, &compendiumsvc.ResolveRequestGroupsInput{
			Groups:         groups,
			Budget:         input.Budget,
			CollectDetails: true,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve kit")
		}
		character.Items = resolved.Items
	}

	slog.Info("Generated character",
		"name", name,
		"level", level,
		"method", method,
		"budget", input.Budget.Tier,
		"items", len(character.Items))

	return &compendiumsvc.GenerateCharacterOutput{Character: character, Resolved: resolved}, nil
}

func (o *Orchestrator) rollAbilities(method compendiumsvc.AbilityMethod) (map[compendium.Ability]int, error) {
	scores := make(map[compendium.Ability]int, len(compendium.Abilities))
	for _, ability := range compendium.Abilities {
		score, err := o.rollScore(method)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to roll %s", ability)
		}
		scores[ability] = score
	}
	return scores, nil
}

// rollScore sums 3d6, or the best three of 4d6
func (o *Orchestrator) rollScore(method compendiumsvc.AbilityMethod) (int, error) {
	count := 3
	if method == compendiumsvc.MethodFourDropLowest {
		count = 4
	}

	rolls, err := o.roller.RollN(count, 6)
	if err != nil {
		return 0, err
	}
	if len(rolls) < 3 {
		return 0, errors.Internalf("roller returned %d dice, want %d", len(rolls), count)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rolls)))

	total := 0
	for _, r := range rolls[:3] {
		total += r
	}
	return total, nil
}
