package compendium_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

func TestDocumentCloneIsDeep(t *testing.T) {
	original := &compendium.Document{
		ID:   "rage",
		Type: compendium.TypeFeat,
		Name: "Rage",
		Attributes: compendium.Attributes{
			Price:      compendium.NewPrice(1, compendium.DenominationGold),
			Properties: []string{"bonus"},
			Activities: []compendium.Activity{{Type: "utility", Activation: "bonus"}},
			Extra:      map[string]string{"class": "barbarian"},
		},
	}

	clone := original.Clone()
	clone.Attributes.Price.Amount = 99
	clone.Attributes.Properties[0] = "changed"
	clone.Attributes.Activities[0].Type = "changed"
	clone.Attributes.Extra["class"] = "changed"

	assert.Equal(t, float64(1), original.Attributes.Price.Amount)
	assert.Equal(t, "bonus", original.Attributes.Properties[0])
	assert.Equal(t, "utility", original.Attributes.Activities[0].Type)
	assert.Equal(t, "barbarian", original.Attributes.Extra["class"])
}

func TestDocumentIsMagical(t *testing.T) {
	testCases := []struct {
		name     string
		attrs    compendium.Attributes
		expected bool
	}{
		{name: "plain", attrs: compendium.Attributes{}, expected: false},
		{name: "common rarity", attrs: compendium.Attributes{Rarity: "Common"}, expected: false},
		{name: "rare rarity", attrs: compendium.Attributes{Rarity: "rare"}, expected: true},
		{name: "flagged", attrs: compendium.Attributes{Magical: true}, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := &compendium.Document{Attributes: tc.attrs}
			assert.Equal(t, tc.expected, doc.IsMagical())
		})
	}
}

func TestNormalizeReferences(t *testing.T) {
	refs := []compendium.ItemReference{
		{Name: "  Long   Sword "},
		{Name: "long sword", Lookup: "Longsword"},
		{Name: "", Lookup: "  "},
		{Name: "", Lookup: "Rope"},
		{Name: "Dagger", Lookup: "dagger"},
		{Name: strings.Repeat("x", 200)},
	}

	out := compendium.NormalizeReferences(refs, 0)
	require.Len(t, out, 4)
	assert.Equal(t, compendium.ItemReference{Name: "Long Sword"}, out[0])
	assert.Equal(t, compendium.ItemReference{Lookup: "Rope"}, out[1])
	assert.Equal(t, compendium.ItemReference{Name: "Dagger"}, out[2])
	assert.Len(t, []rune(out[3].Name), compendium.MaxReferenceLength)
}

func TestDerivePacksByType(t *testing.T) {
	snapshot := &compendium.Snapshot{
		Packs: map[string]*compendium.PackSnapshot{
			"b-weapons": {Entries: []compendium.IndexEntry{{ID: "1", Type: compendium.TypeWeapon}}},
			"a-mixed": {Entries: []compendium.IndexEntry{
				{ID: "2", Type: compendium.TypeWeapon},
				{ID: "3", Type: compendium.TypeLoot},
			}},
		},
	}

	snapshot.RefreshPacksByType()
	assert.Equal(t, []string{"a-mixed", "b-weapons"}, snapshot.PacksByType["weapon"])
	assert.Equal(t, []string{"a-mixed"}, snapshot.PacksByType["loot"])
}

func TestParseBudgetTier(t *testing.T) {
	tier, err := compendium.ParseBudgetTier("")
	require.NoError(t, err)
	assert.Equal(t, compendium.BudgetNormal, tier)

	tier, err = compendium.ParseBudgetTier(" Elite ")
	require.NoError(t, err)
	assert.Equal(t, compendium.BudgetElite, tier)

	_, err = compendium.ParseBudgetTier("royal")
	assert.Error(t, err)
}
