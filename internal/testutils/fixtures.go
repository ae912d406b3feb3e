package testutils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

// Unpriced marks a fixture document without a price
const Unpriced = -1

// TestAliasGroups is the alias table used by engine tests
var TestAliasGroups = [][]string{
	{"arrows", "стрелы"},
	{"half plate", "half-plate", "полулаты"},
	{"sword", "меч"},
	{"longsword", "long sword", "длинный меч"},
	{"rope", "веревка"},
}

// CreateTestNormalizer builds a normalizer with TestAliasGroups
func CreateTestNormalizer(t *testing.T) *search.Normalizer {
	t.Helper()
	n, err := search.NewNormalizer(&search.Config{AliasGroups: TestAliasGroups})
	require.NoError(t, err, "failed to create normalizer")
	return n
}

// CreateTestDocument creates a document priced in copper, or unpriced when
// copper is Unpriced
func CreateTestDocument(id string, kind compendium.DocumentType, name string, copper int) *compendium.Document {
	doc := &compendium.Document{ID: id, Type: kind, Name: name}
	if copper != Unpriced {
		doc.Attributes.Price = compendium.NewPrice(float64(copper), compendium.DenominationCopper)
	}
	return doc
}

// CreateTestPack wraps documents in a pack snapshot with matching entries
func CreateTestPack(label string, docs ...*compendium.Document) *compendium.PackSnapshot {
	pack := &compendium.PackSnapshot{
		Label:        label,
		DocumentType: "Item",
		Documents:    make(map[string]*compendium.Document, len(docs)),
	}
	for _, doc := range docs {
		pack.Entries = append(pack.Entries, doc.IndexEntry())
		pack.Documents[doc.ID] = doc
	}
	return pack
}

// CreateTestSnapshot assembles a snapshot with a derived packsByType
func CreateTestSnapshot(packs map[string]*compendium.PackSnapshot) *compendium.Snapshot {
	s := &compendium.Snapshot{
		CacheVersion: "test-1",
		Packs:        packs,
	}
	s.RefreshPacksByType()
	return s
}

// CreateTestArsenal is a small mixed snapshot: one weapons pack, one gear
// pack, one Cyrillic pack
func CreateTestArsenal() *compendium.Snapshot {
	return CreateTestSnapshot(map[string]*compendium.PackSnapshot{
		"weapons": CreateTestPack("Weapons",
			CreateTestDocument("w-dagger", compendium.TypeWeapon, "Dagger", 200),
			CreateTestDocument("w-longsword", compendium.TypeWeapon, "Longsword", 1500),
			CreateTestDocument("w-shortsword", compendium.TypeWeapon, "Shortsword", 1000),
		),
		"gear": CreateTestPack("Gear",
			CreateTestDocument("g-arrows", compendium.TypeConsumable, "Arrows (20)", 100),
			CreateTestDocument("g-rope", compendium.TypeLoot, "Rope, hempen (50 feet)", 100),
			CreateTestDocument("g-plate", compendium.TypeEquipment, "Half Plate", 75000),
		),
		"weapons-ru": CreateTestPack("Оружие",
			CreateTestDocument("r-sword", compendium.TypeWeapon, "Меч", 1000),
		),
	})
}
