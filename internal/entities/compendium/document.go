// Package compendium holds the data model shared by the lookup engine,
// the resolution pipeline and the cache builder.
package compendium

import (
	"strings"

	"github.com/KirkDiggler/rpg-toolkit/core"
)

// DocumentType is the kind of a compendium document
type DocumentType string

// Document types
const (
	TypeWeapon     DocumentType = "weapon"
	TypeEquipment  DocumentType = "equipment"
	TypeTool       DocumentType = "tool"
	TypeLoot       DocumentType = "loot"
	TypeConsumable DocumentType = "consumable"
	TypeContainer  DocumentType = "container"
	TypeFeat       DocumentType = "feat"
	TypeSpell      DocumentType = "spell"
)

// AllTypes lists every known document type
var AllTypes = []DocumentType{
	TypeWeapon, TypeEquipment, TypeTool, TypeLoot,
	TypeConsumable, TypeContainer, TypeFeat, TypeSpell,
}

// ParseDocumentType returns the type for s, false if unknown
func ParseDocumentType(s string) (DocumentType, bool) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Activity is ability-activation data carried by feats and spells
type Activity struct {
	Type       string `json:"type"`
	Activation string `json:"activation"`
	Uses       int    `json:"uses,omitempty"`
	Recovery   string `json:"recovery,omitempty"`
}

// Attributes is the nested attribute bag of a document
type Attributes struct {
	Price      *Price            `json:"price,omitempty"`
	Rarity     string            `json:"rarity,omitempty"`
	Magical    bool              `json:"magical,omitempty"`
	Equipped   bool              `json:"equipped,omitempty"`
	Proficient bool              `json:"proficient,omitempty"`
	Quantity   int               `json:"quantity,omitempty"`
	Weight     float64           `json:"weight,omitempty"`
	Category   string            `json:"category,omitempty"`
	Level      int               `json:"level,omitempty"`
	Properties []string          `json:"properties,omitempty"`
	Activities []Activity        `json:"activities,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Document is an immutable compendium record owned by its collection.
// Consumers call Clone before changing anything.
type Document struct {
	ID         string       `json:"id"`
	Type       DocumentType `json:"type"`
	Name       string       `json:"name"`
	Attributes Attributes   `json:"attributes"`
}

var _ core.Entity = (*Document)(nil)

// GetID returns the document id
func (d *Document) GetID() string {
	return d.ID
}

// GetType returns the document type as an entity type
func (d *Document) GetType() string {
	return string(d.Type)
}

// IsMagical reports whether the document is flagged magical or has a
// rarity above common
func (d *Document) IsMagical() bool {
	if d == nil {
		return false
	}
	if d.Attributes.Magical {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(d.Attributes.Rarity)) {
	case "", "common", "mundane", "none":
		return false
	default:
		return true
	}
}

// PriceCopper returns the copper-equivalent price
func (d *Document) PriceCopper() (int, bool) {
	if d == nil {
		return 0, false
	}
	return d.Attributes.Price.Copper()
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	c := *d
	c.Attributes.Price = d.Attributes.Price.Clone()
	if d.Attributes.Properties != nil {
		c.Attributes.Properties = append([]string(nil), d.Attributes.Properties...)
	}
	if d.Attributes.Activities != nil {
		c.Attributes.Activities = append([]Activity(nil), d.Attributes.Activities...)
	}
	if d.Attributes.Extra != nil {
		c.Attributes.Extra = make(map[string]string, len(d.Attributes.Extra))
		for k, v := range d.Attributes.Extra {
			c.Attributes.Extra[k] = v
		}
	}
	return &c
}

// IndexEntry is the cheap projection of a document
type IndexEntry struct {
	ID     string       `json:"id"`
	Type   DocumentType `json:"type"`
	Name   string       `json:"name"`
	Price  *Price       `json:"price,omitempty"`
	Rarity string       `json:"rarity,omitempty"`
}

// IndexEntry projects the document
func (d *Document) IndexEntry() IndexEntry {
	return IndexEntry{
		ID:     d.ID,
		Type:   d.Type,
		Name:   d.Name,
		Price:  d.Attributes.Price.Clone(),
		Rarity: d.Attributes.Rarity,
	}
}

// Collection describes a named pack in the host store
type Collection struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	DocumentType string `json:"documentType"`
	SystemID     string `json:"systemId,omitempty"`
}
