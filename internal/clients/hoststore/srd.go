package hoststore

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"
	"github.com/fadedpez/dnd5e-api/entities"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// SRD collection names
const (
	CollectionWeapons         = "srd-weapons"
	CollectionArmor           = "srd-armor"
	CollectionAdventuringGear = "srd-adventuring-gear"
	CollectionTools           = "srd-tools"
	CollectionSpells          = "srd-spells"
	CollectionFeatures        = "srd-features"
)

// SRDSource is the subset of the dnd5e-api client the adapter needs.
// dnd5e.Interface satisfies it.
type SRDSource interface {
	GetEquipmentCategory(key string) (*entities.EquipmentCategory, error)
	GetEquipment(key string) (dnd5e.EquipmentInterface, error)
	ListSpells(input *dnd5e.ListSpellsInput) ([]*entities.ReferenceItem, error)
	GetSpell(key string) (*entities.Spell, error)
	ListFeatures() ([]*entities.ReferenceItem, error)
	GetFeature(key string) (*entities.Feature, error)
}

type srdCollection struct {
	meta     compendium.Collection
	category string
}

var srdCollections = []srdCollection{
	{meta: compendium.Collection{Name: CollectionWeapons, Title: "SRD Weapons", DocumentType: "Item"}, category: "weapon"},
	{meta: compendium.Collection{Name: CollectionArmor, Title: "SRD Armor", DocumentType: "Item"}, category: "armor"},
	{meta: compendium.Collection{Name: CollectionAdventuringGear, Title: "SRD Adventuring Gear", DocumentType: "Item"}, category: "adventuring-gear"},
	{meta: compendium.Collection{Name: CollectionTools, Title: "SRD Tools", DocumentType: "Item"}, category: "tools"},
	{meta: compendium.Collection{Name: CollectionSpells, Title: "SRD Spells", DocumentType: "Item"}},
	{meta: compendium.Collection{Name: CollectionFeatures, Title: "SRD Class Features", DocumentType: "Item"}},
}

// gearKinds classifies adventuring gear by name fragment; first hit wins
var gearKinds = []struct {
	fragment string
	kind     compendium.DocumentType
}{
	{"potion", compendium.TypeConsumable},
	{"arrow", compendium.TypeConsumable},
	{"bolt", compendium.TypeConsumable},
	{"bullet", compendium.TypeConsumable},
	{"needle", compendium.TypeConsumable},
	{"ration", compendium.TypeConsumable},
	{"acid", compendium.TypeConsumable},
	{"antitoxin", compendium.TypeConsumable},
	{"holy water", compendium.TypeConsumable},
	{"oil", compendium.TypeConsumable},
	{"backpack", compendium.TypeContainer},
	{"pouch", compendium.TypeContainer},
	{"quiver", compendium.TypeContainer},
	{"sack", compendium.TypeContainer},
	{"chest", compendium.TypeContainer},
	{"case", compendium.TypeContainer},
	{"barrel", compendium.TypeContainer},
	{"basket", compendium.TypeContainer},
}

// SRDConfig configures the SRD adapter
type SRDConfig struct {
	// Source overrides the dnd5e-api client (tests)
	Source SRDSource
	// BaseURL for the D&D 5e API (optional, defaults to https://www.dnd5eapi.co/api/2014/)
	BaseURL string
	// HTTPTimeout for API requests (optional, defaults to 30 seconds)
	HTTPTimeout time.Duration
	// CacheTTL for the cached client (optional, defaults to 24 hours)
	CacheTTL time.Duration
	// RequestsPerSecond throttles upstream calls; 0 disables throttling
	RequestsPerSecond float64
	// Concurrency bounds parallel document hydration (default 4)
	Concurrency int
}

// Validate validates the config and sets defaults
func (cfg *SRDConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.dnd5eapi.co/api/2014/"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RequestsPerSecond < 0 {
		return errors.InvalidArgument("RequestsPerSecond cannot be negative")
	}
	return nil
}

// SRD exposes the D&D 5e SRD API as a host store
type SRD struct {
	source      SRDSource
	limiter     *rate.Limiter
	concurrency int

	mu   sync.RWMutex
	docs map[string]*compendium.Document
}

// NewSRD creates the SRD adapter
func NewSRD(cfg *SRDConfig) (*SRD, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	source := cfg.Source
	if source == nil {
		baseClient, err := dnd5e.NewDND5eAPI(&dnd5e.DND5eAPIConfig{
			Client:  &http.Client{Timeout: cfg.HTTPTimeout},
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create D&D 5e API client")
		}
		source = dnd5e.NewCachedClient(baseClient, cfg.CacheTTL)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &SRD{
		source:      source,
		limiter:     limiter,
		concurrency: cfg.Concurrency,
		docs:        make(map[string]*compendium.Document),
	}, nil
}

// ListCollections returns the fixed SRD collection set
func (s *SRD) ListCollections(_ context.Context) ([]*compendium.Collection, error) {
	out := make([]*compendium.Collection, 0, len(srdCollections))
	for _, c := range srdCollections {
		meta := c.meta
		out = append(out, &meta)
	}
	return out, nil
}

func findSRDCollection(name string) (srdCollection, bool) {
	for _, c := range srdCollections {
		if c.meta.Name == name {
			return c, true
		}
	}
	return srdCollection{}, false
}

// GetIndex lists a collection. Equipment collections are hydrated so their
// entries carry prices.
func (s *SRD) GetIndex(ctx context.Context, collection string) ([]compendium.IndexEntry, error) {
	c, ok := findSRDCollection(collection)
	if !ok {
		return nil, errors.NotFoundf("collection %s not found", collection)
	}

	switch collection {
	case CollectionSpells:
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "rate limit wait")
		}
		refs, err := s.source.ListSpells(&dnd5e.ListSpellsInput{})
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to list spells")
		}
		return referenceEntries(refs, compendium.TypeSpell), nil

	case CollectionFeatures:
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "rate limit wait")
		}
		refs, err := s.source.ListFeatures()
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to list features")
		}
		return referenceEntries(refs, compendium.TypeFeat), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "rate limit wait")
	}
	category, err := s.source.GetEquipmentCategory(c.category)
	if err != nil {
		return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to get equipment category %s", c.category)
	}

	slog.Info("Hydrating SRD equipment index", "collection", collection, "count", len(category.Equipment))
	entries := make([]compendium.IndexEntry, len(category.Equipment))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ref := range category.Equipment {
		if ref == nil {
			continue
		}
		g.Go(func() error {
			doc, err := s.GetDocument(gctx, collection, ref.Key)
			if err != nil {
				return err
			}
			entries[i] = doc.IndexEntry()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if e.ID != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetDocument fetches and converts one SRD record
func (s *SRD) GetDocument(ctx context.Context, collection, id string) (*compendium.Document, error) {
	if _, ok := findSRDCollection(collection); !ok {
		return nil, errors.NotFoundf("collection %s not found", collection)
	}

	key := collection + "/" + id
	s.mu.RLock()
	cached, ok := s.docs[key]
	s.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "rate limit wait")
	}

	var doc *compendium.Document
	switch collection {
	case CollectionSpells:
		spell, err := s.source.GetSpell(id)
		if err != nil {
			return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to get spell %s", id)
		}
		doc = convertSpell(spell)
	case CollectionFeatures:
		feature, err := s.source.GetFeature(id)
		if err != nil {
			return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to get feature %s", id)
		}
		doc = convertFeature(feature)
	default:
		slog.Debug("Calling D&D 5e API to get equipment", "collection", collection, "equipment", id)
		equipment, err := s.source.GetEquipment(id)
		if err != nil {
			return nil, errors.WrapWithCodef(err, errors.CodeUnavailable, "failed to get equipment %s", id)
		}
		doc = convertEquipment(equipment, collection)
	}
	if doc == nil {
		return nil, errors.NotFoundf("document %s not found in %s", id, collection)
	}

	s.mu.Lock()
	s.docs[key] = doc
	s.mu.Unlock()

	return doc.Clone(), nil
}

func referenceEntries(refs []*entities.ReferenceItem, kind compendium.DocumentType) []compendium.IndexEntry {
	entries := make([]compendium.IndexEntry, 0, len(refs))
	for _, ref := range refs {
		if ref == nil || ref.Key == "" {
			continue
		}
		entries = append(entries, compendium.IndexEntry{ID: ref.Key, Type: kind, Name: ref.Name})
	}
	return entries
}

func convertCost(cost *entities.Cost) *compendium.Price {
	if cost == nil {
		return nil
	}
	denomination, ok := compendium.ParseDenomination(cost.Unit)
	if !ok {
		return nil
	}
	return compendium.NewPrice(float64(cost.Quantity), denomination)
}

func referenceNames(refs []*entities.ReferenceItem) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref != nil {
			names = append(names, ref.Name)
		}
	}
	return names
}

// classifyGear maps an adventuring-gear name to a document type
func classifyGear(name string) compendium.DocumentType {
	lowered := strings.ToLower(name)
	for _, k := range gearKinds {
		if strings.Contains(lowered, k.fragment) {
			return k.kind
		}
	}
	return compendium.TypeLoot
}

func convertEquipment(equipment dnd5e.EquipmentInterface, collection string) *compendium.Document {
	if equipment == nil {
		return nil
	}

	switch eq := equipment.(type) {
	case *entities.Weapon:
		doc := &compendium.Document{
			ID:   eq.Key,
			Type: compendium.TypeWeapon,
			Name: eq.Name,
			Attributes: compendium.Attributes{
				Price:      convertCost(eq.Cost),
				Weight:     float64(eq.Weight),
				Category:   eq.WeaponCategory,
				Properties: referenceNames(eq.Properties),
				Extra:      map[string]string{"range": eq.WeaponRange},
			},
		}
		if eq.Damage != nil {
			doc.Attributes.Extra["damage"] = eq.Damage.DamageDice
			if eq.Damage.DamageType != nil {
				doc.Attributes.Extra["damageType"] = eq.Damage.DamageType.Name
			}
		}
		return doc

	case *entities.Armor:
		doc := &compendium.Document{
			ID:   eq.Key,
			Type: compendium.TypeEquipment,
			Name: eq.Name,
			Attributes: compendium.Attributes{
				Price:    convertCost(eq.Cost),
				Weight:   float64(eq.Weight),
				Category: eq.ArmorCategory,
				Extra: map[string]string{
					"strMinimum":          strconv.Itoa(eq.StrMinimum),
					"stealthDisadvantage": strconv.FormatBool(eq.StealthDisadvantage),
				},
			},
		}
		if eq.ArmorClass != nil {
			doc.Attributes.Extra["armorClass"] = strconv.Itoa(eq.ArmorClass.Base)
			doc.Attributes.Extra["dexBonus"] = strconv.FormatBool(eq.ArmorClass.DexBonus)
		}
		return doc

	case *entities.Equipment:
		kind := classifyGear(eq.Name)
		if collection == CollectionTools {
			kind = compendium.TypeTool
		}
		doc := &compendium.Document{
			ID:   eq.Key,
			Type: kind,
			Name: eq.Name,
			Attributes: compendium.Attributes{
				Price:  convertCost(eq.Cost),
				Weight: float64(eq.Weight),
			},
		}
		if eq.EquipmentCategory != nil {
			doc.Attributes.Category = eq.EquipmentCategory.Key
		}
		return doc
	}

	return nil
}

func convertSpell(spell *entities.Spell) *compendium.Document {
	if spell == nil {
		return nil
	}

	doc := &compendium.Document{
		ID:   spell.Key,
		Type: compendium.TypeSpell,
		Name: spell.Name,
		Attributes: compendium.Attributes{
			Level: spell.SpellLevel,
			Extra: map[string]string{
				"castingTime":   spell.CastingTime,
				"range":         spell.Range,
				"duration":      spell.Duration,
				"ritual":        strconv.FormatBool(spell.Ritual),
				"concentration": strconv.FormatBool(spell.Concentration),
			},
			Activities: []compendium.Activity{{Type: "cast", Activation: spell.CastingTime}},
		},
	}
	if spell.SpellSchool != nil {
		doc.Attributes.Category = spell.SpellSchool.Name
	}
	return doc
}

func convertFeature(feature *entities.Feature) *compendium.Document {
	if feature == nil {
		return nil
	}

	doc := &compendium.Document{
		ID:   feature.Key,
		Type: compendium.TypeFeat,
		Name: feature.Name,
		Attributes: compendium.Attributes{
			Level: feature.Level,
		},
	}
	if feature.Class != nil {
		doc.Attributes.Category = feature.Class.Name
		doc.Attributes.Extra = map[string]string{"class": feature.Class.Key}
	}
	return doc
}
