// Package budget picks a candidate from a priced pool so the result fits a
// budget tier, with percentile-banded variety inside the qualifying set.
package budget

import (
	"math"
	"sort"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

// bandEpsilon absorbs float error in band*size (0.3*10 is 3.0000000000000004)
const bandEpsilon = 1e-9

// Band is a fractional slice [Low, High] of a price-sorted pool
type Band struct {
	Low  float64 `toml:"low"`
	High float64 `toml:"high"`
}

// TierRule holds the copper range and percentile band of one tier.
// MagicRange, when set, replaces Range for calls that allow magic items.
type TierRule struct {
	Range      compendium.PriceRange
	MagicRange *compendium.PriceRange
	Band       Band
}

// Table maps every tier to its rule
type Table map[compendium.BudgetTier]TierRule

// DefaultTable returns the built-in tier table
func DefaultTable() Table {
	return Table{
		compendium.BudgetPoor: {
			Range: compendium.PriceRange{Min: 0, Max: 500},
			Band:  Band{Low: 0, High: 0.3},
		},
		compendium.BudgetNormal: {
			Range: compendium.PriceRange{Min: 10, Max: 2000},
			Band:  Band{Low: 0.3, High: 0.7},
		},
		compendium.BudgetWell: {
			Range: compendium.PriceRange{Min: 100, Max: 7500},
			Band:  Band{Low: 0.6, High: 0.9},
		},
		compendium.BudgetElite: {
			Range:      compendium.PriceRange{Min: 200, Max: 20000},
			MagicRange: &compendium.PriceRange{Min: 200, Max: 500000},
			Band:       Band{Low: 0.8, High: 1.0},
		},
	}
}

// Rule returns the rule for a tier, falling back to normal for unknown tiers
func (t Table) Rule(tier compendium.BudgetTier) TierRule {
	if rule, ok := t[tier]; ok {
		return rule
	}
	return t[compendium.BudgetNormal]
}

// Range returns the effective copper range of a budget
func (t Table) Range(b compendium.Budget) compendium.PriceRange {
	rule := t.Rule(b.Tier)
	if b.AllowMagic && rule.MagicRange != nil {
		return *rule.MagicRange
	}
	return rule.Range
}

// Validate checks every tier is present with sane bounds
func (t Table) Validate() error {
	vb := errors.NewValidationBuilder()
	for _, tier := range compendium.BudgetTiers {
		rule, ok := t[tier]
		if !ok {
			vb.RequiredField("Table." + string(tier))
			continue
		}
		if rule.Range.Min < 0 || rule.Range.Max < rule.Range.Min {
			vb.InvalidField("Table."+string(tier)+".Range", "min must be >= 0 and <= max")
		}
		if rule.MagicRange != nil && rule.MagicRange.Max < rule.MagicRange.Min {
			vb.InvalidField("Table."+string(tier)+".MagicRange", "min must be <= max")
		}
		if rule.Band.Low < 0 || rule.Band.High > 1 || rule.Band.High < rule.Band.Low {
			vb.InvalidField("Table."+string(tier)+".Band", "must satisfy 0 <= low <= high <= 1")
		}
	}
	return vb.Build()
}

// Config configures an Allocator
type Config struct {
	Table  Table
	Roller dice.Roller
}

// Validate fills defaults and checks the tier table
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Table == nil {
		cfg.Table = DefaultTable()
	}
	if cfg.Roller == nil {
		cfg.Roller = dice.DefaultRoller
	}
	return cfg.Table.Validate()
}

// Allocator performs budget-constrained picks
type Allocator struct {
	table  Table
	roller dice.Roller
}

// NewAllocator creates an allocator
func NewAllocator(cfg *Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Allocator{table: cfg.Table, roller: cfg.Roller}, nil
}

// Table returns the allocator's tier table
func (a *Allocator) Table() Table {
	return a.table
}

// Range returns the effective copper range of a budget
func (a *Allocator) Range(b compendium.Budget) compendium.PriceRange {
	return a.table.Range(b)
}

// RandomIndex returns a uniform index in [0, n)
func (a *Allocator) RandomIndex(n int) (int, error) {
	if n <= 0 {
		return 0, errors.InvalidArgument("cannot pick from an empty pool")
	}
	if n == 1 {
		return 0, nil
	}
	roll, err := a.roller.Roll(n)
	if err != nil {
		return 0, errors.Wrap(err, "failed to roll pick")
	}
	return roll - 1, nil
}

type priced[T any] struct {
	item  T
	price int
}

// Pick chooses one candidate for the budget. Unpriced candidates are dropped;
// when nothing is priced the pick is uniform over all candidates. When no
// priced candidate lies in range, only the candidates nearest to the range
// survive. The survivors are sorted by price and the pick is uniform inside
// the tier's percentile band. The bool is false only for an empty pool.
func Pick[T any](a *Allocator, candidates []T, b compendium.Budget, priceFn func(T) (int, bool)) (T, bool, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, false, nil
	}

	pool := make([]priced[T], 0, len(candidates))
	for _, c := range candidates {
		if price, ok := priceFn(c); ok {
			pool = append(pool, priced[T]{item: c, price: price})
		}
	}

	if len(pool) == 0 {
		idx, err := a.RandomIndex(len(candidates))
		if err != nil {
			return zero, false, err
		}
		return candidates[idx], true, nil
	}

	pool = narrow(pool, a.table.Range(b))

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].price < pool[j].price
	})

	start, end := BandBounds(a.table.Rule(b.Tier).Band, len(pool))
	idx, err := a.RandomIndex(end - start)
	if err != nil {
		return zero, false, err
	}
	return pool[start+idx].item, true, nil
}

// narrow keeps the in-range candidates, or the nearest-price ones when none
// qualify
func narrow[T any](pool []priced[T], r compendium.PriceRange) []priced[T] {
	inRange := make([]priced[T], 0, len(pool))
	for _, p := range pool {
		if r.Contains(p.price) {
			inRange = append(inRange, p)
		}
	}
	if len(inRange) > 0 {
		return inRange
	}

	best := math.MaxInt
	for _, p := range pool {
		if d := r.Distance(p.price); d < best {
			best = d
		}
	}
	nearest := make([]priced[T], 0, 1)
	for _, p := range pool {
		if r.Distance(p.price) == best {
			nearest = append(nearest, p)
		}
	}
	return nearest
}

// BandBounds converts a band to the half-open index range [start, end) of a
// sorted pool of the given size. The range always holds at least one index.
func BandBounds(band Band, size int) (int, int) {
	if size <= 0 {
		return 0, 0
	}
	start := int(math.Floor(band.Low*float64(size) + bandEpsilon))
	end := int(math.Ceil(band.High*float64(size) - bandEpsilon))
	if start > size-1 {
		start = size - 1
	}
	if start < 0 {
		start = 0
	}
	if end > size {
		end = size
	}
	if end <= start {
		end = start + 1
	}
	return start, end
}
