// Package resolution resolves batches of item references with bounded
// concurrency, keeping input order and recording per-reference provenance.
package resolution

//go:generate mockgen -destination=mock/mock_matcher.go -package=resolutionmock github.com/KirkDiggler/rpg-compendium/internal/orchestrators/resolution ItemMatcher

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/collectioncache"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/matching"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
	"github.com/KirkDiggler/rpg-compendium/internal/pkg/idgen"
	compendiumsvc "github.com/KirkDiggler/rpg-compendium/internal/services/compendium"
)

// DefaultConcurrency is the worker count when a request does not set one
const DefaultConcurrency = 4

// ItemMatcher resolves a single reference
type ItemMatcher interface {
	ResolveItem(
		ctx context.Context,
		ref compendium.ItemReference,
		group *matching.Group,
		budget compendium.Budget,
	) (*compendium.MatchResult, compendium.Strategy, error)
}

var _ ItemMatcher = (*matching.Engine)(nil)

// Config holds the dependencies for the resolution orchestrator
type Config struct {
	Matcher            ItemMatcher
	Cache              *collectioncache.Manager
	IDGenerator        idgen.Generator
	DefaultConcurrency int
	MaxReferenceLength int
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	vb := errors.NewValidationBuilder()
	if c.Matcher == nil {
		vb.RequiredField("Matcher")
	}
	if c.Cache == nil {
		vb.RequiredField("Cache")
	}
	if c.IDGenerator == nil {
		c.IDGenerator = idgen.NewUUID("batch")
	}
	if c.DefaultConcurrency == 0 {
		c.DefaultConcurrency = DefaultConcurrency
	}
	if c.DefaultConcurrency < 0 {
		vb.InvalidField("DefaultConcurrency", "must be positive")
	}
	if c.MaxReferenceLength == 0 {
		c.MaxReferenceLength = compendium.MaxReferenceLength
	}
	return vb.Build()
}

// Orchestrator implements compendiumsvc.Resolver
type Orchestrator struct {
	matcher            ItemMatcher
	cache              *collectioncache.Manager
	idGenerator        idgen.Generator
	defaultConcurrency int
	maxReferenceLength int
}

var _ compendiumsvc.Resolver = (*Orchestrator)(nil)

// New creates a new resolution orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Orchestrator{
		matcher:            cfg.Matcher,
		cache:              cfg.Cache,
		idGenerator:        cfg.IDGenerator,
		defaultConcurrency: cfg.DefaultConcurrency,
		maxReferenceLength: cfg.MaxReferenceLength,
	}, nil
}

// withPacks returns the group with its packs filled from the type map.
// The caller's group is not modified.
func (o *Orchestrator) withPacks(group *matching.Group) *matching.Group {
	if len(group.Packs) > 0 {
		return group
	}
	resolved := *group
	resolved.Packs = o.cache.PacksForType(group.AllowedTypes)
	return &resolved
}

// ResolveItem resolves one reference
func (o *Orchestrator) ResolveItem(
	ctx context.Context,
	input *compendiumsvc.ResolveItemInput,
) (*compendiumsvc.ResolveItemOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if err := input.Group.Validate(); err != nil {
		return nil, err
	}

	refs := compendium.NormalizeReferences([]compendium.ItemReference{input.Reference}, o.maxReferenceLength)
	if len(refs) == 0 {
		return nil, errors.InvalidArgument("reference has no name or lookup")
	}

	group := o.withPacks(input.Group)
	if len(group.Packs) == 0 {
		slog.Warn("No collections hold the requested types", "group", group.Key, "types", group.AllowedTypes)
		return &compendiumsvc.ResolveItemOutput{}, nil
	}

	result, strategy, err := o.matcher.ResolveItem(ctx, refs[0], group, input.Budget)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %q", refs[0].Label())
	}
	return &compendiumsvc.ResolveItemOutput{Result: result, Strategy: strategy}, nil
}

// task is one reference of one group, at its position in the flattened batch
type task struct {
	group   *matching.Group
	ref     compendium.ItemReference
	noPacks bool
}

type outcome struct {
	result   *compendium.MatchResult
	strategy compendium.Strategy
}

// ResolveRequestGroups resolves every reference of every group. Lookups run
// on a bounded pool and write into a pre-sized slice by index, so item order
// follows reference order whatever finishes first. De-duplication by
// resolved name happens afterwards, in that order.
func (o *Orchestrator) ResolveRequestGroups(
	ctx context.Context,
	input *compendiumsvc.ResolveRequestGroupsInput,
) (*compendiumsvc.ResolveRequestGroupsOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	concurrency := input.Concurrency
	if concurrency == 0 {
		concurrency = o.defaultConcurrency
	}
	if concurrency < 0 {
		return nil, errors.InvalidArgumentf("concurrency must be positive, got %d", concurrency)
	}

	var tasks []task
	for _, group := range input.Groups {
		if err := group.Validate(); err != nil {
			return nil, err
		}
		resolved := o.withPacks(group)
		noPacks := len(resolved.Packs) == 0
		if noPacks {
			slog.Warn("No collections hold the requested types, group resolves to nothing",
				"group", group.Key,
				"types", group.AllowedTypes)
		}
		for _, ref := range compendium.NormalizeReferences(group.References, o.maxReferenceLength) {
			tasks = append(tasks, task{group: resolved, ref: ref, noPacks: noPacks})
		}
	}

	outcomes := make([]outcome, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, t := range tasks {
		if t.noPacks {
			continue
		}
		g.Go(func() error {
			result, strategy, err := o.matcher.ResolveItem(gctx, t.ref, t.group, input.Budget)
			if err != nil {
				// one failing reference does not sink the batch
				slog.Warn("Reference resolution failed",
					"group", t.group.Key,
					"reference", t.ref.Label(),
					"error", err)
				result = nil
			}
			outcomes[i] = outcome{result: result, strategy: strategy}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "resolution interrupted")
	}

	out := &compendiumsvc.ResolveRequestGroupsOutput{
		BatchID: o.idGenerator.Generate(),
		Items:   make([]*compendium.Document, 0, len(tasks)),
	}
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		oc := outcomes[i]
		detail := compendium.MatchDetail{GroupKey: t.group.Key, Reference: t.ref}

		switch {
		case oc.result == nil:
			out.MissingCount++
			detail.Status = compendium.StatusMissing
			detail.Strategy = oc.strategy
		default:
			detail.MatchMeta = oc.result.Meta
			key := strings.ToLower(oc.result.Item.Name)
			if _, dup := seen[key]; dup {
				out.DuplicateCount++
				detail.Status = compendium.StatusDuplicate
			} else {
				seen[key] = struct{}{}
				out.ResolvedCount++
				detail.Status = compendium.StatusResolved
				out.Items = append(out.Items, oc.result.Item)
			}
		}

		if input.CollectDetails {
			out.MatchDetails = append(out.MatchDetails, detail)
		}
	}

	slog.Info("Resolved request groups",
		"batch_id", out.BatchID,
		"groups", len(input.Groups),
		"references", len(tasks),
		"resolved", out.ResolvedCount,
		"missing", out.MissingCount,
		"duplicates", out.DuplicateCount)

	return out, nil
}
