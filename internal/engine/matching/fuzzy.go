package matching

import (
	"context"
	"log/slog"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/budget"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

// levenshteinLimit is the edit distance tolerated for a word of the given
// length
func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// minFuzzyRuneLength keeps short words like ring and sling apart
const minFuzzyRuneLength = 5

// wordMatches accepts an exact word, a substring either way or a typo within
// the distance limit
func wordMatches(keyword, word string) bool {
	if keyword == word {
		return true
	}
	if len([]rune(keyword)) >= minPartialRuneLength && (strings.Contains(word, keyword) || strings.Contains(keyword, word)) {
		return true
	}
	kl, wl := len([]rune(keyword)), len([]rune(word))
	if kl < minFuzzyRuneLength || wl < minFuzzyRuneLength {
		return false
	}
	return levenshtein.ComputeDistance(keyword, word) <= levenshteinLimit(wl)
}

// entryMatches reports whether any keyword matches any word of the name
func entryMatches(keywords, words []string) bool {
	for _, k := range keywords {
		for _, w := range words {
			if wordMatches(k, w) {
				return true
			}
		}
	}
	return false
}

type liveCandidate struct {
	pack  string
	entry compendium.IndexEntry
}

// liveFuzzyPick samples the live index of every pack, keeps keyword and type
// matches and lets the budget allocator choose
func (e *Engine) liveFuzzyPick(ctx context.Context, req *request) (*compendium.MatchResult, error) {
	if len(req.keywords) == 0 {
		return nil, nil
	}

	var pool []liveCandidate
	for _, pack := range req.packs {
		for _, entry := range e.liveEntries(ctx, req, pack) {
			if !req.typeAllowed(entry.Type) {
				continue
			}
			words := search.Words(e.normalizer.Expand(entry.Name))
			if !entryMatches(req.keywords, words) {
				continue
			}
			pool = append(pool, liveCandidate{pack: pack, entry: entry})
		}
	}

	if !req.budget.AllowMagic {
		mundane := pool[:0:0]
		for _, c := range pool {
			doc := compendium.Document{Attributes: compendium.Attributes{Rarity: c.entry.Rarity}}
			if !doc.IsMagical() {
				mundane = append(mundane, c)
			}
		}
		if len(mundane) > 0 {
			pool = mundane
		}
	}

	for len(pool) > 0 {
		picked, ok, err := budget.Pick(e.allocator, pool, req.budget, func(c liveCandidate) (int, bool) {
			return c.entry.Price.Copper()
		})
		if err != nil {
			slog.Warn("Budget pick failed", "reference", req.ref.Label(), "error", err)
			return nil, nil
		}
		if !ok {
			return nil, nil
		}

		if doc := e.fetchDocument(ctx, picked.pack, picked.entry.ID); doc != nil {
			return newResult(doc, picked.pack), nil
		}

		// drop the unfetchable entry and pick again
		rest := pool[:0:0]
		for _, c := range pool {
			if c.pack != picked.pack || c.entry.ID != picked.entry.ID {
				rest = append(rest, c)
			}
		}
		pool = rest
	}
	return nil, nil
}
