package matching

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/lookup"
	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

// Localized scoring weights
const (
	weightNameExact      = 90
	weightLookupExact    = 70
	weightNamePartial    = 15
	weightLookupPartial  = 12
	weightNameFuzzy      = 18
	weightLookupFuzzy    = 14
	weightScriptMatch    = 25
	weightBudgetFit      = 1
	weightKeywordHit     = 10
	minPartialRuneLength = 3
)

// scored is a candidate with its score and tie-break keys
type scored struct {
	candidate *lookup.Candidate
	score     float64
	fits      bool
	lengthGap int
}

// better orders by score, then budget fit, then name-length closeness.
// Remaining ties keep index order.
func (s scored) better(other scored) bool {
	if s.score != other.score {
		return s.score > other.score
	}
	if s.fits != other.fits {
		return s.fits
	}
	return s.lengthGap < other.lengthGap
}

func best(pool []scored) *scored {
	var top *scored
	for i := range pool {
		if top == nil || pool[i].better(*top) {
			top = &pool[i]
		}
	}
	return top
}

func lengthGap(a, b string) int {
	d := utf8.RuneCountInString(a) - utf8.RuneCountInString(b)
	if d < 0 {
		return -d
	}
	return d
}

func containsToken(set []string, token string) bool {
	for _, s := range set {
		if s == token {
			return true
		}
	}
	return false
}

// anyExact reports whether any query token is one of the candidate tokens
func anyExact(query, candidate []string) bool {
	for _, q := range query {
		if containsToken(candidate, q) {
			return true
		}
	}
	return false
}

// anyPartial reports whether a query token and a candidate token contain one
// another
func anyPartial(query, candidate []string) bool {
	for _, q := range query {
		if utf8.RuneCountInString(q) < minPartialRuneLength {
			continue
		}
		for _, c := range candidate {
			if utf8.RuneCountInString(c) < minPartialRuneLength {
				continue
			}
			if strings.Contains(c, q) || strings.Contains(q, c) {
				return true
			}
		}
	}
	return false
}

// maxSimilarity is the best bigram similarity between the two token sets
func maxSimilarity(query, candidate []string) float64 {
	top := 0.0
	for _, q := range query {
		for _, c := range candidate {
			if sim := search.Similarity(q, c); sim > top {
				top = sim
			}
		}
	}
	return top
}

// localizedCachedPick scores index candidates against the locale-expanded
// name and lookup tokens
func (e *Engine) localizedCachedPick(_ context.Context, req *request) (*compendium.MatchResult, error) {
	idx := e.index.GetIndex(req.packs, req.group.AllowedTypes)
	if len(idx.Docs) == 0 {
		return nil, nil
	}

	nameTokens := e.normalizer.Expand(req.ref.Name)
	lookupTokens := e.normalizer.Expand(req.ref.Lookup)

	var terms []string
	if req.ref.Name != "" {
		terms = append(terms, req.ref.Name)
	}
	if req.ref.Lookup != "" {
		terms = append(terms, req.ref.Lookup)
	}

	label := req.ref.Label()
	preferred := e.normalizer.PreferredScript(e.locale, label)

	candidates := e.index.CollectCandidates(idx, terms, false)
	pool := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		tokens := e.normalizer.Tokens(c.Document)

		namePartial := anyPartial(nameTokens, tokens)
		lookupPartial := anyPartial(lookupTokens, tokens)
		nameSim := maxSimilarity(nameTokens, tokens)
		lookupSim := maxSimilarity(lookupTokens, tokens)
		if !namePartial && !lookupPartial && nameSim < e.fuzzyThreshold && lookupSim < e.fuzzyThreshold {
			continue
		}

		score := 0.0
		if anyExact(nameTokens, tokens) {
			score += weightNameExact
		}
		if anyExact(lookupTokens, tokens) {
			score += weightLookupExact
		}
		if namePartial {
			score += weightNamePartial
		}
		if lookupPartial {
			score += weightLookupPartial
		}
		if nameSim >= e.fuzzyThreshold {
			score += weightNameFuzzy * nameSim
		}
		if lookupSim >= e.fuzzyThreshold {
			score += weightLookupFuzzy * lookupSim
		}
		if preferred != search.ScriptUnknown && e.normalizer.DetectScript(c.Document.Name) == preferred {
			score += weightScriptMatch
		}
		fits := e.inBudget(c.Document, req.budget)
		if fits {
			score += weightBudgetFit
		}

		pool = append(pool, scored{
			candidate: c,
			score:     score,
			fits:      fits,
			lengthGap: lengthGap(c.Document.Name, label),
		})
	}

	top := best(pool)
	if top == nil {
		return nil, nil
	}
	return newResult(top.candidate.Document, top.candidate.Collection), nil
}

// keywordHits counts the keywords present in a candidate, either as a word
// or inside a token
func keywordHits(keywords, tokens, words []string) int {
	hits := 0
	for _, k := range keywords {
		if containsToken(words, k) {
			hits++
			continue
		}
		for _, t := range tokens {
			if strings.Contains(t, k) {
				hits++
				break
			}
		}
	}
	return hits
}

// requiredHits is two when at least two keywords were given, else one
func requiredHits(keywords []string) int {
	if len(keywords) >= 2 {
		return 2
	}
	return 1
}

// keywordCachedPick ranks index candidates by keyword overlap
func (e *Engine) keywordCachedPick(_ context.Context, req *request) (*compendium.MatchResult, error) {
	if len(req.keywords) == 0 {
		return nil, nil
	}
	idx := e.index.GetIndex(req.packs, req.group.AllowedTypes)
	if len(idx.Docs) == 0 {
		return nil, nil
	}

	required := requiredHits(req.keywords)
	label := req.ref.Label()

	candidates := e.index.CollectCandidates(idx, req.keywords, false)
	pool := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		tokens := e.normalizer.Tokens(c.Document)
		hits := keywordHits(req.keywords, tokens, search.Words(tokens))
		if hits < required {
			continue
		}

		score := float64(hits * weightKeywordHit)
		fits := e.inBudget(c.Document, req.budget)
		if fits {
			score += weightBudgetFit
		}
		pool = append(pool, scored{
			candidate: c,
			score:     score,
			fits:      fits,
			lengthGap: lengthGap(c.Document.Name, label),
		})
	}

	top := best(pool)
	if top == nil {
		return nil, nil
	}
	return newResult(top.candidate.Document, top.candidate.Collection), nil
}
