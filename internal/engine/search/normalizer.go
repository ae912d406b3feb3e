// Package search turns display names into canonical, alias-expanded search
// tokens and provides the string similarity used by the matching engine.
package search

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
	"github.com/KirkDiggler/rpg-compendium/internal/errors"
)

const (
	// DefaultTokenCacheSize bounds the per-document token cache
	DefaultTokenCacheSize = 20000

	// MinWordLength is the shortest fragment kept by Words
	MinWordLength = 3

	// maxAliasVariants bounds word-level alias substitution per name
	maxAliasVariants = 16
)

// Config holds the data tables of the normalizer
type Config struct {
	// AliasGroups are bidirectional synonym sets, e.g. {"half plate", "полулаты"}
	AliasGroups [][]string
	// ScriptPatterns maps a script to the regexp that detects its characters.
	// Order matters for ties; see ScriptOrder.
	ScriptPatterns map[Script]string
	// ScriptOrder fixes the evaluation order of ScriptPatterns
	ScriptOrder []Script
	// TokenCacheSize bounds the token cache; 0 means DefaultTokenCacheSize
	TokenCacheSize int
}

// Validate fills defaults and checks the patterns compile
func (cfg *Config) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.TokenCacheSize <= 0 {
		cfg.TokenCacheSize = DefaultTokenCacheSize
	}
	if len(cfg.ScriptPatterns) == 0 {
		cfg.ScriptPatterns = DefaultScriptPatterns()
	}
	if len(cfg.ScriptOrder) == 0 {
		cfg.ScriptOrder = []Script{ScriptLatin, ScriptCyrillic}
	}

	vb := errors.NewValidationBuilder()
	for _, script := range cfg.ScriptOrder {
		pattern, ok := cfg.ScriptPatterns[script]
		if !ok {
			vb.Fieldf("ScriptOrder", "script %q has no pattern", script)
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			vb.InvalidField("ScriptPatterns."+string(script), err.Error())
		}
	}
	return vb.Build()
}

type scriptPattern struct {
	script Script
	re     *regexp.Regexp
}

// Normalizer produces search tokens. It is safe for concurrent use.
type Normalizer struct {
	aliases map[string][]string
	scripts []scriptPattern

	mu         sync.Mutex
	tokenCache map[string][]string
	cacheSize  int
}

// NewNormalizer creates a normalizer from its data tables
func NewNormalizer(cfg *Config) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid normalizer config")
	}

	n := &Normalizer{
		aliases:    make(map[string][]string),
		tokenCache: make(map[string][]string),
		cacheSize:  cfg.TokenCacheSize,
	}

	for _, group := range cfg.AliasGroups {
		members := make([]string, 0, len(group))
		for _, member := range group {
			if c := Canonical(member); c != "" {
				members = appendUnique(members, c)
			}
		}
		for _, member := range members {
			n.aliases[member] = appendUnique(n.aliases[member], members...)
		}
	}

	for _, script := range cfg.ScriptOrder {
		n.scripts = append(n.scripts, scriptPattern{
			script: script,
			re:     regexp.MustCompile(cfg.ScriptPatterns[script]),
		})
	}

	return n, nil
}

// Lower returns the lowercase, trimmed, NFKC-normalized form of s
func Lower(s string) string {
	// a Caser keeps state, so one per call
	return cases.Lower(language.Und).String(strings.TrimSpace(norm.NFKC.String(s)))
}

var cyrillicFolds = strings.NewReplacer("ё", "е", "Ё", "е")

// Canonical lowercases s, folds ё to е, replaces punctuation with spaces and
// collapses whitespace
func Canonical(s string) string {
	lowered := cyrillicFolds.Replace(Lower(s))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsMark(r):
			// combining marks left over after NFKC are dropped
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Expand returns the alias expansion of a name: its lowercase form, its
// canonical form and every alias reachable from the canonical form, either as
// a whole or by substituting single aliased words.
func (n *Normalizer) Expand(name string) []string {
	lowered := Lower(name)
	if lowered == "" {
		return nil
	}

	out := []string{lowered}
	canonical := Canonical(name)
	if canonical == "" {
		return out
	}
	out = appendUnique(out, canonical)
	out = appendUnique(out, n.aliases[canonical]...)

	words := strings.Fields(canonical)
	if len(words) < 2 {
		return out
	}
	added := 0
	for i, word := range words {
		for _, alias := range n.aliases[word] {
			if alias == word || added >= maxAliasVariants {
				continue
			}
			variant := make([]string, len(words))
			copy(variant, words)
			variant[i] = alias
			before := len(out)
			out = appendUnique(out, strings.Join(variant, " "))
			if len(out) > before {
				added++
			}
		}
	}
	return out
}

// Variants is the ordered list of names to try for exact lookups:
// the original text first, then the alias expansion.
func (n *Normalizer) Variants(name string) []string {
	trimmed := strings.Join(strings.Fields(name), " ")
	if trimmed == "" {
		return nil
	}
	return appendUnique([]string{trimmed}, n.Expand(name)...)
}

// Tokens returns the search tokens of a document, cached by document id.
// The returned slice must not be modified.
func (n *Normalizer) Tokens(doc *compendium.Document) []string {
	if doc == nil {
		return nil
	}

	key := doc.ID + "\x00" + doc.Name
	n.mu.Lock()
	if cached, ok := n.tokenCache[key]; ok {
		n.mu.Unlock()
		return cached
	}
	n.mu.Unlock()

	tokens := n.Expand(doc.Name)

	n.mu.Lock()
	if len(n.tokenCache) >= n.cacheSize {
		n.tokenCache = make(map[string][]string)
	}
	n.tokenCache[key] = tokens
	n.mu.Unlock()

	return tokens
}

// ClearCache drops all cached token sets
func (n *Normalizer) ClearCache() {
	n.mu.Lock()
	n.tokenCache = make(map[string][]string)
	n.mu.Unlock()
}

// CacheLen returns the number of cached token sets
func (n *Normalizer) CacheLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tokenCache)
}

// Words splits tokens on non-alphanumeric runs and keeps unique fragments of
// at least MinWordLength runes
func Words(tokens []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, token := range tokens {
		fragments := strings.FieldsFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, fragment := range fragments {
			fragment = cyrillicFolds.Replace(strings.ToLower(fragment))
			if len([]rune(fragment)) < MinWordLength {
				continue
			}
			if _, ok := seen[fragment]; ok {
				continue
			}
			seen[fragment] = struct{}{}
			out = append(out, fragment)
		}
	}
	return out
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
