package compendium

import (
	"strings"
	"unicode/utf8"
)

// MaxReferenceLength caps reference names and lookups, in runes
const MaxReferenceLength = 120

// ItemReference is a request to resolve a name to a document.
// Lookup is an optional canonical (usually English) hint.
type ItemReference struct {
	Name   string `json:"name"`
	Lookup string `json:"lookup,omitempty"`
}

// Key is the case-insensitive identity used for de-duplication
func (r ItemReference) Key() string {
	if r.Name != "" {
		return strings.ToLower(r.Name)
	}
	return strings.ToLower(r.Lookup)
}

// Label is the best human-readable form of the reference
func (r ItemReference) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Lookup
}

// CleanReferenceText trims, collapses whitespace and caps the length
func CleanReferenceText(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxLen]))
	}
	return s
}

// NormalizeReferences cleans every reference, drops empty ones and removes
// case-insensitive duplicates while keeping first-seen order.
func NormalizeReferences(refs []ItemReference, maxLen int) []ItemReference {
	if maxLen <= 0 {
		maxLen = MaxReferenceLength
	}

	out := make([]ItemReference, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		cleaned := ItemReference{
			Name:   CleanReferenceText(ref.Name, maxLen),
			Lookup: CleanReferenceText(ref.Lookup, maxLen),
		}
		if cleaned.Name == "" && cleaned.Lookup == "" {
			continue
		}
		if strings.EqualFold(cleaned.Name, cleaned.Lookup) {
			cleaned.Lookup = ""
		}
		key := cleaned.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}
