package search

import (
	"strings"

	"golang.org/x/text/language"
)

// Script is a writing system used as a locale-preference signal
type Script string

// Known scripts
const (
	ScriptUnknown  Script = ""
	ScriptLatin    Script = "latin"
	ScriptCyrillic Script = "cyrillic"
)

// iso15924 maps x/text script subtags to our script names
var iso15924 = map[string]Script{
	"Latn": ScriptLatin,
	"Cyrl": ScriptCyrillic,
}

// DefaultScriptPatterns returns the built-in detection table
func DefaultScriptPatterns() map[Script]string {
	return map[Script]string{
		ScriptLatin:    `\p{Latin}`,
		ScriptCyrillic: `\p{Cyrillic}`,
	}
}

// DetectScript returns the script with the most matching characters in s.
// Ties go to the script listed first in the configured order.
func (n *Normalizer) DetectScript(s string) Script {
	best := ScriptUnknown
	bestCount := 0
	for _, sp := range n.scripts {
		count := len(sp.re.FindAllStringIndex(s, -1))
		if count > bestCount {
			best = sp.script
			bestCount = count
		}
	}
	return best
}

// PreferredScript derives the caller's script from a BCP 47 locale, falling
// back to the script of fallbackName when the locale is empty or unknown.
func (n *Normalizer) PreferredScript(locale, fallbackName string) Script {
	locale = strings.TrimSpace(locale)
	if locale != "" {
		if tag, err := language.Parse(locale); err == nil {
			script, confidence := tag.Script()
			if confidence != language.No {
				if s, ok := iso15924[script.String()]; ok {
					return s
				}
			}
		}
	}
	return n.DetectScript(fallbackName)
}
