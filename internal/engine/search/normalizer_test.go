package search_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-compendium/internal/engine/search"
	"github.com/KirkDiggler/rpg-compendium/internal/entities/compendium"
)

type NormalizerTestSuite struct {
	suite.Suite
	normalizer *search.Normalizer
}

func (s *NormalizerTestSuite) SetupTest() {
	n, err := search.NewNormalizer(&search.Config{
		AliasGroups: [][]string{
			{"half plate", "half-plate", "полулаты"},
			{"arrows", "стрелы"},
		},
	})
	s.Require().NoError(err)
	s.normalizer = n
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerTestSuite))
}

func (s *NormalizerTestSuite) TestCanonical() {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases and trims", input: "  Long Sword ", expected: "long sword"},
		{name: "folds yo", input: "Ёж", expected: "еж"},
		{name: "strips punctuation", input: "Arrows (20)", expected: "arrows 20"},
		{name: "hyphen becomes space", input: "Half-Plate", expected: "half plate"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, search.Canonical(tc.input))
		})
	}
}

func (s *NormalizerTestSuite) TestExpandReachesAliasGroup() {
	tokens := s.normalizer.Expand("Полулаты")
	s.Contains(tokens, "полулаты")
	s.Contains(tokens, "half plate")
}

func (s *NormalizerTestSuite) TestExpandSubstitutesAliasedWords() {
	tokens := s.normalizer.Expand("Стрелы (20)")
	s.Contains(tokens, "стрелы (20)")
	s.Contains(tokens, "стрелы 20")
	s.Contains(tokens, "arrows 20")
}

func (s *NormalizerTestSuite) TestVariantsKeepOriginalFirst() {
	variants := s.normalizer.Variants("  Half-Plate ")
	s.Require().NotEmpty(variants)
	s.Equal("Half-Plate", variants[0])
	s.Contains(variants, "half-plate")
	s.Contains(variants, "half plate")
	s.Contains(variants, "полулаты")
}

func (s *NormalizerTestSuite) TestVariantsEmpty() {
	s.Empty(s.normalizer.Variants("  "))
}

func (s *NormalizerTestSuite) TestTokensCachedAndDeterministic() {
	doc := &compendium.Document{ID: "d1", Name: "Half Plate"}

	first := s.normalizer.Tokens(doc)
	s.Equal(1, s.normalizer.CacheLen())

	s.normalizer.ClearCache()
	s.Equal(0, s.normalizer.CacheLen())

	second := s.normalizer.Tokens(doc)
	s.Equal(first, second)
}

func (s *NormalizerTestSuite) TestTokenCacheClearsOnOverflow() {
	n, err := search.NewNormalizer(&search.Config{TokenCacheSize: 3})
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		n.Tokens(&compendium.Document{ID: fmt.Sprintf("d%d", i), Name: "Dagger"})
	}
	s.Equal(3, n.CacheLen())

	n.Tokens(&compendium.Document{ID: "d3", Name: "Dagger"})
	s.Equal(1, n.CacheLen())
}

func (s *NormalizerTestSuite) TestWords() {
	words := search.Words([]string{"arrows (20)", "potion of healing"})
	s.Equal([]string{"arrows", "potion", "healing"}, words)
}

func (s *NormalizerTestSuite) TestSimilarity() {
	s.Equal(1.0, search.Similarity("Longsword", "longsword"))
	s.Equal(0.0, search.Similarity("a", "ab"))
	s.Equal(0.0, search.Similarity("a", "A"))
	s.Equal(0.0, search.Similarity("", "dagger"))
	s.InDelta(search.Similarity("night", "nacht"), search.Similarity("nacht", "night"), 1e-9)
	s.InDelta(0.25, search.Similarity("night", "nacht"), 1e-9)
	s.Greater(search.Similarity("Longsword", "Long Sword +1"), 0.72)
}

func (s *NormalizerTestSuite) TestDetectScript() {
	s.Equal(search.ScriptCyrillic, s.normalizer.DetectScript("Длинный меч"))
	s.Equal(search.ScriptLatin, s.normalizer.DetectScript("Longsword"))
	s.Equal(search.ScriptUnknown, s.normalizer.DetectScript("123"))
}

func (s *NormalizerTestSuite) TestPreferredScript() {
	testCases := []struct {
		name     string
		locale   string
		fallback string
		expected search.Script
	}{
		{name: "russian locale", locale: "ru", fallback: "Longsword", expected: search.ScriptCyrillic},
		{name: "english locale", locale: "en-US", fallback: "Меч", expected: search.ScriptLatin},
		{name: "empty locale uses name", locale: "", fallback: "Меч", expected: search.ScriptCyrillic},
		{name: "bad locale uses name", locale: "!!", fallback: "Sword", expected: search.ScriptLatin},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, s.normalizer.PreferredScript(tc.locale, tc.fallback))
		})
	}
}

func (s *NormalizerTestSuite) TestInvalidScriptPattern() {
	_, err := search.NewNormalizer(&search.Config{
		ScriptPatterns: map[search.Script]string{search.ScriptLatin: "("},
		ScriptOrder:    []search.Script{search.ScriptLatin},
	})
	s.Error(err)
}
