package search

import "strings"

// Similarity is the Dice coefficient over character bigrams of the canonical
// forms of a and b. It is symmetric, 1 for equal strings and 0 when either
// side is shorter than two characters.
func Similarity(a, b string) float64 {
	ca := strings.ReplaceAll(Canonical(a), " ", "")
	cb := strings.ReplaceAll(Canonical(b), " ", "")
	ra, rb := []rune(ca), []rune(cb)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}
	if ca == cb {
		return 1
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}

	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		bigram := [2]rune{rb[i], rb[i+1]}
		if counts[bigram] > 0 {
			counts[bigram]--
			shared++
		}
	}

	return float64(2*shared) / float64(len(ra)-1+len(rb)-1)
}
