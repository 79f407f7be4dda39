package consistency

import "strings"

// negationMarkers flip a claim's polarity when present in exactly one of the
// two texts being compared.
var negationMarkers = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"none":    true,
	"isn't":   true,
	"aren't":  true,
	"wasn't":  true,
	"weren't": true,
	"doesn't": true,
	"don't":   true,
	"didn't":  true,
	"won't":   true,
	"cannot":  true,
	"can't":   true,
	"without": true,
	"false":   true,
}

// stopwords excluded from subject overlap so that shared function words do
// not count as shared subject matter.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "to": true, "of": true, "in": true,
	"on": true, "for": true, "and": true, "or": true, "that": true, "this": true,
	"it": true, "its": true, "with": true, "as": true, "by": true, "at": true,
	"will": true, "would": true, "has": true, "have": true, "had": true,
}

const subjectOverlapThreshold = 0.3

// IsContradiction reports whether two claim texts that already sit in the
// evolution similarity band oppose each other: one carries a negation marker
// the other lacks, and both talk about the same subject matter.
func IsContradiction(a, b string) bool {
	aTokens := tokenize(a)
	bTokens := tokenize(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return false
	}
	if hasNegation(aTokens) == hasNegation(bTokens) {
		return false
	}
	return subjectOverlap(aTokens, bTokens) >= subjectOverlapThreshold
}

func tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ';', ':', '!', '?', '"', '(', ')', '[', ']':
			return ' '
		}
		return r
	}, strings.ToLower(s))
	return strings.Fields(cleaned)
}

func hasNegation(tokens []string) bool {
	for _, t := range tokens {
		if negationMarkers[t] {
			return true
		}
	}
	return false
}

// subjectOverlap is the share of the shorter text's content words that also
// appear in the longer one. Containment rather than Jaccard: a terse claim
// restated with qualifiers ("dopamine is a reward molecule" vs. "dopamine
// regulates motivation and anticipation, not reward itself") still talks
// about the same subject even though the union of words is large.
func subjectOverlap(a, b []string) float64 {
	aSet := contentSet(a)
	bSet := contentSet(b)
	if len(aSet) == 0 || len(bSet) == 0 {
		return 0
	}
	shared := 0
	for w := range aSet {
		if bSet[w] {
			shared++
		}
	}
	smaller := len(aSet)
	if len(bSet) < smaller {
		smaller = len(bSet)
	}
	return float64(shared) / float64(smaller)
}

func contentSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if stopwords[t] || negationMarkers[t] {
			continue
		}
		set[t] = true
	}
	return set
}
