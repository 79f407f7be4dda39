package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lowerCaser = cases.Lower(language.Und)

// NormalizeName canonicalizes an entity or jargon surface form for matching:
// NFKC normalization, case folding, whitespace collapse. Merging "Dopamine"
// and "dopamine " into one registry row depends on this being stable.
func NormalizeName(s string) string {
	s = norm.NFKC.String(s)
	s = lowerCaser.String(s)
	return strings.Join(strings.Fields(s), " ")
}
