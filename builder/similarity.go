package builder

import (
	"strings"
	"unicode"
)

// labelSimilarity scores two labels in [0,1]: 1.0 for an exact match
// after normalization, otherwise Jaccard overlap of the token sets plus
// a 0.3 bonus when one normalized label contains the other, capped at 1.
func labelSimilarity(a, b string) float64 {
	na, nb := normalizeLabel(a), normalizeLabel(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ta, tb := tokenSet(na), tokenSet(nb)
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	score := 0.0
	if union > 0 {
		score = float64(inter) / float64(union)
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		score += 0.3
	}
	if score > 1 {
		score = 1
	}
	return score
}

// normalizeLabel lowercases, strips punctuation, collapses whitespace
// and drops article prefixes and generic suffixes ("system", "assembly",
// "unit", "device") so "The Cooling System" matches "cooling".
func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	s := strings.Join(strings.Fields(b.String()), " ")

	for _, prefix := range []string{"the ", "a ", "an "} {
		s = strings.TrimPrefix(s, prefix)
	}
	for _, suffix := range []string{" system", " assembly", " unit", " device"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
