package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents removes diacritical marks from a string ("Beyoncé" -> "Beyonce").
//
// The transformer chain is constructed per call because [transform.Transformer]
// instances carry state and are not safe for concurrent use.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeName canonicalizes an artist or track name for comparison:
// accents folded, lower-cased, punctuation stripped, whitespace collapsed.
func NormalizeName(name string) string {
	name = strings.ToLower(FoldAccents(name))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/' || r == '&':
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeTrackKey builds the canonical lookup key for a track: the
// normalized title and artist joined with a pipe.
func NormalizeTrackKey(title, artist string) string {
	return NormalizeName(title) + "|" + NormalizeName(artist)
}

// Similarity returns a ratio in [0, 1] describing how close two strings are
// after normalization, based on Levenshtein edit distance. Identical strings
// score 1.0.
func Similarity(a, b string) float64 {
	a = NormalizeName(a)
	b = NormalizeName(b)

	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dist := levenshtein([]rune(a), []rune(b))
	longest := max(len([]rune(a)), len([]rune(b)))
	return 1.0 - float64(dist)/float64(longest)
}

// levenshtein computes edit distance with a two-row dynamic programming table.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
