package cache

import (
	"strings"
	"unicode"
)

// normalizeOp converts an operation name to snake_case so method-style
// ("SearchTracks") and snake-style ("search_tracks") call sites land in the
// same key namespace. Punctuation collapses to underscores; a stray ':' or
// separator character left in an operation name would bleed into the
// colon-delimited tag grammar and the key segment layout.
func normalizeOp(name string) string {
	if name == "" {
		return ""
	}

	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/4)

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (nextLower && unicode.IsUpper(prev)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))

		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)

		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}
