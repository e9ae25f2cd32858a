package normalization

import (
	"strings"
	"unicode"
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// StandardizeName derives the standardized name of a canonical name: the
// cross-store join key between the relational rows and the graph vertex
// identifiers. Deterministic: lower-cased, whitespace collapsed to single
// hyphens, punctuation dropped except '+' and '#' (so "C++" and "C#" stay
// distinct from "C").
func StandardizeName(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))
	var b strings.Builder
	pendingHyphen := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			pendingHyphen = true
		default:
			// other punctuation does not separate words
		}
	}
	return b.String()
}
