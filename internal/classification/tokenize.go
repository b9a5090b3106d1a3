package classification

import (
	"strings"
	"unicode"
)

// MinTokenLength is the shortest token the engine keeps.
const MinTokenLength = 2

// Tokenize lower-cases text, splits it on anything that is not a letter or
// digit, drops short tokens and folds simple plurals.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < MinTokenLength {
			continue
		}
		tokens = append(tokens, singular(f))
	}
	return tokens
}

// NormalizePhrase returns the tokens of text joined by single spaces.
func NormalizePhrase(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// singular strips a trailing "s" so "shops" and "shop" match. Short words
// and words ending in "ss" are left alone.
func singular(token string) string {
	if len(token) <= 3 || strings.HasSuffix(token, "ss") || !strings.HasSuffix(token, "s") {
		return token
	}
	return token[:len(token)-1]
}

// containsPhrase reports whether phrase is a substring of text.
func containsPhrase(text, phrase string) bool {
	return phrase != "" && strings.Contains(text, phrase)
}
