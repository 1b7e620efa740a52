package search

import (
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// tokenize splits lower-cased text into Unicode words, dropping whitespace
// and punctuation segments.
func tokenize(text string) []string {
	var out []string
	tokens := words.FromString(lower(text))
	for tokens.Next() {
		tok := tokens.Value()
		if isWord(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// positions returns the token offsets where the token sequence part starts.
func positions(tokens, part []string) []int {
	if len(part) == 0 {
		return nil
	}
	var out []int
outer:
	for i := 0; i+len(part) <= len(tokens); i++ {
		for j, p := range part {
			if tokens[i+j] != p {
				continue outer
			}
		}
		out = append(out, i)
	}
	return out
}
