// Package tokenize splits text into word tokens that keep their byte
// offsets in the source string, so downstream recognizers can map token
// positions back to text regions.
package tokenize

import "regexp"

// Token is a single word with its byte offsets in the source text.
// End is exclusive.
type Token struct {
	Text  string
	Start int
	End   int
}

// A word is a maximal run of letters, combining marks and digits.
var wordRE = regexp.MustCompile(`[\p{L}\p{M}\p{N}]+`)

// Words returns the word tokens of text in order of appearance. Whitespace
// and punctuation separate words and are never part of a token.
func Words(text string) []Token {
	if text == "" {
		return nil
	}
	idx := wordRE.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(idx))
	for _, m := range idx {
		tokens = append(tokens, Token{Text: text[m[0]:m[1]], Start: m[0], End: m[1]})
	}
	return tokens
}
