package htmldiff

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenize splits HTML into tags, comments, entities, words, whitespace
// runs and single punctuation characters. Concatenating the tokens yields
// the input unchanged.
func tokenize(source string) []string {
	var tokens []string
	for i := 0; i < len(source); {
		n := nextToken(source[i:])
		tokens = append(tokens, source[i:i+n])
		i += n
	}
	return tokens
}

func nextToken(s string) int {
	switch s[0] {
	case '<':
		if strings.HasPrefix(s, "<!--") {
			if end := strings.Index(s[4:], "-->"); end >= 0 {
				return 4 + end + 3
			}
			return len(s)
		}
		if len(s) > 1 && (isASCIILetter(s[1]) || s[1] == '/' || s[1] == '!') {
			if end := strings.IndexByte(s, '>'); end >= 0 {
				return end + 1
			}
			return len(s)
		}
		return 1
	case '&':
		for j := 1; j < len(s) && j <= 32; j++ {
			c := s[j]
			if c == ';' {
				if j > 1 {
					return j + 1
				}
				break
			}
			if !(isASCIILetter(c) || (c >= '0' && c <= '9') || c == '#') {
				break
			}
		}
		return 1
	}

	r, size := utf8.DecodeRuneInString(s)
	switch {
	case unicode.IsSpace(r):
		return scanWhile(s, unicode.IsSpace)
	case isWordRune(r):
		return scanWhile(s, isWordRune)
	default:
		return size
	}
}

func scanWhile(s string, pred func(rune) bool) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !pred(r) {
			break
		}
		n += size
	}
	return n
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isTag(token string) bool {
	return len(token) > 1 && token[0] == '<' && token[len(token)-1] == '>'
}
