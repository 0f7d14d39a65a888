// Package textutil provides the shared tokenization and string-distance
// primitives used by the retrieval and grounding stages.
package textutil

import "strings"

// Tokenize splits text into lowercase alphanumeric terms. Punctuation and
// whitespace are treated as separators; underscores are kept so identifiers
// like snake_case survive as single tokens.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isAlphanumeric(r)
	})
}

// SignificantTokens returns the tokens of text with stopwords and short
// terms removed. This is the term set used for lexical scoring and
// answer-coverage checks.
func SignificantTokens(text string) []string {
	tokens := Tokenize(text)
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !IsStopword(token) && len(token) > 2 {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "what": true, "which": true,
	"who": true, "when": true, "where": true, "why": true, "how": true, "my": true,
	"me": true, "your": true, "our": true, "about": true, "into": true, "find": true,
}

// IsStopword reports whether token is a common English stopword.
func IsStopword(token string) bool {
	return stopwords[token]
}

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// WithinDistance reports whether the edit distance between a and b is at
// most max. Cheaper than Levenshtein for the common length-mismatch case.
func WithinDistance(a, b string, max int) bool {
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if diff > max {
		return false
	}
	return Levenshtein(a, b) <= max
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Soundex returns the classic four-character Soundex code for a word,
// used as a coarse phonetic match for entity disambiguation. Returns the
// empty string when the word has no leading letter.
func Soundex(word string) string {
	word = strings.ToUpper(strings.TrimSpace(word))
	if word == "" {
		return ""
	}
	first := word[0]
	if first < 'A' || first > 'Z' {
		return ""
	}

	code := []byte{first}
	lastDigit := soundexDigit(first)
	for i := 1; i < len(word) && len(code) < 4; i++ {
		c := word[i]
		if c < 'A' || c > 'Z' {
			continue
		}
		d := soundexDigit(c)
		if d == 0 {
			// Vowels and h/w/y reset adjacency but emit nothing.
			if c != 'H' && c != 'W' {
				lastDigit = 0
			}
			continue
		}
		if d != lastDigit {
			code = append(code, '0'+d)
		}
		lastDigit = d
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

func soundexDigit(c byte) byte {
	switch c {
	case 'B', 'F', 'P', 'V':
		return 1
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return 2
	case 'D', 'T':
		return 3
	case 'L':
		return 4
	case 'M', 'N':
		return 5
	case 'R':
		return 6
	}
	return 0
}
