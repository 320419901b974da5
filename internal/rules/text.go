package rules

import (
	"regexp"
	"strings"
	"sync"
)

// Shared text helpers for every rule layer:
// normalization (accents, punctuation, whitespace), tokenization and
// robust keyword matching (basic gender/plural variance + fuzzy typos).
//
// The goal is avoiding false negatives for things like
// "borroso" vs "borrosa", "visión" vs "vision", stray punctuation,
// and light typos ("vison", "borroza").

var accentFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u',
	'ñ': 'n', 'ç': 'c', 'ý': 'y',
}

// Normalize lowercases, strips accents, replaces punctuation with spaces
// and collapses whitespace. It is total and idempotent.
func Normalize(input string) string {
	lower := strings.ToLower(input)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if base, ok := accentFold[r]; ok {
			r = base
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits already-normalized text into tokens.
func Tokenize(normalized string) []string {
	return strings.Fields(normalized)
}

// levenshteinWithCap computes edit distance with early exit: as soon as a
// full DP row exceeds cap, the result is reported as cap+1.
func levenshteinWithCap(a, b string, cap int) int {
	if a == b {
		return 0
	}

	la, lb := len(a), len(b)
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > cap {
		return cap + 1
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		minRow := curr[0]

		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j] + 1 // delete
			if ins := curr[j-1] + 1; ins < d {
				d = ins
			}
			if sub := prev[j-1] + cost; sub < d {
				d = sub
			}
			curr[j] = d
			if d < minRow {
				minRow = d
			}
		}

		if minRow > cap {
			return cap + 1
		}
		copy(prev, curr)
	}

	return prev[lb]
}

// fuzzyTokenEquals tolerates light typos:
// short tokens must match exactly, medium tokens allow distance 1,
// long tokens allow distance 2.
func fuzzyTokenEquals(a, b string) bool {
	if a == b {
		return true
	}

	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n < 6 {
		return false
	}

	cap := 1
	if n >= 9 {
		cap = 2
	}
	return levenshteinWithCap(a, b, cap) <= cap
}

// fuzzyPhraseMatch checks that every phrase token has some equivalent token
// in the text. It does not enforce order or adjacency: this is a fallback
// for typos, and the scattered-token false-positive mode for multi-word
// phrases is known and intentionally kept (rule keyword tuning relies on it).
func fuzzyPhraseMatch(textTokens, phraseTokens []string) bool {
	if len(phraseTokens) == 0 || len(textTokens) == 0 {
		return false
	}

	for _, pt := range phraseTokens {
		found := false
		for _, tt := range textTokens {
			if fuzzyTokenEquals(tt, pt) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// expandGenderPluralToken widens a token over masculine/feminine and
// singular/plural endings: "borroso" -> "borros(o|a|os|as)".
// Tokens not ending in o/a/os/as pass through escaped.
func expandGenderPluralToken(token string) string {
	if strings.HasSuffix(token, "os") || strings.HasSuffix(token, "as") {
		if base := token[:len(token)-2]; len(base) >= 3 {
			return regexp.QuoteMeta(base) + "(o|a|os|as)"
		}
	}
	if strings.HasSuffix(token, "o") || strings.HasSuffix(token, "a") {
		if base := token[:len(token)-1]; len(base) >= 3 {
			return regexp.QuoteMeta(base) + "(o|a|os|as)"
		}
	}
	return regexp.QuoteMeta(token)
}

var keywordRegexCache sync.Map // normalized keyword -> *regexp.Regexp

// keywordRegexp turns "vision borrosa" into \bvision\s+borros(o|a|os|as)\b.
// Operates on already-normalized keywords.
func keywordRegexp(keywordNorm string) *regexp.Regexp {
	if cached, ok := keywordRegexCache.Load(keywordNorm); ok {
		return cached.(*regexp.Regexp)
	}

	tokens := Tokenize(keywordNorm)
	if len(tokens) == 0 {
		return nil
	}

	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = expandGenderPluralToken(t)
	}
	re := regexp.MustCompile(`\b` + strings.Join(parts, `\s+`) + `\b`)

	keywordRegexCache.Store(keywordNorm, re)
	return re
}

// MatchKeyword reports whether keyword occurs in the text, trying in order:
//  1. direct substring containment
//  2. gender/plural regex over the normalized text
//  3. fuzzy token-set match (typos)
//
// textNorm and textTokens must come from Normalize/Tokenize of the same text.
func MatchKeyword(textNorm string, textTokens []string, keyword string) bool {
	kwNorm := Normalize(keyword)
	if kwNorm == "" {
		return false
	}

	if strings.Contains(textNorm, kwNorm) {
		return true
	}

	if re := keywordRegexp(kwNorm); re != nil && re.MatchString(textNorm) {
		return true
	}

	kwTokens := Tokenize(kwNorm)
	return fuzzyPhraseMatch(textTokens, kwTokens)
}
