package rules

import (
	"regexp"
	"strings"
)

// DefinitionMatch is the best definition hit for a message, with the score
// and the candidate phrase that matched (useful for routing and telemetry).
type DefinitionMatch struct {
	Entry         *DefinitionEntry
	Score         int
	MatchedPhrase string
}

// FindDefinition selects the single best definition match across all records.
// Per record, the highest-scoring candidate wins (ties to the longer phrase);
// across records, the same (score, then length) ordering applies, and beyond
// that the earlier record is kept, so the result is deterministic.
func (kb *KnowledgeBase) FindDefinition(message string) *DefinitionMatch {
	textNorm := Normalize(message)
	textTokens := Tokenize(textNorm)

	var (
		best    *DefinitionMatch
		bestLen int
	)

	for _, cd := range kb.compiledDefinitions {
		var local *compiledCandidate

		for i := range cd.candidates {
			cand := &cd.candidates[i]
			if !MatchKeyword(textNorm, textTokens, cand.norm) {
				continue
			}
			if local == nil || cand.score > local.score ||
				(cand.score == local.score && cand.len > local.len) {
				local = cand
			}
		}
		if local == nil {
			continue
		}

		if best == nil || local.score > best.Score ||
			(local.score == best.Score && local.len > bestLen) {
			best = &DefinitionMatch{Entry: cd.entry, Score: local.score, MatchedPhrase: local.raw}
			bestLen = local.len
		}
	}

	return best
}

var definitionQueryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(q|que)\s+(significa|es)\s+`),
	regexp.MustCompile(`\b(definicion|define|significado\s+de)\s+`),
}

var punctTrimmer = strings.NewReplacer(
	"¿", "", "?", "", "¡", "", "!", "", ".", "", ":", "", ",", "", ";", "",
	"(", "", ")", "", `"`, "", "'", "", "“", "", "”", "",
)

// ExtractLikelyTerm best-effort extracts the term a user is asking about even
// when no table entry matches, so the generative fallback gets a useful hint.
// Returns "" when nothing reasonable can be extracted. Never used to fabricate
// a deterministic answer.
func ExtractLikelyTerm(message string) string {
	raw := strings.TrimSpace(message)
	if raw == "" {
		return ""
	}

	norm := Normalize(raw)
	tokens := Tokenize(norm)

	// Bare term (1-2 tokens): return the raw text cleaned of punctuation.
	if len(tokens) >= 1 && len(tokens) <= 2 {
		return strings.TrimSpace(punctTrimmer.Replace(raw))
	}

	// Explicit question: take up to 6 tokens after the pattern.
	for _, p := range definitionQueryPatterns {
		loc := p.FindStringIndex(norm)
		if loc == nil {
			continue
		}
		after := strings.TrimSpace(norm[loc[1]:])
		afterTokens := Tokenize(after)
		if len(afterTokens) == 0 {
			continue
		}
		if len(afterTokens) > 6 {
			afterTokens = afterTokens[:6]
		}
		return strings.Join(afterTokens, " ")
	}

	return ""
}

var (
	whatIsPattern     = regexp.MustCompile(`\b(q|que)\s+(significa|es)\b`)
	definitionPattern = regexp.MustCompile(`\b(definicion|define|significado\s+de)\b`)
)

// IsDefinitionQuestion reports an explicit "qué es / qué significa /
// definición de" style question.
func IsDefinitionQuestion(message string) bool {
	t := Normalize(message)
	return whatIsPattern.MatchString(t) || definitionPattern.MatchString(t)
}
