package rules

// FindHighestSeverityComplication scans every complication rule and returns
// the matching one with the highest severity. Ties are broken by table order:
// only a strictly greater severity displaces an earlier match, so the first
// record wins. That makes the guidance text a user receives deterministic.
func (kb *KnowledgeBase) FindHighestSeverityComplication(message string) *ComplicationRule {
	textNorm := Normalize(message)
	textTokens := Tokenize(textNorm)

	var best *ComplicationRule

	for _, cc := range kb.compiledComplications {
		if len(cc.keywords) == 0 {
			continue
		}

		matched := false
		for _, kw := range cc.keywords {
			if MatchKeyword(textNorm, textTokens, kw.norm) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		if best == nil || cc.rule.Severity > best.Severity {
			best = cc.rule
		}
	}

	return best
}
