package rules

// Extra candidate phrases per material category. These catch common lay
// phrasing that is not in the authoritative record ("ácido hialurónico"
// when the record only carries brand names). Kept conservative to avoid
// false positives: "silicona" alone would also hit implants and topicals,
// "aceite" alone would hit skincare.
var categoryHints = map[MaterialCategory][]string{
	CategoryAH:     {"acido hialuronico", "hialuronico", "hialuron", "filler de acido hialuronico"},
	CategoryToxin:  {"toxina botulinica", "toxina", "botox", "btx"},
	CategoryCaHA:   {"caha", "hidroxiapatita de calcio", "hidroxiapatita", "radiesse", "relleno de calcio"},
	CategoryPLLA:   {"plla", "acido polilactico", "poli l lactico", "sculptra", "bioestimulador plla", "bioestimulador de colageno"},
	CategoryPCLCMC: {"pcl", "policaprolactona", "ellanse", "pcl cmc", "microesferas de pcl"},

	CategoryBiopolymers: {"biopolimero", "biopolimeros", "modelante", "modelantes", "relleno permanente no autorizado"},

	CategoryLiquidSilicone: {"silicona liquida", "silicona inyectable", "silicone oil injection", "silicona industrial"},

	CategoryPMMA: {"pmma", "polimetilmetacrilato", "bellafill", "artefill", "relleno permanente pmma"},

	CategoryOils: {"aceite mineral", "aceite de bebe", "parafina", "vaselina", "oil injection", "paraffin injection"},

	CategoryOther: {"relleno desconocido", "material desconocido", "sustancia desconocida", "sin trazabilidad"},
}

// materialCandidates builds the phrase set a material can be recognized by:
// display name, brands, synonyms and the category hints.
func materialCandidates(m *MaterialInfo) []string {
	out := make([]string, 0, 1+len(m.Brands)+len(m.Synonyms))
	if m.Name != "" {
		out = append(out, m.Name)
	}
	out = append(out, m.Brands...)
	out = append(out, m.Synonyms...)
	out = append(out, categoryHints[m.Category]...)
	return out
}

// FindMaterials returns up to maxResults materials mentioned in the message,
// high-risk entries first (the scan order guarantees they fit under the cap),
// deduplicated by id.
func (kb *KnowledgeBase) FindMaterials(message string, maxResults int) []MaterialInfo {
	textNorm := Normalize(message)
	textTokens := Tokenize(textNorm)

	hits := make([]MaterialInfo, 0, maxResults)
	seen := make(map[string]bool)

	for _, cm := range kb.orderedMaterials {
		if seen[cm.info.ID] {
			continue
		}
		matched := false
		for _, cand := range cm.candidates {
			if MatchKeyword(textNorm, textTokens, cand.norm) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		seen[cm.info.ID] = true
		hits = append(hits, *cm.info)
		if len(hits) >= maxResults {
			break
		}
	}

	return hits
}

// PickHighRisk returns the first high-risk material in the slice, or nil.
func PickHighRisk(materials []MaterialInfo) *MaterialInfo {
	for i := range materials {
		if materials[i].HighRisk() {
			return &materials[i]
		}
	}
	return nil
}
