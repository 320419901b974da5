package triage

import "aesthetic-triage-bot/internal/rules"

// Profile is the optional structured profile sent with a chat request.
type Profile struct {
	Name               string   `json:"name,omitempty"`
	AgeRange           string   `json:"ageRange,omitempty"`
	Country            string   `json:"country,omitempty"`
	Area               string   `json:"area,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	PreviousProcedures []string `json:"previousProcedures,omitempty"`
	IsPregnant         bool     `json:"isPregnant,omitempty"`
}

// Facts is the precomputed signal bundle for one message. Every layer reads
// from here instead of re-running the extractors.
type Facts struct {
	DangerSignals    []string
	ProcedureCtx     ProcedureContext
	DefinitionIntent bool
	SymptomReport    bool

	MaterialsFound   []rules.MaterialInfo
	HighRiskMaterial *rules.MaterialInfo
	MaterialContext  MaterialContext

	// MaterialForRouting is the high-risk hit when one exists, otherwise the
	// first match; high risk always takes precedence for routing and logging.
	MaterialForRouting *rules.MaterialInfo

	HasVisionSignal    bool
	HasBreathingSignal bool
}

const maxMaterialMatches = 3

// BuildFacts runs every extractor once over the message.
func BuildFacts(kb *rules.KnowledgeBase, message string) *Facts {
	f := &Facts{
		DangerSignals:    DetectDangerSignals(message),
		ProcedureCtx:     InferProcedureContext(message),
		DefinitionIntent: IsDefinitionIntent(message),
		SymptomReport:    IsSymptomReport(message),
		MaterialsFound:   kb.FindMaterials(message, maxMaterialMatches),
		MaterialContext:  ContextUnknown,
	}

	f.HighRiskMaterial = rules.PickHighRisk(f.MaterialsFound)
	if len(f.MaterialsFound) > 0 {
		f.MaterialContext = InferMaterialContext(message)
		f.MaterialForRouting = &f.MaterialsFound[0]
	}
	if f.HighRiskMaterial != nil {
		f.MaterialForRouting = f.HighRiskMaterial
	}

	for _, s := range f.DangerSignals {
		switch s {
		case SignalVisual:
			f.HasVisionSignal = true
		case SignalBreathing:
			f.HasBreathingSignal = true
		}
	}

	return f
}
