package rules

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Static knowledge tables. Content lives in data/*.yaml so a maintainer can
// add entries without touching the matching engine; everything is loaded once
// at startup into immutable in-memory structures and validated on the way in.

//go:embed data/*.yaml
var dataFS embed.FS

// ComplicationRule drives the automatic triage layer.
type ComplicationRule struct {
	ID              string   `yaml:"id"`
	Procedure       string   `yaml:"procedure"`
	Name            string   `yaml:"name"`
	Severity        int      `yaml:"severity"` // 0..5
	Keywords        []string `yaml:"keywords"`
	PatientGuidance string   `yaml:"patientGuidance"`
	AlwaysUrgent    bool     `yaml:"alwaysUrgent"`
}

// MaterialCategory is the fixed set of injectable/material classes.
type MaterialCategory string

const (
	CategoryAH             MaterialCategory = "ah"
	CategoryCaHA           MaterialCategory = "caha"
	CategoryPLLA           MaterialCategory = "plla"
	CategoryPCLCMC         MaterialCategory = "pcl_cmc"
	CategoryToxin          MaterialCategory = "toxina"
	CategoryBiopolymers    MaterialCategory = "biopolimeros"
	CategoryLiquidSilicone MaterialCategory = "silicona_liquida"
	CategoryPMMA           MaterialCategory = "pmma"
	CategoryOils           MaterialCategory = "aceites"
	CategoryOther          MaterialCategory = "otro"
)

var validCategories = map[MaterialCategory]bool{
	CategoryAH: true, CategoryCaHA: true, CategoryPLLA: true, CategoryPCLCMC: true,
	CategoryToxin: true, CategoryBiopolymers: true, CategoryLiquidSilicone: true,
	CategoryPMMA: true, CategoryOils: true, CategoryOther: true,
}

// MaterialInfo describes an injectable material (whitelist or blacklist).
type MaterialInfo struct {
	ID                 string           `yaml:"id"`
	Name               string           `yaml:"name"`
	Category           MaterialCategory `yaml:"category"`
	RiskLevel          int              `yaml:"riskLevel"` // 0..5
	Blacklisted        bool             `yaml:"blacklisted"`
	PatientDescription string           `yaml:"patientDescription"`
	Brands             []string         `yaml:"brands"`
	Synonyms           []string         `yaml:"synonyms"`
}

// HighRisk is the single definition of "high risk" used everywhere.
func (m MaterialInfo) HighRisk() bool {
	return m.Blacklisted || m.RiskLevel >= 4
}

// DefinitionEntry answers "¿qué es X?" deterministically.
type DefinitionEntry struct {
	ID         string   `yaml:"id"`
	Term       string   `yaml:"term"`
	Keywords   []string `yaml:"keywords"`
	Definition string   `yaml:"definition"`
	SafetyNote string   `yaml:"safetyNote"`
}

// EmergencyNumber is the per-country emergency phone entry.
type EmergencyNumber struct {
	CountryCode string `yaml:"countryCode"`
	CountryName string `yaml:"countryName"`
	Number      string `yaml:"number"`
	Notes       string `yaml:"notes"`
}

type compiledKeyword struct {
	raw  string
	norm string
}

type compiledComplication struct {
	rule     *ComplicationRule
	keywords []compiledKeyword
}

type compiledCandidate struct {
	raw   string
	norm  string
	score int // token count, min 1; longer phrases are more specific
	len   int
}

type compiledDefinition struct {
	entry      *DefinitionEntry
	candidates []compiledCandidate
}

type compiledMaterial struct {
	info       *MaterialInfo
	candidates []compiledKeyword
}

// KnowledgeBase holds every static table plus precompiled matching data.
// Safe for concurrent reads; never mutated after Load.
type KnowledgeBase struct {
	Complications []ComplicationRule
	Materials     []MaterialInfo
	Definitions   []DefinitionEntry
	Emergencies   []EmergencyNumber

	compiledComplications []compiledComplication
	compiledDefinitions   []compiledDefinition
	orderedMaterials      []compiledMaterial // high-risk first, then risk desc
}

type tableFile[T any] struct {
	Items []T `yaml:"items"`
}

func loadTable[T any](name string) ([]T, error) {
	raw, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var f tableFile[T]
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return f.Items, nil
}

// Load reads and validates all knowledge tables from the embedded data files.
func Load() (*KnowledgeBase, error) {
	kb := &KnowledgeBase{}

	var err error
	if kb.Complications, err = loadTable[ComplicationRule]("complications.yaml"); err != nil {
		return nil, err
	}
	if kb.Materials, err = loadTable[MaterialInfo]("materials.yaml"); err != nil {
		return nil, err
	}
	if kb.Definitions, err = loadTable[DefinitionEntry]("definitions.yaml"); err != nil {
		return nil, err
	}
	if kb.Emergencies, err = loadTable[EmergencyNumber]("emergencies.yaml"); err != nil {
		return nil, err
	}

	if err := kb.validate(); err != nil {
		return nil, err
	}
	kb.compile()
	return kb, nil
}

// validate rejects out-of-range levels and unreachable rules at startup,
// so the runtime layers can trust every record.
func (kb *KnowledgeBase) validate() error {
	for _, c := range kb.Complications {
		if c.ID == "" {
			return fmt.Errorf("complication with empty id")
		}
		if c.Severity < 0 || c.Severity > 5 {
			return fmt.Errorf("complication %q: severity %d out of range 0..5", c.ID, c.Severity)
		}
		if len(c.Keywords) == 0 {
			return fmt.Errorf("complication %q: no keywords, rule unreachable", c.ID)
		}
	}
	for _, m := range kb.Materials {
		if m.ID == "" {
			return fmt.Errorf("material with empty id")
		}
		if m.RiskLevel < 0 || m.RiskLevel > 5 {
			return fmt.Errorf("material %q: riskLevel %d out of range 0..5", m.ID, m.RiskLevel)
		}
		if !validCategories[m.Category] {
			return fmt.Errorf("material %q: unknown category %q", m.ID, m.Category)
		}
	}
	for _, d := range kb.Definitions {
		if d.ID == "" || d.Term == "" {
			return fmt.Errorf("definition with empty id or term")
		}
		if d.Definition == "" {
			return fmt.Errorf("definition %q: empty definition text", d.ID)
		}
	}
	for _, e := range kb.Emergencies {
		if e.CountryCode == "" || e.Number == "" {
			return fmt.Errorf("emergency entry %q: missing code or number", e.CountryName)
		}
	}
	return nil
}

func compileKeywords(raw []string) []compiledKeyword {
	out := make([]compiledKeyword, 0, len(raw))
	for _, k := range raw {
		norm := Normalize(k)
		// drop candidates too short to be meaningful (trivial false positives)
		if len(norm) < 3 {
			continue
		}
		out = append(out, compiledKeyword{raw: k, norm: norm})
	}
	return out
}

func (kb *KnowledgeBase) compile() {
	kb.compiledComplications = make([]compiledComplication, 0, len(kb.Complications))
	for i := range kb.Complications {
		rule := &kb.Complications[i]
		kb.compiledComplications = append(kb.compiledComplications, compiledComplication{
			rule:     rule,
			keywords: compileKeywords(rule.Keywords),
		})
	}

	kb.compiledDefinitions = make([]compiledDefinition, 0, len(kb.Definitions))
	for i := range kb.Definitions {
		entry := &kb.Definitions[i]
		candidatesRaw := append([]string{entry.Term}, entry.Keywords...)

		candidates := make([]compiledCandidate, 0, len(candidatesRaw))
		for _, raw := range candidatesRaw {
			norm := Normalize(raw)
			if len(norm) < 3 {
				continue
			}
			score := len(Tokenize(norm))
			if score < 1 {
				score = 1
			}
			candidates = append(candidates, compiledCandidate{raw: raw, norm: norm, score: score, len: len(norm)})
		}
		kb.compiledDefinitions = append(kb.compiledDefinitions, compiledDefinition{entry: entry, candidates: candidates})
	}

	// Materials scanned high-risk first, then by descending risk, so the
	// result cap preferentially captures the dangerous ones. Stable sort
	// keeps table order inside each band.
	kb.orderedMaterials = make([]compiledMaterial, 0, len(kb.Materials))
	for i := range kb.Materials {
		info := &kb.Materials[i]
		kb.orderedMaterials = append(kb.orderedMaterials, compiledMaterial{
			info:       info,
			candidates: compileKeywords(materialCandidates(info)),
		})
	}
	sort.SliceStable(kb.orderedMaterials, func(i, j int) bool {
		a, b := kb.orderedMaterials[i].info, kb.orderedMaterials[j].info
		if a.HighRisk() != b.HighRisk() {
			return a.HighRisk()
		}
		return a.RiskLevel > b.RiskLevel
	})
}
