package triage

import (
	"fmt"
	"strings"

	"aesthetic-triage-bot/internal/rules"
)

// QualityEventKind tags a loggable event. Telemetry only: the event never
// influences the reply sent to the user.
type QualityEventKind string

const (
	EventComplication QualityEventKind = "complication"
	EventMaterial     QualityEventKind = "material"
	EventDangerSignal QualityEventKind = "danger_signal"
	EventNone         QualityEventKind = "none"
)

// dangerSignalPseudoSeverity is the fixed severity recorded for bare
// danger-signal events (no complication record to take it from).
const dangerSignalPseudoSeverity = 4

// QualityEvent is a closed tagged value; fields beyond Kind are populated per
// variant.
type QualityEvent struct {
	Kind QualityEventKind

	// complication
	ComplicationID string
	Severity       int

	// material
	MaterialID  string
	Risk        int
	Blacklisted bool
	Context     MaterialContext

	// material + danger_signal
	DangerSignals []string
	Urgent        bool

	// none
	NoneReason Reason // small_talk or general_question family
}

// Key encodes the event identity for the cooldown/dedup logic.
func (e QualityEvent) Key() string {
	switch e.Kind {
	case EventComplication:
		return fmt.Sprintf("complication:%s:sev%d:urgent%d", e.ComplicationID, e.Severity, boolBit(e.Urgent))
	case EventMaterial:
		return fmt.Sprintf("material:%s:risk%d:blk%d:urgent%d:ctx%s",
			e.MaterialID, e.Risk, boolBit(e.Blacklisted), boolBit(e.Urgent), e.Context)
	case EventDangerSignal:
		return "danger:" + strings.Join(e.DangerSignals, "|")
	default:
		return ""
	}
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ClassifyQualityEvent derives the telemetry event for a message, reusing the
// precomputed facts to avoid re-running extractors. Evaluation order: small
// talk, complication, material, bare danger signals, none. Danger signals are
// not counted when the message was a definition lookup, so asking about a
// symptom term does not inflate the urgent counters.
func ClassifyQualityEvent(kb *rules.KnowledgeBase, message string, facts *Facts) QualityEvent {
	if IsSmallTalk(message, DomainUnknown) {
		return QualityEvent{Kind: EventNone, NoneReason: ReasonSmallTalk}
	}

	if c := kb.FindHighestSeverityComplication(message); c != nil {
		return QualityEvent{
			Kind:           EventComplication,
			ComplicationID: c.ID,
			Severity:       c.Severity,
			Urgent:         c.Severity >= 4 || c.AlwaysUrgent,
		}
	}

	// Prefer logging the high-risk hit when one exists, else the first match.
	material := facts.HighRiskMaterial
	if material == nil && len(facts.MaterialsFound) > 0 {
		material = &facts.MaterialsFound[0]
	}

	if material != nil {
		// Danger signals are only attached to high-risk material events.
		var signals []string
		if material.HighRisk() {
			signals = facts.DangerSignals
		}
		return QualityEvent{
			Kind:          EventMaterial,
			MaterialID:    material.ID,
			Risk:          material.RiskLevel,
			Blacklisted:   material.Blacklisted,
			Context:       facts.MaterialContext,
			DangerSignals: signals,
			Urgent:        material.HighRisk() && len(signals) > 0,
		}
	}

	if !facts.DefinitionIntent && len(facts.DangerSignals) > 0 {
		return QualityEvent{
			Kind:          EventDangerSignal,
			Severity:      dangerSignalPseudoSeverity,
			DangerSignals: facts.DangerSignals,
			Urgent:        true,
		}
	}

	return QualityEvent{Kind: EventNone, NoneReason: ReasonGeneralQuestion}
}
