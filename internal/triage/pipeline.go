package triage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/platform/emergency"
	"aesthetic-triage-bot/internal/rules"
)

// BrainRequest carries everything the generative fallback needs for one call.
type BrainRequest struct {
	Message       string
	Mode          string
	ContextPack   string
	ClosingSuffix string
}

// Responder is the generative fallback. It converts provider failures to
// usable canned text, so it never returns an error.
type Responder interface {
	Respond(ctx context.Context, req BrainRequest) string
}

// Result is the outcome of running the pipeline over one message.
type Result struct {
	Reply string
	Route RouteDecision
	Facts *Facts
}

// Engine runs the layered response pipeline. Layers are evaluated in strict
// precedence order and each one short-circuits on match:
// domain gate, triage guard, definitions, complication triage, material risk,
// router (brain or general reply).
type Engine struct {
	kb        *rules.KnowledgeBase
	emergency *emergency.Directory
	brain     Responder
	log       *zap.SugaredLogger
}

func NewEngine(kb *rules.KnowledgeBase, dir *emergency.Directory, brain Responder, log *zap.SugaredLogger) *Engine {
	return &Engine{kb: kb, emergency: dir, brain: brain, log: log}
}

// ModeQuick suppresses the legal closing and asks the brain for brevity.
const ModeQuick = "quick"

// Process classifies the message and produces the reply. All deterministic
// safety layers work even when the generative provider is unavailable.
func (e *Engine) Process(ctx context.Context, message, mode string, profile *Profile, sessionDomain SessionDomain) Result {
	// Quick mode drops the profile and the closing suffix.
	if mode == ModeQuick {
		profile = nil
	}
	closingSuffix := "\n\n" + Closing
	if mode == ModeQuick {
		closingSuffix = ""
	}

	var country string
	if profile != nil {
		country = profile.Country
	}

	textNorm := rules.Normalize(message)
	facts := BuildFacts(e.kb, message)

	// Thematic fence. Safety overrides topicality: danger signals or a
	// high-risk material bypass the gate entirely, and so does small talk.
	looksEmergencyLike := len(facts.DangerSignals) > 0 || facts.HighRiskMaterial != nil
	isMsgSmallTalk := IsSmallTalk(message, sessionDomain)

	if !looksEmergencyLike && !isMsgSmallTalk {
		if reply, blocked := e.domainGate(textNorm, sessionDomain, closingSuffix); blocked {
			return Result{Reply: reply, Route: RouteDecision{RouteGeneral, ReasonFallback}, Facts: facts}
		}
	}

	// Triage guard: critical signals (or contextual ones backed by an actual
	// symptom report after a procedure) resolve to an emergency reply. A pure
	// definition lookup instead carries the signals forward as a footnote.
	var signalsForDefinition []string
	if len(facts.DangerSignals) > 0 {
		critical := facts.HasVisionSignal || facts.HasBreathingSignal
		highButContextual := !critical && facts.ProcedureCtx.LikelyPostProcedure && facts.SymptomReport
		definitionOnly := facts.DefinitionIntent && !facts.SymptomReport && !facts.ProcedureCtx.LikelyPostProcedure

		if (critical || highButContextual) && !definitionOnly {
			e.log.Debugw("triage guard fired", "signals", facts.DangerSignals, "critical", critical)
			return Result{
				Reply: emergencyReply(facts.DangerSignals, e.emergency.Line(country)),
				Route: RouteDecision{RouteDeterministic, ReasonEmergency},
				Facts: facts,
			}
		}
		if definitionOnly {
			signalsForDefinition = facts.DangerSignals
		}
	}

	// Definition layer.
	hasDefinitionHit := false
	if facts.DefinitionIntent {
		if match := e.kb.FindDefinition(message); match != nil {
			hasDefinitionHit = true

			var safetyParts []string
			if len(signalsForDefinition) > 0 {
				safetyParts = append(safetyParts, definitionSafetyNote(signalsForDefinition))
			}
			if note := match.Entry.SafetyNote; note != "" {
				safetyParts = append(safetyParts, "⚠️ "+note)
			}

			return Result{
				Reply: definitionReply(match.Entry.Term, match.Entry.Definition, safetyParts, closingSuffix),
				Route: RouteDecision{RouteDeterministic, ReasonDefinition},
				Facts: facts,
			}
		}
	}

	// Complication triage layer. Severity bands: >=4 or forced flag is an
	// emergency, <=2 mild reassurance, ==3 prompt review. Out-of-range levels
	// are rejected at table load, so the bands are exhaustive here.
	if c := e.kb.FindHighestSeverityComplication(message); c != nil {
		route := RouteDecision{RouteDeterministic, ReasonTriageComplication}
		switch {
		case c.Severity >= 4 || c.AlwaysUrgent:
			return Result{Reply: complicationUrgentReply(c.PatientGuidance, e.emergency.Line(country)), Route: route, Facts: facts}
		case c.Severity <= 2:
			return Result{Reply: complicationMildReply(c.PatientGuidance) + closingSuffix, Route: route, Facts: facts}
		default: // 3
			return Result{Reply: complicationReviewReply(c.PatientGuidance) + closingSuffix, Route: route, Facts: facts}
		}
	}

	// Material-risk layer: only resolves deterministically for a high-risk
	// material; with unknown context it falls through to the router.
	if m := facts.HighRiskMaterial; m != nil {
		route := RouteDecision{RouteDeterministic, ReasonHighRiskMaterial}

		if len(facts.DangerSignals) > 0 {
			return Result{Reply: highRiskEmergencyReply(facts.DangerSignals, e.emergency.Line(country)), Route: route, Facts: facts}
		}
		switch facts.MaterialContext {
		case ContextConsidering:
			return Result{Reply: highRiskConsideringReply(m.PatientDescription) + closingSuffix, Route: route, Facts: facts}
		case ContextAlready:
			return Result{Reply: highRiskAlreadyReply(m.PatientDescription) + closingSuffix, Route: route, Facts: facts}
		}
	}

	// Router.
	route := DecideRoute(message, hasDefinitionHit, facts.DefinitionIntent,
		facts.MaterialForRouting, facts.MaterialContext, sessionDomain)
	e.log.Debugw("routed", "route", route.Route, "reason", route.Reason)

	if route.Route == RouteBrain {
		reply := e.brain.Respond(ctx, BrainRequest{
			Message:       message,
			Mode:          mode,
			ContextPack:   buildContextPack(profile, facts, route, message),
			ClosingSuffix: closingSuffix,
		})
		return Result{Reply: reply, Route: route, Facts: facts}
	}

	// General reply (small talk or fallback).
	if route.Route != RouteGeneral {
		route = RouteDecision{RouteGeneral, ReasonFallback}
	}
	main := generalFallbackReply
	if strings.Contains(textNorm, "gracias") {
		main = gratitudeReply
	}
	return Result{Reply: main + closingSuffix, Route: route, Facts: facts}
}

// domainGate applies the thematic fence. Returns the fixed redirect reply and
// true when the message is blocked. It never invokes the generative fallback.
func (e *Engine) domainGate(textNorm string, sessionDomain SessionDomain, closingSuffix string) (string, bool) {
	hasEsthetic := HasEstheticKeyword(textNorm)
	hasOffTopic := HasOffTopicKeyword(textNorm)

	if sessionDomain == DomainEsthetic {
		// Established esthetic session: only block clear off-topic drift, so
		// short follow-ups ("solo la punta", "en labios") pass through.
		if !hasEsthetic && hasOffTopic {
			return offTopicKnownSessionReply + closingSuffix, true
		}
		return "", false
	}

	if !hasEsthetic && hasOffTopic {
		return offTopicReply + closingSuffix, true
	}
	if !hasEsthetic && !hasOffTopic {
		return ambiguousTopicReply + closingSuffix, true
	}
	return "", false
}

// buildContextPack serializes the deterministic findings for the brain call.
func buildContextPack(profile *Profile, facts *Facts, route RouteDecision, message string) string {
	routeLine := fmt.Sprintf("Router: route=%s, reason=%s", route.Route, route.Reason)

	profileLine := "Perfil: null (modo quick o sin perfil)"
	if profile != nil {
		profileLine = fmt.Sprintf("Perfil: name=%s, ageRange=%s, country=%s, area=%s, isPregnant=%t",
			orNA(profile.Name), orNA(profile.AgeRange), orNA(profile.Country), orNA(profile.Area), profile.IsPregnant)
	}

	materialLine := "Materiales detectados: null"
	if len(facts.MaterialsFound) > 0 {
		parts := make([]string, len(facts.MaterialsFound))
		for i, m := range facts.MaterialsFound {
			parts[i] = fmt.Sprintf("id=%s, nombre=%s, categoria=%s, riesgo=%d, listaNegra=%t",
				m.ID, m.Name, m.Category, m.RiskLevel, m.Blacklisted)
		}
		highRisk := "none"
		if facts.HighRiskMaterial != nil {
			highRisk = facts.HighRiskMaterial.ID
		}
		materialLine = fmt.Sprintf("Materiales detectados: %s, highRisk=%s, contexto=%s",
			strings.Join(parts, " | "), highRisk, facts.MaterialContext)
	}

	dangerLine := "Señales de alarma detectadas: none"
	if len(facts.DangerSignals) > 0 {
		dangerLine = "Señales de alarma detectadas (no necesariamente urgencia): " + strings.Join(facts.DangerSignals, ", ")
	}

	procLine := fmt.Sprintf("Contexto post-procedimiento: likely=%t", facts.ProcedureCtx.LikelyPostProcedure)
	defLine := fmt.Sprintf("Intención de definición: %t", facts.DefinitionIntent)

	lines := []string{routeLine, profileLine, materialLine, dangerLine, procLine, defLine}

	// Give the brain the probable term when a definition lookup missed the table.
	if route.Reason == ReasonDefinitionUnknown {
		if term := rules.ExtractLikelyTerm(message); term != "" {
			lines = append(lines, "Término probable a definir: "+term)
		}
	}

	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
