package triage

import "aesthetic-triage-bot/internal/rules"

// Route is the handling path for a message.
type Route string

const (
	RouteDeterministic Route = "deterministic"
	RouteBrain         Route = "brain"
	RouteGeneral       Route = "general"
)

// Reason qualifies a route.
type Reason string

const (
	// deterministic
	ReasonEmergency          Reason = "emergency"
	ReasonDefinition         Reason = "definition"
	ReasonHighRiskMaterial   Reason = "high_risk_material"
	ReasonTriageComplication Reason = "triage_complication"
	// brain
	ReasonPlanDecision      Reason = "plan_decision"
	ReasonEducationalBroad  Reason = "educational_broad"
	ReasonDefinitionUnknown Reason = "definition_unknown"
	ReasonGeneralQuestion   Reason = "general_question"
	// general
	ReasonSmallTalk Reason = "small_talk"
	ReasonFallback  Reason = "fallback"
)

// RouteDecision is the single routing outcome for a message.
type RouteDecision struct {
	Route  Route
	Reason Reason
}

// DecideRoute applies the fixed routing precedence. Detection is not
// resolution: the layered pipeline intercepts emergencies and complication
// triage before this function runs, so the router only distributes the
// messages those harder safety layers let through.
//
// Precedence, first match wins:
//  1. small talk
//  2. definition intent with a table hit -> deterministic definition
//  3. definition intent without a hit -> brain (never drop the question)
//  4. high-risk material with known context -> deterministic caution
//  5. plan/decision phrasing, long or multi-question -> brain
//  6. broad educational phrasing -> brain
//  7. everything else -> brain as a general question
func DecideRoute(rawMessage string, hasDefinitionHit, definitionIntent bool,
	material *rules.MaterialInfo, materialContext MaterialContext,
	sessionDomain SessionDomain) RouteDecision {

	if IsSmallTalk(rawMessage, sessionDomain) {
		return RouteDecision{RouteGeneral, ReasonSmallTalk}
	}

	if definitionIntent && hasDefinitionHit {
		return RouteDecision{RouteDeterministic, ReasonDefinition}
	}
	if definitionIntent && !hasDefinitionHit {
		return RouteDecision{RouteBrain, ReasonDefinitionUnknown}
	}

	if material != nil && material.HighRisk() &&
		(materialContext == ContextConsidering || materialContext == ContextAlready) {
		return RouteDecision{RouteDeterministic, ReasonHighRiskMaterial}
	}

	if looksLikePlanOrDecision(rawMessage) {
		return RouteDecision{RouteBrain, ReasonPlanDecision}
	}
	if looksLikeEducationalBroad(rawMessage) {
		return RouteDecision{RouteBrain, ReasonEducationalBroad}
	}

	return RouteDecision{RouteBrain, ReasonGeneralQuestion}
}
