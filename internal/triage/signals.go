package triage

import (
	"regexp"
	"sort"
	"strings"

	"aesthetic-triage-bot/internal/rules"
)

// Danger-signal labels referenced by the pipeline. The two critical ones
// short-circuit straight to the emergency reply.
const (
	SignalVisual    = "alteraciones visuales"
	SignalBreathing = "dificultad para respirar o dolor/opresión en el pecho"
)

type dangerRule struct {
	label    string
	priority int
	keywords []string
}

// Ordered by clinical urgency; priority only drives output ordering.
var dangerRules = []dangerRule{
	{
		label:    SignalVisual,
		priority: 100,
		keywords: []string{
			"vision borrosa", "vista borrosa", "veo borroso", "veo borrosa",
			"no veo", "perdi vision", "perdida de vision", "ceguera",
			"se me nubla la vision", "se me nubla", "borroso", "borrosa",
		},
	},
	{
		label:    SignalBreathing,
		priority: 95,
		keywords: []string{
			"dificultad para respirar", "falta de aire", "me ahogo",
			"opresion en el pecho", "dolor en el pecho", "pecho apretado",
		},
	},
	{
		label:    "cambios de color en la piel (palidez/morado/negro)",
		priority: 90,
		keywords: []string{"palido", "palida", "morado", "violaceo", "negro", "cambio de color"},
	},
	{
		label:    "piel fría o entumecimiento",
		priority: 85,
		keywords: []string{"piel fria", "entumecimiento", "hormigueo", "adormecimiento"},
	},
	{
		label:    "dolor intenso",
		priority: 80,
		keywords: []string{"dolor intenso", "dolor fuerte", "dolor insoportable"},
	},
	{
		label:    "ampollas o necrosis",
		priority: 78,
		keywords: []string{"ampolla", "ampollas", "necrosis"},
	},
	{
		label:    "fiebre o datos de infección (secreción/pus)",
		priority: 75,
		keywords: []string{"fiebre", "pus", "secrecion"},
	},
	{
		label:    "inflamación que progresa rápido",
		priority: 70,
		keywords: []string{"inflamacion rapida", "empeora rapido", "hinchazon rapida", "aumento rapido"},
	},
	{
		label:    "mareo o desmayo",
		priority: 60,
		keywords: []string{"mareo", "desmayo"},
	},
}

// DetectDangerSignals returns the distinct alarm-symptom labels found in the
// message, sorted by descending priority (highest clinical urgency first).
func DetectDangerSignals(message string) []string {
	textNorm := rules.Normalize(message)
	textTokens := rules.Tokenize(textNorm)

	best := make(map[string]int)
	for _, rule := range dangerRules {
		for _, kw := range rule.keywords {
			if rules.MatchKeyword(textNorm, textTokens, kw) {
				if prev, ok := best[rule.label]; !ok || rule.priority > prev {
					best[rule.label] = rule.priority
				}
				break
			}
		}
	}

	labels := make([]string, 0, len(best))
	for label := range best {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if best[labels[i]] != best[labels[j]] {
			return best[labels[i]] > best[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

// MaterialContext classifies the user's relationship to a mentioned material.
type MaterialContext string

const (
	ContextConsidering MaterialContext = "considering"
	ContextAlready     MaterialContext = "already"
	ContextUnknown     MaterialContext = "unknown"
)

var alreadyAppliedCues = []string{
	"me puse", "me lo puse", "me inyectaron", "me inyecte", "me aplique",
	"me aplicaron", "ya me puse", "ya me lo puse", "ya me inyectaron",
	"ya me aplicaron", "tengo", "traigo", "desde hace", "hace",
	"me hicieron", "me pusieron", "me lo pusieron",
}

var consideringCues = []string{
	"quiero", "me quiero", "pienso", "estoy pensando", "me ofrecen",
	"me ofrecieron", "me recomendaron", "me recomiendan", "me sugirieron",
	"me sugieren", "me lo voy a poner", "me lo pondre", "me lo pondria",
	"me lo pongo", "cotice", "cotizar",
}

// InferMaterialContext prefers "already" when both cue sets somehow hit.
func InferMaterialContext(message string) MaterialContext {
	t := rules.Normalize(message)

	for _, k := range alreadyAppliedCues {
		if strings.Contains(t, k) {
			return ContextAlready
		}
	}
	for _, k := range consideringCues {
		if strings.Contains(t, k) {
			return ContextConsidering
		}
	}
	return ContextUnknown
}

// ProcedureContext captures whether the message sounds like it follows a
// recent procedure.
type ProcedureContext struct {
	LikelyPostProcedure bool
	HasInjectionVerb    bool
	HasEnergyDeviceHint bool
}

var injectionVerbs = []string{
	"me inyectaron", "me inyecte", "me aplicaron", "me aplique",
	"me pusieron", "me puse", "me lo pusieron", "me lo aplicaron",
	"me realizaron", "me hice",
}

var energyDeviceHints = []string{"laser", "ipl", "luz pulsada", "radiofrecuencia", "hifu"}

func InferProcedureContext(message string) ProcedureContext {
	t := rules.Normalize(message)

	var ctx ProcedureContext
	for _, k := range injectionVerbs {
		if strings.Contains(t, k) {
			ctx.HasInjectionVerb = true
			break
		}
	}
	for _, k := range energyDeviceHints {
		if strings.Contains(t, k) {
			ctx.HasEnergyDeviceHint = true
			break
		}
	}
	ctx.LikelyPostProcedure = ctx.HasInjectionVerb || ctx.HasEnergyDeviceHint
	return ctx
}

var symptomVerbCues = []string{
	"tengo", "me pasa", "me paso", "me duele", "me arde", "me siento",
	"siento", "presento", "empece", "ahora", "desde", "me dejo",
	"veo", "no veo", "se me nubla", "se me nubl",
}

// IsSymptomReport distinguishes live symptom disclosure from a theoretical
// or definitional mention of the same words.
func IsSymptomReport(message string) bool {
	t := rules.Normalize(message)
	for _, k := range symptomVerbCues {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

var (
	greetingPattern = regexp.MustCompile(`^(hola|holi|buenas|buenos dias|buenas tardes|buenas noches)\b`)

	chitChatPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(como estas|que tal|todo bien|todo bn|todo ok)\b`),
		regexp.MustCompile(`\b(gracias|muchas gracias)\b`),
	}
)

// Keywords that mean the message is no longer idle chatter.
var importantKeywords = []string{
	"botox", "toxina", "acido", "hialuron", "biopol", "silicona", "relleno",
	"hidroxiapatita", "caha", "radiesse", "laser", "ipl", "luz pulsada",
	"peeling", "hifu", "radiofrecuencia", "dolor", "vision", "fiebre",
}

// IsSmallTalk detects greetings and pleasantries. A greeting mixed with a
// medical or clearly off-topic keyword carries real intent and is not small
// talk. Very short messages without keywords count as small talk too, except
// in sessions already classified esthetic, where they are presumed follow-ups
// ("solo la punta", "en labios").
func IsSmallTalk(message string, sessionDomain SessionDomain) bool {
	t := rules.Normalize(message)

	hasGreeting := greetingPattern.MatchString(t)

	hasImportantKeyword := false
	for _, kw := range importantKeywords {
		if strings.Contains(t, kw) {
			hasImportantKeyword = true
			break
		}
	}
	hasOffTopicKeyword := HasOffTopicKeyword(t)

	if hasGreeting && (hasImportantKeyword || hasOffTopicKeyword) {
		return false
	}

	looksLikeChitChat := hasGreeting
	if !looksLikeChitChat {
		for _, p := range chitChatPatterns {
			if p.MatchString(t) {
				looksLikeChitChat = true
				break
			}
		}
	}
	if looksLikeChitChat {
		return true
	}

	if len(t) <= 20 {
		if sessionDomain == DomainEsthetic {
			return false
		}
		return !hasImportantKeyword && !hasOffTopicKeyword
	}

	return false
}

var smallTalkHardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(hola|holi|buenas|buenos dias|buenas tardes|buenas noches)\b`),
	regexp.MustCompile(`\b(como estas|que tal|todo bien|todo bn|todo ok)\b`),
	regexp.MustCompile(`\b(gracias|muchas gracias)\b`),
}

// looksLikeBareTermQuery is the conservative "bare term" heuristic: a short,
// isolated technical-sounding input ("ptosis", "biofilm") is very likely a
// definition lookup even without a question mark. It must never override a
// genuine symptom disclosure or a post-procedure report.
func looksLikeBareTermQuery(message string) bool {
	raw := strings.TrimSpace(message)
	if raw == "" {
		return false
	}
	if len(raw) > 26 {
		return false
	}

	norm := rules.Normalize(raw)
	tokens := rules.Tokenize(norm)
	if len(tokens) == 0 || len(tokens) > 2 {
		return false
	}
	// two tokens only when the raw text is short
	if len(tokens) == 2 && len(raw) > 22 {
		return false
	}

	for _, p := range smallTalkHardPatterns {
		if p.MatchString(norm) {
			return false
		}
	}

	if IsSymptomReport(raw) {
		return false
	}
	if InferProcedureContext(raw).LikelyPostProcedure {
		return false
	}

	return true
}

// IsDefinitionIntent is true for explicit "qué es X" style questions and for
// bare-term lookups.
func IsDefinitionIntent(message string) bool {
	return rules.IsDefinitionQuestion(message) || looksLikeBareTermQuery(message)
}

var planDecisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(cuando|en que momento|cuanto tiempo|intervalo|esperar|despues de|antes de)\b`),
	regexp.MustCompile(`\b(puedo|debo|conviene|recomiendas|recomendable|mejor|peor)\b`),
	regexp.MustCompile(`\b(cambiar de|pasar de|vs|versus|comparar|diferencia)\b`),
	regexp.MustCompile(`\b(dosis|sesiones|protocolo|indicacion|contraindicacion)\b`),
}

// looksLikePlanOrDecision flags temporal/comparative/dosage questions, long
// messages and multi-question messages as too complex for canned answers.
func looksLikePlanOrDecision(message string) bool {
	t := rules.Normalize(message)

	for _, p := range planDecisionPatterns {
		if p.MatchString(t) {
			return true
		}
	}
	if len(t) >= 70 {
		return true
	}
	return strings.Count(message, "?") >= 2
}

var educationalBroadPattern = regexp.MustCompile(`\b(riesgos|complicaciones|que tan seguro|peligroso|efectos secundarios|probabilidad)\b`)

func looksLikeEducationalBroad(message string) bool {
	return educationalBroadPattern.MatchString(rules.Normalize(message))
}
