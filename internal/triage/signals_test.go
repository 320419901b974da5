package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDangerSignals(t *testing.T) {
	t.Run("visual signal", func(t *testing.T) {
		got := DetectDangerSignals("desde ayer veo borroso")
		require.NotEmpty(t, got)
		assert.Equal(t, SignalVisual, got[0])
	})

	t.Run("breathing signal", func(t *testing.T) {
		got := DetectDangerSignals("siento falta de aire y el pecho apretado")
		require.NotEmpty(t, got)
		assert.Equal(t, SignalBreathing, got[0])
	})

	t.Run("ordered by priority, deduplicated", func(t *testing.T) {
		got := DetectDangerSignals("tengo fiebre, la piel palida y ademas veo borroso, todo borroso")
		require.GreaterOrEqual(t, len(got), 3)
		assert.Equal(t, SignalVisual, got[0])
		// no repeated labels
		seen := map[string]bool{}
		for _, s := range got {
			assert.False(t, seen[s], "duplicate label %s", s)
			seen[s] = true
		}
	})

	t.Run("clean message", func(t *testing.T) {
		assert.Empty(t, DetectDangerSignals("quiero agendar una cita para valoracion"))
	})
}

func TestInferMaterialContext(t *testing.T) {
	tests := []struct {
		message string
		want    MaterialContext
	}{
		{"me inyectaron biopolimeros hace dos anos", ContextAlready},
		{"tengo biopolimeros en gluteos", ContextAlready},
		{"estoy pensando en ponerme acido hialuronico", ContextConsidering},
		{"me ofrecieron un modelante mas barato", ContextConsidering},
		{"los biopolimeros son peligrosos", ContextUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferMaterialContext(tt.message), "message %q", tt.message)
	}
}

func TestInferMaterialContextPrefersAlready(t *testing.T) {
	// Both cue families present: "already" wins.
	got := InferMaterialContext("quiero quitarme lo que me inyectaron")
	assert.Equal(t, ContextAlready, got)
}

func TestInferProcedureContext(t *testing.T) {
	t.Run("injection verb", func(t *testing.T) {
		ctx := InferProcedureContext("me inyectaron relleno en labios ayer")
		assert.True(t, ctx.HasInjectionVerb)
		assert.True(t, ctx.LikelyPostProcedure)
	})
	t.Run("energy device", func(t *testing.T) {
		ctx := InferProcedureContext("despues del laser me quedo una marca")
		assert.True(t, ctx.HasEnergyDeviceHint)
		assert.True(t, ctx.LikelyPostProcedure)
	})
	t.Run("neither", func(t *testing.T) {
		ctx := InferProcedureContext("que cuidados tiene el peeling quimico")
		assert.False(t, ctx.LikelyPostProcedure)
	})
}

func TestIsSmallTalk(t *testing.T) {
	tests := []struct {
		name    string
		message string
		domain  SessionDomain
		want    bool
	}{
		{"plain greeting", "hola", DomainUnknown, true},
		{"pleasantry", "muchas gracias!", DomainUnknown, true},
		{"greeting with medical keyword", "hola, tengo una duda sobre botox", DomainUnknown, false},
		{"greeting with offtopic keyword", "hola, ayudame con un contrato", DomainUnknown, false},
		{"short message unknown session", "y ahora que", DomainUnknown, true},
		{"short followup in esthetic session", "solo la punta", DomainEsthetic, false},
		{"long message", "quisiera saber cuanto dura el efecto del tratamiento en la frente", DomainUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSmallTalk(tt.message, tt.domain))
		})
	}
}

func TestIsDefinitionIntent(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"explicit question", "¿Qué es la hialuronidasa?", true},
		{"bare term", "biofilm", true},
		{"bare two-token term", "toxina botulinica", true},
		{"greeting is not a lookup", "hola", false},
		{"symptom disclosure is not a lookup", "tengo necrosis", false},
		{"post procedure is not a lookup", "me inyectaron ayer", false},
		{"long message without pattern", "me gustaria saber si los rellenos duelen mucho al aplicarlos", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDefinitionIntent(tt.message))
		})
	}
}

func TestLooksLikePlanOrDecision(t *testing.T) {
	assert.True(t, looksLikePlanOrDecision("¿cuanto tiempo debo esperar entre botox y relleno?"))
	assert.True(t, looksLikePlanOrDecision("botox vs relleno para el entrecejo"))
	assert.True(t, looksLikePlanOrDecision("¿me lo pongo? ¿o no?"))
	assert.False(t, looksLikePlanOrDecision("hola"))
}

func TestParseSessionDomain(t *testing.T) {
	assert.Equal(t, DomainEsthetic, ParseSessionDomain("esthetic"))
	assert.Equal(t, DomainOffTopic, ParseSessionDomain("offtopic"))
	assert.Equal(t, DomainUnknown, ParseSessionDomain(""))
	assert.Equal(t, DomainUnknown, ParseSessionDomain("algo-viejo"))
}

func TestDomainKeywords(t *testing.T) {
	assert.True(t, HasEstheticKeyword("quiero relleno en labios"))
	assert.False(t, HasEstheticKeyword("necesito ayuda con mi contrato"))
	assert.True(t, HasOffTopicKeyword("necesito ayuda con mi contrato de arrendamiento"))
	assert.False(t, HasOffTopicKeyword("quiero relleno en labios"))
}
