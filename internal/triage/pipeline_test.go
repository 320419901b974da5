package triage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/platform/emergency"
	"aesthetic-triage-bot/internal/rules"
)

// stubResponder records the last request and returns a fixed reply.
type stubResponder struct {
	reply   string
	lastReq BrainRequest
	calls   int
}

func (s *stubResponder) Respond(_ context.Context, req BrainRequest) string {
	s.lastReq = req
	s.calls++
	return s.reply
}

func newTestEngine(t *testing.T) (*Engine, *stubResponder) {
	t.Helper()
	kb, err := rules.Load()
	require.NoError(t, err)

	brain := &stubResponder{reply: "respuesta generada"}
	engine := NewEngine(kb, emergency.NewDirectory(kb.Emergencies), brain, zap.NewNop().Sugar())
	return engine, brain
}

func TestProcessSmallTalk(t *testing.T) {
	engine, brain := newTestEngine(t)

	res := engine.Process(context.Background(), "hola", "", nil, DomainUnknown)

	assert.Equal(t, RouteGeneral, res.Route.Route)
	assert.Equal(t, ReasonSmallTalk, res.Route.Reason)
	assert.Contains(t, res.Reply, Closing)
	assert.Zero(t, brain.calls)
}

func TestProcessGratitude(t *testing.T) {
	engine, _ := newTestEngine(t)

	res := engine.Process(context.Background(), "muchas gracias!", "", nil, DomainEsthetic)

	assert.Equal(t, RouteGeneral, res.Route.Route)
	assert.Contains(t, res.Reply, "Gracias a ti por confiar en DrBeautyBot")
}

func TestProcessDomainGate(t *testing.T) {
	engine, brain := newTestEngine(t)

	t.Run("off topic blocked", func(t *testing.T) {
		res := engine.Process(context.Background(), "necesito ayuda con mi contrato de arrendamiento", "", nil, DomainUnknown)
		assert.Equal(t, RouteGeneral, res.Route.Route)
		assert.Equal(t, ReasonFallback, res.Route.Reason)
		assert.Contains(t, res.Reply, "Soy DrBeautyBot")
		assert.Zero(t, brain.calls)
	})

	t.Run("ambiguous asked to clarify", func(t *testing.T) {
		res := engine.Process(context.Background(), "quisiera que me ayudes con un asunto importante de mi familia", "", nil, DomainUnknown)
		assert.Equal(t, ReasonFallback, res.Route.Reason)
		assert.Contains(t, res.Reply, "claramente relacionada con medicina estética")
	})

	t.Run("esthetic session tolerates short followups", func(t *testing.T) {
		res := engine.Process(context.Background(), "quisiera hacerlo solamente en la zona del pomulo izquierdo", "", nil, DomainEsthetic)
		assert.NotEqual(t, ReasonFallback, res.Route.Reason)
	})

	t.Run("danger signals bypass the gate", func(t *testing.T) {
		res := engine.Process(context.Background(), "no es de estetica pero desde hace una hora no veo y tengo dolor intenso", "", nil, DomainUnknown)
		assert.Equal(t, ReasonEmergency, res.Route.Reason)
	})
}

func TestProcessEmergency(t *testing.T) {
	engine, brain := newTestEngine(t)

	profile := &Profile{Country: "ES"}
	res := engine.Process(context.Background(), "me inyectaron relleno hace 2 horas y ahora veo borroso y me duele muchisimo", "", profile, DomainUnknown)

	assert.Equal(t, RouteDeterministic, res.Route.Route)
	assert.Equal(t, ReasonEmergency, res.Route.Reason)
	assert.Contains(t, res.Reply, "urgencias")
	assert.Contains(t, res.Reply, "112")
	assert.Contains(t, res.Reply, Closing)
	assert.Zero(t, brain.calls)
}

func TestProcessDefinition(t *testing.T) {
	engine, brain := newTestEngine(t)

	t.Run("bare term", func(t *testing.T) {
		res := engine.Process(context.Background(), "acido hialuronico", "", nil, DomainUnknown)
		assert.Equal(t, RouteDeterministic, res.Route.Route)
		assert.Equal(t, ReasonDefinition, res.Route.Reason)
		assert.Contains(t, res.Reply, "ácido hialurónico")
		assert.Contains(t, res.Reply, Closing)
		assert.Zero(t, brain.calls)
	})

	t.Run("definition with table safety note", func(t *testing.T) {
		res := engine.Process(context.Background(), "que es la hialuronidasa y para que sirve", "", nil, DomainUnknown)
		assert.Equal(t, ReasonDefinition, res.Route.Reason)
		assert.Contains(t, res.Reply, "Solo debe aplicarla un médico")
	})

	t.Run("symptom term carries danger footnote instead of emergency", func(t *testing.T) {
		res := engine.Process(context.Background(), "que significa vision borrosa", "", nil, DomainUnknown)
		assert.Equal(t, ReasonDefinition, res.Route.Reason)
		assert.Contains(t, res.Reply, "Nota de seguridad")
	})

	t.Run("unknown term goes to the brain with the likely term", func(t *testing.T) {
		res := engine.Process(context.Background(), "que es la lipopapada exactamente", "", nil, DomainEsthetic)
		assert.Equal(t, RouteBrain, res.Route.Route)
		assert.Equal(t, ReasonDefinitionUnknown, res.Route.Reason)
		assert.Contains(t, brain.lastReq.ContextPack, "Término probable a definir")
	})
}

func TestProcessComplications(t *testing.T) {
	engine, _ := newTestEngine(t)

	t.Run("urgent complication", func(t *testing.T) {
		res := engine.Process(context.Background(), "tengo fiebre y pus en la zona del relleno", "", nil, DomainUnknown)
		assert.Equal(t, RouteDeterministic, res.Route.Route)
		assert.Equal(t, ReasonTriageComplication, res.Route.Reason)
		assert.Contains(t, res.Reply, "urgencias")
	})

	t.Run("mild complication reassures", func(t *testing.T) {
		res := engine.Process(context.Background(), "me salio un moreton despues del relleno de labios", "", nil, DomainUnknown)
		assert.Equal(t, ReasonTriageComplication, res.Route.Reason)
		assert.Contains(t, res.Reply, "reacciones leves pueden ser esperables")
		assert.Contains(t, res.Reply, Closing)
	})

	t.Run("severity three asks for review", func(t *testing.T) {
		res := engine.Process(context.Background(), "me salio una bolita dura meses despues del relleno", "", nil, DomainUnknown)
		assert.Equal(t, ReasonTriageComplication, res.Route.Reason)
		assert.Contains(t, res.Reply, "revisión prioritaria")
	})
}

func TestProcessHighRiskMaterial(t *testing.T) {
	engine, brain := newTestEngine(t)

	t.Run("considering gets the dissuasion reply", func(t *testing.T) {
		res := engine.Process(context.Background(), "me ofrecieron biopolimeros mas baratos que el acido hialuronico", "", nil, DomainUnknown)
		assert.Equal(t, RouteDeterministic, res.Route.Route)
		assert.Equal(t, ReasonHighRiskMaterial, res.Route.Reason)
		assert.Contains(t, res.Reply, "no es recomendable")
	})

	t.Run("already applied gets the care reply", func(t *testing.T) {
		res := engine.Process(context.Background(), "me inyectaron biopolimeros hace tres anos en gluteos", "", nil, DomainUnknown)
		assert.Equal(t, ReasonHighRiskMaterial, res.Route.Reason)
		assert.Contains(t, res.Reply, "no manipular la zona")
	})

	t.Run("with danger signals escalates", func(t *testing.T) {
		res := engine.Process(context.Background(), "tengo biopolimeros y la piel se esta poniendo morada", "", nil, DomainUnknown)
		assert.Equal(t, ReasonHighRiskMaterial, res.Route.Reason)
		assert.Contains(t, res.Reply, "urgencias de inmediato")
	})

	t.Run("unknown context falls through to the brain", func(t *testing.T) {
		res := engine.Process(context.Background(), "los biopolimeros salen mucho en las noticias ultimamente en mi pais", "", nil, DomainEsthetic)
		assert.Equal(t, RouteBrain, res.Route.Route)
		assert.Equal(t, 1, brain.calls)
	})
}

func TestProcessBrainRouting(t *testing.T) {
	engine, brain := newTestEngine(t)

	res := engine.Process(context.Background(), "¿cuanto tiempo debo esperar entre botox y relleno?", "", nil, DomainUnknown)

	assert.Equal(t, RouteBrain, res.Route.Route)
	assert.Equal(t, ReasonPlanDecision, res.Route.Reason)
	assert.Equal(t, "respuesta generada", res.Reply)
	require.Equal(t, 1, brain.calls)
	assert.Contains(t, brain.lastReq.ContextPack, "route=brain")
	assert.Contains(t, brain.lastReq.ClosingSuffix, Closing)
}

func TestProcessQuickMode(t *testing.T) {
	engine, brain := newTestEngine(t)

	profile := &Profile{Name: "Ana", Country: "MX"}
	res := engine.Process(context.Background(), "¿cuanto tiempo debo esperar entre botox y relleno?", ModeQuick, profile, DomainUnknown)

	assert.Equal(t, RouteBrain, res.Route.Route)
	assert.Empty(t, brain.lastReq.ClosingSuffix)
	// Quick mode drops the profile from the context pack.
	assert.Contains(t, brain.lastReq.ContextPack, "Perfil: null")

	res = engine.Process(context.Background(), "hola", ModeQuick, nil, DomainUnknown)
	assert.NotContains(t, res.Reply, Closing)
}

func TestProcessEmergencyStillWorksWithoutBrain(t *testing.T) {
	// The deterministic safety layers never touch the responder.
	kb, err := rules.Load()
	require.NoError(t, err)
	engine := NewEngine(kb, emergency.NewDirectory(kb.Emergencies), nil, zap.NewNop().Sugar())

	res := engine.Process(context.Background(), "no veo despues del relleno y tengo dolor intenso", "", nil, DomainUnknown)
	assert.Equal(t, ReasonEmergency, res.Route.Reason)
	assert.True(t, strings.Contains(res.Reply, "urgencias"))
}
