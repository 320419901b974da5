package triage

import (
	"fmt"
	"strings"
)

// Legal closing appended to most replies. Quick mode drops it (the UI shows
// its own persistent notice there).
const Closing = "Esta información es orientativa y no sustituye una valoración médica presencial u online. " +
	"No debe usarse para diagnóstico, prescripción ni decisiones de tratamiento sin consultar a un profesional de la salud."

const offTopicKnownSessionReply = "Parece que este mensaje es de otro tema (legal, programación, finanzas u otro ámbito diferente a la medicina estética). " +
	"DrBeautyBot está centrado exclusivamente en tratamientos estéticos, así que en esta parte no puedo asesorarte bien.\n\n" +
	"Si quieres, seguimos con tus dudas sobre rellenos, toxina botulínica, láser, manchas, acné, cicatrices, ojeras, flacidez u otros procedimientos estéticos."

const offTopicReply = "Soy DrBeautyBot y estoy diseñada exclusivamente para resolver dudas de medicina estética " +
	"(por ejemplo: rellenos, toxina botulínica, láser, manchas, acné, cicatrices, ojeras, flacidez, etc.). " +
	"Tu mensaje parece ser de otro tema (legal, programación, finanzas u otro ámbito), " +
	"así que en este caso no puedo darte una respuesta detallada.\n\n" +
	"Si quieres, cuéntame qué zona o qué tipo de tratamiento estético tienes en mente y lo vemos."

const ambiguousTopicReply = "Para poder ayudarte necesito que tu pregunta esté claramente relacionada con medicina estética. " +
	"Por ejemplo, puedes decirme si te interesa hablar de rellenos, toxina botulínica, láser para manchas o depilación, " +
	"cicatrices de acné, ojeras, flacidez, etc., y en qué zona del cuerpo te preocupa más."

const gratitudeReply = "Gracias a ti por confiar en DrBeautyBot 💜. Siempre que tengas dudas sobre tratamientos estéticos, " +
	"puedo ayudarte a entender mejor los conceptos y los posibles riesgos, pero recuerda que la decisión final y la " +
	"valoración detallada siempre deben hacerse con tu médico."

const generalFallbackReply = "En medicina estética es muy importante equilibrar expectativas, seguridad y evidencia científica. " +
	"Puedo ayudarte a entender conceptos generales y a identificar señales de alerta que requieren valoración médica. " +
	"Si puedes contarme un poco más de qué tratamiento o zona quieres hablar, podré orientarte de forma más específica " +
	"(siempre a nivel informativo)."

// detectedSignalsLine lists detected alarm signals, highest priority first.
func detectedSignalsLine(signals []string) string {
	if len(signals) == 1 {
		return fmt.Sprintf("Detecté una señal de alarma: **%s**.", signals[0])
	}
	return fmt.Sprintf("Detecté señales de alarma (prioridad alta → baja): **%s**.", strings.Join(signals, ", "))
}

func emergencyReply(signals []string, emergencyLine string) string {
	return detectedSignalsLine(signals) +
		"\n\n" +
		"Si esto te está ocurriendo ahora (especialmente después de una inyección o procedimiento facial), es importante " +
		"**buscar valoración médica urgente de inmediato**. " +
		"DrBeautyBot no puede valorar ni manejar urgencias en tiempo real. " +
		"Acude a **urgencias** o contacta al médico que realizó el procedimiento **ya**." +
		"\n\n" + emergencyLine +
		"\n\n" + Closing
}

func highRiskEmergencyReply(signals []string, emergencyLine string) string {
	return detectedSignalsLine(signals) +
		"\n\n" +
		"Si te aplicaron un material de alto riesgo/no autorizado (por ejemplo “biopolímeros/silicona/modelantes/aceites”) " +
		"y además hay señales de alarma, lo más prudente es **acudir a urgencias de inmediato** o contactar al médico tratante **ya**." +
		"\n\n" + emergencyLine +
		"\n\n" + Closing
}

func highRiskConsideringReply(patientDescription string) string {
	return patientDescription +
		"\n\n" +
		"Si te lo están ofreciendo o estás considerando aplicártelo: **no es recomendable**. " +
		"En general, los rellenos permanentes/no autorizados (p. ej., “modelantes”, “silicona”, “aceites”, “biopolímeros”) " +
		"se asocian con complicaciones difíciles de manejar y a veces irreversibles." +
		"\n\n" +
		"Si buscas un relleno, lo más seguro es hablar con un médico especialista y preguntar por materiales " +
		"**autorizados, trazables y reabsorbibles** cuando corresponda." +
		"\n\n" +
		"Si quieres, dime: **zona**, **objetivo** y **si te lo ofrecieron en clínica médica** o no, " +
		"y te ayudo a formular preguntas de seguridad para tu consulta."
}

func highRiskAlreadyReply(patientDescription string) string {
	return patientDescription +
		"\n\n" +
		"Si ya te aplicaron algo de este tipo o sospechas que fue un “relleno permanente/modelante”: lo más prudente es " +
		"**no manipular la zona** y buscar valoración con un médico con experiencia en complicaciones de rellenos." +
		"\n\n" +
		"Si presentas dolor intenso, cambios de color, piel fría, inflamación que progresa rápido, fiebre, secreción, " +
		"dificultad para respirar o alteraciones visuales, busca atención inmediata." +
		"\n\n" +
		"Si me dices: **cuándo fue**, **en qué zona**, y **qué síntomas (si hay)**, puedo orientarte con información " +
		"general sobre qué suele valorar un especialista."
}

func complicationUrgentReply(guidance, emergencyLine string) string {
	return guidance +
		"\n\n" +
		"DrBeautyBot no puede valorar ni manejar urgencias ni complicaciones en tiempo real. " +
		"Debes acudir de inmediato al servicio de urgencias más cercano o contactar al médico que realizó el procedimiento. " +
		emergencyLine +
		"\n\n" + Closing
}

func complicationMildReply(guidance string) string {
	return guidance +
		"\n\n" +
		"Aunque algunas reacciones leves pueden ser esperables, siempre es recomendable comentar cualquier cambio con tu " +
		"médico tratante, sobre todo si algo te preocupa o cambia de forma brusca."
}

func complicationReviewReply(guidance string) string {
	return guidance +
		"\n\n" +
		"Por el tipo de síntomas que describes, lo más prudente es que un médico con experiencia en medicina estética " +
		"te valore directamente. Si eres paciente de tu clínica de confianza, te recomiendo contactarles para una " +
		"revisión prioritaria."
}

// definitionSafetyNote renders the danger-signal footnote carried into a
// definition reply when the message mentioned alarm symptoms without
// reporting them.
func definitionSafetyNote(signals []string) string {
	if len(signals) == 1 {
		return fmt.Sprintf("⚠️ Nota de seguridad: mencionaste **%s**. Si esto le está ocurriendo a alguien "+
			"(sobre todo tras un procedimiento/inyección), conviene valoración médica inmediata.", signals[0])
	}
	return fmt.Sprintf("⚠️ Nota de seguridad: mencionaste señales como **%s**. Si le está ocurriendo a alguien "+
		"(especialmente tras un procedimiento/inyección), conviene valoración médica inmediata.", strings.Join(signals, ", "))
}

func definitionReply(term, definition string, safetyParts []string, closingSuffix string) string {
	parts := append([]string{fmt.Sprintf("**Definición — %s:**\n%s", term, definition)}, safetyParts...)
	return strings.Join(parts, "\n\n") + closingSuffix
}
