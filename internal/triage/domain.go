package triage

import "strings"

// SessionDomain is the persisted per-session hint of whether the conversation
// is about aesthetic medicine. It relaxes or tightens the thematic fence on
// later messages.
type SessionDomain string

const (
	DomainUnknown  SessionDomain = "unknown"
	DomainEsthetic SessionDomain = "esthetic"
	DomainOffTopic SessionDomain = "offtopic"
)

// ParseSessionDomain defensively defaults anything unexpected to unknown
// (legacy or missing persisted values included).
func ParseSessionDomain(s string) SessionDomain {
	switch SessionDomain(s) {
	case DomainEsthetic, DomainOffTopic:
		return SessionDomain(s)
	default:
		return DomainUnknown
	}
}

// Aesthetic-medicine vocabulary used by the thematic fence and the session
// domain hint.
var estheticKeywords = []string{
	"medicina estetica", "estetica", "estetico", "esteticos",
	"clinica estetica", "clinica de belleza",
	"relleno", "rellenos", "acido hialuronico", "hialuron", "hialuronato",
	"botox", "toxina", "toxina botulinica",
	"labios", "labio", "codigo de barras", "surco nasogeniano",
	"patas de gallo", "frente", "entrecejo", "ojeras", "ojera",
	"manchas", "melasma", "acne", "cicatriz", "cicatrices", "poros",
	"flacidez", "papada", "perfilado", "rinomodelacion", "nariz",
	"menton", "pomulo",
	"biopolimeros", "biopolimero", "aceite mineral", "silicona",
	"hidroxiapatita", "caha", "radiesse",
	"laser", "ipl", "luz pulsada", "depilacion laser", "depilacion",
	"peeling", "hifu", "radiofrecuencia", "mesoterapia", "carboxiterapia",
	"hilos tensores", "hilos",
}

// Vocabulary of clearly unrelated domains (legal, finance, programming,
// academia, generic marketing). A hit without any esthetic keyword means the
// message is out of scope.
var offTopicKeywords = []string{
	// legal
	"contrato", "arrendamiento", "renta", "alquiler", "hipoteca", "prestamo",
	"pagare", "factura", "notario", "juicio", "demanda", "divorcio", "custodia",
	// finance / taxes
	"impuesto", "impuestos", "sat", "hacienda", "deuda", "tarjeta de credito",
	"credito", "credito hipotecario", "banco", "inversion", "criptomoneda",
	"bitcoin", "cripto",
	// programming / tech
	"javascript", "python", "java ", "typescript", "react", "nextjs", "nodejs",
	"firebase", "programacion", "codigo", "frontend", "backend",
	"base de datos", "sql", "api ", "servidor",
	// school work
	"tarea", "examen", "resumen", "ensayo", "monografia",
	// generic marketing
	"marketing", "seo", "facebook ads", "google ads", "tiktok ads",
	"campana publicitaria", "publicidad", "anuncio",
}

// HasEstheticKeyword operates on normalized text.
func HasEstheticKeyword(textNorm string) bool {
	for _, kw := range estheticKeywords {
		if strings.Contains(textNorm, kw) {
			return true
		}
	}
	return false
}

// HasOffTopicKeyword operates on normalized text.
func HasOffTopicKeyword(textNorm string) bool {
	for _, kw := range offTopicKeywords {
		if strings.Contains(textNorm, kw) {
			return true
		}
	}
	return false
}
