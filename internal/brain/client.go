package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/triage"
)

// Client talks to an OpenAI-compatible chat-completions API. Every failure
// mode (missing credential, transport/API error, empty output) degrades to a
// canned reply, so callers always get usable text back.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

const defaultBaseURL = "https://api.openai.com/v1"

func NewClient(apiKey, model, baseURL string, log *zap.SugaredLogger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

const noCredentialReply = "En este momento no tengo habilitada la conexión al “cerebro IA”. " +
	"Puedo seguir respondiendo con la lógica determinística, pero para preguntas complejas necesito esa integración."

const providerErrorReply = "Tuve un problema al consultar el “cerebro IA”. Intentemos de nuevo. " +
	"Si quieres, pega tu pregunta con: zona, objetivo y si ya hubo algún procedimiento previo."

const emptyOutputReply = "Puedo ayudarte con esa duda, pero necesito un poco más de contexto. " +
	"¿Puedes decirme en qué zona sería el tratamiento, cuál es tu objetivo y si ya te aplicaron algo antes?"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Respond implements triage.Responder.
func (c *Client) Respond(ctx context.Context, req triage.BrainRequest) string {
	if c.apiKey == "" {
		return noCredentialReply + req.ClosingSuffix
	}

	system := buildSystemPrompt(req.Mode) +
		"\n\n" +
		"CONTEXTO DETERMINÍSTICO (para tu referencia; úsalo si ayuda, pero responde a la pregunta concreta):\n" +
		req.ContextPack +
		"\n\n" +
		"INSTRUCCIONES DE RESPUESTA:\n" +
		"- Respuesta informativa (no diagnóstico).\n" +
		"- No des técnica de inyección, puntos, dosis, ni instrucciones operativas.\n" +
		"- Si hay riesgos, explícalos y menciona señales de alarma.\n" +
		"- Si faltan datos, pide 1–3 preguntas.\n"

	text, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: req.Message},
	})
	if err != nil {
		c.log.Warnw("brain call failed", "err", err)
		return providerErrorReply + req.ClosingSuffix
	}
	if text == "" {
		return emptyOutputReply + req.ClosingSuffix
	}

	return text + req.ClosingSuffix
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	jsonBody, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("brain API error: %s - %s", resp.Status, string(body))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// buildSystemPrompt enforces the assistant's safety posture: no diagnosis, no
// prescriptions, no operative technique, mandatory urgent-care guidance when
// the user's own words describe alarm symptoms.
func buildSystemPrompt(mode string) string {
	quickNote := ""
	if mode == triage.ModeQuick {
		quickNote = "Estás en modo consulta rápida: mantén la respuesta relativamente breve (aprox. 150–230 palabras), " +
			"con párrafos cortos y aire entre ideas. No repitas avisos legales largos (el sistema los añade aparte)."
	}

	return "Eres DrBeautyBot, un asistente informativo de medicina estética en español. " +
		"Prioridad absoluta: seguridad del usuario. NO diagnostiques. NO prescribas. " +
		"NO des instrucciones peligrosas u operativas de procedimientos (puntos, dosis, técnica de inyección, cómo aplicarlo). " +
		"Si el usuario describe señales de alarma (alteraciones visuales, dificultad para respirar/dolor u opresión en el pecho, " +
		"necrosis, piel fría con cambio de color, dolor intenso desproporcionado, fiebre con pus, desmayo), indica valoración " +
		"médica urgente/urgencias y que contacte a su médico tratante. " +
		"Tono: humano, amigable, calmado y no alarmista; explica de forma sencilla, con frases cortas y ejemplos o analogías " +
		"muy fáciles de entender. Escribe como si conversaras con la persona, no como un informe académico. " +
		"Estructura tu respuesta de manera natural, sin numerar secciones ni usar encabezados como \"1)\", \"2)\" o \"Resumen:\". " +
		"Usa párrafos cortos y deja una línea en blanco entre bloques importantes. Cuando tenga sentido, usa listas con " +
		"guiones \"-\" para enumerar riesgos o puntos clave. " +
		"Al responder a dudas sobre un tratamiento o síntoma: " +
		"empieza con una idea-resumen en una o dos frases; después ofrece una explicación simple; luego comenta los " +
		"riesgos/limitaciones principales y lo importante a vigilar, preferentemente como una lista breve con guiones; " +
		"si aplica, menciona de forma clara las posibles señales de alarma médicas y qué debería hacer la persona; " +
		"termina, si faltan datos clave, con 1–3 preguntas concretas formuladas de forma cercana. " +
		"Evita respuestas excesivamente largas, no repitas la misma idea muchas veces y no recargues de advertencias si ya " +
		"has explicado los riesgos y las señales de alarma una vez. " +
		quickNote
}
