package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/session"
	"aesthetic-triage-bot/internal/triage"
)

// recoveryReply is sent when the pipeline panics. The HTTP contract still
// answers with a usable Spanish message.
const recoveryReply = "Lo siento, ha ocurrido un problema al procesar tu mensaje. Por favor, inténtalo de nuevo. Si tienes síntomas urgentes, acude a un servicio de urgencias."

type Handler struct {
	svc Service
	log *zap.SugaredLogger
}

func NewHandler(svc Service, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

type ChatRequest struct {
	Message   string          `json:"message"`
	Mode      string          `json:"mode,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Profile   *triage.Profile `json:"profile,omitempty"`
}

type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Cuerpo de la petición inválido"})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Mensaje vacío"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.log.Errorw("chat pipeline panic", "sessionId", sessionID, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, ChatResponse{Reply: recoveryReply, SessionID: sessionID})
		}
	}()

	reply, err := h.svc.HandleMessage(r.Context(), sessionID, req.Message, req.Mode, req.Profile)
	if err != nil {
		h.log.Errorw("chat processing failed", "sessionId", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ChatResponse{Reply: recoveryReply, SessionID: sessionID})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply, SessionID: sessionID})
}

func (h *Handler) HandleSessionSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Falta el identificador de sesión"})
		return
	}

	rec, err := h.svc.SessionSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Sesión no encontrada"})
			return
		}
		h.log.Errorw("session snapshot failed", "sessionId", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error interno"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Pinger reports whether the session store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler answers liveness probes. The database ping result is part of
// the status so orchestration can tell a dead store from a dead process.
func HealthHandler(db Pinger, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			log.Warnw("health check db ping failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/api/chat", h.HandleChat)
	r.Get("/api/session/{id}", h.HandleSessionSnapshot)
}
