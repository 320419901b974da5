package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/session"
	"aesthetic-triage-bot/internal/triage"
)

type stubService struct {
	reply       string
	err         error
	lastSession string
	lastMessage string
	lastMode    string
	snapshot    *session.Record
	snapshotErr error
}

func (s *stubService) HandleMessage(_ context.Context, sessionID, message, mode string, _ *triage.Profile) (string, error) {
	s.lastSession = sessionID
	s.lastMessage = message
	s.lastMode = mode
	return s.reply, s.err
}

func (s *stubService) SessionSnapshot(_ context.Context, _ string) (*session.Record, error) {
	return s.snapshot, s.snapshotErr
}

func newTestRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, zap.NewNop().Sugar()))
	return r
}

func postChat(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	t.Run("happy path generates a session id", func(t *testing.T) {
		svc := &stubService{reply: "hola!"}
		rec := postChat(t, newTestRouter(svc), `{"message":"hola"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "hola!", resp.Reply)
		assert.NotEmpty(t, resp.SessionID)
		assert.Equal(t, resp.SessionID, svc.lastSession)
	})

	t.Run("existing session id is reused", func(t *testing.T) {
		svc := &stubService{reply: "ok"}
		rec := postChat(t, newTestRouter(svc), `{"message":"sigo aqui","sessionId":"abc-123","mode":"quick"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "abc-123", resp.SessionID)
		assert.Equal(t, "abc-123", svc.lastSession)
		assert.Equal(t, "quick", svc.lastMode)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		rec := postChat(t, newTestRouter(&stubService{}), `{"message":"   "}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Mensaje vacío", resp["error"])
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		rec := postChat(t, newTestRouter(&stubService{}), `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure still answers in spanish", func(t *testing.T) {
		svc := &stubService{err: errors.New("boom")}
		rec := postChat(t, newTestRouter(svc), `{"message":"hola"}`)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp ChatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Reply, "inténtalo de nuevo")
		assert.NotEmpty(t, resp.SessionID)
	})
}

func TestHandleSessionSnapshot(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &stubService{snapshot: &session.Record{ID: "abc", DomainHint: triage.DomainEsthetic}}
		req := httptest.NewRequest("GET", "/api/session/abc", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got session.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "abc", got.ID)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := &stubService{snapshotErr: session.ErrNotFound}
		req := httptest.NewRequest("GET", "/api/session/nope", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type stubPinger struct {
	err error
}

func (s *stubPinger) PingContext(_ context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	t.Run("db reachable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthHandler(&stubPinger{}, zap.NewNop().Sugar())(rec, httptest.NewRequest("GET", "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp["db"])
	})

	t.Run("db unreachable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HealthHandler(&stubPinger{err: errors.New("dial refused")}, zap.NewNop().Sugar())(rec, httptest.NewRequest("GET", "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unreachable", resp["db"])
	})
}
