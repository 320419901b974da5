package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/platform/emergency"
	"aesthetic-triage-bot/internal/rules"
	"aesthetic-triage-bot/internal/session"
	"aesthetic-triage-bot/internal/triage"
)

// memRepo keeps session records in memory with the same create/update split
// as the postgres repository.
type memRepo struct {
	mu      sync.Mutex
	records map[string]*session.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[string]*session.Record{}}
}

func (m *memRepo) Get(_ context.Context, id string) (*session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) RunLogTransaction(_ context.Context, id string, fn func(existing *session.Record) (*session.Update, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.records[id]
	u, err := fn(existing)
	if err != nil || u == nil {
		return err
	}
	if u.Create != nil {
		cp := *u.Create
		m.records[id] = &cp
		return nil
	}
	existing.Counts.TotalMessages += u.Inc.TotalMessages
	existing.Counts.LoggedEvents += u.Inc.LoggedEvents
	existing.Mode = u.Mode
	if u.Profile != nil {
		existing.Profile = u.Profile
	}
	existing.DomainHint = u.DomainHint
	existing.LastRoute = u.LastRoute
	existing.LastRouteReason = u.LastRouteReason
	return nil
}

type cannedResponder struct {
	reply string
}

func (c *cannedResponder) Respond(_ context.Context, _ triage.BrainRequest) string {
	return c.reply
}

func newServiceWithRepo(t *testing.T, repo session.Repository) Service {
	t.Helper()
	kb, err := rules.Load()
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	engine := triage.NewEngine(kb, emergency.NewDirectory(kb.Emergencies), &cannedResponder{reply: "respuesta generada"}, log)
	agg := session.NewAggregator(repo, log)
	return NewService(kb, engine, repo, agg, log)
}

func waitForRecord(t *testing.T, repo *memRepo, id string) *session.Record {
	t.Helper()
	var rec *session.Record
	require.Eventually(t, func() bool {
		r, err := repo.Get(context.Background(), id)
		if err != nil {
			return false
		}
		rec = r
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return rec
}

func TestHandleMessageQuickModeDropsProfile(t *testing.T) {
	repo := newMemRepo()
	svc := newServiceWithRepo(t, repo)

	profile := &triage.Profile{Name: "Ana", Country: "MX"}
	reply, err := svc.HandleMessage(context.Background(), "s-quick", "Quiero ponerme acido hialuronico en los labios, ¿qué me recomiendas?", "quick", profile)
	require.NoError(t, err)
	require.NotEmpty(t, reply)

	rec := waitForRecord(t, repo, "s-quick")
	assert.Nil(t, rec.Profile)
	assert.Equal(t, "quick", rec.Mode)
}

func TestHandleMessageStandardModeKeepsProfile(t *testing.T) {
	repo := newMemRepo()
	svc := newServiceWithRepo(t, repo)

	profile := &triage.Profile{Name: "Ana", Country: "MX"}
	_, err := svc.HandleMessage(context.Background(), "s-std", "Quiero ponerme acido hialuronico en los labios, ¿qué me recomiendas?", "", profile)
	require.NoError(t, err)

	rec := waitForRecord(t, repo, "s-std")
	require.NotNil(t, rec.Profile)
	assert.Equal(t, "Ana", rec.Profile.Name)
	assert.Equal(t, "MX", rec.Profile.Country)
}

func TestHandleMessageBlockedMessageStillLogged(t *testing.T) {
	repo := newMemRepo()
	svc := newServiceWithRepo(t, repo)

	reply, err := svc.HandleMessage(context.Background(), "s-offtopic", "necesito ayuda con mi contrato de alquiler y la hipoteca", "", nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "DrBeautyBot")

	rec := waitForRecord(t, repo, "s-offtopic")
	assert.Equal(t, int64(1), rec.Counts.TotalMessages)
	assert.Equal(t, string(triage.RouteGeneral), rec.LastRoute)
	assert.Equal(t, string(triage.ReasonFallback), rec.LastRouteReason)
	assert.Equal(t, triage.DomainUnknown, rec.DomainHint)
}
