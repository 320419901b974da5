package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/rules"
	"aesthetic-triage-bot/internal/triage"
)

// cooldownWindow suppresses counting the same event key twice in quick
// succession (duplicate sends, network retries).
const cooldownWindow = 15 * time.Second

// previewLimit truncates stored user/bot text previews.
const previewLimit = 220

// LogParams is everything the aggregator needs to record one exchange.
type LogParams struct {
	SessionID string
	Mode      string
	Profile   *triage.Profile
	UserText  string
	BotText   string
	Route     triage.RouteDecision
	Event     triage.QualityEvent
}

// Aggregator applies the session-telemetry policy: route counters on every
// message, then cooldown, dedup and event bookkeeping for quality events.
// All of it runs inside one repository transaction per message.
type Aggregator struct {
	repo Repository
	log  *zap.SugaredLogger
	now  func() time.Time
}

func NewAggregator(repo Repository, log *zap.SugaredLogger) *Aggregator {
	return &Aggregator{repo: repo, log: log, now: time.Now}
}

// UpsertLog records one exchange. Telemetry failures are the caller's to
// swallow: a degraded log is acceptable, a degraded user reply is not.
func (a *Aggregator) UpsertLog(ctx context.Context, p LogParams) error {
	userPreview := truncate(p.UserText, previewLimit)
	botPreview := truncate(p.BotText, previewLimit)
	nowMs := a.now().UnixMilli()

	// Candidate domain hint: an esthetic keyword plus a route that actually
	// engaged with the content marks the session esthetic.
	var newDomain triage.SessionDomain
	if triage.HasEstheticKeyword(rules.Normalize(p.UserText)) {
		switch {
		case p.Route.Route == triage.RouteBrain || p.Route.Route == triage.RouteDeterministic:
			newDomain = triage.DomainEsthetic
		case p.Route.Route == triage.RouteGeneral && p.Route.Reason == triage.ReasonFallback:
			newDomain = triage.DomainEsthetic
		}
	}

	return a.repo.RunLogTransaction(ctx, p.SessionID, func(existing *Record) (*Update, error) {
		if existing == nil {
			return &Update{Create: a.buildNewRecord(p, newDomain, nowMs, userPreview, botPreview)}, nil
		}

		domainHint := existing.DomainHint
		if newDomain != "" {
			domainHint = newDomain
		}

		u := &Update{
			Mode:            p.Mode,
			Profile:         p.Profile,
			DomainHint:      domainHint,
			LastRoute:       string(p.Route.Route),
			LastRouteReason: string(p.Route.Reason),
		}
		u.Inc.TotalMessages = 1
		addRouteCounters(&u.Inc, p.Route)

		if p.Event.Kind == triage.EventNone {
			return u, nil
		}

		key := p.Event.Key()

		// Cooldown: identical event key within the window updates only the
		// timestamp, not the counters.
		if existing.LastLoggedEventKey == key && existing.LastLoggedAtMs != 0 &&
			nowMs-existing.LastLoggedAtMs < cooldownWindow.Milliseconds() {
			u.LastLoggedAtMs = &nowMs
			return u, nil
		}

		if !isNewEvent(p.Event, key, existing) {
			u.LastLoggedAtMs = &nowMs
			u.LastLoggedEventKey = &key
			return u, nil
		}

		applyEvent(u, p.Event, key, nowMs, userPreview, botPreview)
		return u, nil
	})
}

// buildNewRecord composes the full first-message record, event bookkeeping
// included, so the insert is a single write.
func (a *Aggregator) buildNewRecord(p LogParams, newDomain triage.SessionDomain, nowMs int64, userPreview, botPreview string) *Record {
	domainHint := triage.DomainUnknown
	if newDomain != "" {
		domainHint = newDomain
	}

	r := &Record{
		ID:                  p.SessionID,
		Mode:                p.Mode,
		Profile:             p.Profile,
		DomainHint:          domainHint,
		SeenComplicationIDs: []string{},
		SeenMaterialIDs:     []string{},
		SeenDangerKeys:      []string{},
		UrgentSignalsSeen:   []string{},
		LastRoute:           string(p.Route.Route),
		LastRouteReason:     string(p.Route.Reason),
	}
	r.Counts.TotalMessages = 1
	var inc CounterDeltas
	addRouteCounters(&inc, p.Route)
	r.Counts.BrainCalls = inc.BrainCalls
	r.Counts.DeterministicResponses = inc.DeterministicResponses
	r.Counts.DefinitionResponses = inc.DefinitionResponses

	if p.Event.Kind == triage.EventNone {
		return r
	}

	key := p.Event.Key()
	if !isNewEvent(p.Event, key, r) {
		r.LastLoggedAtMs = nowMs
		r.LastLoggedEventKey = key
		return r
	}

	var u Update
	applyEvent(&u, p.Event, key, nowMs, userPreview, botPreview)

	r.Counts.LoggedEvents = u.Inc.LoggedEvents
	r.Counts.TriageEvents = u.Inc.TriageEvents
	r.Counts.MaterialEvents = u.Inc.MaterialEvents
	r.Counts.UrgentEvents = u.Inc.UrgentEvents
	r.SeenComplicationIDs = append(r.SeenComplicationIDs, u.AddComplicationIDs...)
	r.SeenMaterialIDs = append(r.SeenMaterialIDs, u.AddMaterialIDs...)
	r.SeenDangerKeys = append(r.SeenDangerKeys, u.AddDangerKeys...)
	r.UrgentSignalsSeen = append(r.UrgentSignalsSeen, u.AddUrgentSignals...)
	if u.RaiseSeverityTo != nil {
		r.HighestSeveritySeen = *u.RaiseSeverityTo
	}
	r.LastLoggedAtMs = nowMs
	r.LastLoggedEventKey = key
	now := a.now()
	r.LastImportantAt = &now
	r.LastUserPreview = userPreview
	r.LastBotPreview = botPreview
	r.LastImportantSummary = u.ImportantSummary

	return r
}

func addRouteCounters(inc *CounterDeltas, route triage.RouteDecision) {
	switch route.Route {
	case triage.RouteBrain:
		inc.BrainCalls = 1
	case triage.RouteDeterministic:
		inc.DeterministicResponses = 1
		if route.Reason == triage.ReasonDefinition {
			inc.DefinitionResponses = 1
		}
	}
}

// isNewEvent applies the per-kind dedup policy against the session's seen
// sets. Complications dedup by id; high-risk materials dedup by id; other
// materials additionally require a known context; danger signals dedup by the
// exact event key.
func isNewEvent(e triage.QualityEvent, key string, r *Record) bool {
	switch e.Kind {
	case triage.EventComplication:
		return !contains(r.SeenComplicationIDs, e.ComplicationID)
	case triage.EventMaterial:
		highRisk := e.Blacklisted || e.Risk >= 4
		if !highRisk && e.Context != triage.ContextConsidering && e.Context != triage.ContextAlready {
			return false
		}
		return !contains(r.SeenMaterialIDs, e.MaterialID)
	case triage.EventDangerSignal:
		return !contains(r.SeenDangerKeys, key)
	default:
		return false
	}
}

// applyEvent fills the counting/bookkeeping part of an Update for a new event.
func applyEvent(u *Update, e triage.QualityEvent, key string, nowMs int64, userPreview, botPreview string) {
	u.Inc.LoggedEvents = 1
	u.LastLoggedAtMs = &nowMs
	u.LastLoggedEventKey = &key
	u.MarkImportant = true
	u.UserPreview = userPreview
	u.BotPreview = botPreview

	switch e.Kind {
	case triage.EventComplication:
		u.Inc.TriageEvents = 1
		if e.Urgent {
			u.Inc.UrgentEvents = 1
		}
		u.AddComplicationIDs = []string{e.ComplicationID}
		sev := e.Severity
		u.RaiseSeverityTo = &sev
		u.ImportantSummary = fmt.Sprintf("Triage: %s (sev %d)%s", e.ComplicationID, e.Severity, urgentTag(e.Urgent))

	case triage.EventMaterial:
		u.Inc.MaterialEvents = 1
		if e.Urgent {
			u.Inc.UrgentEvents = 1
		}
		u.AddMaterialIDs = []string{e.MaterialID}
		if e.Urgent && len(e.DangerSignals) > 0 {
			u.AddUrgentSignals = e.DangerSignals
		}
		u.ImportantSummary = materialSummary(e)

	case triage.EventDangerSignal:
		u.Inc.TriageEvents = 1
		u.Inc.UrgentEvents = 1
		u.AddDangerKeys = []string{key}
		if len(e.DangerSignals) > 0 {
			u.AddUrgentSignals = e.DangerSignals
		}
		sev := e.Severity
		u.RaiseSeverityTo = &sev
		u.ImportantSummary = fmt.Sprintf("Señales de alarma: %s [URGENTE]", joinSignals(e.DangerSignals))
	}
}

func materialSummary(e triage.QualityEvent) string {
	s := fmt.Sprintf("Material: %s (risk %d)", e.MaterialID, e.Risk)
	if e.Blacklisted {
		s += " [LISTA NEGRA]"
	}
	if e.Urgent {
		s += fmt.Sprintf(" [ALERTA: %s]", joinSignals(e.DangerSignals))
	}
	return s + fmt.Sprintf(" (ctx: %s)", e.Context)
}

func urgentTag(urgent bool) string {
	if urgent {
		return " [URGENTE]"
	}
	return ""
}

func joinSignals(signals []string) string {
	out := ""
	for i, s := range signals {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
