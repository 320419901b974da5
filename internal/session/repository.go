package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"aesthetic-triage-bot/internal/triage"
)

// Repository is the transactional session store. RunLogTransaction executes a
// read-modify-write cycle: fn receives the current record (nil when absent)
// and returns the mutation to apply atomically. Concurrent transactions on
// the same session serialize on the row lock, so counters never lose updates.
type Repository interface {
	Get(ctx context.Context, id string) (*Record, error)
	RunLogTransaction(ctx context.Context, id string, fn func(existing *Record) (*Update, error)) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const recordColumns = `id, created_at, last_active_at, mode, profile, domain_hint,
	total_messages, logged_events, triage_events, material_events, urgent_events,
	brain_calls, deterministic_responses, definition_responses,
	highest_severity_seen,
	seen_complication_ids, seen_material_ids, seen_danger_keys, urgent_signals_seen,
	last_logged_at_ms, last_logged_event_key, last_important_at,
	last_user_preview, last_bot_preview, last_important_summary,
	last_route, last_route_reason`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var (
		r           Record
		profileJSON []byte
		domainHint  string

		seenComp, seenMat, seenDanger, urgentSignals pq.StringArray

		lastLoggedAtMs sql.NullInt64
		lastLoggedKey  sql.NullString
		lastImportant  sql.NullTime
		userPreview    sql.NullString
		botPreview     sql.NullString
		summary        sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.CreatedAt, &r.LastActiveAt, &r.Mode, &profileJSON, &domainHint,
		&r.Counts.TotalMessages, &r.Counts.LoggedEvents, &r.Counts.TriageEvents,
		&r.Counts.MaterialEvents, &r.Counts.UrgentEvents,
		&r.Counts.BrainCalls, &r.Counts.DeterministicResponses, &r.Counts.DefinitionResponses,
		&r.HighestSeveritySeen,
		&seenComp, &seenMat, &seenDanger, &urgentSignals,
		&lastLoggedAtMs, &lastLoggedKey, &lastImportant,
		&userPreview, &botPreview, &summary,
		&r.LastRoute, &r.LastRouteReason,
	)
	if err != nil {
		return nil, err
	}

	if len(profileJSON) > 0 {
		var p triage.Profile
		if err := json.Unmarshal(profileJSON, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
		r.Profile = &p
	}

	// Legacy or unexpected domain hints default to unknown.
	r.DomainHint = triage.ParseSessionDomain(domainHint)

	r.SeenComplicationIDs = seenComp
	r.SeenMaterialIDs = seenMat
	r.SeenDangerKeys = seenDanger
	r.UrgentSignalsSeen = urgentSignals

	r.LastLoggedAtMs = lastLoggedAtMs.Int64
	r.LastLoggedEventKey = lastLoggedKey.String
	if lastImportant.Valid {
		t := lastImportant.Time
		r.LastImportantAt = &t
	}
	r.LastUserPreview = userPreview.String
	r.LastBotPreview = botPreview.String
	r.LastImportantSummary = summary.String

	return &r, nil
}

func (p *postgresRepo) Get(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM chat_sessions WHERE id = $1`
	r, err := scanRecord(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *postgresRepo) RunLogTransaction(ctx context.Context, id string, fn func(existing *Record) (*Update, error)) error {
	err := p.runLogTx(ctx, id, fn)
	if isUniqueViolation(err) {
		// Two first messages raced: both saw no row under FOR UPDATE and the
		// loser's insert collided. The row exists now, so one retry resolves
		// it as an update.
		err = p.runLogTx(ctx, id, fn)
	}
	return err
}

// isUniqueViolation reports a postgres duplicate-key error (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (p *postgresRepo) runLogTx(ctx context.Context, id string, fn func(existing *Record) (*Update, error)) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + recordColumns + ` FROM chat_sessions WHERE id = $1 FOR UPDATE`
	existing, err := scanRecord(tx.QueryRowContext(ctx, query, id))
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("lock session %s: %w", id, err)
	}

	update, err := fn(existing)
	if err != nil {
		return err
	}
	if update == nil {
		return tx.Commit()
	}

	if update.Create != nil {
		if err := insertRecord(ctx, tx, update.Create); err != nil {
			return err
		}
		return tx.Commit()
	}

	if err := applyUpdate(ctx, tx, id, update); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecord(ctx context.Context, tx *sql.Tx, r *Record) error {
	profileJSON, err := json.Marshal(r.Profile)
	if err != nil {
		return err
	}
	if r.Profile == nil {
		profileJSON = nil
	}

	query := `
		INSERT INTO chat_sessions (
			id, created_at, last_active_at, mode, profile, domain_hint,
			total_messages, logged_events, triage_events, material_events, urgent_events,
			brain_calls, deterministic_responses, definition_responses,
			highest_severity_seen,
			seen_complication_ids, seen_material_ids, seen_danger_keys, urgent_signals_seen,
			last_logged_at_ms, last_logged_event_key, last_important_at,
			last_user_preview, last_bot_preview, last_important_summary,
			last_route, last_route_reason
		) VALUES (
			$1, now(), now(), $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12,
			$13,
			$14, $15, $16, $17,
			$18, $19, $20,
			$21, $22, $23,
			$24, $25
		)`

	var lastLoggedAtMs any
	if r.LastLoggedAtMs != 0 {
		lastLoggedAtMs = r.LastLoggedAtMs
	}
	var lastLoggedKey any
	if r.LastLoggedEventKey != "" {
		lastLoggedKey = r.LastLoggedEventKey
	}
	var lastImportantAt any
	if r.LastImportantAt != nil {
		lastImportantAt = *r.LastImportantAt
	}

	_, err = tx.ExecContext(ctx, query,
		r.ID, r.Mode, profileJSON, string(r.DomainHint),
		r.Counts.TotalMessages, r.Counts.LoggedEvents, r.Counts.TriageEvents,
		r.Counts.MaterialEvents, r.Counts.UrgentEvents,
		r.Counts.BrainCalls, r.Counts.DeterministicResponses, r.Counts.DefinitionResponses,
		r.HighestSeveritySeen,
		pq.Array(r.SeenComplicationIDs), pq.Array(r.SeenMaterialIDs),
		pq.Array(r.SeenDangerKeys), pq.Array(r.UrgentSignalsSeen),
		lastLoggedAtMs, lastLoggedKey, lastImportantAt,
		nullable(r.LastUserPreview), nullable(r.LastBotPreview), nullable(r.LastImportantSummary),
		r.LastRoute, r.LastRouteReason,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", r.ID, err)
	}
	return nil
}

// applyUpdate builds a single UPDATE. Counters use "col = col + $n" and sets
// use a store-side distinct union, so partial merges from other writers can
// never be clobbered.
func applyUpdate(ctx context.Context, tx *sql.Tx, id string, u *Update) error {
	set := []string{"last_active_at = now()"}
	args := []any{}
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	inc := func(col string, delta int64) {
		if delta != 0 {
			set = append(set, fmt.Sprintf("%s = %s + %s", col, col, arg(delta)))
		}
	}
	inc("total_messages", u.Inc.TotalMessages)
	inc("logged_events", u.Inc.LoggedEvents)
	inc("triage_events", u.Inc.TriageEvents)
	inc("material_events", u.Inc.MaterialEvents)
	inc("urgent_events", u.Inc.UrgentEvents)
	inc("brain_calls", u.Inc.BrainCalls)
	inc("deterministic_responses", u.Inc.DeterministicResponses)
	inc("definition_responses", u.Inc.DefinitionResponses)

	set = append(set, "mode = "+arg(u.Mode))
	set = append(set, "domain_hint = "+arg(string(u.DomainHint)))
	set = append(set, "last_route = "+arg(u.LastRoute))
	set = append(set, "last_route_reason = "+arg(u.LastRouteReason))

	if u.Profile != nil {
		profileJSON, err := json.Marshal(u.Profile)
		if err != nil {
			return err
		}
		set = append(set, "profile = "+arg(profileJSON))
	}

	if u.LastLoggedAtMs != nil {
		set = append(set, "last_logged_at_ms = "+arg(*u.LastLoggedAtMs))
	}
	if u.LastLoggedEventKey != nil {
		set = append(set, "last_logged_event_key = "+arg(*u.LastLoggedEventKey))
	}

	if u.MarkImportant {
		set = append(set, "last_important_at = now()")
		set = append(set, "last_user_preview = "+arg(u.UserPreview))
		set = append(set, "last_bot_preview = "+arg(u.BotPreview))
		set = append(set, "last_important_summary = "+arg(u.ImportantSummary))
	}

	union := func(col string, values []string) {
		if len(values) > 0 {
			set = append(set, fmt.Sprintf(
				"%s = ARRAY(SELECT DISTINCT e FROM unnest(%s || %s) AS e)",
				col, col, arg(pq.Array(values))))
		}
	}
	union("seen_complication_ids", u.AddComplicationIDs)
	union("seen_material_ids", u.AddMaterialIDs)
	union("seen_danger_keys", u.AddDangerKeys)
	union("urgent_signals_seen", u.AddUrgentSignals)

	if u.RaiseSeverityTo != nil {
		set = append(set, fmt.Sprintf(
			"highest_severity_seen = GREATEST(highest_severity_seen, %s)", arg(*u.RaiseSeverityTo)))
	}

	query := "UPDATE chat_sessions SET "
	for i, s := range set {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = " + arg(id)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
