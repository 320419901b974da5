package session

import (
	"errors"
	"time"

	"aesthetic-triage-bot/internal/triage"
)

// ErrNotFound is returned by Repository.Get for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Counters are the monotonically increasing per-session counts. They are only
// ever mutated through store-side atomic increments.
type Counters struct {
	TotalMessages          int64 `json:"totalMessages"`
	LoggedEvents           int64 `json:"loggedEvents"`
	TriageEvents           int64 `json:"triageEvents"`
	MaterialEvents         int64 `json:"materialEvents"`
	UrgentEvents           int64 `json:"urgentEvents"`
	BrainCalls             int64 `json:"brainCalls"`
	DeterministicResponses int64 `json:"deterministicResponses"`
	DefinitionResponses    int64 `json:"definitionResponses"`
}

// Record is the persisted per-session telemetry document, one per session id.
// Created on the first message, mutated transactionally afterwards, never
// deleted by this subsystem.
type Record struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`

	Mode    string          `json:"mode,omitempty"`
	Profile *triage.Profile `json:"profile,omitempty"`

	DomainHint triage.SessionDomain `json:"domainHint"`

	Counts Counters `json:"counts"`

	HighestSeveritySeen int `json:"highestSeveritySeen"`

	SeenComplicationIDs []string `json:"seenComplicationIds"`
	SeenMaterialIDs     []string `json:"seenMaterialIds"`
	SeenDangerKeys      []string `json:"seenDangerKeys"`
	UrgentSignalsSeen   []string `json:"urgentSignalsSeen"`

	// Cooldown state: wall-clock ms of the last logged event and its key.
	LastLoggedAtMs     int64  `json:"lastLoggedAtMs,omitempty"`
	LastLoggedEventKey string `json:"lastLoggedEventKey,omitempty"`

	LastImportantAt      *time.Time `json:"lastImportantAt,omitempty"`
	LastUserPreview      string     `json:"lastUserPreview,omitempty"`
	LastBotPreview       string     `json:"lastBotPreview,omitempty"`
	LastImportantSummary string     `json:"lastImportantSummary,omitempty"`

	LastRoute       string `json:"lastRoute,omitempty"`
	LastRouteReason string `json:"lastRouteReason,omitempty"`
}

// CounterDeltas expresses counter mutations as atomic increments. The store
// applies them as "column = column + n", never as read-then-write.
type CounterDeltas struct {
	TotalMessages          int64
	LoggedEvents           int64
	TriageEvents           int64
	MaterialEvents         int64
	UrgentEvents           int64
	BrainCalls             int64
	DeterministicResponses int64
	DefinitionResponses    int64
}

// Update describes one transactional mutation of a session record. When
// Create is set the record did not exist and is inserted whole; otherwise the
// remaining fields are applied to the existing row inside the transaction.
type Update struct {
	Create *Record

	Inc CounterDeltas

	Mode            string
	Profile         *triage.Profile
	DomainHint      triage.SessionDomain
	LastRoute       string
	LastRouteReason string

	LastLoggedAtMs     *int64
	LastLoggedEventKey *string

	// MarkImportant stamps last_important_at and stores the previews/summary.
	MarkImportant    bool
	UserPreview      string
	BotPreview       string
	ImportantSummary string

	// Set-union additions (store-side, no duplicate appending).
	AddComplicationIDs []string
	AddMaterialIDs     []string
	AddDangerKeys      []string
	AddUrgentSignals   []string

	// RaiseSeverityTo applies max(highest_severity_seen, value).
	RaiseSeverityTo *int
}
