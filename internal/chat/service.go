package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"aesthetic-triage-bot/internal/rules"
	"aesthetic-triage-bot/internal/session"
	"aesthetic-triage-bot/internal/triage"
)

// Service handles one chat exchange end to end: domain hint lookup, layered
// pipeline, quality-event classification and session telemetry.
type Service interface {
	HandleMessage(ctx context.Context, sessionID, message, mode string, profile *triage.Profile) (string, error)
	SessionSnapshot(ctx context.Context, sessionID string) (*session.Record, error)
}

type service struct {
	kb         *rules.KnowledgeBase
	engine     *triage.Engine
	repo       session.Repository
	aggregator *session.Aggregator
	log        *zap.SugaredLogger
}

func NewService(kb *rules.KnowledgeBase, engine *triage.Engine, repo session.Repository, agg *session.Aggregator, log *zap.SugaredLogger) Service {
	return &service{
		kb:         kb,
		engine:     engine,
		repo:       repo,
		aggregator: agg,
		log:        log,
	}
}

func (s *service) HandleMessage(ctx context.Context, sessionID, message, mode string, profile *triage.Profile) (string, error) {
	// Quick mode drops the profile snapshot entirely. The session record must
	// not keep personal data the reply pipeline was told to ignore.
	if mode == triage.ModeQuick {
		profile = nil
	}

	domain := s.domainHint(ctx, sessionID)

	result := s.engine.Process(ctx, message, mode, profile, domain)

	event := triage.ClassifyQualityEvent(s.kb, message, result.Facts)

	// Telemetry runs after the reply is decided and never blocks it. A write
	// failure degrades the log, not the user.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	go func() {
		defer cancel()
		err := s.aggregator.UpsertLog(logCtx, session.LogParams{
			SessionID: sessionID,
			Mode:      mode,
			Profile:   profile,
			UserText:  message,
			BotText:   result.Reply,
			Route:     result.Route,
			Event:     event,
		})
		if err != nil {
			s.log.Warnw("session log write failed", "sessionId", sessionID, "error", err)
		}
	}()

	return result.Reply, nil
}

func (s *service) SessionSnapshot(ctx context.Context, sessionID string) (*session.Record, error) {
	return s.repo.Get(ctx, sessionID)
}

// domainHint reads the stored session domain. Read failures fall back to
// unknown so the pipeline still answers.
func (s *service) domainHint(ctx context.Context, sessionID string) triage.SessionDomain {
	rec, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.log.Warnw("session read failed", "sessionId", sessionID, "error", err)
		}
		return triage.DomainUnknown
	}
	return rec.DomainHint
}
