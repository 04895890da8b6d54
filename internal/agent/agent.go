package agent

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"certeval/internal/state"
	"certeval/internal/store"
)

// Agent wraps the router with session persistence: every processed turn is
// snapshotted to the session store and appended to the turn archive.
type Agent struct {
	router    *Router
	store     *store.SessionStore
	archive   *store.Archive
	sessionID string
	log       *zap.Logger
}

// New builds an agent. The archive may be nil, in which case turns are
// only persisted via the JSON session store.
func New(router *Router, sessions *store.SessionStore, archive *store.Archive, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{
		router:    router,
		store:     sessions,
		archive:   archive,
		sessionID: uuid.NewString(),
		log:       log,
	}
}

// SessionID identifies this process's run in the turn archive.
func (a *Agent) SessionID() string { return a.sessionID }

// ArchivedTurns reads this run's turns back from the archive, oldest
// first. Returns nil when no archive is configured.
func (a *Agent) ArchivedTurns(limit int) ([]store.ArchivedTurn, error) {
	if a.archive == nil {
		return nil, nil
	}
	return a.archive.History(a.sessionID, limit)
}

// ProcessTurn runs one full turn for the given user message and returns
// the agent's reply. Persistence failures are logged, never surfaced: the
// conversation continues on a best-effort snapshot.
func (a *Agent) ProcessTurn(ctx context.Context, st *state.Context, userText string) string {
	st.Conversation.LastUserMessage = userText
	a.router.Route(ctx, st)

	if a.store != nil {
		if err := a.store.Save(st); err != nil {
			a.log.Error("session snapshot failed", zap.Error(err))
		}
	}

	if a.archive != nil && len(st.Conversation.History) > 0 {
		last := st.Conversation.History[len(st.Conversation.History)-1]
		reason := lastReasonJSON(st)
		if err := a.archive.RecordTurn(a.sessionID, len(st.Conversation.History), last.User, last.Action, last.Agent, reason); err != nil {
			a.log.Warn("turn archive append failed", zap.Error(err))
		}
	}

	return st.Conversation.LastAgentMessage
}

// lastReasonJSON serializes the most recent reasoning record for the
// archive, or returns empty when this turn produced none (the degraded
// service path).
func lastReasonJSON(st *state.Context) string {
	if len(st.Conversation.Reasoning) == 0 {
		return ""
	}
	data, err := json.Marshal(st.Conversation.Reasoning[len(st.Conversation.Reasoning)-1])
	if err != nil {
		return ""
	}
	return string(data)
}
