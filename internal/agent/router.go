// Package agent implements the decision loop: one routing call per user
// message, dispatched to one of nine action handlers that read and mutate
// the shared session context.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"certeval/internal/perception"
	"certeval/internal/state"
)

// Router classifies each user message into an action via the completion
// client and dispatches to the registered handler. The default route for
// anything unparseable or unknown is the explain handler.
type Router struct {
	client   perception.CompletionClient
	log      *zap.Logger
	handlers map[string]HandlerFunc
}

// NewRouter builds a router around the given completion client.
func NewRouter(client perception.CompletionClient, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{client: client, log: log}
	r.handlers = r.registry()
	return r
}

// decision is the routing verdict parsed from the model reply.
type decision struct {
	NextAction  string
	Reason      string
	Uncertainty string
}

// Route runs one turn: build the decision prompt from the full context,
// ask the completion service, parse the verdict, record the reasoning, and
// dispatch. The last user message must already be set on the context.
//
// When every completion backend is exhausted the turn degrades to a fixed
// service message and returns without touching history; that is the one
// path that skips the reasoning append.
func (r *Router) Route(ctx context.Context, st *state.Context) {
	prompt := buildDecisionPrompt(st)

	reply, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.log.Error("routing decision failed, all backends exhausted", zap.Error(err))
		st.Conversation.LastAgentMessage = degradedServiceMessage(err)
		return
	}

	d := parseDecision(reply)

	st.Conversation.LastReason = d.Reason
	st.Conversation.Uncertainty = d.Uncertainty
	st.Conversation.LastUserIntent = d.NextAction
	st.Conversation.PendingConfirmation = false
	st.AppendReasoning(d.NextAction, d.Reason, d.Uncertainty)

	r.log.Info("routing decision",
		zap.String("action", d.NextAction),
		zap.String("reason", d.Reason),
		zap.String("uncertainty", d.Uncertainty))

	handler, ok := r.handlers[d.NextAction]
	if !ok {
		// Unknown or missing action names are not errors; explain is the
		// terminal default.
		handler = r.explainDecision
	}
	handler(ctx, st)
}

// parseDecision extracts the routing verdict, falling back to explain when
// the reply is not usable JSON.
func parseDecision(reply string) decision {
	parsed := perception.ParseLoose(reply, map[string]any{
		"next_action": ActionExplain,
		"reason":      "Failed to parse decision, defaulting to explanation",
		"uncertainty": "LLM response was not valid JSON",
	})
	return decision{
		NextAction:  perception.StringField(parsed, "next_action", ActionExplain),
		Reason:      perception.StringField(parsed, "reason", ""),
		Uncertainty: perception.StringField(parsed, "uncertainty", ""),
	}
}

func degradedServiceMessage(err error) string {
	detail := err.Error()
	if len(detail) > 100 {
		detail = detail[:100]
	}
	return fmt.Sprintf("⚠️ Temporary service limitation\n\n"+
		"All available completion backends are currently unavailable. This happens during high usage.\n\n"+
		"What you can do:\n"+
		"  - Wait a few minutes and try again\n"+
		"  - Your data is saved and your session persists\n\n"+
		"Technical details: %s", detail)
}
