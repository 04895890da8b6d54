package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certeval/internal/state"
)

// scriptedClient replays canned replies in order; an entry with a non-nil
// err simulates a backend failure.
type scriptedClient struct {
	replies []scriptedReply
	calls   int
	prompts []string
}

type scriptedReply struct {
	content string
	err     error
}

func (c *scriptedClient) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.calls >= len(c.replies) {
		return "", errors.New("scripted client exhausted")
	}
	r := c.replies[c.calls]
	c.calls++
	return r.content, r.err
}

func decisionReply(action, reason string) scriptedReply {
	return scriptedReply{content: fmt.Sprintf(`{"next_action": %q, "reason": %q, "uncertainty": ""}`, action, reason)}
}

func newTestRouter(client *scriptedClient) *Router {
	return NewRouter(client, zap.NewNop())
}

func TestRouteDispatchesDecision(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionShowHistory, "user asked for history"),
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Conversation.LastUserMessage = "show me the history"
	r.Route(context.Background(), st)

	require.Len(t, st.Conversation.History, 1)
	assert.Equal(t, ActionShowHistory, st.Conversation.History[0].Action)
	require.Len(t, st.Conversation.Reasoning, 1)
	assert.Equal(t, ActionShowHistory, st.Conversation.Reasoning[0].Decision)
	assert.Equal(t, "user asked for history", st.Conversation.LastReason)
}

func TestRouteFallsBackToExplainOnGarbageReply(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		{content: "sorry, I cannot produce JSON today"},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Conversation.LastUserMessage = "do the thing"
	r.Route(context.Background(), st)

	require.Len(t, st.Conversation.Reasoning, 1)
	assert.Equal(t, ActionExplain, st.Conversation.Reasoning[0].Decision)
	assert.Equal(t, "Failed to parse decision, defaulting to explanation", st.Conversation.Reasoning[0].Reason)
	assert.Equal(t, "LLM response was not valid JSON", st.Conversation.Reasoning[0].Uncertainty)

	// The explain handler still runs and records exactly one turn.
	require.Len(t, st.Conversation.History, 1)
	assert.Equal(t, ActionExplain, st.Conversation.History[0].Action)
}

func TestRouteUnknownActionDefaultsToExplain(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply("launch_rockets", "model hallucinated an action"),
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Conversation.LastUserMessage = "hello"
	r.Route(context.Background(), st)

	require.Len(t, st.Conversation.History, 1)
	assert.Equal(t, ActionExplain, st.Conversation.History[0].Action)
	// The reasoning record keeps the model's verdict as returned.
	require.Len(t, st.Conversation.Reasoning, 1)
	assert.Equal(t, "launch_rockets", st.Conversation.Reasoning[0].Decision)
}

func TestRouteDegradedServiceSkipsHistory(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		{err: errors.New("all completion backends exhausted: last error: 429")},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Conversation.LastUserMessage = "extract the certificate"
	r.Route(context.Background(), st)

	assert.Empty(t, st.Conversation.History)
	assert.Empty(t, st.Conversation.Reasoning)
	assert.Contains(t, st.Conversation.LastAgentMessage, "Temporary service limitation")
	assert.Contains(t, st.Conversation.LastAgentMessage, "session persists")
}

func TestDecisionPromptReflectsState(t *testing.T) {
	st := state.New()
	st.Conversation.LastUserMessage = "what is the GPA?"

	prompt := buildDecisionPrompt(st)
	assert.Contains(t, prompt, "NONE - NO DATA EXTRACTED YET")
	assert.Contains(t, prompt, "NONE - NO CRITERIA SET")
	assert.Contains(t, prompt, "what is the GPA?")

	st.Certificate.ExtractedFields["GPA"] = "3.87"
	st.Certificate.ExtractedFields["Name"] = "Jane Doe"
	st.Evaluation.Criteria["GPA"] = 0.5

	prompt = buildDecisionPrompt(st)
	assert.Contains(t, prompt, "Extracted Fields COUNT: 2")
	assert.Contains(t, prompt, "GPA, Name")
	assert.Contains(t, prompt, "Criterion: GPA (weight 0.50)")
}
