package agent

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certeval/internal/state"
)

func TestValidateCriteriaSetsWeights(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionValidateCriteria, "user is setting criteria"),
		{content: `{"criteria": {"GPA": 0.5, "Research": "30%", "Leadership": 20}}`},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Conversation.LastUserMessage = "evaluate with GPA 50%, Research 30%, Leadership 20%"
	r.Route(context.Background(), st)

	want := map[string]float64{"GPA": 0.5, "Research": 0.3, "Leadership": 0.2}
	if diff := cmp.Diff(want, st.Evaluation.Criteria); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, st.Conversation.LastAgentMessage, "Evaluation criteria set")
	require.Len(t, st.Conversation.History, 1)
}

func TestValidateCriteriaReplacesWholesale(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionValidateCriteria, "user is changing criteria"),
		{content: `{"criteria": {"Experience": 1.0}}`},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Evaluation.Criteria = map[string]float64{"GPA": 0.5, "Research": 0.5}
	st.Conversation.LastUserMessage = "actually just use Experience 100%"
	r.Route(context.Background(), st)

	want := map[string]float64{"Experience": 1.0}
	if diff := cmp.Diff(want, st.Evaluation.Criteria); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCriteriaPromptCarriesCurrentCriteria(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionValidateCriteria, "user is adjusting criteria"),
		{content: `{"criteria": {"GPA": 0.3, "Research": 0.3, "Honors": 0.4}, "validation_message": ""}`},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Evaluation.Criteria = map[string]float64{"GPA": 0.5, "Research": 0.5}
	st.Conversation.LastUserMessage = "change criteria to prioritize Honors"
	r.Route(context.Background(), st)

	// The criteria prompt (second model call) must show what is already
	// set so relative requests have something to be relative to.
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "- GPA: 0.50")
	assert.Contains(t, client.prompts[1], "- Research: 0.50")
	assert.InDelta(t, 0.4, st.Evaluation.Criteria["Honors"], 1e-9)
}

func TestValidateCriteriaSurfacesValidationMessage(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionValidateCriteria, "user is setting criteria"),
		{content: `{"criteria": {"GPA": 1.0}, "validation_message": "Using GPA as the only criterion."}`},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Conversation.LastUserMessage = "just score on GPA"
	r.Route(context.Background(), st)

	assert.Contains(t, st.Conversation.LastAgentMessage, "Using GPA as the only criterion.")
	assert.Contains(t, st.Conversation.LastAgentMessage, "Evaluation criteria set")
}

func TestValidateCriteriaRejectsEmptyOrInvalid(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionValidateCriteria, "user maybe setting criteria"),
		{content: `{"criteria": {"GPA": "not a number", "Research": 0}}`},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Evaluation.Criteria = map[string]float64{"GPA": 0.5}
	st.Conversation.LastUserMessage = "set some criteria"
	r.Route(context.Background(), st)

	// Nothing usable was parsed, so the existing criteria survive.
	want := map[string]float64{"GPA": 0.5}
	if diff := cmp.Diff(want, st.Evaluation.Criteria); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, st.Conversation.LastAgentMessage, "couldn't find any evaluation criteria")
}

func TestToWeight(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{0.4, 0.4, true},
		{40.0, 0.4, true},
		{25, 0.25, true},
		{"0.3", 0.3, true},
		{"30%", 0.3, true},
		{"thirty", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := toWeight(tt.in)
		assert.Equal(t, tt.wantOK, ok, "input %v", tt.in)
		if ok {
			assert.InDelta(t, tt.want, got, 1e-9, "input %v", tt.in)
		}
	}
}
