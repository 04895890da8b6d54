package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certeval/internal/state"
)

func TestAnswerFromStateAnswersWithoutModelCall(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionAnswerFromState, "question about existing data"),
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Certificate.ExtractedFields["Cumulative GPA"] = "3.87"
	st.Certificate.ExtractedFields["Name"] = "Jane Doe"
	st.Conversation.LastUserMessage = "what is the gpa?"
	r.Route(context.Background(), st)

	// Only the routing call hits the model.
	assert.Equal(t, 1, client.calls)
	assert.Contains(t, st.Conversation.LastAgentMessage, "Cumulative GPA: 3.87")
	assert.Contains(t, st.Conversation.LastAgentMessage, "Answered from existing state")
	require.Len(t, st.Conversation.History, 1)
	assert.Equal(t, ActionAnswerFromState, st.Conversation.History[0].Action)
}

func TestAnswerFromStateAutoExtractsOnce(t *testing.T) {
	client := &scriptedClient{replies: []scriptedReply{
		decisionReply(ActionAnswerFromState, "question about data"),
		{content: `{"fields": {"Name": "Jane Doe"}, "confidence": {"Name": 0.97}}`},
	}}
	r := newTestRouter(client)

	st := state.New()
	st.Certificate.RawText = "This certifies that Jane Doe..."
	st.Conversation.LastUserMessage = "what is the name on the certificate?"
	r.Route(context.Background(), st)

	assert.Equal(t, "Jane Doe", st.Certificate.ExtractedFields["Name"])
	assert.Contains(t, st.Conversation.LastAgentMessage, "extracted the certificate information first")
	assert.Contains(t, st.Conversation.LastAgentMessage, "Jane Doe")

	// Auto-extraction plus answer still yields exactly one history entry.
	require.Len(t, st.Conversation.History, 1)
	assert.Equal(t, ActionAnswerFromState, st.Conversation.History[0].Action)
}

func TestAnswerFromStateTopicPriority(t *testing.T) {
	st := state.New()
	st.Certificate.ExtractedFields["Name"] = "Jane Doe"
	st.Certificate.ExtractedFields["Degree"] = "BSc Computer Science"
	st.Certificate.ExtractedFields["Cumulative GPA"] = "3.87"

	// "name" matches before "degree" in the topic order.
	st.Conversation.LastUserMessage = "whose name is on this degree?"
	assert.Contains(t, answerFor(st), "Jane Doe")

	st.Conversation.LastUserMessage = "what degree is it?"
	assert.Contains(t, answerFor(st), "BSc Computer Science")

	st.Conversation.LastUserMessage = "tell me everything"
	assert.Contains(t, answerFor(st), "Here's what I know")
}

func TestAnswerGeneralOverviewCapsAtFiveFields(t *testing.T) {
	st := state.New()
	st.Certificate.ExtractedFields = map[string]string{
		"Degree":     "BSc",
		"Department": "CS",
		"Issued":     "2024",
		"Language":   "English",
		"Registrar":  "A. Smith",
		"Seal":       "embossed",
		"Signatory":  "Dean Jones",
	}
	st.Conversation.LastUserMessage = "tell me everything"

	msg := answerFor(st)
	assert.Contains(t, msg, "Degree: BSc")
	assert.Contains(t, msg, "Registrar: A. Smith")
	assert.Contains(t, msg, "... and 2 more fields")
	// Sixth and seventh alphabetical fields are cut.
	assert.NotContains(t, msg, "Seal")
	assert.NotContains(t, msg, "Signatory")
}

func TestAnswerFromStateScoreTopic(t *testing.T) {
	st := state.New()
	st.Certificate.ExtractedFields["Name"] = "Jane Doe"

	st.Conversation.LastUserMessage = "what score did I get?"
	assert.Contains(t, answerFor(st), "No score has been calculated yet")

	st.Evaluation.FinalScore = 72.5
	st.Evaluation.Scores = map[string]float64{"GPA": 45.0, "Research": 27.5}
	assert.Contains(t, answerFor(st), "Final score: 72.5/100")
	assert.Contains(t, answerFor(st), "GPA: 45.0")
}
