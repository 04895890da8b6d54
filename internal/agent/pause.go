package agent

import (
	"context"
	"fmt"

	"certeval/internal/state"
)

// pauseExecution reports a snapshot of the session and flags that the
// agent is waiting on the user before doing anything else.
func (r *Router) pauseExecution(ctx context.Context, st *state.Context) {
	st.Conversation.LastAgentMessage = fmt.Sprintf(
		"⏸️ Paused. Here's a snapshot of the session:\n\n"+
			"  - Extracted fields: %d\n"+
			"  - Evaluation criteria: %d\n"+
			"  - Final score: %.1f/100\n"+
			"  - Conversation turns: %d\n\n"+
			"Everything is saved. Tell me how you'd like to proceed.",
		len(st.Certificate.ExtractedFields),
		len(st.Evaluation.Criteria),
		st.Evaluation.FinalScore,
		len(st.Conversation.History))
	st.Conversation.PendingConfirmation = true
	st.AppendTurn(ActionPause)
}
