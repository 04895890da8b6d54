package agent

import (
	"context"
	"strings"

	"certeval/internal/state"
)

// compareCertificates acknowledges a comparison request. Only a single
// certificate can be loaded at a time, so the handler explains the
// limitation rather than attempting a comparison.
func (r *Router) compareCertificates(ctx context.Context, st *state.Context) {
	lower := strings.ToLower(st.Conversation.LastUserMessage)

	if strings.Contains(lower, " vs ") || strings.Contains(lower, "versus") || strings.Contains(lower, " with ") {
		st.Conversation.LastAgentMessage = "I can only work with one certificate at a time right now, so I can't " +
			"compare it against another one. If you paste the second certificate's details into your message, " +
			"I can discuss the differences informally."
	} else {
		st.Conversation.LastAgentMessage = "Comparing certificates requires a second certificate, and I only have " +
			"one loaded. You can ask me anything about the current certificate, or score it against your criteria."
	}
	st.AppendTurn(ActionCompare)
}
