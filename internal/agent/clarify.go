package agent

import (
	"context"
	"fmt"
	"strings"

	"certeval/internal/state"
)

var scoreIntentWords = []string{"score", "calculate", "rate", "evaluate", "scoring"}

// askClarification asks the user for missing information. The common case
// is a scoring request made before any criteria exist; otherwise it
// surfaces the router's uncertainty plus any low-confidence fields.
func (r *Router) askClarification(ctx context.Context, st *state.Context) {
	lower := strings.ToLower(st.Conversation.LastUserMessage)

	wantsScore := false
	for _, w := range scoreIntentWords {
		if strings.Contains(lower, w) {
			wantsScore = true
			break
		}
	}

	if wantsScore && len(st.Evaluation.Criteria) == 0 {
		st.Conversation.LastAgentMessage = "Before I can score the certificate, I need evaluation criteria.\n\n" +
			"Please tell me what to evaluate and how to weight it, for example:\n" +
			"  'Evaluate with GPA 50%, Research 30%, Leadership 20%'"
		st.Conversation.PendingConfirmation = true
		st.AppendTurn(ActionAskClarification)
		return
	}

	var sb strings.Builder
	sb.WriteString("I need a bit more information to help with that.")
	if st.Conversation.Uncertainty != "" {
		fmt.Fprintf(&sb, "\n\nWhat I'm unsure about: %s", st.Conversation.Uncertainty)
	}

	var lowConf []string
	for _, k := range sortedKeysF(st.Certificate.Confidence) {
		if st.Certificate.Confidence[k] < 0.7 {
			lowConf = append(lowConf, fmt.Sprintf("%s (%.0f%% confident)", k, st.Certificate.Confidence[k]*100))
		}
	}
	if len(lowConf) > 0 {
		fmt.Fprintf(&sb, "\n\nFields I'm not confident about:\n  - %s", strings.Join(lowConf, "\n  - "))
	}

	sb.WriteString("\n\nCould you rephrase your request or provide more detail?")

	st.Conversation.LastAgentMessage = sb.String()
	st.Conversation.PendingConfirmation = true
	st.AppendTurn(ActionAskClarification)
}
