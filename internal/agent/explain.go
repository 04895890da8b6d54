package agent

import (
	"context"
	"fmt"
	"strings"

	"certeval/internal/state"
)

var (
	greetingWords   = []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}
	farewellWords   = []string{"bye", "goodbye", "see you", "farewell"}
	gratitudeWords  = []string{"thank", "thanks", "appreciate"}
	capabilityWords = []string{"what can you do", "help me", "capabilities", "what do you do", "how do you work"}
	explainWords    = []string{"why", "explain", "reasoning", "how did you", "what happened"}
)

// actionElaborations turn a recorded action name into a human explanation
// of what the agent did on that turn.
var actionElaborations = map[string]string{
	ActionAnswerFromState:  "I answered your question using data I had already extracted, so no model call was needed for the content.",
	ActionShowHistory:      "I assembled the conversation history and state summary from memory.",
	ActionExtract:          "I asked the language model to pull structured fields out of the certificate text.",
	ActionRescore:          "I computed a weighted score from the extracted fields, their confidence, and your criteria.",
	ActionValidateCriteria: "I parsed evaluation criteria and weights out of your message and stored them.",
	ActionAskClarification: "I didn't have enough information to act, so I asked you to clarify.",
	ActionCompare:          "You asked about comparing certificates, which needs more than one certificate loaded.",
	ActionPause:            "I paused and saved a snapshot of the session so you could review it.",
	ActionExplain:          "I gave a conversational response rather than changing any state.",
}

// explainDecision is the terminal fallback: greetings, farewells,
// capability questions, explanations of the previous turn, and anything
// the router could not classify land here.
func (r *Router) explainDecision(ctx context.Context, st *state.Context) {
	msg := strings.TrimSpace(st.Conversation.LastUserMessage)
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, farewellWords):
		st.Conversation.LastAgentMessage = "Goodbye! Your session has been saved, so you can pick up where you left off. 👋"
	case containsAny(lower, gratitudeWords):
		st.Conversation.LastAgentMessage = "You're welcome! Let me know if there's anything else about the certificate I can help with."
	case containsAny(lower, capabilityWords):
		st.Conversation.LastAgentMessage = capabilityOverview()
	case containsAny(lower, explainWords) && len(st.Conversation.Reasoning) >= 2:
		st.Conversation.LastAgentMessage = explainPrevious(st)
	case containsAny(lower, greetingWords), len(msg) < 15:
		st.Conversation.LastAgentMessage = welcomeMessage(st)
	default:
		st.Conversation.LastAgentMessage = stateOverview(st)
	}

	st.AppendTurn(ActionExplain)
}

// explainPrevious explains the turn before this one, pairing the
// second-to-last reasoning record with the last conversation turn.
func explainPrevious(st *state.Context) string {
	prev := st.Conversation.Reasoning[len(st.Conversation.Reasoning)-2]

	var sb strings.Builder
	sb.WriteString("Here's what happened on the previous turn:\n\n")
	fmt.Fprintf(&sb, "  Decision: %s\n", prev.Decision)
	fmt.Fprintf(&sb, "  Reason: %s\n", prev.Reason)
	if prev.Uncertainty != "" && prev.Uncertainty != "none" {
		fmt.Fprintf(&sb, "  Uncertainty: %s\n", prev.Uncertainty)
	}

	if elaboration, ok := actionElaborations[prev.Decision]; ok {
		fmt.Fprintf(&sb, "\n%s", elaboration)
	}

	if len(st.Conversation.History) > 0 {
		last := st.Conversation.History[len(st.Conversation.History)-1]
		fmt.Fprintf(&sb, "\n\nYou said: %q and I took the '%s' action.", truncate(last.User, 100), last.Action)
	}
	return sb.String()
}

func welcomeMessage(st *state.Context) string {
	var sb strings.Builder
	sb.WriteString("Hello! 👋 I'm a certificate evaluation assistant.\n\n")
	if len(st.Certificate.ExtractedFields) > 0 {
		fmt.Fprintf(&sb, "I currently have %d extracted fields from a certificate.\n", len(st.Certificate.ExtractedFields))
	} else if st.Certificate.RawText != "" {
		sb.WriteString("A certificate is loaded but not yet analyzed.\n")
	}
	sb.WriteString("\nTry things like:\n" +
		"  - 'Extract the certificate information'\n" +
		"  - 'What is the GPA?'\n" +
		"  - 'Evaluate with GPA 50%, Research 30%, Leadership 20%'\n" +
		"  - 'Score the certificate'")
	return sb.String()
}

func capabilityOverview() string {
	return "I help you evaluate academic certificates. I can:\n\n" +
		"  - Extract structured fields (name, GPA, degree, honors...) from certificate text\n" +
		"  - Answer questions about data I've already extracted\n" +
		"  - Accept evaluation criteria with weights and score the certificate against them\n" +
		"  - Show the conversation history and my reasoning for each decision\n" +
		"  - Explain why I took a particular action\n\n" +
		"Everything is saved between sessions, so you can leave and come back."
}

func stateOverview(st *state.Context) string {
	var sb strings.Builder
	sb.WriteString("I'm not sure what you'd like me to do, so here's where things stand:\n\n")
	fmt.Fprintf(&sb, "  - Extracted fields: %d\n", len(st.Certificate.ExtractedFields))
	fmt.Fprintf(&sb, "  - Evaluation criteria: %d\n", len(st.Evaluation.Criteria))
	if st.Evaluation.FinalScore > 0 {
		fmt.Fprintf(&sb, "  - Final score: %.1f/100\n", st.Evaluation.FinalScore)
	} else {
		sb.WriteString("  - Final score: not calculated yet\n")
	}
	fmt.Fprintf(&sb, "  - Conversation turns: %d\n", len(st.Conversation.History))
	sb.WriteString("\nYou can ask me to extract, answer questions, set criteria, or score the certificate.")
	return sb.String()
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
