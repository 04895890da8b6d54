package agent

import (
	"fmt"
	"sort"
	"strings"

	"certeval/internal/state"
)

// decisionPreamble is the fixed part of the routing prompt. The dynamic
// state snapshot is appended per turn by buildDecisionPrompt.
const decisionPreamble = `You are an agentic certificate evaluation assistant.

You must decide the next best action from the certificate state, the
evaluation state, the conversation state, and the user input. You are NOT
following a workflow: choose the single most appropriate action for THIS
request.

KEY PRINCIPLE: treat previous outputs as living context. If data already
exists in state, use it; do not re-extract unless the user asks to.

Available actions:

1. show_history (PRIORITY) - user asks for history, past exchanges, what
   was discussed ("show history", "what did we discuss").
2. answer_from_state - user asks a QUESTION about data that is already in
   state ("what's the GPA?", "what score did I get?").
3. extract_information - user asks to extract, parse, or re-extract the
   certificate ("extract information", "re-extract", "refresh data").
   Do NOT use for questions about existing data.
4. validate_criteria - user wants to SET or CHANGE evaluation criteria or
   weights ("set criteria to GPA and Research", "use 40% for GPA").
   Never invent criteria yourself; the user must specify them.
5. rescore - user wants scores computed ("score my certificate",
   "calculate", "rate", "evaluate"). Only when criteria exist.
6. explain - user greets, says farewell, thanks you, asks what you can do,
   or asks WHY/HOW about a decision.
7. ask_clarification - the request is ambiguous, or the user wants to
   score but NO criteria are set.
8. compare_certificates - user mentions comparing certificates.
9. pause - user explicitly asks to pause or wait.

Decision rules, in order of precedence:
- History request beats everything: any mention of history -> show_history.
- Question about existing data AND extracted fields exist -> answer_from_state.
- Question about data with NO fields extracted -> extract_information.
- Explicit extract/re-extract request -> extract_information.
- Scoring request with criteria set -> rescore.
- Scoring request with NO criteria -> ask_clarification.
- "Set criteria to ..." / "evaluate based on ..." -> validate_criteria.
- Greeting, farewell, gratitude, capability question -> explain.
- Anything ambiguous -> ask_clarification.

Return STRICT JSON, nothing else:
{
  "next_action": "one of the nine action names",
  "reason": "one sentence explaining the choice",
  "uncertainty": "what is ambiguous, or empty string"
}`

// buildDecisionPrompt embeds the full context snapshot into the routing
// prompt: user message, extracted field contents (or a NONE sentinel),
// criteria, and the last two history entries.
func buildDecisionPrompt(st *state.Context) string {
	var sb strings.Builder
	sb.WriteString(decisionPreamble)
	sb.WriteString("\n\nUser Input:\n")
	sb.WriteString(st.Conversation.LastUserMessage)

	sb.WriteString("\n\n=== CURRENT STATE (CHECK THIS CAREFULLY) ===\n")

	fields := st.Certificate.ExtractedFields
	sb.WriteString("\nCertificate State:\n")
	fmt.Fprintf(&sb, "- Raw Text Available: %v\n", st.Certificate.RawText != "")
	fmt.Fprintf(&sb, "- Extracted Fields COUNT: %d\n", len(fields))
	if len(fields) > 0 {
		fmt.Fprintf(&sb, "- Fields: %s\n", strings.Join(sortedKeys(fields), ", "))
		for _, k := range firstN(sortedKeys(fields), 3) {
			fmt.Fprintf(&sb, "- Sample: %s = %s\n", k, fields[k])
		}
	} else {
		sb.WriteString("- Fields: NONE - NO DATA EXTRACTED YET\n")
	}

	criteria := st.Evaluation.Criteria
	sb.WriteString("\nEvaluation State:\n")
	fmt.Fprintf(&sb, "- Criteria COUNT: %d\n", len(criteria))
	if len(criteria) > 0 {
		for _, k := range sortedKeysF(criteria) {
			fmt.Fprintf(&sb, "- Criterion: %s (weight %.2f)\n", k, criteria[k])
		}
	} else {
		sb.WriteString("- Criteria: NONE - NO CRITERIA SET\n")
	}
	fmt.Fprintf(&sb, "- Final Score: %.1f\n", st.Evaluation.FinalScore)

	history := st.Conversation.History
	sb.WriteString("\nConversation State:\n")
	fmt.Fprintf(&sb, "- History Length: %d\n", len(history))
	if len(history) > 0 {
		start := len(history) - 2
		if start < 0 {
			start = 0
		}
		for _, turn := range history[start:] {
			fmt.Fprintf(&sb, "- [%s] user: %s | agent: %s\n",
				turn.Action, truncate(turn.User, 100), truncate(turn.Agent, 100))
		}
	} else {
		sb.WriteString("- Recent Context: NO HISTORY\n")
	}

	sb.WriteString("\n=== CRITICAL DECISION LOGIC ===\n")
	fmt.Fprintf(&sb, "- Extracted field count is %d and criteria count is %d.\n", len(fields), len(criteria))
	sb.WriteString("- If the user asks for info and the field count is 0, choose extract_information (NOT answer_from_state).\n")
	sb.WriteString("- If the user asks for info and fields exist, choose answer_from_state.\n")
	sb.WriteString("- If the user asks to score and the criteria count is 0, choose ask_clarification.\n")
	sb.WriteString("- If the user asks to score and criteria exist, choose rescore.\n")

	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysF(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
