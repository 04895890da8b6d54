package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"certeval/internal/state"
)

// showHistory renders the full conversation history, the most recent
// reasoning records, per-action counts, and a summary of current state.
func (r *Router) showHistory(ctx context.Context, st *state.Context) {
	if len(st.Conversation.History) == 0 {
		st.Conversation.LastAgentMessage = "No conversation history yet. Ask me something about the certificate to get started!"
		st.AppendTurn(ActionShowHistory)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 Conversation history (%d turns):\n\n", len(st.Conversation.History))
	for i, turn := range st.Conversation.History {
		fmt.Fprintf(&sb, "%d. [%s]\n   You: %s\n   Me: %s\n",
			i+1, turn.Action, truncate(turn.User, 100), truncate(turn.Agent, 200))
	}

	if len(st.Conversation.Reasoning) > 0 {
		sb.WriteString("\n🧠 Recent reasoning:\n")
		start := len(st.Conversation.Reasoning) - 5
		if start < 0 {
			start = 0
		}
		for _, rec := range st.Conversation.Reasoning[start:] {
			fmt.Fprintf(&sb, "  - %s: %s\n", rec.Decision, truncate(rec.Reason, 120))
		}
	}

	sb.WriteString("\n📈 Action counts:\n")
	for _, line := range actionCounts(st.Conversation.History) {
		fmt.Fprintf(&sb, "  - %s\n", line)
	}

	sb.WriteString("\n📋 Current state:\n")
	fmt.Fprintf(&sb, "  - Extracted fields: %d\n", len(st.Certificate.ExtractedFields))
	fmt.Fprintf(&sb, "  - Evaluation criteria: %d\n", len(st.Evaluation.Criteria))
	fmt.Fprintf(&sb, "  - Final score: %.1f/100", st.Evaluation.FinalScore)

	st.Conversation.LastAgentMessage = sb.String()
	st.AppendTurn(ActionShowHistory)
}

// actionCounts returns "action: count" lines sorted by descending count,
// ties broken alphabetically.
func actionCounts(history []state.Turn) []string {
	counts := make(map[string]int)
	for _, turn := range history {
		counts[turn.Action]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %d", name, counts[name]))
	}
	return lines
}
