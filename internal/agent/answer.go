package agent

import (
	"context"
	"fmt"
	"strings"

	"certeval/internal/state"
)

// answerTopics are checked in order against the user message; the first
// matching topic wins.
var answerTopics = []struct {
	keywords []string
	answer   func(st *state.Context) (string, bool)
}{
	{[]string{"name", "who"}, func(st *state.Context) (string, bool) {
		v, ok := lookupField(st, "Name", "name")
		if !ok {
			return "", false
		}
		return fmt.Sprintf("The certificate holder's name is: %s", v), true
	}},
	{[]string{"gpa", "grade"}, func(st *state.Context) (string, bool) {
		var parts []string
		for _, k := range sortedKeys(st.Certificate.ExtractedFields) {
			if strings.Contains(strings.ToLower(k), "gpa") {
				parts = append(parts, fmt.Sprintf("%s: %s", k, st.Certificate.ExtractedFields[k]))
			}
		}
		if len(parts) == 0 {
			return "No GPA information found in the extracted data.", true
		}
		return "GPA information:\n  - " + strings.Join(parts, "\n  - "), true
	}},
	{[]string{"degree", "major", "study"}, func(st *state.Context) (string, bool) {
		v, ok := lookupField(st, "Degree", "degree")
		if !ok {
			return "", false
		}
		return fmt.Sprintf("Degree: %s", v), true
	}},
	{[]string{"university", "school", "college", "institution"}, func(st *state.Context) (string, bool) {
		v, ok := lookupField(st, "University", "university", "Institution", "institution")
		if !ok {
			return "No university information found in the extracted data.", true
		}
		return fmt.Sprintf("University: %s", v), true
	}},
	{[]string{"graduation", "graduate", "year"}, func(st *state.Context) (string, bool) {
		for _, k := range sortedKeys(st.Certificate.ExtractedFields) {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "graduation") || strings.Contains(lk, "date") || strings.Contains(lk, "year") {
				return fmt.Sprintf("%s: %s", k, st.Certificate.ExtractedFields[k]), true
			}
		}
		return "No graduation date found in the extracted data.", true
	}},
	{[]string{"score", "final", "result"}, func(st *state.Context) (string, bool) {
		if st.Evaluation.FinalScore != 0 || len(st.Evaluation.Scores) > 0 {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Final score: %.1f/100", st.Evaluation.FinalScore)
			if len(st.Evaluation.Scores) > 0 {
				sb.WriteString("\n\nBreakdown:")
				for _, k := range sortedKeysF(st.Evaluation.Scores) {
					fmt.Fprintf(&sb, "\n  - %s: %.1f", k, st.Evaluation.Scores[k])
				}
			}
			return sb.String(), true
		}
		return "No score has been calculated yet. Say 'score the certificate' after setting criteria.", true
	}},
	{[]string{"criteria", "weight"}, func(st *state.Context) (string, bool) {
		if len(st.Evaluation.Criteria) == 0 {
			return "No evaluation criteria have been set yet. Tell me the criteria and their weights, for example: 'GPA 50%, Research 30%, Leadership 20%'.", true
		}
		var sb strings.Builder
		sb.WriteString("Current evaluation criteria:")
		for _, k := range sortedKeysF(st.Evaluation.Criteria) {
			fmt.Fprintf(&sb, "\n  - %s: %.0f%%", k, st.Evaluation.Criteria[k]*100)
		}
		return sb.String(), true
	}},
	{[]string{"honor", "award", "achievement"}, func(st *state.Context) (string, bool) {
		for _, k := range sortedKeys(st.Certificate.ExtractedFields) {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "honor") || strings.Contains(lk, "award") {
				return fmt.Sprintf("%s: %s", k, st.Certificate.ExtractedFields[k]), true
			}
		}
		return "No honors or awards found in the extracted data.", true
	}},
	{[]string{"research", "publication", "thesis"}, func(st *state.Context) (string, bool) {
		for _, k := range sortedKeys(st.Certificate.ExtractedFields) {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "research") || strings.Contains(lk, "thesis") || strings.Contains(lk, "publication") {
				return fmt.Sprintf("%s: %s", k, st.Certificate.ExtractedFields[k]), true
			}
		}
		return "No research information found in the extracted data.", true
	}},
	{[]string{"leadership", "activity", "extracurricular"}, func(st *state.Context) (string, bool) {
		for _, k := range sortedKeys(st.Certificate.ExtractedFields) {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "leadership") || strings.Contains(lk, "activit") {
				return fmt.Sprintf("%s: %s", k, st.Certificate.ExtractedFields[k]), true
			}
		}
		return "No leadership information found in the extracted data.", true
	}},
}

// answerFromState answers from already-extracted data. When nothing has
// been extracted yet it transparently runs an extraction first, then
// answers, recording a single combined turn so the history shows one
// answer_from_state entry.
func (r *Router) answerFromState(ctx context.Context, st *state.Context) {
	var notice string
	if len(st.Certificate.ExtractedFields) == 0 {
		if r.performExtraction(ctx, st) {
			notice = "(I extracted the certificate information first since none was available.)\n\n"
			st.Conversation.LastReason = "Auto-extracted certificate data before answering from state."
		} else {
			st.Conversation.LastAgentMessage = "I don't have any extracted certificate data yet, and the extraction attempt failed. " +
				"Please try 'extract the certificate information' again."
			st.AppendTurn(ActionAnswerFromState)
			return
		}
	}

	st.Conversation.LastAgentMessage = notice + answerFor(st) +
		"\n\n(Answered from existing state - no re-extraction needed)"
	st.AppendTurn(ActionAnswerFromState)
}

func answerFor(st *state.Context) string {
	lower := strings.ToLower(st.Conversation.LastUserMessage)
	for _, topic := range answerTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(lower, kw) {
				if msg, ok := topic.answer(st); ok {
					return msg
				}
				break
			}
		}
	}
	return "Here's what I know from the certificate:\n" + fieldPreview(st.Certificate.ExtractedFields)
}

// fieldPreview lists up to five extracted fields for the general-overview
// answer, noting how many more exist.
func fieldPreview(fields map[string]string) string {
	if len(fields) == 0 {
		return "  - No fields extracted"
	}
	keys := sortedKeys(fields)
	shown := firstN(keys, 5)

	var sb strings.Builder
	for i, k := range shown {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "  - %s: %s", k, fields[k])
	}
	if rest := len(keys) - len(shown); rest > 0 {
		fmt.Fprintf(&sb, "\n  ... and %d more fields", rest)
	}
	return sb.String()
}

func lookupField(st *state.Context, names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := st.Certificate.ExtractedFields[n]; ok {
			return v, true
		}
	}
	return "", false
}
