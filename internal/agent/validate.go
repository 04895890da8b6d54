package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"certeval/internal/perception"
	"certeval/internal/state"
)

const validatePromptTemplate = `Determine the evaluation criteria and weights the user wants.

Current criteria:
%s

User message:
%s

Return STRICT JSON with the full resulting criteria set and a short note for the user:
{
  "criteria": {
    "GPA": 0.5,
    "Research": 0.3,
    "Leadership": 0.2
  },
  "validation_message": "one sentence describing the criteria change"
}

Rules:
- The criteria object must be the COMPLETE resulting set: when the user
  adjusts the current criteria, carry the unchanged ones over.
- Only include criteria the user mentioned or that already exist. NEVER
  invent new criteria.
- Weights may be given as percentages (50%%) or fractions (0.5); return them as numbers.
- If the user gave no weights, assign equal weights to the mentioned criteria.
- If the message contains no criteria at all, return {"criteria": {}, "validation_message": ""}.`

// validateCriteria parses evaluation criteria from the user message and
// replaces the current criteria wholesale.
func (r *Router) validateCriteria(ctx context.Context, st *state.Context) {
	prompt := fmt.Sprintf(validatePromptTemplate, currentCriteria(st), st.Conversation.LastUserMessage)

	reply, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.log.Warn("criteria completion failed", zap.Error(err))
		st.Conversation.LastAgentMessage = "❌ I couldn't process the criteria right now. Please try again, " +
			"for example: 'GPA 50%, Research 30%, Leadership 20%'."
		st.AppendTurn(ActionValidateCriteria)
		return
	}

	data := perception.ParseLoose(reply, map[string]any{"criteria": map[string]any{}})
	rawCriteria := perception.ObjectField(data, "criteria")
	validationMsg := strings.TrimSpace(perception.StringField(data, "validation_message", ""))

	criteria := make(map[string]float64, len(rawCriteria))
	for name, raw := range rawCriteria {
		w, ok := toWeight(raw)
		if !ok || w <= 0 {
			continue
		}
		criteria[name] = w
	}

	if len(criteria) == 0 {
		st.Conversation.LastAgentMessage = "I couldn't find any evaluation criteria in your message. " +
			"Please specify them with weights, for example: 'Evaluate with GPA 50%, Research 30%, Leadership 20%'."
		st.AppendTurn(ActionValidateCriteria)
		return
	}

	st.Evaluation.Criteria = criteria
	r.log.Info("evaluation criteria set", zap.Int("count", len(criteria)))

	var lines []string
	for _, k := range sortedKeysF(criteria) {
		lines = append(lines, fmt.Sprintf("  - %s: %.0f%%", k, criteria[k]*100))
	}
	var prefix string
	if validationMsg != "" {
		prefix = validationMsg + "\n\n"
	}
	st.Conversation.LastAgentMessage = fmt.Sprintf(
		"%s✓ Evaluation criteria set:\n%s\n\nSay 'score the certificate' to evaluate against these criteria.",
		prefix, strings.Join(lines, "\n"))
	st.AppendTurn(ActionValidateCriteria)
}

// currentCriteria renders the existing criteria for the validation prompt.
func currentCriteria(st *state.Context) string {
	if len(st.Evaluation.Criteria) == 0 {
		return "(none set)"
	}
	var lines []string
	for _, k := range sortedKeysF(st.Evaluation.Criteria) {
		lines = append(lines, fmt.Sprintf("- %s: %.2f", k, st.Evaluation.Criteria[k]))
	}
	return strings.Join(lines, "\n")
}

// toWeight coerces a weight to a fraction in (0,1]; values above 1 are
// treated as percentages.
func toWeight(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f > 1.0 {
		f = f / 100.0
	}
	return f, true
}
