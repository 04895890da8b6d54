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

// reExtractKeywords force a fresh extraction even when cached fields exist.
var reExtractKeywords = []string{"re-extract", "extract again", "update", "correct", "change", "refresh"}

const extractPromptTemplate = `Extract certificate details from the following text.
Highlight uncertainty where applicable.

Certificate:
%s

User Context:
%s

Return STRICT JSON with confidence as a number between 0.0 and 1.0:
{
  "fields": {
    "field_name": "field_value"
  },
  "confidence": {
    "field_name": 0.95
  }
}

Example:
{
  "fields": {
    "Name": "John Doe",
    "GPA": "3.87",
    "Degree": "Bachelor of Science"
  },
  "confidence": {
    "Name": 0.98,
    "GPA": 0.95,
    "Degree": 0.97
  }
}

IMPORTANT: Confidence values MUST be numbers between 0.0 and 1.0, not strings or objects.`

// extractInformation extracts fields from the certificate, or returns the
// cached extraction when fields already exist and the user did not ask for
// a refresh.
func (r *Router) extractInformation(ctx context.Context, st *state.Context) {
	if len(st.Certificate.ExtractedFields) > 0 && !wantsReExtract(st.Conversation.LastUserMessage) {
		st.Conversation.LastReason = "Returned cached extraction; the user did not ask for a refresh."
		st.Conversation.LastAgentMessage = fmt.Sprintf(
			"✓ Using previously extracted certificate information:\n%s\n\n"+
				"Confidence levels:\n%s\n\n"+
				"(Data was cached from previous extraction. Say 're-extract' to force fresh extraction.)",
			fieldSummary(st.Certificate.ExtractedFields),
			confidenceSummary(st.Certificate.ExtractedFields, st.Certificate.Confidence))
		st.AppendTurn(ActionExtract)
		return
	}

	ok := r.performExtraction(ctx, st)
	if !ok {
		st.Conversation.LastAgentMessage = "❌ Failed to extract information. Please try rephrasing your request.\n\n" +
			"The model response could not be parsed correctly."
		st.AppendTurn(ActionExtract)
		return
	}

	st.Conversation.LastAgentMessage = fmt.Sprintf(
		"✓ Extracted certificate information:\n%s\n\nConfidence levels:\n%s",
		fieldSummary(st.Certificate.ExtractedFields),
		confidenceSummary(st.Certificate.ExtractedFields, st.Certificate.Confidence))
	st.AppendTurn(ActionExtract)
}

// performExtraction runs the extraction prompt and, on success, replaces
// the certificate fields and confidence wholesale. On total failure (no
// fields and no confidence parsed, or the completion call failed) state is
// left untouched and false is returned. It never appends history; callers
// own the conversation record for the turn.
func (r *Router) performExtraction(ctx context.Context, st *state.Context) bool {
	prompt := fmt.Sprintf(extractPromptTemplate, st.Certificate.RawText, st.Conversation.LastUserMessage)

	reply, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.log.Warn("extraction completion failed", zap.Error(err))
		return false
	}

	var parsed struct {
		Fields     map[string]any `json:"fields"`
		Confidence map[string]any `json:"confidence"`
	}
	if err := perception.DecodeLoose(reply, &parsed); err != nil {
		r.log.Warn("extraction reply was not usable JSON", zap.Error(err))
		return false
	}

	fields := make(map[string]string, len(parsed.Fields))
	for k, v := range parsed.Fields {
		if s, ok := v.(string); ok {
			fields[k] = s
		} else {
			fields[k] = fmt.Sprintf("%v", v)
		}
	}

	confidence := make(map[string]float64, len(parsed.Confidence))
	for k, v := range parsed.Confidence {
		confidence[k] = normalizeConfidence(v)
	}

	if len(fields) == 0 && len(confidence) == 0 {
		return false
	}

	st.Certificate.ExtractedFields = fields
	st.Certificate.Confidence = confidence
	r.log.Info("certificate extracted", zap.Int("fields", len(fields)))
	return true
}

// normalizeConfidence coerces whatever shape the model produced into a
// float in [0,1]. Numbers above 1 are treated as percentages; strings may
// carry a trailing '%'; nested objects are probed for a "value" or "score"
// key. Anything unparseable becomes the 0.5 default.
func normalizeConfidence(raw any) float64 {
	const fallback = 0.5

	switch v := raw.(type) {
	case float64:
		return clampUnit(scalePercent(v))
	case int:
		return clampUnit(scalePercent(float64(v)))
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fallback
		}
		return clampUnit(scalePercent(f))
	case map[string]any:
		if inner, ok := v["value"]; ok {
			return normalizeConfidence(inner)
		}
		if inner, ok := v["score"]; ok {
			return normalizeConfidence(inner)
		}
		return fallback
	default:
		return fallback
	}
}

func scalePercent(f float64) float64 {
	if f > 1.0 {
		return f / 100.0
	}
	return f
}

func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func wantsReExtract(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range reExtractKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func fieldSummary(fields map[string]string) string {
	if len(fields) == 0 {
		return "  - No fields extracted"
	}
	var sb strings.Builder
	for i, k := range sortedKeys(fields) {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "  - %s: %s", k, fields[k])
	}
	return sb.String()
}

func confidenceSummary(fields map[string]string, confidence map[string]float64) string {
	if len(confidence) == 0 {
		return "  - No confidence data"
	}
	var sb strings.Builder
	first := true
	for _, k := range sortedKeysF(confidence) {
		if !first {
			sb.WriteString("\n")
		}
		first = false
		fmt.Fprintf(&sb, "  - %s: %.1f%%", k, confidence[k]*100)
	}
	return sb.String()
}
