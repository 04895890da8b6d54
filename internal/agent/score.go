package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"certeval/internal/state"
)

// criterionSynonyms maps criterion names to the field names and raw-text
// keywords that count as evidence for them.
var criterionSynonyms = map[string][]string{
	"GPA":           {"Cumulative GPA", "Major GPA", "GPA"},
	"Research":      {"research", "publication", "paper", "lab"},
	"Leadership":    {"leadership", "president", "captain", "founder", "led"},
	"Academic":      {"gpa", "honor", "dean", "scholarship", "award"},
	"Experience":    {"internship", "work", "experience", "employment"},
	"Skills":        {"skill", "programming", "language", "technical"},
	"Activities":    {"activity", "club", "volunteer", "extracurricular"},
	"Communication": {"presentation", "writing", "speaking", "communication"},
}

const (
	rawTextMatchScore = 70.0
	absentScore       = 30.0
	unknownMatchScore = 50.0
)

// rescoreCertificate computes a weighted score per criterion from the
// extracted fields and their confidence, falling back to raw-text keyword
// evidence when no field matches.
func (r *Router) rescoreCertificate(ctx context.Context, st *state.Context) {
	if len(st.Evaluation.Criteria) == 0 {
		// The confidence fallback has nothing to work from without
		// extracted data; the criteria tiers below do (raw-text keywords).
		if len(st.Certificate.ExtractedFields) == 0 {
			st.Conversation.LastAgentMessage = "I need extracted certificate data before I can score it. " +
				"Say 'extract the certificate information' first."
		} else {
			r.scoreWithoutCriteria(st)
		}
		st.AppendTurn(ActionRescore)
		return
	}

	scores := make(map[string]float64, len(st.Evaluation.Criteria))
	var weightSum float64
	var details []string

	for _, criterion := range sortedKeysF(st.Evaluation.Criteria) {
		weight := st.Evaluation.Criteria[criterion]
		weightSum += weight

		score, how := scoreCriterion(st, criterion, weight)
		scores[criterion] = score
		details = append(details, fmt.Sprintf("  - %s (weight %.0f%%): %.1f points [%s]",
			criterion, weight*100, score, how))
	}

	var final float64
	if weightSum > 0 {
		var total float64
		for _, s := range scores {
			total += s
		}
		final = total / weightSum
	}

	st.Evaluation.Scores = scores
	st.Evaluation.FinalScore = final
	r.log.Info("certificate rescored",
		zap.Float64("final_score", final),
		zap.Int("criteria", len(scores)))

	st.Conversation.LastAgentMessage = fmt.Sprintf(
		"📊 Certificate scored against your criteria:\n\n%s\n\n🎯 Final score: %.1f/100",
		strings.Join(details, "\n"), final)
	st.AppendTurn(ActionRescore)
}

// scoreCriterion returns the weighted score for one criterion plus a short
// label describing which evidence tier produced it.
func scoreCriterion(st *state.Context, criterion string, weight float64) (float64, string) {
	synonyms := criterionSynonyms[criterion]
	if synonyms == nil {
		synonyms = []string{criterion}
	}

	var confidences []float64
	for _, field := range sortedKeys(st.Certificate.ExtractedFields) {
		if fieldMatches(field, st.Certificate.ExtractedFields[field], synonyms) {
			if c, ok := st.Certificate.Confidence[field]; ok {
				confidences = append(confidences, c)
			} else {
				confidences = append(confidences, -1)
			}
		}
	}

	if len(confidences) > 0 {
		var sum float64
		var n int
		for _, c := range confidences {
			if c >= 0 {
				sum += c
				n++
			}
		}
		if n == 0 {
			return unknownMatchScore * weight, "matched field, unknown confidence"
		}
		return (sum / float64(n)) * 100 * weight, "matched extracted field"
	}

	lowerText := strings.ToLower(st.Certificate.RawText)
	for _, syn := range synonyms {
		if strings.Contains(lowerText, strings.ToLower(syn)) {
			return rawTextMatchScore * weight, "keyword found in certificate text"
		}
	}

	return absentScore * weight, "no evidence found"
}

// fieldMatches reports whether any synonym appears in the field's name or
// its extracted value. Evidence for a criterion often lands in the value of
// an unrelated field ("Activities: research in the robotics lab").
func fieldMatches(name, value string, synonyms []string) bool {
	lowerName := strings.ToLower(name)
	lowerValue := strings.ToLower(value)
	for _, syn := range synonyms {
		lowerSyn := strings.ToLower(syn)
		if strings.Contains(lowerName, lowerSyn) || strings.Contains(lowerValue, lowerSyn) {
			return true
		}
	}
	return false
}

// scoreWithoutCriteria falls back to an unweighted mean of per-field
// confidence when the user never set criteria.
func (r *Router) scoreWithoutCriteria(st *state.Context) {
	scores := make(map[string]float64)
	var total float64
	for _, field := range sortedKeys(st.Certificate.ExtractedFields) {
		c, ok := st.Certificate.Confidence[field]
		if !ok {
			c = 0.5
		}
		scores[field] = c * 100
		total += scores[field]
	}

	var final float64
	if len(scores) > 0 {
		final = total / float64(len(scores))
	}

	st.Evaluation.Scores = scores
	st.Evaluation.FinalScore = final

	var lines []string
	for _, k := range sortedKeysF(scores) {
		lines = append(lines, fmt.Sprintf("  - %s: %.1f", k, scores[k]))
	}
	st.Conversation.LastAgentMessage = fmt.Sprintf(
		"📊 No criteria were set, so I scored each field by extraction confidence:\n\n%s\n\n"+
			"🎯 Overall score: %.1f/100\n\n"+
			"Tip: set evaluation criteria (e.g. 'GPA 50%%, Research 30%%, Leadership 20%%') for a weighted score.",
		strings.Join(lines, "\n"), final)
}
