package agent

import (
	"context"

	"certeval/internal/state"
)

// Action names form a closed set. The router dispatches on the exact
// string the decision model returns; anything unrecognized falls back to
// ActionExplain.
const (
	ActionAnswerFromState  = "answer_from_state"
	ActionShowHistory      = "show_history"
	ActionExtract          = "extract_information"
	ActionRescore          = "rescore"
	ActionValidateCriteria = "validate_criteria"
	ActionAskClarification = "ask_clarification"
	ActionCompare          = "compare_certificates"
	ActionPause            = "pause"
	ActionExplain          = "explain"
)

// HandlerFunc implements one user-facing action. Handlers never return
// errors: every failure degrades to a descriptive agent message. Each
// handler overwrites the last agent message and appends exactly one
// conversation history entry tagged with its action name.
type HandlerFunc func(ctx context.Context, st *state.Context)

// registry builds the action dispatch table. Adding an action is a
// registration here, not an edit to a conditional in the router.
func (r *Router) registry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		ActionAnswerFromState:  r.answerFromState,
		ActionShowHistory:      r.showHistory,
		ActionExtract:          r.extractInformation,
		ActionRescore:          r.rescoreCertificate,
		ActionValidateCriteria: r.validateCriteria,
		ActionAskClarification: r.askClarification,
		ActionCompare:          r.compareCertificates,
		ActionPause:            r.pauseExecution,
		ActionExplain:          r.explainDecision,
	}
}
