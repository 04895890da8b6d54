// Package state defines the mutable per-session context shared by every
// action handler: the certificate under evaluation, the evaluation criteria
// and scores, and the running conversation record.
//
// The context is always passed explicitly. Handlers receive a *Context,
// mutate it, and the caller decides when to persist it. Nothing in this
// package touches disk or the network.
package state

import "fmt"

// Certificate holds the source document and whatever has been extracted
// from it so far.
type Certificate struct {
	// RawText is the certificate source text, set once at session start.
	RawText string `json:"raw_text"`

	// ExtractedFields maps field name to extracted string value.
	ExtractedFields map[string]string `json:"extracted_fields"`

	// Confidence maps field name to an extraction confidence in [0,1].
	// Keys should be a subset of ExtractedFields, though nothing breaks
	// when the model returns a mismatched set.
	Confidence map[string]float64 `json:"confidence"`
}

// Evaluation holds the user-supplied criteria and the scores derived from
// them. Scores are recomputed wholesale on every scoring action, never
// incrementally.
type Evaluation struct {
	Criteria   map[string]float64 `json:"criteria"`
	Scores     map[string]float64 `json:"scores"`
	FinalScore float64            `json:"final_score"`
}

// Turn is one user/agent exchange, tagged with the action that produced
// the agent reply.
type Turn struct {
	User   string `json:"user"`
	Agent  string `json:"agent"`
	Action string `json:"action"`
}

// Reasoning records one routing decision for explainability.
type Reasoning struct {
	Decision    string `json:"decision"`
	Reason      string `json:"reason"`
	Uncertainty string `json:"uncertainty"`
	Context     string `json:"context"`
}

// Conversation tracks the most recent exchange plus the append-only
// history sequences. History only grows; entries are never trimmed.
type Conversation struct {
	LastUserMessage  string `json:"last_user_message"`
	LastAgentMessage string `json:"last_agent_message"`

	LastReason  string `json:"last_reason"`
	Uncertainty string `json:"uncertainty"`

	LastUserIntent      string `json:"last_user_intent"`
	PendingConfirmation bool   `json:"pending_confirmation"`

	History   []Turn      `json:"conversation_history"`
	Reasoning []Reasoning `json:"reasoning_history"`
}

// Context is the full per-session state bag.
type Context struct {
	Certificate  Certificate
	Evaluation   Evaluation
	Conversation Conversation
}

// New returns an empty context with all maps initialized.
func New() *Context {
	return &Context{
		Certificate: Certificate{
			ExtractedFields: map[string]string{},
			Confidence:      map[string]float64{},
		},
		Evaluation: Evaluation{
			Criteria: map[string]float64{},
			Scores:   map[string]float64{},
		},
	}
}

// AppendTurn records the current exchange in the conversation history,
// tagged with the handler action that produced it. Every handler calls
// this exactly once per turn.
func (c *Context) AppendTurn(action string) {
	c.Conversation.History = append(c.Conversation.History, Turn{
		User:   c.Conversation.LastUserMessage,
		Agent:  c.Conversation.LastAgentMessage,
		Action: action,
	})
}

// AppendReasoning records a routing decision. Called unconditionally by
// the router, including on parse-fallback decisions.
func (c *Context) AppendReasoning(decision, reason, uncertainty string) {
	c.Conversation.Reasoning = append(c.Conversation.Reasoning, Reasoning{
		Decision:    decision,
		Reason:      reason,
		Uncertainty: uncertainty,
		Context:     fmt.Sprintf("User said: %s", c.Conversation.LastUserMessage),
	})
}
