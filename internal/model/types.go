// Package model defines the shared domain types of the turn-processing
// engine: the untrusted intent guess produced by the model-call collaborator,
// the trust decision, the validated command, and the immutable control
// output record.
package model

import "time"

// Trust score bounds. A trust score is a 0–100 integer owned by the user
// record; the engine reads it, external reputation logic adjusts it.
const (
	TrustMin = 0
	TrustMax = 100
)

// ClampTrust forces a trust score into [TrustMin, TrustMax].
func ClampTrust(score int) int {
	if score < TrustMin {
		return TrustMin
	}
	if score > TrustMax {
		return TrustMax
	}
	return score
}

// TrustDecision is the outcome of authorizing one device action.
// Produced fresh per command attempt; never cached across turns.
type TrustDecision struct {
	Allowed       bool   `json:"allowed"`
	RequiredTrust int    `json:"required_trust"`
	ActualTrust   int    `json:"actual_trust"`
	Reason        string `json:"reason"`
}

// ValidatedCommand is a device command whose parameters have all passed
// validation against the device's CommandSpec. Created only by the command
// validator; treated as immutable once produced.
type ValidatedCommand struct {
	DeviceID    string         `json:"device_id"`
	CommandName string         `json:"command_name"`
	Params      map[string]any `json:"params"`
}

// ControlOutput is the standardized record of one executed command, returned
// to callers and forwarded to the audit sink. Created exactly once per
// successful execution and never mutated afterwards.
type ControlOutput struct {
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name"`
	DeviceType string         `json:"device_type"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  time.Time      `json:"timestamp"`
	UserID     string         `json:"user_id"`
	TrustScore int            `json:"trust_score"`
}

// Failure annotation kinds surfaced on TurnResult.Error. These are
// first-class outcomes, not propagated errors: every one of them still
// produces a graceful reply.
const (
	FailDeviceNotFound      = "DeviceNotFound"
	FailUnknownCommand      = "UnknownCommand"
	FailInvalidParamType    = "InvalidParamType"
	FailTrustDenied         = "TrustDenied"
	FailCollaboratorTimeout = "CollaboratorTimeout"
	FailDeviceUnavailable   = "DeviceUnavailable"
	FailExecutionTimeout    = "ExecutionTimeout"
	FailContextUnavailable  = "ContextUnavailable"
	FailModelUnavailable    = "ModelUnavailable"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Context is the conversation context loaded at turn start. The engine
// treats it as opaque load/store; the context store owns its lifecycle.
type Context struct {
	SessionID        string           `json:"session_id"`
	UserID           string           `json:"user_id"`
	TrustScore       int              `json:"trust_score"`
	History          []Message        `json:"history,omitempty"`
	LastDeviceAction *ControlOutput   `json:"last_device_action,omitempty"`
	DeviceStates     map[string]State `json:"device_states,omitempty"`
}

// State is a device's current-state field map.
type State map[string]any

// ContextDelta is what the orchestrator hands to the context store at
// FINALIZE: the user's input, the reply, and the executed command, if any.
type ContextDelta struct {
	UserInput string         `json:"user_input"`
	Reply     string         `json:"reply"`
	Control   *ControlOutput `json:"control,omitempty"`
	Failure   string         `json:"failure,omitempty"`
}

// TurnResult is the finalized outcome of one conversational turn.
type TurnResult struct {
	TurnID        string         `json:"turn_id"`
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id"`
	Reply         string         `json:"reply"`
	Error         string         `json:"error,omitempty"`
	ErrorDetail   string         `json:"error_detail,omitempty"`
	TrustDecision *TrustDecision `json:"trust_decision,omitempty"`
	Control       *ControlOutput `json:"control,omitempty"`
	Confidence    float64        `json:"confidence"`
	DroppedParams []string       `json:"dropped_params,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
}
