// Package turn drives one conversational turn from raw user input to a
// finalized result: load context, obtain an intent guess from the model,
// authorize against the user's trust score, validate parameters against the
// device schema, execute, and persist the exchange.
//
// Collaborator failures never escape as errors. Input problems, denials,
// and timeouts all finalize into a graceful reply with a failure annotation
// in the turn metadata; only caller cancellation aborts a turn.
package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/llm"
	"github.com/JianJiangKCL/HooRii/internal/model"
)

// Request is one user turn.
type Request struct {
	SessionID string
	UserID    string
	UserInput string
}

// ContextStore loads conversation context at turn start and persists the
// exchange at finalize. Must be safe for concurrent calls on distinct
// session ids; same-session ordering is the store's concern.
type ContextStore interface {
	Load(ctx context.Context, sessionID, userID string) (*model.Context, error)
	Save(ctx context.Context, result model.TurnResult, delta model.ContextDelta) error
}

// Inferencer is the model-call collaborator.
type Inferencer interface {
	AnalyzeIntent(ctx context.Context, req llm.IntentRequest) (*model.IntentReply, error)
	GenerateReply(ctx context.Context, req llm.ReplyRequest) (string, error)
}

// Sink receives every finalized ControlOutput record. Implementations must
// treat the record as opaque and never mutate it.
type Sink interface {
	Record(ctx context.Context, out *model.ControlOutput) error
}

// Options tune per-collaborator deadlines. Zero values take defaults.
type Options struct {
	// IntentTimeout bounds the intent-analysis model call.
	IntentTimeout time.Duration
	// ReplyTimeout bounds the reply-generation model call at finalize.
	ReplyTimeout time.Duration
	// ExecuteTimeout bounds one device execution.
	ExecuteTimeout time.Duration
	// Sink, when set, receives control outputs after execution. Sink errors
	// are logged, never fatal to the turn.
	Sink Sink
}

const (
	defaultIntentTimeout  = 30 * time.Second
	defaultReplyTimeout   = 15 * time.Second
	defaultExecuteTimeout = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.IntentTimeout <= 0 {
		o.IntentTimeout = defaultIntentTimeout
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = defaultReplyTimeout
	}
	if o.ExecuteTimeout <= 0 {
		o.ExecuteTimeout = defaultExecuteTimeout
	}
	return o
}

// turnState is the scratch structure threaded through exactly one turn,
// populated stage by stage and fully consumed at finalize.
type turnState struct {
	turnID    string
	req       Request
	startedAt time.Time

	loaded   *model.Context
	intent   *model.IntentReply
	decision *model.TrustDecision

	command     *model.ValidatedCommand
	stateFields []string
	dropped     []string
	control     *model.ControlOutput

	reply         string
	failure       string
	failureDetail string
}

// fallbackReply is used when the reply-generation collaborator itself fails.
const fallbackReply = "Sorry, I ran into a problem with that. Could you try again?"

// CatalogSummary renders the installed catalog as a short listing for model
// prompts: one line per device type with its command names.
func CatalogSummary(r *catalog.Registry) string {
	var b strings.Builder
	for _, typeID := range r.Types() {
		spec, ok := r.Lookup(typeID)
		if !ok {
			continue
		}
		names := make([]string, 0, len(spec.Commands))
		for _, c := range spec.Commands {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", typeID, spec.DisplayName, strings.Join(names, ", "))
	}
	return b.String()
}
