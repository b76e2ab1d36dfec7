package turn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/command"
	"github.com/JianJiangKCL/HooRii/internal/device"
	"github.com/JianJiangKCL/HooRii/internal/llm"
	"github.com/JianJiangKCL/HooRii/internal/model"
	"github.com/JianJiangKCL/HooRii/internal/trust"
)

// Orchestrator sequences the turn state machine. It holds no cross-turn
// mutable state; concurrent turns share only the registry (lock-free reads)
// and the per-device execution locks inside the executor.
type Orchestrator struct {
	registry *catalog.Registry
	store    ContextStore
	backend  device.Backend
	executor *device.Executor
	infer    Inferencer
	opts     Options
}

func NewOrchestrator(registry *catalog.Registry, store ContextStore, backend device.Backend, infer Inferencer, opts Options) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		store:    store,
		backend:  backend,
		executor: device.NewExecutor(backend),
		infer:    infer,
		opts:     opts.withDefaults(),
	}
}

// Process runs one turn to completion. The returned error is non-nil only
// when the caller's ctx is cancelled before execution; every collaborator
// failure finalizes into a result with a failure annotation instead.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*model.TurnResult, error) {
	st := &turnState{
		turnID:    uuid.NewString(),
		req:       req,
		startedAt: time.Now().UTC(),
	}

	// LOAD_CONTEXT
	loaded, err := o.store.Load(ctx, req.SessionID, req.UserID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return o.abort(st, model.FailContextUnavailable, err), nil
	}
	st.loaded = loaded

	// OBTAIN_INTENT
	ictx, cancel := context.WithTimeout(ctx, o.opts.IntentTimeout)
	ir, err := o.infer.AnalyzeIntent(ictx, llm.IntentRequest{
		UserInput:      req.UserInput,
		Context:        loaded,
		CatalogSummary: CatalogSummary(o.registry),
	})
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// A slow model is an expected, recoverable condition. The turn
			// still finalizes and the user's input is still recorded.
			st.failure = model.FailCollaboratorTimeout
			st.failureDetail = err.Error()
			return o.finalize(ctx, st), nil
		}
		return o.abort(st, model.FailModelUnavailable, err), nil
	}
	st.intent = ir

	// CHECK_HARDWARE
	if !ir.Intent.InvolvesHardware {
		st.reply = ir.Reply
		return o.finalize(ctx, st), nil
	}

	spec, dev := o.resolveDevice(ctx, ir.Intent.DeviceRef)
	if spec == nil {
		// An unrecognized device reference is a normal outcome of free-form
		// input, not a system fault.
		st.failure = model.FailDeviceNotFound
		st.failureDetail = fmt.Sprintf("no device matches %q", ir.Intent.DeviceRef)
		return o.finalize(ctx, st), nil
	}

	// AUTHORIZE — before validation, so a denied user never pays the
	// validation cost and the denial leaks nothing about parameter validity.
	decision := trust.Decide(st.loaded.TrustScore, spec, ir.Intent.CommandName)
	st.decision = &decision
	if !decision.Allowed {
		st.failure = model.FailTrustDenied
		st.failureDetail = decision.Reason
		return o.finalize(ctx, st), nil
	}

	// VALIDATE
	res, err := command.Validate(spec, dev.ID, ir.Intent.CommandName, ir.Intent.RawParams)
	if err != nil {
		var unknownCmd *command.UnknownCommandError
		var invalidParam *command.InvalidParamError
		switch {
		case errors.As(err, &unknownCmd):
			st.failure = model.FailUnknownCommand
		case errors.As(err, &invalidParam):
			st.failure = model.FailInvalidParamType
		default:
			st.failure = model.FailInvalidParamType
		}
		st.failureDetail = err.Error()
		return o.finalize(ctx, st), nil
	}
	st.command = &res.Command
	st.dropped = res.Dropped
	st.stateFields = spec.Command(ir.Intent.CommandName).StateFields

	if ctx.Err() != nil {
		// Last cancellation point with no side effects to undo.
		return nil, ctx.Err()
	}

	// EXECUTE
	ectx, cancel := context.WithTimeout(ctx, o.opts.ExecuteTimeout)
	out, err := o.executor.Execute(ectx, device.Request{
		Command:     *st.command,
		StateFields: st.stateFields,
		UserID:      req.UserID,
		TrustScore:  st.loaded.TrustScore,
	})
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			st.failure = model.FailExecutionTimeout
		} else {
			st.failure = model.FailDeviceUnavailable
		}
		st.failureDetail = err.Error()
		return o.finalize(ctx, st), nil
	}
	st.control = out

	if o.opts.Sink != nil {
		if err := o.opts.Sink.Record(context.WithoutCancel(ctx), out); err != nil {
			fmt.Fprintf(os.Stderr, "turn %s: control output sink: %v\n", st.turnID, err)
		}
	}

	return o.finalize(ctx, st), nil
}

// resolveDevice maps an untrusted device reference to a registered spec and
// a concrete device instance. The reference may be a type id, a declared
// alias, or a device instance id.
func (o *Orchestrator) resolveDevice(ctx context.Context, ref string) (*catalog.DeviceSpec, *device.Device) {
	if ref == "" {
		return nil, nil
	}
	if spec, ok := o.registry.Lookup(ref); ok {
		dev, err := o.backend.FirstOfType(ctx, spec.TypeID)
		if err != nil {
			return nil, nil
		}
		return spec, dev
	}
	if dev, err := o.backend.Get(ctx, ref); err == nil {
		if spec, ok := o.registry.Lookup(dev.Type); ok {
			return spec, dev
		}
	}
	return nil, nil
}

// finalize composes the reply, projects the turn state into a TurnResult,
// and persists the context delta. Persistence survives caller cancellation:
// once a device acted, losing the record would be worse than the delay.
func (o *Orchestrator) finalize(ctx context.Context, st *turnState) *model.TurnResult {
	if st.reply == "" {
		st.reply = o.composeReply(ctx, st)
	}

	result := model.TurnResult{
		TurnID:        st.turnID,
		SessionID:     st.req.SessionID,
		UserID:        st.req.UserID,
		Reply:         st.reply,
		Error:         st.failure,
		ErrorDetail:   st.failureDetail,
		TrustDecision: st.decision,
		Control:       st.control,
		DroppedParams: st.dropped,
		StartedAt:     st.startedAt,
		CompletedAt:   time.Now().UTC(),
	}
	if st.intent != nil {
		result.Confidence = st.intent.Intent.Confidence
	}

	err := o.store.Save(context.WithoutCancel(ctx), result, model.ContextDelta{
		UserInput: st.req.UserInput,
		Reply:     st.reply,
		Control:   st.control,
		Failure:   st.failure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "turn %s: save context: %v\n", st.turnID, err)
		if result.Error == "" {
			result.Error = model.FailContextUnavailable
			result.ErrorDetail = err.Error()
		}
	}
	return &result
}

// composeReply asks the model for the character's reply. Falls back to the
// intent call's bundled reply, then to a canned line, so the turn always
// finalizes with something to say.
func (o *Orchestrator) composeReply(ctx context.Context, st *turnState) string {
	if st.failure == model.FailCollaboratorTimeout {
		// The model already blew its deadline this turn; don't ask it again.
		return fallbackReply
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.ReplyTimeout)
	defer cancel()

	reply, err := o.infer.GenerateReply(rctx, llm.ReplyRequest{
		UserInput: st.req.UserInput,
		Context:   st.loaded,
		Control:   st.control,
		Failure:   st.failure,
	})
	if err == nil && reply != "" {
		return reply
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "turn %s: generate reply: %v\n", st.turnID, err)
	}
	if st.intent != nil && st.intent.Reply != "" {
		return st.intent.Reply
	}
	return fallbackReply
}

// abort handles the ERROR state: a safe fallback result with no context
// save and no partial side effects.
func (o *Orchestrator) abort(st *turnState, failure string, err error) *model.TurnResult {
	fmt.Fprintf(os.Stderr, "turn %s: %s: %v\n", st.turnID, failure, err)
	return &model.TurnResult{
		TurnID:      st.turnID,
		SessionID:   st.req.SessionID,
		UserID:      st.req.UserID,
		Reply:       fallbackReply,
		Error:       failure,
		ErrorDetail: err.Error(),
		StartedAt:   st.startedAt,
		CompletedAt: time.Now().UTC(),
	}
}
