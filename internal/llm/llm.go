// Package llm talks to the language-model collaborator: one call extracts a
// structured intent guess from free-form input, another drafts the
// character's reply after the turn's device work is done. Everything the
// model returns is untrusted until it passes the command validator.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/JianJiangKCL/HooRii/internal/model"
)

// Client is a model-call collaborator. Implementations must honor ctx
// cancellation; the orchestrator enforces per-call deadlines.
type Client interface {
	AnalyzeIntent(ctx context.Context, req IntentRequest) (*model.IntentReply, error)
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// IntentRequest carries one user utterance plus the context the model needs
// to ground its guess.
type IntentRequest struct {
	UserInput string
	Context   *model.Context
	// CatalogSummary is a rendered listing of device types and commands,
	// built by the caller from the active device catalog.
	CatalogSummary string
}

// ReplyRequest asks for the character's reply once the turn's device work
// has settled, successfully or not.
type ReplyRequest struct {
	UserInput string
	Context   *model.Context
	Control   *model.ControlOutput
	// Failure is a failure annotation kind, empty on success. The model is
	// told what went wrong so the reply can acknowledge it gracefully.
	Failure string
}

const intentSystemPrompt = `You are the intent analyzer for a smart-home assistant. You receive one user message plus conversation context and must decide whether it asks for a device action.

Return ONLY valid JSON, no markdown fences, no commentary:
{"involves_hardware":<bool>,"device_ref":"<device type, alias, or id, or null>","command_name":"<command or null>","raw_params":{...},"confidence":<0..1>,"reasoning":"<one line>","reply":"<short conversational reply>"}

Rules:
- involves_hardware is true only when the user asks to act on or query a device.
- Pick device_ref and command_name from the available devices listed below when possible; otherwise repeat the user's wording.
- raw_params holds only parameters the user actually stated. Never invent values.
- reply is what the assistant would say if no device action were needed.`

const replySystemPrompt = `You are the voice of a smart-home assistant character: warm, brief, never technical. You receive what the user asked, what the home actually did, and whether anything went wrong. Answer with the reply text only - no JSON, no quotes, one or two sentences.

If a device action failed, acknowledge it gently and say what you could not do. Never mention internal error names, trust scores, or validation.`

// IntentUserMessage renders the user-side prompt for intent analysis.
func IntentUserMessage(req IntentRequest) string {
	var b strings.Builder
	if req.CatalogSummary != "" {
		b.WriteString("Available devices:\n")
		b.WriteString(req.CatalogSummary)
		b.WriteString("\n\n")
	}
	if req.Context != nil {
		if len(req.Context.History) > 0 {
			b.WriteString("Recent conversation:\n")
			for _, m := range req.Context.History {
				fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
			}
			b.WriteString("\n")
		}
		if req.Context.LastDeviceAction != nil {
			fmt.Fprintf(&b, "Last device action: %s on %s\n\n",
				req.Context.LastDeviceAction.Command, req.Context.LastDeviceAction.DeviceName)
		}
	}
	fmt.Fprintf(&b, "User: %s", req.UserInput)
	return b.String()
}

// ReplyUserMessage renders the user-side prompt for reply generation.
func ReplyUserMessage(req ReplyRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User asked: %s\n", req.UserInput)
	switch {
	case req.Control != nil:
		fmt.Fprintf(&b, "The home executed: %s on %s (%s)\n",
			req.Control.Command, req.Control.DeviceName, req.Control.DeviceType)
		if len(req.Control.Parameters) > 0 {
			fmt.Fprintf(&b, "Resulting state: %v\n", req.Control.Parameters)
		}
	case req.Failure != "":
		fmt.Fprintf(&b, "The device action did not happen: %s\n", describeFailure(req.Failure))
	default:
		b.WriteString("No device action was needed.\n")
	}
	b.WriteString("Reply to the user.")
	return b.String()
}

// describeFailure turns a failure annotation into plain words for the model.
// The annotation itself never reaches the user.
func describeFailure(kind string) string {
	switch kind {
	case model.FailDeviceNotFound:
		return "the device they mentioned is not set up in this home"
	case model.FailUnknownCommand:
		return "that device cannot do what they asked"
	case model.FailInvalidParamType:
		return "the request had a value the device cannot accept"
	case model.FailTrustDenied:
		return "they are not currently allowed to control that device"
	case model.FailDeviceUnavailable:
		return "the device did not respond"
	case model.FailExecutionTimeout:
		return "the device took too long to respond"
	default:
		return "something went wrong while controlling the device"
	}
}
