package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JianJiangKCL/HooRii/internal/command"
	"github.com/JianJiangKCL/HooRii/internal/device"
	"github.com/JianJiangKCL/HooRii/internal/model"
	"github.com/JianJiangKCL/HooRii/internal/trust"
	"github.com/JianJiangKCL/HooRii/internal/turn"
)

// --- Input/Output types ---

// ChatInput defines parameters for the hoorii_chat tool.
type ChatInput struct {
	SessionID string `json:"session_id" jsonschema:"conversation session id"`
	UserID    string `json:"user_id" jsonschema:"id of the user speaking"`
	Message   string `json:"message" jsonschema:"natural-language message to the assistant"`
}

// ChatOutput contains the finalized turn result.
type ChatOutput struct {
	TurnID        string               `json:"turn_id"`
	Reply         string               `json:"reply"`
	Failure       string               `json:"failure,omitempty"`
	FailureDetail string               `json:"failure_detail,omitempty"`
	Confidence    float64              `json:"confidence,omitempty"`
	Control       *model.ControlOutput `json:"control,omitempty"`
	DroppedParams []string             `json:"dropped_params,omitempty"`
}

// ControlInput defines parameters for the hoorii_control tool.
type ControlInput struct {
	UserID  string         `json:"user_id" jsonschema:"id of the requesting user"`
	Device  string         `json:"device" jsonschema:"device type id, alias, or instance id"`
	Command string         `json:"command" jsonschema:"command name, e.g. set_brightness"`
	Params  map[string]any `json:"params,omitempty" jsonschema:"command parameters"`
}

// ControlOutput contains the execution record or block details.
type ControlOutput struct {
	Executed bool                 `json:"executed"`
	Blocked  bool                 `json:"blocked,omitempty"`
	Failure  string               `json:"failure,omitempty"`
	Reason   string               `json:"reason,omitempty"`
	Control  *model.ControlOutput `json:"control,omitempty"`
	Dropped  []string             `json:"dropped_params,omitempty"`
}

// CheckInput defines parameters for the hoorii_check tool.
type CheckInput struct {
	UserID  string         `json:"user_id" jsonschema:"id of the requesting user"`
	Device  string         `json:"device" jsonschema:"device type id, alias, or instance id"`
	Command string         `json:"command" jsonschema:"command name to check"`
	Params  map[string]any `json:"params,omitempty" jsonschema:"parameters to validate, optional"`
}

// CheckOutput contains the authorization decision.
type CheckOutput struct {
	Allowed         bool   `json:"allowed"`
	RequiredTrust   int    `json:"required_trust"`
	ActualTrust     int    `json:"actual_trust"`
	Reason          string `json:"reason"`
	DeviceID        string `json:"device_id,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	ParamsValid     bool   `json:"params_valid,omitempty"`
	ValidationError string `json:"validation_error,omitempty"`
}

// DevicesInput defines parameters for the hoorii_devices tool.
type DevicesInput struct {
	Type string `json:"type,omitempty" jsonschema:"filter to one device type id"`
}

// DevicesOutput lists registered devices.
type DevicesOutput struct {
	Devices []DeviceItem `json:"devices"`
}

// DeviceItem describes one registered device instance.
type DeviceItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Room     string      `json:"room,omitempty"`
	State    model.State `json:"state"`
	Commands []string    `json:"commands,omitempty"`
}

// --- Handlers ---

func (s *Server) handleChat(ctx context.Context, req *mcpsdk.CallToolRequest, input ChatInput) (*mcpsdk.CallToolResult, ChatOutput, error) {
	if s.orch == nil {
		return nil, ChatOutput{}, fmt.Errorf("no model backend configured; set an API key and restart, or use hoorii_control")
	}
	if input.Message == "" {
		return nil, ChatOutput{}, fmt.Errorf("message is required")
	}

	result, err := s.orch.Process(ctx, turn.Request{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		UserInput: input.Message,
	})
	if err != nil {
		return nil, ChatOutput{}, err
	}

	return nil, ChatOutput{
		TurnID:        result.TurnID,
		Reply:         result.Reply,
		Failure:       result.Error,
		FailureDetail: result.ErrorDetail,
		Confidence:    result.Confidence,
		Control:       result.Control,
		DroppedParams: result.DroppedParams,
	}, nil
}

func (s *Server) handleControl(ctx context.Context, req *mcpsdk.CallToolRequest, input ControlInput) (*mcpsdk.CallToolResult, ControlOutput, error) {
	score, err := s.trust.TrustScore(ctx, input.UserID)
	if err != nil {
		return nil, ControlOutput{}, fmt.Errorf("resolve user %q: %w", input.UserID, err)
	}

	spec, dev := s.resolveDevice(ctx, input.Device)
	if spec == nil {
		out := ControlOutput{
			Blocked: true,
			Failure: model.FailDeviceNotFound,
			Reason:  fmt.Sprintf("no device matches %q", input.Device),
		}
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}

	decision := trust.Decide(score, spec, input.Command)
	if !decision.Allowed {
		out := ControlOutput{
			Blocked: true,
			Failure: model.FailTrustDenied,
			Reason:  decision.Reason,
		}
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}

	res, err := command.Validate(spec, dev.ID, input.Command, input.Params)
	if err != nil {
		failure := model.FailInvalidParamType
		var unknownCmd *command.UnknownCommandError
		if errors.As(err, &unknownCmd) {
			failure = model.FailUnknownCommand
		}
		out := ControlOutput{
			Blocked: true,
			Failure: failure,
			Reason:  err.Error(),
		}
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}

	control, err := s.executor.Execute(ctx, device.Request{
		Command:     res.Command,
		StateFields: spec.Command(input.Command).StateFields,
		UserID:      input.UserID,
		TrustScore:  score,
	})
	if err != nil {
		out := ControlOutput{
			Blocked: true,
			Failure: model.FailDeviceUnavailable,
			Reason:  err.Error(),
		}
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}

	if s.sink != nil {
		if err := s.sink.Record(context.WithoutCancel(ctx), control); err != nil {
			return nil, ControlOutput{}, fmt.Errorf("record control output: %w", err)
		}
	}

	return nil, ControlOutput{
		Executed: true,
		Control:  control,
		Dropped:  res.Dropped,
	}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	score, err := s.trust.TrustScore(ctx, input.UserID)
	if err != nil {
		return nil, CheckOutput{}, fmt.Errorf("resolve user %q: %w", input.UserID, err)
	}

	spec, dev := s.resolveDevice(ctx, input.Device)
	if spec == nil {
		return nil, CheckOutput{
			Allowed:     false,
			ActualTrust: score,
			Reason:      fmt.Sprintf("no device matches %q", input.Device),
		}, nil
	}

	decision := trust.Decide(score, spec, input.Command)
	out := CheckOutput{
		Allowed:       decision.Allowed,
		RequiredTrust: decision.RequiredTrust,
		ActualTrust:   decision.ActualTrust,
		Reason:        decision.Reason,
		DeviceID:      dev.ID,
		DeviceType:    spec.TypeID,
	}

	// Parameter validation is reported only for an authorized command, the
	// same information-hiding order a conversational turn follows.
	if decision.Allowed && input.Params != nil {
		if _, err := command.Validate(spec, dev.ID, input.Command, input.Params); err != nil {
			out.ValidationError = err.Error()
		} else {
			out.ParamsValid = true
		}
	}

	return nil, out, nil
}

func (s *Server) handleDevices(ctx context.Context, req *mcpsdk.CallToolRequest, input DevicesInput) (*mcpsdk.CallToolResult, DevicesOutput, error) {
	devices, err := s.backend.List(ctx)
	if err != nil {
		return nil, DevicesOutput{}, fmt.Errorf("list devices: %w", err)
	}

	items := make([]DeviceItem, 0, len(devices))
	for _, d := range devices {
		if input.Type != "" && d.Type != input.Type {
			continue
		}
		item := DeviceItem{
			ID:    d.ID,
			Name:  d.Name,
			Type:  d.Type,
			Room:  d.Room,
			State: d.State,
		}
		for _, c := range s.registry.CommandsFor(d.Type) {
			item.Commands = append(item.Commands, c.Name)
		}
		items = append(items, item)
	}

	return nil, DevicesOutput{Devices: items}, nil
}
