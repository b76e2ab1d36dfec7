// Package mcp exposes the turn engine over the Model Context Protocol on
// stdio. Four tools: hoorii_chat runs a full conversational turn,
// hoorii_control issues a trust-gated device command with no model call,
// hoorii_check is an authorization dry-run, hoorii_devices lists device
// state and capabilities.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/device"
	"github.com/JianJiangKCL/HooRii/internal/turn"
)

// TrustSource resolves a user's current trust score.
type TrustSource interface {
	TrustScore(ctx context.Context, userID string) (int, error)
}

// Config holds the collaborators the MCP server fronts.
type Config struct {
	Registry *catalog.Registry
	Backend  device.Backend
	Trust    TrustSource

	// Orchestrator handles hoorii_chat. Nil when no model backend is
	// configured; the chat tool then reports that instead of failing at
	// startup, since the direct-control tools work without a model.
	Orchestrator *turn.Orchestrator

	// Sink, when set, receives control outputs from hoorii_control the same
	// way the orchestrator forwards its own.
	Sink turn.Sink
}

// Server wraps the MCP SDK server around the turn engine.
type Server struct {
	mcpServer *mcpsdk.Server
	registry  *catalog.Registry
	backend   device.Backend
	executor  *device.Executor
	trust     TrustSource
	orch      *turn.Orchestrator
	sink      turn.Sink
}

// New creates an MCP server with all tools registered.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("mcp: registry is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("mcp: device backend is required")
	}
	if cfg.Trust == nil {
		return nil, fmt.Errorf("mcp: trust source is required")
	}

	s := &Server{
		registry: cfg.Registry,
		backend:  cfg.Backend,
		executor: device.NewExecutor(cfg.Backend),
		trust:    cfg.Trust,
		orch:     cfg.Orchestrator,
		sink:     cfg.Sink,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "hoorii",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// resolveDevice maps a device reference (type id, alias, or instance id) to
// a registered spec and a concrete instance. Same resolution order as a
// conversational turn.
func (s *Server) resolveDevice(ctx context.Context, ref string) (*catalog.DeviceSpec, *device.Device) {
	if ref == "" {
		return nil, nil
	}
	if spec, ok := s.registry.Lookup(ref); ok {
		dev, err := s.backend.FirstOfType(ctx, spec.TypeID)
		if err != nil {
			return nil, nil
		}
		return spec, dev
	}
	if dev, err := s.backend.Get(ctx, ref); err == nil {
		if spec, ok := s.registry.Lookup(dev.Type); ok {
			return spec, dev
		}
	}
	return nil, nil
}

// registerTools adds all hoorii tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hoorii_chat",
		Description: "Send a natural-language message to the smart-home assistant. Runs a full turn: intent analysis, authorization, validation, execution, and a conversational reply.",
	}, s.handleChat)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hoorii_control",
		Description: "Issue a device command directly, bypassing the language model. The command is still trust-gated and schema-validated. Blocked commands return the reason.",
	}, s.handleControl)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hoorii_check",
		Description: "Check whether a user would be authorized to run a device command, without executing it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hoorii_devices",
		Description: "List registered devices with their current state and supported commands.",
	}, s.handleDevices)
}
