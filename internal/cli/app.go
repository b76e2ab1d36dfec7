package cli

import (
	"context"
	"fmt"

	"github.com/JianJiangKCL/HooRii/internal/audit"
	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/config"
	"github.com/JianJiangKCL/HooRii/internal/llm"
	"github.com/JianJiangKCL/HooRii/internal/store"
	"github.com/JianJiangKCL/HooRii/internal/turn"
)

// app bundles the wired collaborators behind every command: config, the
// sqlite store, the device catalog, the audit sink, and the orchestrator.
type app struct {
	cfg      *config.Config
	store    *store.Store
	registry *catalog.Registry
	auditLog *audit.Log
	sink     turn.Sink
	infer    llm.Client

	// orch is nil when no model backend is configured; commands that need
	// it report that instead of failing at open.
	orch *turn.Orchestrator
}

// openApp builds the application from configuration. Callers own Close.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st, registry: registry}

	if cfg.AuditLogPath != "" {
		a.auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.sink = audit.NewSink(a.auditLog, registry.Hash())
	}

	a.infer, err = newInferencer(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.infer != nil {
		a.orch = turn.NewOrchestrator(registry, st, st, a.infer, turn.Options{
			IntentTimeout:  cfg.Timeouts.Intent(),
			ReplyTimeout:   cfg.Timeouts.Reply(),
			ExecuteTimeout: cfg.Timeouts.Execute(),
			Sink:           a.sink,
		})
	}

	return a, nil
}

func (a *app) Close() {
	if a.auditLog != nil {
		a.auditLog.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func loadRegistry(cfg *config.Config) (*catalog.Registry, error) {
	if cfg.CatalogPath == "" {
		return catalog.LoadDefault(), nil
	}
	registry, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogPath, err)
	}
	return registry, nil
}

// newInferencer builds the configured model client. Returns nil without
// error when no backend is usable, so model-free commands still work.
func newInferencer(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Backend {
	case "gemini":
		if cfg.LLM.APIKey == "" {
			return nil, nil
		}
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
	case "openai":
		// Local OpenAI-compatible endpoints run without a key, but the
		// hosted default is useless unkeyed; treat that as unconfigured.
		if cfg.LLM.APIKey == "" && cfg.LLM.APIURL == config.DefaultConfig().LLM.APIURL {
			return nil, nil
		}
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIURL:    cfg.LLM.APIURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q (want openai or gemini)", cfg.LLM.Backend)
	}
}
