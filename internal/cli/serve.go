package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	hooriimcp "github.com/JianJiangKCL/HooRii/internal/mcp"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs hoorii as an MCP (Model Context Protocol) server over stdio.\nExposes the tools: hoorii_chat, hoorii_control, hoorii_check, hoorii_devices.\nSupports hot-reload of the catalog file.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := hooriimcp.New(hooriimcp.Config{
		Registry:     a.registry,
		Backend:      a.store,
		Trust:        a.store,
		Orchestrator: a.orch,
		Sink:         a.sink,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Catalog hot-reload, only when a file-backed catalog is configured.
	if a.cfg.CatalogPath != "" {
		reloader, err := catalog.NewReloader(a.registry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: catalog hot-reload disabled: %v\n", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "hoorii MCP server running on stdio")
	if a.orch == nil {
		fmt.Fprintln(os.Stderr, "no model backend configured: hoorii_chat disabled, direct tools available")
	}
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
