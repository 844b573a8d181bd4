package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voundbrand/vc83-com-sub014/internal/identity"
	"github.com/voundbrand/vc83-com-sub014/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio for one tenant",
		Long:  "Serve workflow.trigger, workflow.test, workflow.list and workflow.validate over stdio. The API key selects the tenant; it defaults to $WORKFLOWD_API_KEY.",
		RunE:  runMCP,
	}
	cmd.Flags().String("api-key", "", "Tenant API key")
	return cmd
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	key, _ := cmd.Flags().GetString("api-key")
	if key == "" {
		key = os.Getenv(envPrefix + "_API_KEY")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	tenant, err := identity.Resolve(ctx, a.store, key)
	if err != nil {
		return exitf(3, "%v", err)
	}

	srv := mcp.NewWorkflowServer(mcp.ServerDeps{
		Trigger: a.trigger,
		Engine:  a.engine,
		Store:   a.store,
		Logger:  a.logger,
		Tenant:  tenant,
	})
	a.logger.Info("mcp stdio server started", "tenant_id", tenant.ID)
	return srv.ServeStdio(ctx)
}
