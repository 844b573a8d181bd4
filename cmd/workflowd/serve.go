package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voundbrand/vc83-com-sub014/internal/api"
	"github.com/voundbrand/vc83-com-sub014/internal/scheduler"
	"github.com/voundbrand/vc83-com-sub014/pkg/mcp"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the MCP SSE transport",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "Listen address (overrides server.listen_addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		cfg.Server.ListenAddr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Error("shutdown", "error", err)
		}
	}()

	if cfg.Runs.Retention > 0 {
		retention, err := scheduler.NewScheduler(a.store, scheduler.Config{
			Schedule:  cfg.Runs.PruneSchedule,
			Retention: cfg.Runs.Retention,
			Logger:    a.logger,
		})
		if err != nil {
			return exitf(2, "runs.prune_schedule: %v", err)
		}
		if err := retention.Start(ctx); err != nil {
			return err
		}
		defer retention.Stop()
	}

	mcpServer := mcp.NewWorkflowServer(mcp.ServerDeps{
		Trigger: a.trigger,
		Engine:  a.engine,
		Store:   a.store,
		Logger:  a.logger,
	})
	srv := api.NewServer(api.Deps{
		Store:       a.store,
		Engine:      a.engine,
		Trigger:     a.trigger,
		Logger:      a.logger,
		MCP:         mcpServer.SSEHandler("/mcp"),
		ServiceName: cfg.Telemetry.ServiceName,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.ListenAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
