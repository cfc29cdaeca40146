package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/catalogbulk/internal/app"
	"github.com/rpggio/catalogbulk/internal/config"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(flags *globalFlags) *cobra.Command {
	var transportMode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON-RPC and MCP surfaces over HTTP, or MCP over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := openApp(flags, func(cfg *config.Config) {
				if transportMode != "" {
					cfg.Transport.Mode = transportMode
				}
			})
			if err != nil {
				return err
			}
			defer closeApp()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.Config.Transport.Mode == "stdio" {
				return runStdio(ctx, a)
			}
			return runHTTP(ctx, a)
		},
	}
	cmd.Flags().StringVar(&transportMode, "transport", "", "http or stdio (overrides CATALOGBULK_TRANSPORT)")
	return cmd
}

func runStdio(ctx context.Context, a *app.App) error {
	a.Logger.Info("starting stdio transport", "auth", "disabled")
	// Run blocks until stdin closes or ctx is cancelled.
	if err := a.MCPServer(version).Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.Logger.Info("shutting down")
	return nil
}

func runHTTP(ctx context.Context, a *app.App) error {
	addr := a.Config.Addr()
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", addr, "auth", a.Config.Server.Token != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
