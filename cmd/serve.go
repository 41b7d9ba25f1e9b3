package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskbridge/mcp-rest-bridge/internal/config"
	"github.com/taskbridge/mcp-rest-bridge/internal/gateway"
	"github.com/taskbridge/mcp-rest-bridge/internal/logging"
	"github.com/taskbridge/mcp-rest-bridge/internal/upstream"
)

// newServeCommand creates the serve subcommand
func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST gateway in front of an MCP tool server",
		Long: `Serve starts the HTTP gateway. Every non-/health route is translated into
a JSON-RPC call against the upstream MCP endpoint; the upstream session is
acquired lazily on the first call and re-acquired after any failure.

Example:
  MCP_SERVER_URL=http://localhost:3231/mcp PORT=8080 mcp-rest-bridge serve`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
	}
	sessions := upstream.NewSessionManager(cfg.UpstreamURL, httpClient, cfg.HandshakeTimeout, logger)
	bridge := upstream.NewBridge(cfg.UpstreamURL, httpClient, sessions, logger)

	server := gateway.NewServer(bridge, logger)
	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Routes(),
	}

	// Handle shutdown gracefully
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("gateway listening",
		"addr", cfg.Addr(),
		"upstream", cfg.UpstreamURL,
	)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway server failed: %w", err)
	}

	return nil
}
