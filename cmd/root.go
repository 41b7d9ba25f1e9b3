package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mcp-rest-bridge",
		Short: "REST-to-MCP protocol bridge",
		Long: `mcp-rest-bridge exposes a flat REST/HTTP surface and translates each call
into a JSON-RPC request against a remote MCP tool server, handling the
session handshake the upstream requires.

It lets HTTP-only clients (workflow automation tools such as n8n or plain
curl) drive a tool backend that otherwise needs a stateful RPC handshake.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Add subcommands
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
