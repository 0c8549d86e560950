package cmd

import (
	"context"
	"log"
	"time"

	"github.com/jcdickinson/ferrisnav/internal/config"
	"github.com/jcdickinson/ferrisnav/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server on stdio (get_sidebar tool, sidebar:// resources)",
	Run:   runMCP,
}

func runMCP(cmd *cobra.Command, args []string) {
	server, err := mcp.NewServer(config.SocketPath())
	if err != nil {
		log.Fatalf("failed to create MCP server: %v", err)
	}

	errCh := make(chan error)
	go func() { errCh <- server.Run() }()

	if err := waitForSignal(errCh); err != nil {
		log.Fatalf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
