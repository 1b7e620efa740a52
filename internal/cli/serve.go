package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/channel-memory/internal/mcpserver"
	"github.com/rcliao/channel-memory/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long:  "Serve search_history, recent_history and list_periods over MCP. Uses stdio unless --http is set.",
		Run:   runServe,
	}

	cmd.Flags().String("http", "", "Listen address for the streamable HTTP transport, e.g. :8080")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("http")

	svc, cfg, logger := openService()
	srv, err := mcpserver.New(svc, search.OptionsFromConfig(cfg.Search), logger.With("component", "mcp"))
	if err != nil {
		exitErr("serve", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr != "" {
		err = srv.RunHTTP(ctx, addr)
	} else {
		err = srv.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		exitErr("serve", err)
	}
}
