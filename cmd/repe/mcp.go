package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"repe/internal/server/mcp"

	"github.com/spf13/cobra"
)

func (a *app) newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve workout tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, _, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			// stdout carries the protocol
			log.SetOutput(os.Stderr)
			return mcp.NewServer(svc).Serve(ctx)
		},
	}
}
