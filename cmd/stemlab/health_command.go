package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stemlab/internal/api"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the daemon is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *api.Client) error {
				health, err := client.Health(reqCtx)
				if err != nil {
					return fmt.Errorf("daemon health check failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon at %s reports %q\n", ctx.serverURL(), health.Status)
				return nil
			})
		},
	}
}
