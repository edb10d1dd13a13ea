package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stemlab/internal/api"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Account verification flows",
	}
	authCmd.AddCommand(newRequestCodeCommand(ctx))
	authCmd.AddCommand(newVerifyCommand(ctx))
	return authCmd
}

func newRequestCodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "request-code <email>",
		Short: "Request a verification code by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *api.Client) error {
				if err := client.RequestCode(reqCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Verification code sent to %s\n", args[0])
				return nil
			})
		},
	}
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var password string
	var name string

	cmd := &cobra.Command{
		Use:   "verify <email> <code>",
		Short: "Redeem a verification code and register the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			return ctx.withClient(func(reqCtx context.Context, client *api.Client) error {
				summary, err := client.Verify(reqCtx, api.VerifyRequest{
					Email:    args[0],
					Code:     args[1],
					Password: password,
					Name:     name,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Account verified for %s\n", summary.Email)
				if summary.Name != "" {
					fmt.Fprintf(out, "Name:    %s\n", summary.Name)
				}
				fmt.Fprintf(out, "Created: %s\n", summary.CreatedAt)
				fmt.Fprintf(out, "Updated: %s\n", summary.UpdatedAt)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password to store for the account")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name for the account")
	return cmd
}
