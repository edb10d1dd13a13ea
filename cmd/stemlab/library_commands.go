package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stemlab/internal/api"
	"stemlab/internal/media/dataurl"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect saved stem sessions",
	}
	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryShowCommand(ctx))
	libraryCmd.AddCommand(newLibraryBundleCommand(ctx))
	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *api.Client) error {
				items, err := client.ListSessions(reqCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Library is empty.")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Title,
						strings.Join(item.Stems, ", "),
						item.CreatedAt,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Stems", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session with stem sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(reqCtx context.Context, client *api.Client) error {
				session, err := client.GetSession(reqCtx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session %s\n", session.ID)
				fmt.Fprintf(out, "Title:   %s\n", session.Title)
				fmt.Fprintf(out, "Created: %s\n", session.CreatedAt)
				fmt.Fprintf(out, "Bundle:  %s\n", session.Bundle)

				names := make([]string, 0, len(session.Stems))
				for name := range session.Stems {
					names = append(names, name)
				}
				sort.Strings(names)

				rows := make([][]string, 0, len(names))
				for _, name := range names {
					size := "?"
					if data, err := dataurl.Decode(session.Stems[name]); err == nil {
						size = strconv.Itoa(len(data))
					}
					rows = append(rows, []string{name, size})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Stem", "Bytes"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newLibraryBundleCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "bundle <session-id>",
		Short: "Download a session's zip bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = id + ".zip"
			}
			return ctx.withClient(func(reqCtx context.Context, client *api.Client) error {
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create %s: %w", target, err)
				}
				n, err := client.DownloadBundle(reqCtx, id, file)
				closeErr := file.Close()
				if err != nil {
					_ = os.Remove(target)
					return err
				}
				if closeErr != nil {
					return fmt.Errorf("write %s: %w", target, closeErr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", n, filepath.Clean(target))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path for the bundle")
	return cmd
}
