package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}
			health, err := newAPIClient(base).Health()
			if err != nil {
				return fmt.Errorf("daemon at %s is not reachable: %w", base, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:         %s (%s)\n", health.Status, base)
			fmt.Fprintf(out, "Rooms:          %d\n", health.Rooms)
			fmt.Fprintf(out, "Upload links:   %d\n", health.UploadLinks)
			fmt.Fprintf(out, "Active uploads: %d\n", health.ActiveUploads)
			return nil
		},
	}
}
