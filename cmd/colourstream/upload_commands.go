package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"colourstream/internal/uploads"
)

func newUploadsCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Show tracked uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				fetch := client.ActiveUploads
				if all {
					fetch = client.AllUploads
				}
				records, err := fetch()
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No uploads")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						rec.ID,
						rec.Filename(),
						rec.Metadata[uploads.MetaClient],
						fmt.Sprintf("%.1f%%", rec.Percent()),
						uploadState(rec),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "File", "Client", "Progress", "State"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include completed uploads")
	return cmd
}

func uploadState(rec uploads.Record) string {
	if message := rec.Metadata[uploads.MetaError]; message != "" {
		return "failed: " + message
	}
	if rec.Complete {
		return "complete"
	}
	return "uploading"
}
