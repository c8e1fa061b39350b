package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newUploadLinksCommand(ctx *commandContext) *cobra.Command {
	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "Manage client upload links",
	}
	linksCmd.AddCommand(newLinksListCommand(ctx))
	linksCmd.AddCommand(newLinksCreateCommand(ctx))
	linksCmd.AddCommand(newLinksDeleteCommand(ctx))
	return linksCmd
}

func newLinksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List upload links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				links, err := client.ListUploadLinks()
				if err != nil {
					return err
				}
				if len(links) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No upload links")
					return nil
				}
				rows := make([][]string, 0, len(links))
				for _, link := range links {
					expires := "never"
					if link.ExpiresAt != nil {
						expires = link.ExpiresAt.Local().Format(time.RFC3339)
					}
					rows = append(rows, []string{
						link.Token,
						link.ClientName,
						link.ProjectName,
						strconv.FormatInt(link.UsedCount, 10),
						expires,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Token", "Client", "Project", "Uses", "Expires"}, rows))
				return nil
			})
		},
	}
}

func newLinksCreateCommand(ctx *commandContext) *cobra.Command {
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "create <client> <project>",
		Short: "Create an upload link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var expiresAt *time.Time
			if expiresIn > 0 {
				expiry := time.Now().Add(expiresIn)
				expiresAt = &expiry
			}
			return ctx.withClient(func(client *apiClient) error {
				link, err := client.CreateUploadLink(args[0], args[1], expiresAt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created upload link %s for %s / %s\n",
					link.Token, link.ClientName, link.ProjectName)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Link lifetime, e.g. 168h (0 means no expiry)")
	return cmd
}

func newLinksDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token>",
		Short: "Delete an upload link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				if err := client.DeleteUploadLink(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted upload link %s\n", args[0])
				return nil
			})
		},
	}
}
