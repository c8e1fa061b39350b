package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRoomsCommand(ctx *commandContext) *cobra.Command {
	roomsCmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage streaming rooms",
	}
	roomsCmd.AddCommand(newRoomsListCommand(ctx))
	roomsCmd.AddCommand(newRoomsCreateCommand(ctx))
	roomsCmd.AddCommand(newRoomsDeleteCommand(ctx))
	return roomsCmd
}

func newRoomsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				list, err := client.ListRooms()
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No rooms")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, room := range list {
					expires := "never"
					if room.ExpiresAt != nil {
						expires = room.ExpiresAt.Local().Format(time.RFC3339)
					}
					rows = append(rows, []string{
						room.ID,
						room.Name,
						room.StreamKey,
						yesNo(room.HasPassword),
						expires,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Stream Key", "Password", "Expires"}, rows))
				return nil
			})
		},
	}
}

func newRoomsCreateCommand(ctx *commandContext) *cobra.Command {
	var password string
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			var expiresAt *time.Time
			if expiresIn > 0 {
				expiry := time.Now().Add(expiresIn)
				expiresAt = &expiry
			}
			return ctx.withClient(func(client *apiClient) error {
				room, err := client.CreateRoom(name, password, expiresAt)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created room %s\n", room.ID)
				fmt.Fprintf(out, "  Stream key:  %s\n", room.StreamKey)
				fmt.Fprintf(out, "  MiroTalk id: %s\n", room.MiroTalkRoomID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Guest join password")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Room lifetime, e.g. 72h (0 means no expiry)")
	return cmd
}

func newRoomsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				if err := client.DeleteRoom(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted room %s\n", args[0])
				return nil
			})
		},
	}
}
