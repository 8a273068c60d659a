package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/turnroom/turnroom/pkg/agent"
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List the open rooms",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rooms, err := agent.NewClient(conf.Agent.Server).Rooms(cmd.Context())
		if err != nil {
			return err
		}
		renderRooms(cmd.OutOrStdout(), rooms)
		return nil
	},
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Show who is in the room and who speaks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		state, err := agent.NewClient(conf.Agent.Server).Room(cmd.Context(), conf.Agent.Room)
		if err != nil {
			return err
		}
		renderRoster(cmd.OutOrStdout(), state)
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Open a new room",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := agent.NewClient(conf.Agent.Server).NewRoom(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("room "+id))
		return nil
	},
}
