package commands

import (
	"context"
	"fmt"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/di"
	"github.com/spf13/cobra"
)

var regenCodeCmd = &cobra.Command{
	Use:   "regen-code <event-id>",
	Short: "Replace an event's check-in code",
	Long:  `Generate a new unique check-in code for the event. The old code stops resolving immediately.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
			code, err := c.EventService.RegenerateCode(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		})
	},
}

var toggleRegistrationCmd = &cobra.Command{
	Use:   "toggle-registration <event-id>",
	Short: "Open or close registration for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
			open, err := c.EventService.ToggleRegistrationOpen(ctx, args[0])
			if err != nil {
				return err
			}
			state := "closed"
			if open {
				state = "open"
			}
			success(cmd, "registration %s", state)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(regenCodeCmd)
	rootCmd.AddCommand(toggleRegistrationCmd)
}
