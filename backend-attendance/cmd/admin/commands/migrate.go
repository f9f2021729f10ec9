package commands

import (
	"context"
	"errors"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/di"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Apply the attendance schema. Statements are idempotent, running it twice is safe.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
			if c.DB == nil {
				return errors.New("migrate needs the postgres store")
			}
			if err := c.DB.Migrate(ctx, repository.Schema); err != nil {
				return err
			}
			success(cmd, "schema applied")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
