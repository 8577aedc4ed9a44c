package cli

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/database"
)

type migrateResult struct {
	Models int `json:"models"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDB(func(_ *config.Config, db *gorm.DB) error {
				if err := database.Migrate(db); err != nil {
					return err
				}
				result := migrateResult{Models: len(database.Models())}
				return opts.output(cmd.OutOrStdout(), result, func() string {
					return "schema migrated"
				})
			})
		},
	}
}
