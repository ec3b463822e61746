package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, store, err := setup(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("Schema is up to date", zap.String("driver", cfg.StoreDriver))
		return nil
	},
}
