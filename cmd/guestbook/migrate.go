package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/storage/sqldb"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the message store schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// New applies pending migrations before returning
		store, err := sqldb.New(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.Log.Info("schema is up to date", "driver", cfg.Public.Storage.Driver)
		return nil
	},
}
