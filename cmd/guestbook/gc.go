package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/guestbook/internal/logger"
	"github.com/itchan-dev/guestbook/internal/service"
	mediafs "github.com/itchan-dev/guestbook/internal/storage/fs"
	"github.com/itchan-dev/guestbook/internal/storage/sqldb"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove uploads that no message references and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := sqldb.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		media := mediafs.New(cfg.Public.Storage.UploadDir)
		gc := service.NewAttachmentGarbageCollector(store, media, cfg.Public.Storage.GCMinAge)
		stats, err := gc.RunCleanup(ctx)
		if err != nil {
			return err
		}

		logger.Log.Info("attachment cleanup completed",
			"scanned", stats.FilesScanned,
			"orphans", stats.OrphanedFiles,
			"deleted", stats.FilesDeleted,
			"bytes_reclaimed", stats.BytesReclaimed,
		)
		for _, e := range stats.Errors {
			logger.Log.Warn("attachment cleanup error", "error", e)
		}
		return nil
	},
}
