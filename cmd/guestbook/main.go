package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/guestbook/internal/config"
	"github.com/itchan-dev/guestbook/internal/logger"
)

var configFolder string

var rootCmd = &cobra.Command{
	Use:           "guestbook",
	Short:         "A single-page guestbook with markdown messages and media attachments",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFolder, "config", "", "folder with public.yaml and private.yaml (defaults only when empty)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(gcCmd)
}

// loadConfig reads the config folder and re-initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFolder)
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.Public.Log.Level, cfg.Public.Log.JSON)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Error("fatal", "error", err)
		os.Exit(1)
	}
}
