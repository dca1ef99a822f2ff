package main

import (
	"github.com/spf13/cobra"

	"affekt/config"
	"affekt/internal/infrastructure/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "affekt",
	Short: "Video emotion analysis service",
	Long: `affekt analyzes videos for emotional content: it transcribes speech,
recognizes speech emotions and audio events, and classifies facial
emotions on sampled frames.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
