package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"northscrape-engine/internal/config"
)

var (
	cfg         config.Config
	userCfgPath string

	dataDirFlag    string
	defaultCfgFlag string
)

var rootCmd = &cobra.Command{
	Use:          "northscrape",
	Short:        "Business lead discovery and enrichment engine",
	Long:         "Scrapes a business directory for a category and a set of locations, enriches each lead with a web search, and normalises names, addresses, phones and websites.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dataDir := dataDirFlag
		if dataDir == "" {
			dataDir = os.Getenv(config.EnvPrefix + "_APP_DATA_DIR")
		}
		if dataDir == "" {
			dataDir = config.Default().App.DataDir
		}

		p, err := config.EnsureUserConfig(dataDir, defaultCfgFlag)
		if err != nil {
			return eris.Wrap(err, "config bootstrap")
		}
		userCfgPath = p

		c, err := config.Load(userCfgPath)
		if err != nil {
			return eris.Wrapf(err, "load config %s", userCfgPath)
		}
		c.App.DataDir = dataDir

		c, v := config.NormalizeAndValidate(c)
		if !v.OK() {
			return v
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		for _, w := range v.Warnings {
			zap.L().Warn("config: " + w)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "engine data directory (default $NORTHSCRAPE_APP_DATA_DIR or ./data)")
	rootCmd.PersistentFlags().StringVar(&defaultCfgFlag, "default-config", filepath.Join("config", "config.yml"),
		"config copied into the data dir on first start")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
