package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

var (
	configPath string
	envFiles   []string
	logLevel   string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "form106",
	Short: "Extract Form 106 wage statements from PDF files",
	Long: `form106 screens Form 106 PDFs, extracts their text layer (falling back to
OCR for scanned documents) and produces normalized, validated records.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML or YAML config file overlaid on the environment")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", []string{".env"}, "dotenv files loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := common.LoadDotEnv(envFiles...); err != nil {
		return err
	}
	c, err := common.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	// logs go to stderr so stdout stays machine-readable
	logger = common.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)
	return nil
}
