package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/form106-ingest/internal/app"
	"github.com/joseph-ayodele/form106-ingest/internal/core"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print resolved external tools and installed OCR languages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.NewPipelineOnly(cfg, nil, logger)
		if err != nil {
			return err
		}
		report := a.Tools.Report(cmd.Context())
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		missing, err := a.Tools.MissingLanguages(cmd.Context(), cfg.OCR.Languages)
		if err == nil && len(missing) > 0 {
			cmd.PrintErrf("missing OCR languages: %v\n", missing)
		}
		return nil
	},
}

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Open the configured database, run migrations and ping it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context(), cfg, nil, logger)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		cmd.Printf("DB health: OK (%s)\n", a.DB.Dialect())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the composite parser version",
	Args:  cobra.NoArgs,
	// config is not needed to print the version
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(core.ParserVersion)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd, dbhealthCmd, versionCmd)
}
