package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/form106-ingest/internal/app"
)

var (
	ingestPassword string
	ingestNoOCR    bool
)

// errIngestFailed makes the exit status non-zero after the result was printed.
var errIngestFailed = errors.New("ingestion failed")

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Ingest one PDF and print the JSON result",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPassword, "password", "", "password for encrypted PDFs")
	ingestCmd.Flags().BoolVar(&ingestNoOCR, "no-ocr", false, "disable the OCR fallback")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := app.NewPipelineOnly(cfg, nil, logger)
	if err != nil {
		return err
	}
	opts := a.Options
	if ingestPassword != "" {
		opts.Password = ingestPassword
	}
	if ingestNoOCR {
		opts.EnableOCRFallback = false
	}

	res := a.Pipeline.Ingest(cmd.Context(), args[0], opts)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return errIngestFailed
	}
	return nil
}
