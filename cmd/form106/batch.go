package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/form106-ingest/internal/app"
)

var (
	batchDir        string
	batchOut        string
	batchSkipHidden bool
	batchReprocess  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Ingest a directory through the worker pool and export an XLSX workbook",
	Long: `Registers every PDF under --dir, processes new ones on the worker pool,
stores records and failures in the database and writes the latest record of
every document to --out.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory to ingest (required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output XLSX path (defaults to form106.xlsx next to --dir)")
	batchCmd.Flags().BoolVar(&batchSkipHidden, "skip-hidden", true, "skip hidden files and directories")
	batchCmd.Flags().BoolVar(&batchReprocess, "reprocess", false, "queue known documents that were never processed")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := batchOut
	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(batchDir)), "form106.xlsx")
	}

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	a.Ingestor.Reprocess = batchReprocess

	results, stats, err := a.Ingestor.IngestDirectory(ctx, batchDir, batchSkipHidden)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("file rejected", "file", filepath.Base(r.SourcePath), "error", r.Err)
		}
	}
	logger.Info("directory registered",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)

	a.Drain(ctx)
	if err := ctx.Err(); err != nil {
		return errors.New("interrupted before the queue drained")
	}

	xlsx, err := a.Exporter.ExportXLSX(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, xlsx, 0o644); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", out)
	return nil
}
