package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/form106-ingest/internal/app"
)

var watchDirs []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch directories and ingest PDFs as they arrive",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchDirs, "dir", nil, "directory to watch, repeatable (defaults to WATCH_DIRS)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	roots := watchDirs
	if len(roots) == 0 {
		roots = cfg.Watch.Roots
	}
	if len(roots) == 0 {
		return errors.New("no directories to watch: pass --dir or set WATCH_DIRS")
	}

	a, err := app.New(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	err = a.Watch(cmd.Context(), roots)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
