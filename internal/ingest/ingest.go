package ingest

import (
	"context"
)

// IngestionResult is the per-file intake outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   string
	Deduplicated bool
	Queued       bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory intake.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior commands and the watcher depend on.
type Ingestor interface {
	// IngestPath registers a single file and queues it when it is new.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

var _ Ingestor = (*FSIngestor)(nil)
