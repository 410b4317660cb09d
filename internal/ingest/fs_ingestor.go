package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/async"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/repository"
)

// Enqueuer accepts documents for processing; *async.ProcessorQueue satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// FSIngestor registers files from the local filesystem and queues new ones.
type FSIngestor struct {
	Docs  repository.DocumentRepository
	Queue Enqueuer
	// Reprocess queues deduplicated documents that have not been processed yet.
	Reprocess bool
	logger    *slog.Logger
}

func NewFSIngestor(docs repository.DocumentRepository, queue Enqueuer, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Docs: docs, Queue: queue, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	sum, size, err := hashFile(abs)
	if err != nil {
		i.logger.Error("hash failed", "file", filepath.Base(abs), "error", err)
		return out, err
	}

	doc, dedup, err := i.Docs.UpsertByHash(ctx, &entity.Document{
		SourcePath:  abs,
		FileName:    filepath.Base(abs),
		ContentHash: sum,
		FileSize:    size,
		Status:      constants.DocumentStatusUploaded,
	})
	if err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath:   doc.SourcePath,
		DocumentID:   doc.ID.String(),
		Deduplicated: dedup,
		HashHex:      sum,
	}

	queue := !dedup || (i.Reprocess && doc.Status != constants.DocumentStatusProcessed)
	if queue && i.Queue != nil {
		// queue the path just hashed; a duplicate may live elsewhere
		if err := i.Queue.Enqueue(ctx, async.Job{DocumentID: doc.ID, Path: abs, Force: dedup}); err != nil {
			return out, fmt.Errorf("enqueue: %w", err)
		}
		out.Queued = true
	}
	i.logger.Debug("file ingested", "document_id", doc.ID, "deduplicated", dedup, "queued", out.Queued)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each PDF. Per-file errors are collected, not fatal.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
