// Package app assembles the ingestion service from configuration for the
// command-line tool and the daemon.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/joseph-ayodele/form106-ingest/internal/async"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/core"
	"github.com/joseph-ayodele/form106-ingest/internal/export"
	"github.com/joseph-ayodele/form106-ingest/internal/ingest"
	"github.com/joseph-ayodele/form106-ingest/internal/repository"
	"github.com/joseph-ayodele/form106-ingest/internal/server"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
)

// App owns the long-lived components. Close releases them in reverse order.
type App struct {
	Config   *common.Config
	Logger   *slog.Logger
	Tools    *toolexec.ToolCache
	Pipeline *core.Pipeline
	Options  core.Options

	DB          *repository.DB
	Docs        repository.DocumentRepository
	Extractions repository.ExtractionRepository
	Failures    repository.FailureRepository

	Queue    *async.ProcessorQueue
	Ingestor *ingest.FSIngestor
	Exporter *export.Service
}

// NewPipelineOnly builds the tool cache and pipeline without any storage.
// A nil runner executes real binaries.
func NewPipelineOnly(cfg *common.Config, runner toolexec.Runner, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = toolexec.NewExecRunner(logger.With("component", "toolexec"))
	}
	tools := core.NewToolCache(cfg, runner, logger)
	p, err := core.NewDefaultPipeline(cfg, runner, tools, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Tools:    tools,
		Pipeline: p,
		Options:  core.OptionsFromConfig(cfg),
	}, nil
}

// New builds the full application: pipeline, database, worker queue with a
// result recorder, filesystem ingestor and exporter.
func New(ctx context.Context, cfg *common.Config, runner toolexec.Runner, logger *slog.Logger) (*App, error) {
	a, err := NewPipelineOnly(cfg, runner, logger)
	if err != nil {
		return nil, err
	}

	db, err := server.ConnectDB(ctx, cfg.Database, a.Logger)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.Docs = repository.NewDocumentRepository(db)
	a.Extractions = repository.NewExtractionRepository(db)
	a.Failures = repository.NewFailureRepository(db)

	recorder := ingest.NewRecorder(a.Docs, a.Extractions, a.Failures, a.Logger.With("component", "recorder"))
	a.Queue = async.NewProcessorQueue(a.Pipeline, a.Logger.With("component", "queue"),
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
		async.WithOptions(a.Options),
		async.WithResultHandler(recorder.Handler()),
	)
	a.Ingestor = ingest.NewFSIngestor(a.Docs, a.Queue, a.Logger.With("component", "ingest"))
	a.Exporter = export.NewService(a.Extractions, a.Logger.With("component", "export"))
	return a, nil
}

// Drain stops intake and waits for queued documents to finish.
func (a *App) Drain(ctx context.Context) {
	if a.Queue != nil {
		a.Queue.Shutdown(ctx)
	}
}

func (a *App) Close(ctx context.Context) {
	a.Drain(ctx)
	if a.DB != nil {
		a.DB.Close()
	}
}

// Watch feeds every PDF that settles under roots to the ingestor until ctx ends.
func (a *App) Watch(ctx context.Context, roots []string) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       roots,
		InitialScan: a.Config.Watch.InitialScan,
		Debounce:    a.Config.Watch.Debounce,
		Logger:      a.Logger.With("component", "watcher"),
	})
	if err != nil {
		return err
	}
	a.Logger.Info("watching for documents", "roots", len(roots))
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return ctx.Err()
			}
			r, err := a.Ingestor.IngestPath(ctx, p)
			if err != nil {
				a.Logger.Warn("watched file rejected", "file", filepath.Base(p), "error", err)
				continue
			}
			a.Logger.Info("watched file registered",
				"document_id", r.DocumentID, "deduplicated", r.Deduplicated, "queued", r.Queued)
		case err, ok := <-errs:
			if ok {
				a.Logger.Warn("watcher reported an error", "error", err)
			} else {
				errs = nil
			}
		}
	}
}

// GRPC builds the gRPC server over the pipeline, ingestor and exporter.
func (a *App) GRPC() *server.GRPC {
	opts := []server.ServerOption{}
	if a.Ingestor != nil {
		opts = append(opts, server.WithSubmitter(a.Ingestor))
	}
	if a.Exporter != nil {
		opts = append(opts, server.WithExporter(a.Exporter))
	}
	srv := server.NewIngestionServer(a.Pipeline, a.Options, a.Logger.With("component", "grpc"), opts...)
	return server.NewGRPCServer(srv, a.Logger.With("component", "grpc"))
}

// Admin builds the admin HTTP handler.
func (a *App) Admin() http.Handler {
	adm := server.Admin{
		Tools:   a.Tools,
		Version: a.Pipeline.Version(),
		Logger:  a.Logger.With("component", "admin"),
	}
	if a.DB != nil {
		adm.DB = a.DB
		adm.Docs, adm.Extractions, adm.Failures = a.Docs, a.Extractions, a.Failures
		adm.Exporter = a.Exporter
	}
	return server.AdminRouter(adm)
}
