package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/core"
	"github.com/joseph-ayodele/form106-ingest/internal/ingest"
)

// Processor runs one ingestion synchronously; *core.Pipeline satisfies it.
type Processor interface {
	Ingest(ctx context.Context, path string, opts core.Options) core.Result
}

// Submitter registers a file for background processing; *ingest.FSIngestor satisfies it.
type Submitter interface {
	IngestPath(ctx context.Context, path string) (ingest.IngestionResult, error)
}

// Exporter renders stored extractions; *export.Service satisfies it.
type Exporter interface {
	ExportXLSX(ctx context.Context) ([]byte, error)
}

// IngestionServer implements IngestionService. Submitter and Exporter are
// optional; the matching RPCs return Unimplemented without them.
type IngestionServer struct {
	proc      Processor
	opts      core.Options
	submitter Submitter
	exporter  Exporter
	logger    *slog.Logger
}

type ServerOption func(*IngestionServer)

func WithSubmitter(s Submitter) ServerOption {
	return func(srv *IngestionServer) { srv.submitter = s }
}

func WithExporter(e Exporter) ServerOption {
	return func(srv *IngestionServer) { srv.exporter = e }
}

func NewIngestionServer(proc Processor, opts core.Options, logger *slog.Logger, options ...ServerOption) *IngestionServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &IngestionServer{proc: proc, opts: opts, logger: logger}
	for _, o := range options {
		o(s)
	}
	return s
}

// Ingest runs the pipeline on a server-local path. Pipeline failures are not
// RPC errors: they come back in the payload with success=false.
func (s *IngestionServer) Ingest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requiredPath(req)
	if err != nil {
		return nil, err
	}
	opts := s.opts
	if pw := stringField(req, "password"); pw != "" {
		opts.Password = pw
	}

	s.logger.Info("ingest request", "file", filepath.Base(path))
	res := s.proc.Ingest(ctx, path, opts)
	out, err := toStruct(res)
	if err != nil {
		s.logger.Error("failed to encode ingestion result", "error", err)
		return nil, common.ToStatus(err)
	}
	return out, nil
}

// Submit registers the file and queues it when it is new.
func (s *IngestionServer) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.submitter == nil {
		return nil, common.UnimplementedError("submit is not enabled on this server")
	}
	path, err := requiredPath(req)
	if err != nil {
		return nil, err
	}

	r, err := s.submitter.IngestPath(ctx, path)
	if err != nil {
		s.logger.Warn("submit failed", "file", filepath.Base(path), "error", err)
		return nil, common.InvalidArgumentErrorf("submit: %v", err)
	}
	s.logger.Info("submit succeeded", "document_id", r.DocumentID, "deduplicated", r.Deduplicated, "queued", r.Queued)
	return structpb.NewStruct(map[string]any{
		"documentId":   r.DocumentID,
		"deduplicated": r.Deduplicated,
		"queued":       r.Queued,
		"contentHash":  r.HashHex,
	})
}

func requiredPath(req *structpb.Struct) (string, error) {
	path := strings.TrimSpace(stringField(req, "path"))
	if path == "" {
		return "", common.InvalidArgumentError("path is required")
	}
	return path, nil
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

// toStruct converts a value through its JSON form into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}
	return s, nil
}
