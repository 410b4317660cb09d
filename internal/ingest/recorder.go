package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/async"
	"github.com/joseph-ayodele/form106-ingest/internal/core"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/repository"
)

// Recorder persists pipeline outcomes: a success stores the record and marks
// the document PROCESSED, a failure stores the typed failure and marks it FAILED.
type Recorder struct {
	Docs        repository.DocumentRepository
	Extractions repository.ExtractionRepository
	Failures    repository.FailureRepository
	logger      *slog.Logger
}

func NewRecorder(docs repository.DocumentRepository, ex repository.ExtractionRepository, fails repository.FailureRepository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{Docs: docs, Extractions: ex, Failures: fails, logger: logger}
}

// Record stores res for the job's document.
func (r *Recorder) Record(ctx context.Context, job async.Job, res core.Result) error {
	if res.Success {
		return r.recordSuccess(ctx, job, res)
	}
	return r.recordFailure(ctx, job, res)
}

// Handler adapts Record to an async.ResultHandler that logs store errors.
func (r *Recorder) Handler() async.ResultHandler {
	return func(ctx context.Context, job async.Job, res core.Result) {
		if err := r.Record(ctx, job, res); err != nil {
			r.logger.Error("failed to record ingestion outcome", "document_id", job.DocumentID, "error", err)
		}
	}
}

func (r *Recorder) recordSuccess(ctx context.Context, job async.Job, res core.Result) error {
	if res.Record == nil {
		return errors.New("successful result without a record")
	}
	payload, err := json.Marshal(res.Record)
	if err != nil {
		return err
	}
	err = r.Extractions.Create(ctx, &entity.Extraction{
		DocumentID:    job.DocumentID,
		ParserVersion: res.ParserVersion,
		Stage:         constants.ExtractionStageNormalized,
		Method:        res.Method,
		Payload:       payload,
		Warnings:      res.Warnings,
	})
	if err != nil {
		return err
	}
	if err := r.Docs.SetTaxYear(ctx, job.DocumentID, res.Record.TaxYear); err != nil {
		return err
	}
	return r.Docs.UpdateStatus(ctx, job.DocumentID, constants.DocumentStatusProcessed)
}

func (r *Recorder) recordFailure(ctx context.Context, job async.Job, res core.Result) error {
	f := res.Failure
	if f == nil {
		return errors.New("failed result without a failure")
	}
	err := r.Failures.Create(ctx, &entity.ParsingFailure{
		DocumentID:    job.DocumentID,
		ParserVersion: f.ParserVersion,
		Stage:         string(f.Stage),
		Code:          f.Code,
		Message:       f.Message,
	})
	if err != nil {
		return err
	}
	return r.Docs.UpdateStatus(ctx, job.DocumentID, constants.DocumentStatusFailed)
}
