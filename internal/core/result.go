package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/ocr"
)

// Result is the terminal outcome of one ingestion. Exactly one of Record and
// Failure is set, matching Success.
type Result struct {
	IngestionID   uuid.UUID
	Success       bool
	Record        *entity.ExtractedRecord
	Failure       *common.IngestionFailure
	Method        constants.ExtractionMethod // empty when no text was acquired
	ParserVersion string
	Warnings      []string
	Confidence    *ocr.Confidence // OCR runs only
	Duration      time.Duration
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

type resultJSON struct {
	IngestionID      string                     `json:"ingestionId"`
	Success          bool                       `json:"success"`
	Data             *entity.ExtractedRecord    `json:"data,omitempty"`
	Error            *common.IngestionFailure   `json:"error,omitempty"`
	ExtractionMethod constants.ExtractionMethod `json:"extractionMethod,omitempty"`
	ParserVersion    string                     `json:"parserVersion"`
	Warnings         []string                   `json:"warnings,omitempty"`
	Confidence       *ocr.Confidence            `json:"confidence,omitempty"`
	DurationMS       int64                      `json:"durationMs"`
}

// MarshalJSON renders the success or failure shape consumed downstream.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		IngestionID:      r.IngestionID.String(),
		Success:          r.Success,
		Data:             r.Record,
		Error:            r.Failure,
		ExtractionMethod: r.Method,
		ParserVersion:    r.ParserVersion,
		Warnings:         r.Warnings,
		Confidence:       r.Confidence,
		DurationMS:       r.Duration.Milliseconds(),
	})
}
