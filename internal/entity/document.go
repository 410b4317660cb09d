package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/constants"
)

// Document represents an ingested source file for data transfer between layers.
type Document struct {
	ID          uuid.UUID                `json:"id"`
	SourcePath  string                   `json:"source_path"`
	FileName    string                   `json:"file_name"`
	ContentHash string                   `json:"content_hash"`
	FileSize    int64                    `json:"file_size"`
	Status      constants.DocumentStatus `json:"status"`
	TaxYear     *int                     `json:"tax_year,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Extraction is a stored normalized record, unique per (document, parser version, stage).
type Extraction struct {
	ID            uuid.UUID                  `json:"id"`
	DocumentID    uuid.UUID                  `json:"document_id"`
	ParserVersion string                     `json:"parser_version"`
	Stage         string                     `json:"stage"`
	Method        constants.ExtractionMethod `json:"method"`
	Payload       json.RawMessage            `json:"payload"`
	Warnings      []string                   `json:"warnings,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// Record decodes the stored payload.
func (e *Extraction) Record() (ExtractedRecord, error) {
	var r ExtractedRecord
	err := json.Unmarshal(e.Payload, &r)
	return r, err
}

// ParsingFailure is a stored pipeline failure. Message is already redacted.
type ParsingFailure struct {
	ID            uuid.UUID           `json:"id"`
	DocumentID    uuid.UUID           `json:"document_id"`
	ParserVersion string              `json:"parser_version"`
	Stage         string              `json:"stage"`
	Code          constants.ErrorCode `json:"code"`
	Message       string              `json:"message"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ExtractionRow joins an extraction with its document for export.
type ExtractionRow struct {
	Document   Document
	Extraction Extraction
	Record     ExtractedRecord
}
