package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusUploaded  DocumentStatus = "UPLOADED"  // hashed and queued
	DocumentStatusProcessed DocumentStatus = "PROCESSED" // a normalized record was stored
	DocumentStatusFailed    DocumentStatus = "FAILED"    // terminal failure, see parsing_failures
)

// ExtractionMethod tells which extractor produced the text a record was built from.
type ExtractionMethod string

const (
	MethodText ExtractionMethod = "text"
	MethodOCR  ExtractionMethod = "ocr"
)

// ExtractionStageNormalized is the stage label stored with successful extractions.
const ExtractionStageNormalized = "NORMALIZED_106"
