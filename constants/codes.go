package constants

// Stage identifies the pipeline stage a failure belongs to.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageValidate  Stage = "validate"
)

// ErrorCode is the stable machine-readable failure code surfaced to callers.
type ErrorCode string

// Extract stage.
const (
	CodeInvalidFormat        ErrorCode = "INVALID_FORMAT"
	CodeTooLarge             ErrorCode = "TOO_LARGE"
	CodeSecurityRisk         ErrorCode = "SECURITY_RISK"
	CodeToolMissing          ErrorCode = "TOOL_MISSING"
	CodePasswordRequired     ErrorCode = "PASSWORD_REQUIRED"
	CodePasswordInvalid      ErrorCode = "PASSWORD_INVALID"
	CodeExtractionFailed     ErrorCode = "EXTRACTION_FAILED"
	CodeExtractionTimeout    ErrorCode = "EXTRACTION_TIMEOUT"
	CodeImageOnly            ErrorCode = "IMAGE_ONLY"
	CodeOCRToolMissing       ErrorCode = "OCR_TOOL_MISSING"
	CodeOCRLanguageMissing   ErrorCode = "OCR_LANGUAGE_MISSING"
	CodeOCRExtractionFailed  ErrorCode = "OCR_EXTRACTION_FAILED"
	CodeOCRExtractionTimeout ErrorCode = "OCR_EXTRACTION_TIMEOUT"
	CodeOCRQualityCritical   ErrorCode = "OCR_QUALITY_CRITICAL"
)

// Normalize stage.
const (
	CodeTextGarbled           ErrorCode = "TEXT_GARBLED"
	CodeFieldNotFound         ErrorCode = "FIELD_NOT_FOUND"
	CodeFieldInvalid          ErrorCode = "FIELD_INVALID"
	CodeFieldAmbiguous        ErrorCode = "FIELD_AMBIGUOUS"
	CodeMandatoryFieldMissing ErrorCode = "MANDATORY_FIELD_MISSING"
)

// Validate stage.
const (
	CodeSchemaInvalid ErrorCode = "SCHEMA_INVALID"
)

var codeStages = map[ErrorCode]Stage{
	CodeInvalidFormat:         StageExtract,
	CodeTooLarge:              StageExtract,
	CodeSecurityRisk:          StageExtract,
	CodeToolMissing:           StageExtract,
	CodePasswordRequired:      StageExtract,
	CodePasswordInvalid:       StageExtract,
	CodeExtractionFailed:      StageExtract,
	CodeExtractionTimeout:     StageExtract,
	CodeImageOnly:             StageExtract,
	CodeOCRToolMissing:        StageExtract,
	CodeOCRLanguageMissing:    StageExtract,
	CodeOCRExtractionFailed:   StageExtract,
	CodeOCRExtractionTimeout:  StageExtract,
	CodeOCRQualityCritical:    StageExtract,
	CodeTextGarbled:           StageNormalize,
	CodeFieldNotFound:         StageNormalize,
	CodeFieldInvalid:          StageNormalize,
	CodeFieldAmbiguous:        StageNormalize,
	CodeMandatoryFieldMissing: StageNormalize,
	CodeSchemaInvalid:         StageValidate,
}

// StageOf returns the stage a code belongs to. Unknown codes report false.
func StageOf(code ErrorCode) (Stage, bool) {
	s, ok := codeStages[code]
	return s, ok
}

// DefaultCode is the catch-all code used when an untyped error escapes a stage.
func DefaultCode(stage Stage) ErrorCode {
	switch stage {
	case StageNormalize:
		return CodeFieldInvalid
	case StageValidate:
		return CodeSchemaInvalid
	default:
		return CodeExtractionFailed
	}
}

// FailureStageLabel maps a stage to the label persisted with parsing failures.
func FailureStageLabel(stage Stage) string {
	switch stage {
	case StageExtract:
		return "EXTRACTION"
	case StageNormalize:
		return "NORMALIZATION"
	case StageValidate:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}
