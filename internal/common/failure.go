package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/utils"
)

// IngestionFailure is the single typed error every pipeline stage returns.
// Message and cause text are redacted when the failure is built and again when
// it is rendered, so nothing document-derived leaves through it.
type IngestionFailure struct {
	Stage         constants.Stage
	Code          constants.ErrorCode
	Message       string
	ParserVersion string
	// Fields names the record fields involved, for FIELD_* and MANDATORY_FIELD_MISSING.
	Fields []string
	// Threats lists human-readable labels of active-content markers for SECURITY_RISK.
	Threats []string
	Cause   error
}

// NewFailure builds a failure tagged with the stage its code belongs to.
func NewFailure(code constants.ErrorCode, message string, cause error) *IngestionFailure {
	stage, ok := constants.StageOf(code)
	if !ok {
		stage = constants.StageExtract
	}
	return &IngestionFailure{
		Stage:   stage,
		Code:    code,
		Message: utils.Redact(message),
		Cause:   cause,
	}
}

// NewFailuref is NewFailure with a formatted message.
func NewFailuref(code constants.ErrorCode, cause error, format string, args ...any) *IngestionFailure {
	return NewFailure(code, fmt.Sprintf(format, args...), cause)
}

// WrapFailure turns an untyped error into a failure tagged with stage.
// Typed failures pass through untouched.
func WrapFailure(stage constants.Stage, err error) *IngestionFailure {
	if err == nil {
		return nil
	}
	if f, ok := AsFailure(err); ok {
		return f
	}
	return &IngestionFailure{
		Stage:   stage,
		Code:    constants.DefaultCode(stage),
		Message: utils.Redact(fmt.Sprintf("unexpected %s error: %v", stage, err)),
		Cause:   err,
	}
}

func (f *IngestionFailure) Error() string {
	msg := fmt.Sprintf("%s/%s: %s", f.Stage, f.Code, f.Message)
	if f.Cause != nil {
		msg += ": " + utils.Redact(f.Cause.Error())
	}
	return msg
}

func (f *IngestionFailure) Unwrap() error {
	return f.Cause
}

// WithFields records the record fields involved and returns f.
func (f *IngestionFailure) WithFields(fields ...string) *IngestionFailure {
	f.Fields = append(f.Fields, fields...)
	return f
}

// WithThreats records threat labels and returns f.
func (f *IngestionFailure) WithThreats(labels ...string) *IngestionFailure {
	f.Threats = append(f.Threats, labels...)
	return f
}

// Stamp sets the parser version if none is set yet.
func (f *IngestionFailure) Stamp(version string) *IngestionFailure {
	if f.ParserVersion == "" {
		f.ParserVersion = version
	}
	return f
}

type failureJSON struct {
	Stage         constants.Stage     `json:"stage"`
	Code          constants.ErrorCode `json:"code"`
	Message       string              `json:"message"`
	ParserVersion string              `json:"parserVersion,omitempty"`
	Fields        []string            `json:"fields,omitempty"`
	Threats       []string            `json:"threats,omitempty"`
}

// MarshalJSON renders the public shape. The cause is deliberately omitted.
func (f *IngestionFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(failureJSON{
		Stage:         f.Stage,
		Code:          f.Code,
		Message:       utils.Redact(f.Message),
		ParserVersion: f.ParserVersion,
		Fields:        f.Fields,
		Threats:       f.Threats,
	})
}

// AsFailure extracts an *IngestionFailure from err's chain.
func AsFailure(err error) (*IngestionFailure, bool) {
	var f *IngestionFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// FailureCode returns the code of the failure in err's chain, or "".
func FailureCode(err error) constants.ErrorCode {
	if f, ok := AsFailure(err); ok {
		return f.Code
	}
	return ""
}

// IsCode reports whether err carries the given failure code.
func IsCode(err error, code constants.ErrorCode) bool {
	return FailureCode(err) == code
}
