package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
)

func TestNewFailure_TagsStageFromCode(t *testing.T) {
	tests := []struct {
		code  constants.ErrorCode
		stage constants.Stage
	}{
		{constants.CodeSecurityRisk, constants.StageExtract},
		{constants.CodeOCRQualityCritical, constants.StageExtract},
		{constants.CodeTextGarbled, constants.StageNormalize},
		{constants.CodeMandatoryFieldMissing, constants.StageNormalize},
		{constants.CodeSchemaInvalid, constants.StageValidate},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			f := NewFailure(tt.code, "msg", nil)
			assert.Equal(t, tt.stage, f.Stage)
			assert.Equal(t, tt.code, f.Code)
		})
	}
}

func TestNewFailure_RedactsMessage(t *testing.T) {
	f := NewFailure(constants.CodeFieldInvalid, "bad id 123456782 for a@b.com", nil)
	assert.Equal(t, "bad id [REDACTED_ID] for [REDACTED_EMAIL]", f.Message)
}

func TestFailure_ErrorRedactsCause(t *testing.T) {
	f := NewFailure(constants.CodeExtractionFailed, "pdftotext failed", errors.New("saw 039337423"))
	assert.Equal(t, "extract/EXTRACTION_FAILED: pdftotext failed: saw [REDACTED_ID]", f.Error())
}

func TestFailure_MarshalJSON(t *testing.T) {
	f := NewFailure(constants.CodeMandatoryFieldMissing, "Required fields not found: taxYear", errors.New("secret cause")).
		WithFields("taxYear").
		Stamp("v1")

	b, err := json.Marshal(f)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "normalize", got["stage"])
	assert.Equal(t, "MANDATORY_FIELD_MISSING", got["code"])
	assert.Equal(t, "v1", got["parserVersion"])
	assert.Equal(t, []any{"taxYear"}, got["fields"])
	assert.NotContains(t, string(b), "secret cause")
}

func TestFailure_StampKeepsExisting(t *testing.T) {
	f := NewFailure(constants.CodeTooLarge, "x", nil).Stamp("a").Stamp("b")
	assert.Equal(t, "a", f.ParserVersion)
}

func TestAsFailure_ThroughWrapping(t *testing.T) {
	inner := NewFailure(constants.CodeImageOnly, "no text", nil)
	err := fmt.Errorf("stage: %w", inner)

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Same(t, inner, f)
	assert.Equal(t, constants.CodeImageOnly, FailureCode(err))
	assert.True(t, IsCode(err, constants.CodeImageOnly))
	assert.Equal(t, constants.ErrorCode(""), FailureCode(errors.New("plain")))
}

func TestWrapFailure(t *testing.T) {
	assert.Nil(t, WrapFailure(constants.StageValidate, nil))

	typed := NewFailure(constants.CodeFieldAmbiguous, "x", nil)
	assert.Same(t, typed, WrapFailure(constants.StageValidate, typed))

	f := WrapFailure(constants.StageValidate, context.DeadlineExceeded)
	assert.Equal(t, constants.StageValidate, f.Stage)
	assert.Equal(t, constants.CodeSchemaInvalid, f.Code)
	assert.ErrorIs(t, f, context.DeadlineExceeded)
}
