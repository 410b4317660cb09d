package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/ocr"
)

const statement = `Form 106 - Annual Tax Statement
Employee ID: 123456782
Employer ID: 987654324
Tax Year: 2024
Gross Income: 150,000.00
Tax Deducted: 25,000.00
Social Security: 8,000.00
Health Insurance: 4,500.00`

const garbled = "Z12+ 34\\ /10  /20 Z99+ 1\\ employee 123456782 and more characters to pass the image-only check"

type passScreener struct{ err error }

func (s passScreener) Screen(context.Context, string, int64) error { return s.err }

type fakeText struct {
	text  string
	err   error
	calls int
}

func (f *fakeText) Extract(context.Context, string, string) (entity.ExtractedText, error) {
	f.calls++
	return entity.ExtractedText{Raw: f.text}, f.err
}

type fakeOCR struct {
	available bool
	res       ocr.Result
	err       error
	calls     int
}

func (f *fakeOCR) Available(context.Context) bool { return f.available }

func (f *fakeOCR) Extract(context.Context, string, ocr.Options) (ocr.Result, error) {
	f.calls++
	return f.res, f.err
}

type panicNormalizer struct{}

func (panicNormalizer) Normalize(entity.ExtractedText) (entity.ExtractedRecord, error) {
	panic("index out of range")
}

type errValidator struct{ err error }

func (v errValidator) Validate(entity.ExtractedRecord) error { return v.err }

func goodOCR() *fakeOCR {
	return &fakeOCR{
		available: true,
		res: ocr.Result{
			Text:       statement,
			Pages:      1,
			Confidence: ocr.Confidence{Mean: 88.5, Min: 61, LowConfidenceRatio: 0, WordCount: 40},
			Warnings:   []string{"OCR confidence is moderate"},
		},
	}
}

func requireFailure(t *testing.T, res Result, code constants.ErrorCode) *common.IngestionFailure {
	t.Helper()
	require.False(t, res.Success)
	require.NotNil(t, res.Failure)
	assert.Nil(t, res.Record)
	assert.Equal(t, code, res.Failure.Code)
	assert.Equal(t, ParserVersion, res.Failure.ParserVersion)
	return res.Failure
}

func TestIngest_TextLayer(t *testing.T) {
	text := &fakeText{text: statement}
	o := goodOCR()
	p := NewPipeline(Stages{Screener: passScreener{}, Text: text, OCR: o}, nil)

	res := p.Ingest(context.Background(), "/in/doc.pdf", Options{EnableOCRFallback: true})
	require.True(t, res.Success, "failure: %v", res.Err())
	assert.Equal(t, constants.MethodText, res.Method)
	assert.Equal(t, ParserVersion, res.ParserVersion)
	assert.Equal(t, "123456782", res.Record.EmployeeID)
	assert.Equal(t, 2024, res.Record.TaxYear)
	assert.Nil(t, res.Confidence)
	assert.Zero(t, o.calls, "OCR must not run when the text layer is usable")
	assert.NoError(t, res.Err())
}

func TestIngest_FallbackToOCR(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		trigger constants.ErrorCode
	}{
		{"image only", "   ", constants.CodeImageOnly},
		{"garbled", garbled, constants.CodeTextGarbled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := goodOCR()
			p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: tt.text}, OCR: o}, nil)

			res := p.Ingest(context.Background(), "/in/scan.pdf", Options{EnableOCRFallback: true})
			require.True(t, res.Success, "failure: %v", res.Err())
			assert.Equal(t, constants.MethodOCR, res.Method)
			assert.Equal(t, 1, o.calls)
			require.NotNil(t, res.Confidence)
			assert.Equal(t, 88.5, res.Confidence.Mean)
			assert.Contains(t, res.Warnings, "text layer unusable ("+string(tt.trigger)+"); used OCR")
			assert.Contains(t, res.Warnings, "OCR confidence is moderate")
		})
	}
}

func TestIngest_FallbackDisabled(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		code  constants.ErrorCode
		stage constants.Stage
	}{
		{"image only", "", constants.CodeImageOnly, constants.StageExtract},
		{"garbled", garbled, constants.CodeTextGarbled, constants.StageNormalize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := goodOCR()
			p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: tt.text}, OCR: o}, nil)

			res := p.Ingest(context.Background(), "/in/scan.pdf", Options{})
			f := requireFailure(t, res, tt.code)
			assert.Equal(t, tt.stage, f.Stage)
			assert.Zero(t, o.calls)
		})
	}
}

func TestIngest_OCRUnavailable(t *testing.T) {
	for name, o := range map[string]OCRExtractor{
		"not installed": &fakeOCR{available: false},
		"not wired":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: ""}, OCR: o}, nil)
			res := p.Ingest(context.Background(), "/in/scan.pdf", Options{EnableOCRFallback: true})
			requireFailure(t, res, constants.CodeOCRToolMissing)
		})
	}
}

func TestIngest_OCRFailurePropagates(t *testing.T) {
	o := &fakeOCR{available: true, err: common.NewFailure(constants.CodeOCRQualityCritical, "OCR confidence too low", nil)}
	p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{}, OCR: o}, nil)

	res := p.Ingest(context.Background(), "/in/scan.pdf", Options{EnableOCRFallback: true})
	f := requireFailure(t, res, constants.CodeOCRQualityCritical)
	assert.Equal(t, constants.StageExtract, f.Stage)
}

func TestIngest_OCRTextStillGarbled(t *testing.T) {
	o := goodOCR()
	o.res.Text = garbled
	p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: garbled}, OCR: o}, nil)

	res := p.Ingest(context.Background(), "/in/scan.pdf", Options{EnableOCRFallback: true})
	requireFailure(t, res, constants.CodeTextGarbled)
	assert.Equal(t, 1, o.calls, "fallback happens once")
	assert.Equal(t, constants.MethodOCR, res.Method)
}

func TestIngest_ScreeningStops(t *testing.T) {
	text := &fakeText{text: statement}
	screen := passScreener{err: common.NewFailure(constants.CodeSecurityRisk, "PDF contains potentially dangerous content: Auto-open action", nil)}
	p := NewPipeline(Stages{Screener: screen, Text: text}, nil)

	res := p.Ingest(context.Background(), "/in/doc.pdf", Options{})
	requireFailure(t, res, constants.CodeSecurityRisk)
	assert.Zero(t, text.calls)
	assert.Empty(t, res.Method)
}

func TestIngest_TextErrorsAreTyped(t *testing.T) {
	text := &fakeText{err: errors.New("disk on fire")}
	p := NewPipeline(Stages{Screener: passScreener{}, Text: text}, nil)

	res := p.Ingest(context.Background(), "/in/doc.pdf", Options{})
	f := requireFailure(t, res, constants.CodeExtractionFailed)
	assert.Equal(t, constants.StageExtract, f.Stage)
}

func TestIngest_ValidationFailures(t *testing.T) {
	t.Run("typed", func(t *testing.T) {
		v := errValidator{err: common.NewFailure(constants.CodeSchemaInvalid, "record does not match", nil)}
		p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: statement}, Validator: v}, nil)
		res := p.Ingest(context.Background(), "/in/doc.pdf", Options{})
		f := requireFailure(t, res, constants.CodeSchemaInvalid)
		assert.Equal(t, constants.StageValidate, f.Stage)
		assert.Equal(t, constants.MethodText, res.Method)
	})
	t.Run("untyped", func(t *testing.T) {
		cause := errors.New("unexpected shape")
		p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: statement}, Validator: errValidator{err: cause}}, nil)
		res := p.Ingest(context.Background(), "/in/doc.pdf", Options{})
		f := requireFailure(t, res, constants.CodeSchemaInvalid)
		assert.Equal(t, constants.StageValidate, f.Stage)
		assert.ErrorIs(t, f, cause)
	})
}

func TestIngest_PanicBecomesFailure(t *testing.T) {
	p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: statement}, Normalizer: panicNormalizer{}}, nil)

	res := p.Ingest(context.Background(), "/in/doc.pdf", Options{})
	f := requireFailure(t, res, constants.CodeFieldInvalid)
	assert.Equal(t, constants.StageNormalize, f.Stage)
	assert.Contains(t, f.Message, "panic")
}

func TestIngestText(t *testing.T) {
	p := NewPipeline(Stages{}, nil)

	res := p.IngestText(context.Background(), entity.ExtractedText{Raw: statement}, "")
	require.True(t, res.Success, "failure: %v", res.Err())
	assert.Equal(t, constants.MethodText, res.Method)
	assert.Equal(t, 150000.0, res.Record.GrossIncome)

	res = p.IngestText(context.Background(), entity.ExtractedText{Raw: "Employee ID: 123456782"}, constants.MethodOCR)
	f := requireFailure(t, res, constants.CodeMandatoryFieldMissing)
	assert.Len(t, f.Fields, 6)
	assert.Equal(t, constants.MethodOCR, res.Method)

	// pre-extracted garbled text has nowhere to fall back to
	res = p.IngestText(context.Background(), entity.ExtractedText{Raw: garbled}, constants.MethodText)
	requireFailure(t, res, constants.CodeTextGarbled)
}

func TestResult_JSON(t *testing.T) {
	p := NewPipeline(Stages{Screener: passScreener{}, Text: &fakeText{text: statement}}, nil)
	ok := p.Ingest(context.Background(), "/in/doc.pdf", Options{})
	require.True(t, ok.Success)

	b, err := json.Marshal(ok)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "text", got["extractionMethod"])
	assert.Equal(t, ParserVersion, got["parserVersion"])
	assert.Equal(t, ok.IngestionID.String(), got["ingestionId"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "987654324", data["employerId"])
	assert.NotContains(t, got, "error")

	bad := p.IngestText(context.Background(), entity.ExtractedText{Raw: "Employee ID: 123456782 " + statement[:40]}, "")
	b, err = json.Marshal(bad)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "123456782")
	assert.NotContains(t, string(b), "Annual Tax Statement")
	got = nil
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, false, got["success"])
	errObj := got["error"].(map[string]any)
	assert.Equal(t, "normalize", errObj["stage"])
	assert.Equal(t, ParserVersion, errObj["parserVersion"])
}

func TestComposeVersion(t *testing.T) {
	parts := Components()
	base := ComposeVersion(parts)
	assert.Equal(t, ParserVersion, base)
	assert.Contains(t, base, "pipeline:"+Version)
	assert.Contains(t, base, "|fields:")

	for i := range parts {
		bumped := append([]ComponentVersion(nil), parts...)
		bumped[i].Version += ".1"
		assert.NotEqual(t, base, ComposeVersion(bumped), "bumping %s must change the version", parts[i].Name)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.OCR.DPI = 300
	cfg.Quality.MinWords = 5
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.Ingest.MaxFileSize, opts.MaxFileSize)
	assert.Equal(t, cfg.Ingest.EnableOCRFallback, opts.EnableOCRFallback)
	assert.Equal(t, 300, opts.OCR.DPI)
	assert.Equal(t, 5, opts.OCR.Quality.MinWords)
	assert.Empty(t, opts.Password)
}
