// Package core orchestrates a Form 106 ingestion: screening, text-layer
// extraction with a single OCR fallback, field normalization and validation.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/fields"
	"github.com/joseph-ayodele/form106-ingest/internal/ocr"
	"github.com/joseph-ayodele/form106-ingest/internal/security"
	"github.com/joseph-ayodele/form106-ingest/internal/textlayer"
	"github.com/joseph-ayodele/form106-ingest/internal/validate"
)

type Screener interface {
	Screen(ctx context.Context, path string, maxSize int64) error
}

type TextExtractor interface {
	Extract(ctx context.Context, path, password string) (entity.ExtractedText, error)
}

type OCRExtractor interface {
	Available(ctx context.Context) bool
	Extract(ctx context.Context, path string, opts ocr.Options) (ocr.Result, error)
}

type Normalizer interface {
	Normalize(text entity.ExtractedText) (entity.ExtractedRecord, error)
}

type RecordValidator interface {
	Validate(rec entity.ExtractedRecord) error
}

// Stages wires the pipeline. Screener, Normalizer and Validator default to
// the stock implementations; OCR may be nil, which makes fallback fail with
// OCR_TOOL_MISSING.
type Stages struct {
	Screener   Screener
	Text       TextExtractor
	OCR        OCRExtractor
	Normalizer Normalizer
	Validator  RecordValidator
}

// Pipeline is safe for concurrent use when its stages are.
type Pipeline struct {
	stages  Stages
	version string
	logger  *slog.Logger
}

func NewPipeline(stages Stages, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if stages.Screener == nil {
		stages.Screener = security.NewScreener(0, logger)
	}
	if stages.Normalizer == nil {
		stages.Normalizer = fields.NewNormalizer(logger)
	}
	if stages.Validator == nil {
		stages.Validator = validate.NewValidator(logger)
	}
	return &Pipeline{stages: stages, version: ParserVersion, logger: logger}
}

// Version returns the composite version stamped on results.
func (p *Pipeline) Version() string { return p.version }

type state int

const (
	stateScreen state = iota
	stateText
	stateOCR
	stateNormalize
	stateValidate
	stateDone
)

var stateNames = [...]string{"screen", "text", "ocr", "normalize", "validate", "done"}

func (s state) String() string { return stateNames[s] }

// stage maps a state onto the failure stage that owns it.
func (s state) stage() constants.Stage {
	switch s {
	case stateNormalize:
		return constants.StageNormalize
	case stateValidate, stateDone:
		return constants.StageValidate
	default:
		return constants.StageExtract
	}
}

// run carries one ingestion through the states.
type run struct {
	p    *Pipeline
	path string
	opts Options
	log  *slog.Logger

	text       entity.ExtractedText
	method     constants.ExtractionMethod
	record     entity.ExtractedRecord
	warnings   []string
	confidence *ocr.Confidence
}

// Ingest runs the full pipeline on a PDF at path. It never returns an error:
// every exit path is a Result carrying either a record or a typed failure.
func (p *Pipeline) Ingest(ctx context.Context, path string, opts Options) Result {
	id := uuid.New()
	ctx = common.WithIngestionID(ctx, id.String())
	r := &run{
		p:    p,
		path: path,
		opts: opts,
		log:  common.LoggerFrom(ctx, p.logger).With("file", filepath.Base(path)),
	}
	return r.execute(ctx, id, stateScreen)
}

// IngestText normalizes and validates text that was extracted elsewhere.
func (p *Pipeline) IngestText(ctx context.Context, text entity.ExtractedText, method constants.ExtractionMethod) Result {
	if method == "" {
		method = constants.MethodText
	}
	id := uuid.New()
	ctx = common.WithIngestionID(ctx, id.String())
	r := &run{
		p:      p,
		text:   text,
		method: method,
		log:    common.LoggerFrom(ctx, p.logger),
	}
	return r.execute(ctx, id, stateNormalize)
}

func (r *run) execute(ctx context.Context, id uuid.UUID, from state) (res Result) {
	start := time.Now()
	res = Result{IngestionID: id, ParserVersion: r.p.version}
	st := from

	defer func() {
		if v := recover(); v != nil {
			r.log.Error("pipeline panic", "state", st.String(), "panic", fmt.Sprint(v))
			res = r.failed(res, common.WrapFailure(st.stage(), fmt.Errorf("panic: %v", v)))
		}
		res.Duration = time.Since(start)
	}()

	for st != stateDone {
		next, err := r.step(ctx, st)
		if err != nil {
			return r.failed(res, common.WrapFailure(st.stage(), err))
		}
		st = next
	}

	rec := r.record
	res.Success = true
	res.Record = &rec
	res.Method = r.method
	res.Warnings = r.warnings
	res.Confidence = r.confidence
	r.log.Info("ingestion succeeded",
		"method", r.method,
		"warnings", len(r.warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (r *run) failed(res Result, f *common.IngestionFailure) Result {
	f.Stamp(r.p.version)
	res.Success = false
	res.Failure = f
	res.Method = r.method
	res.Warnings = r.warnings
	res.Confidence = r.confidence
	r.log.Warn("ingestion failed", "stage", f.Stage, "code", f.Code, "method", r.method)
	return res
}

func (r *run) step(ctx context.Context, st state) (state, error) {
	switch st {
	case stateScreen:
		if err := r.p.stages.Screener.Screen(ctx, r.path, r.opts.MaxFileSize); err != nil {
			return st, err
		}
		return stateText, nil

	case stateText:
		return r.extractText(ctx)

	case stateOCR:
		return r.extractOCR(ctx)

	case stateNormalize:
		rec, err := r.p.stages.Normalizer.Normalize(r.text)
		if err != nil {
			if r.method == constants.MethodText && common.IsCode(err, constants.CodeTextGarbled) {
				return r.fallback(err)
			}
			return st, err
		}
		r.record = rec
		return stateValidate, nil

	case stateValidate:
		if err := r.p.stages.Validator.Validate(r.record); err != nil {
			return st, err
		}
		return stateDone, nil
	}
	return st, fmt.Errorf("unknown pipeline state %d", st)
}

func (r *run) extractText(ctx context.Context) (state, error) {
	if r.p.stages.Text == nil {
		return stateText, common.NewFailure(constants.CodeToolMissing, "no text extractor configured", nil)
	}
	if r.opts.TextTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.TextTimeout)
		defer cancel()
	}
	text, err := r.p.stages.Text.Extract(ctx, r.path, r.opts.Password)
	if err != nil {
		return stateText, err
	}
	r.text = text
	r.method = constants.MethodText
	if textlayer.IsImageOnly(text.Raw, r.opts.ImageOnlyThreshold) {
		return r.fallback(common.NewFailure(constants.CodeImageOnly,
			"PDF appears to be image-only (scanned); enable OCR fallback to process", nil))
	}
	return stateNormalize, nil
}

// fallback is the single designed switch from the text layer to OCR.
func (r *run) fallback(trigger error) (state, error) {
	if !r.opts.EnableOCRFallback {
		return stateText, trigger
	}
	code := common.FailureCode(trigger)
	r.log.Info("text layer unusable, falling back to OCR", "code", code)
	r.warnings = append(r.warnings, fmt.Sprintf("text layer unusable (%s); used OCR", code))
	return stateOCR, nil
}

func (r *run) extractOCR(ctx context.Context) (state, error) {
	o := r.p.stages.OCR
	if o == nil || !o.Available(ctx) {
		return stateOCR, common.NewFailure(constants.CodeOCRToolMissing,
			"OCR fallback failed: tesseract or pdftoppm is not installed", nil)
	}
	res, err := o.Extract(ctx, r.path, r.opts.OCR)
	if err != nil {
		return stateOCR, err
	}
	conf := res.Confidence
	r.text = entity.ExtractedText{Raw: res.Text}
	r.method = constants.MethodOCR
	r.confidence = &conf
	r.warnings = append(r.warnings, res.Warnings...)
	r.log.Debug("ocr text acquired",
		"pages", res.Pages,
		"mean_confidence", conf.Mean,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return stateNormalize, nil
}
