// Package ocr recovers text from scanned PDFs: pdftoppm renders pages,
// tesseract recognizes them, and a confidence gate rejects unreadable scans.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
	"github.com/joseph-ayodele/form106-ingest/internal/utils"
)

// Version of the OCR extractor, including the quality-gate rules.
const Version = "1.2.0"

// PageBreak separates pages in combined OCR text.
const PageBreak = "\n\n--- PAGE BREAK ---\n\n"

// Defaults.
const (
	DefaultDPI     = 600
	DefaultTimeout = 60 * time.Second
	// rasterShare of the total budget goes to pdftoppm, the rest to recognition.
	rasterShare = 0.4
)

// DefaultLanguages are the tesseract languages used when none are requested.
var DefaultLanguages = []string{"heb", "eng"}

// Options tune one OCR run.
type Options struct {
	Languages []string
	DPI       int
	Timeout   time.Duration
	MaxPages  int // 0 = no limit
	Quality   QualityGate
}

func (o Options) withDefaults() Options {
	if len(o.Languages) == 0 {
		o.Languages = DefaultLanguages
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	o.Quality = o.Quality.withDefaults()
	return o
}

// Result is the outcome of a successful OCR run.
type Result struct {
	Text       string
	Pages      int
	Confidence Confidence
	Warnings   []string
	Duration   time.Duration
}

// Config wires an Extractor.
type Config struct {
	// TempDir hosts the per-run scratch directory; empty means os.TempDir.
	TempDir string
	// Recognizer overrides the per-page engine; nil means the tesseract CLI.
	Recognizer PageRecognizer
}

type Extractor struct {
	cfg        Config
	runner     toolexec.Runner
	tools      *toolexec.ToolCache
	recognizer PageRecognizer
	logger     *slog.Logger
}

func NewExtractor(cfg Config, runner toolexec.Runner, tools *toolexec.ToolCache, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	rec := cfg.Recognizer
	if rec == nil {
		rec = &TesseractCLI{runner: runner, tools: tools}
	}
	return &Extractor{cfg: cfg, runner: runner, tools: tools, recognizer: rec, logger: logger}
}

// Available reports whether both pdftoppm and the recognizer's binaries can be found.
func (e *Extractor) Available(ctx context.Context) bool {
	if _, err := e.tools.Resolve(ctx, toolexec.ToolPdftoppm); err != nil {
		return false
	}
	if _, ok := e.recognizer.(*TesseractCLI); ok {
		if _, err := e.tools.Resolve(ctx, toolexec.ToolTesseract); err != nil {
			return false
		}
	}
	return true
}

// Extract renders path to images, recognizes every page and applies the quality gate.
// Scratch files are removed on every exit path.
func (e *Extractor) Extract(ctx context.Context, path string, opts Options) (Result, error) {
	start := time.Now()
	opts = opts.withDefaults()

	if err := e.preflight(ctx, opts); err != nil {
		return Result{}, err
	}

	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return Result{}, common.NewFailure(constants.CodeOCRExtractionFailed, "input is not a readable file", err)
	}

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "form106-ocr-*")
	if err != nil {
		return Result{}, common.NewFailure(constants.CodeOCRExtractionFailed, "cannot create scratch directory", err)
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove ocr scratch directory", "error", err)
		}
	}(tmpDir)

	rasterBudget := time.Duration(float64(opts.Timeout) * rasterShare)
	ocrBudget := opts.Timeout - rasterBudget

	pages, err := e.rasterize(ctx, path, tmpDir, opts.DPI, rasterBudget)
	if err != nil {
		return Result{}, err
	}
	if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
		e.logger.Warn("page limit reached, ignoring trailing pages", "pages", len(pages), "max_pages", opts.MaxPages)
		pages = pages[:opts.MaxPages]
	}

	perPage := ocrBudget / time.Duration(len(pages))
	texts := make([]string, 0, len(pages))
	confs := make([]Confidence, 0, len(pages))
	for i, img := range pages {
		if err := ctx.Err(); err != nil {
			return Result{}, common.NewFailure(constants.CodeOCRExtractionFailed, "OCR canceled", err)
		}
		page, err := e.recognizer.Recognize(ctx, img, opts.Languages, perPage)
		if err != nil {
			return Result{}, pageFailure(i+1, perPage, err)
		}
		texts = append(texts, page.Text)
		confs = append(confs, page.Confidence)
		e.logger.Debug("page recognized", "page", i+1, "words", page.Confidence.WordCount, "mean_confidence", page.Confidence.Mean)
	}

	if strings.TrimSpace(strings.Join(texts, "")) == "" {
		return Result{}, common.NewFailure(constants.CodeOCRExtractionFailed, "OCR produced no text", nil)
	}
	text := utils.NormalizeText(strings.Join(texts, PageBreak))

	conf := Aggregate(confs)
	warnings, err := opts.Quality.Evaluate(conf)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Text:       text,
		Pages:      len(pages),
		Confidence: conf,
		Warnings:   warnings,
		Duration:   time.Since(start),
	}
	e.logger.Info("ocr completed",
		"pages", res.Pages,
		"words", conf.WordCount,
		"mean_confidence", conf.Mean,
		"low_confidence_ratio", conf.LowConfidenceRatio,
		"warnings", len(warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) preflight(ctx context.Context, opts Options) error {
	if err := ctx.Err(); err != nil {
		return common.NewFailure(constants.CodeOCRExtractionFailed, "OCR canceled", err)
	}
	if _, ok := e.recognizer.(*TesseractCLI); ok {
		if _, err := e.tools.Resolve(ctx, toolexec.ToolTesseract); err != nil {
			return common.NewFailure(constants.CodeOCRToolMissing, "tesseract is not installed", err)
		}
		missing, err := e.tools.MissingLanguages(ctx, opts.Languages)
		if err != nil {
			return common.NewFailure(constants.CodeOCRToolMissing, "tesseract is not usable", err)
		}
		if len(missing) > 0 {
			return common.NewFailuref(constants.CodeOCRLanguageMissing, nil,
				"tesseract language data not installed: %s", strings.Join(missing, ", "))
		}
	} else if missing := e.tools.MissingLanguagesOnDisk(opts.Languages); len(missing) > 0 {
		return common.NewFailuref(constants.CodeOCRLanguageMissing, nil,
			"tesseract language data not found in %q: %s", e.tools.TessdataDir(), strings.Join(missing, ", "))
	}
	if _, err := e.tools.Resolve(ctx, toolexec.ToolPdftoppm); err != nil {
		return common.NewFailure(constants.CodeOCRToolMissing, "pdftoppm is not installed (install poppler-utils)", err)
	}
	return nil
}

func pageFailure(page int, budget time.Duration, err error) error {
	if f, ok := common.AsFailure(err); ok {
		return f
	}
	switch {
	case toolexec.IsTimeout(err):
		return common.NewFailuref(constants.CodeOCRExtractionTimeout, err,
			"OCR of page %d did not finish within %s", page, budget.Round(time.Millisecond))
	case toolexec.IsNotFound(err):
		return common.NewFailure(constants.CodeOCRToolMissing, "tesseract could not be started", err)
	case errors.Is(err, context.Canceled):
		return common.NewFailure(constants.CodeOCRExtractionFailed, "OCR canceled", err)
	}
	return common.NewFailure(constants.CodeOCRExtractionFailed, fmt.Sprintf("OCR of page %d failed", page), err)
}
