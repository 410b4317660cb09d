package core

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/fields"
	"github.com/joseph-ayodele/form106-ingest/internal/ocr"
	"github.com/joseph-ayodele/form106-ingest/internal/security"
	"github.com/joseph-ayodele/form106-ingest/internal/textlayer"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
	"github.com/joseph-ayodele/form106-ingest/internal/validate"
)

// Engines accepted by OCR_ENGINE.
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

// NewToolCache builds the tool cache described by cfg.
func NewToolCache(cfg *common.Config, runner toolexec.Runner, logger *slog.Logger) *toolexec.ToolCache {
	return toolexec.NewToolCache(runner, logger,
		toolexec.WithOverride(toolexec.ToolPdftotext, cfg.Ingest.Pdftotext),
		toolexec.WithOverride(toolexec.ToolPdftoppm, cfg.OCR.Pdftoppm),
		toolexec.WithOverride(toolexec.ToolTesseract, cfg.OCR.Tesseract),
		toolexec.WithTessdataDir(cfg.OCR.TessdataDir),
	)
}

// NewDefaultPipeline wires every stage from configuration around runner and
// tools. Pass the same ToolCache to anything else that reports tool status.
func NewDefaultPipeline(cfg *common.Config, runner toolexec.Runner, tools *toolexec.ToolCache, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var recognizer ocr.PageRecognizer
	switch strings.ToLower(cfg.OCR.Engine) {
	case "", EngineTesseract:
	case EngineGosseract:
		g, err := ocr.NewGosseract(tools.TessdataDir())
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", "OCR_ENGINE=gosseract is unavailable", err)
		}
		recognizer = g
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR_ENGINE %q", cfg.OCR.Engine), common.ErrInvalidInput)
	}

	stages := Stages{
		Screener: security.NewScreener(cfg.Ingest.MaxFileSize, logger.With("component", "security")),
		Text:     textlayer.NewExtractor(runner, tools, cfg.Ingest.TextTimeout, logger.With("component", "textlayer")),
		OCR: ocr.NewExtractor(ocr.Config{TempDir: cfg.OCR.TempDir, Recognizer: recognizer},
			runner, tools, logger.With("component", "ocr")),
		Normalizer: fields.NewNormalizer(logger.With("component", "fields"),
			fields.FixedLabel{},
			fields.Anchor{
				AmbiguityConfidence: cfg.Fields.AmbiguityConfidence,
				AmbiguityRatio:      cfg.Fields.AmbiguityRatio,
			},
		),
		Validator: validate.NewValidator(logger.With("component", "validate")),
	}
	return NewPipeline(stages, logger.With("component", "pipeline")), nil
}
