package core

import (
	"time"

	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/ocr"
)

// Options tune a single ingestion. Zero values select component defaults;
// OCR fallback is off unless enabled.
type Options struct {
	Password           string
	MaxFileSize        int64
	TextTimeout        time.Duration
	ImageOnlyThreshold int
	EnableOCRFallback  bool
	OCR                ocr.Options
}

// OptionsFromConfig maps loaded configuration onto per-call options.
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		MaxFileSize:        cfg.Ingest.MaxFileSize,
		TextTimeout:        cfg.Ingest.TextTimeout,
		ImageOnlyThreshold: cfg.Ingest.ImageOnlyThreshold,
		EnableOCRFallback:  cfg.Ingest.EnableOCRFallback,
		OCR: ocr.Options{
			Languages: cfg.OCR.Languages,
			DPI:       cfg.OCR.DPI,
			Timeout:   cfg.OCR.Timeout,
			MaxPages:  cfg.OCR.MaxPages,
			Quality: ocr.QualityGate{
				Disabled:           cfg.Quality.Disabled,
				CriticalMean:       cfg.Quality.CriticalMean,
				WarningMean:        cfg.Quality.WarningMean,
				LowConfidenceRatio: cfg.Quality.LowConfidenceRatio,
				MinWords:           cfg.Quality.MinWords,
			},
		},
	}
}
