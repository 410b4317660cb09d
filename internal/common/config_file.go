package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape. Pointers mark keys that were present.
type fileConfig struct {
	Ingest struct {
		MaxFileSizeMB      *int64  `toml:"max_file_size_mb" yaml:"max_file_size_mb"`
		TextTimeout        *string `toml:"text_timeout" yaml:"text_timeout"`
		ImageOnlyThreshold *int    `toml:"image_only_threshold" yaml:"image_only_threshold"`
		EnableOCRFallback  *bool   `toml:"enable_ocr_fallback" yaml:"enable_ocr_fallback"`
		Pdftotext          *string `toml:"pdftotext" yaml:"pdftotext"`
		Workers            *int    `toml:"workers" yaml:"workers"`
		QueueSize          *int    `toml:"queue_size" yaml:"queue_size"`
		ProcessTimeout     *string `toml:"process_timeout" yaml:"process_timeout"`
	} `toml:"ingest" yaml:"ingest"`
	OCR struct {
		Engine      *string  `toml:"engine" yaml:"engine"`
		Languages   []string `toml:"languages" yaml:"languages"`
		DPI         *int     `toml:"dpi" yaml:"dpi"`
		Timeout     *string  `toml:"timeout" yaml:"timeout"`
		MaxPages    *int     `toml:"max_pages" yaml:"max_pages"`
		Pdftoppm    *string  `toml:"pdftoppm" yaml:"pdftoppm"`
		Tesseract   *string  `toml:"tesseract" yaml:"tesseract"`
		TessdataDir *string  `toml:"tessdata_dir" yaml:"tessdata_dir"`
		TempDir     *string  `toml:"temp_dir" yaml:"temp_dir"`
	} `toml:"ocr" yaml:"ocr"`
	Quality struct {
		Disabled           *bool    `toml:"disabled" yaml:"disabled"`
		CriticalMean       *float64 `toml:"critical_mean" yaml:"critical_mean"`
		WarningMean        *float64 `toml:"warning_mean" yaml:"warning_mean"`
		LowConfidenceRatio *float64 `toml:"low_confidence_ratio" yaml:"low_confidence_ratio"`
		MinWords           *int     `toml:"min_words" yaml:"min_words"`
	} `toml:"quality" yaml:"quality"`
	Fields struct {
		AmbiguityConfidence *float64 `toml:"ambiguity_confidence" yaml:"ambiguity_confidence"`
		AmbiguityRatio      *float64 `toml:"ambiguity_ratio" yaml:"ambiguity_ratio"`
	} `toml:"fields" yaml:"fields"`
	Database struct {
		DSN      *string `toml:"dsn" yaml:"dsn"`
		MaxConns *int32  `toml:"max_conns" yaml:"max_conns"`
		MinConns *int32  `toml:"min_conns" yaml:"min_conns"`
	} `toml:"database" yaml:"database"`
	Server struct {
		GRPCAddr  *string `toml:"grpc_addr" yaml:"grpc_addr"`
		AdminAddr *string `toml:"admin_addr" yaml:"admin_addr"`
	} `toml:"server" yaml:"server"`
	Watch struct {
		Roots       []string `toml:"roots" yaml:"roots"`
		Debounce    *string  `toml:"debounce" yaml:"debounce"`
		InitialScan *bool    `toml:"initial_scan" yaml:"initial_scan"`
	} `toml:"watch" yaml:"watch"`
	LogLevel *string `toml:"log_level" yaml:"log_level"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return NewAppError("CONFIG_ERROR", "failed to load "+p, err)
		}
	}
	return nil
}

// Load builds the configuration: environment first, then the optional config
// file (TOML or YAML by extension) overlaid on top.
func Load(path string) (*Config, error) {
	cfg := LoadConfig()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.ApplyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFile overlays the keys present in the file onto c.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "failed to read config file", err)
	}
	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported config file extension %q", filepath.Ext(path)), ErrInvalidInput)
	}
	if err != nil {
		return NewAppError("CONFIG_ERROR", "failed to parse config file", err)
	}
	return c.overlay(&fc)
}

func (c *Config) overlay(fc *fileConfig) error {
	var errs []string
	dur := func(dst *time.Duration, key string, v *string) {
		if v == nil {
			return
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = d
	}

	in := fc.Ingest
	if in.MaxFileSizeMB != nil {
		c.Ingest.MaxFileSize = *in.MaxFileSizeMB << 20
	}
	dur(&c.Ingest.TextTimeout, "ingest.text_timeout", in.TextTimeout)
	setIf(&c.Ingest.ImageOnlyThreshold, in.ImageOnlyThreshold)
	setIf(&c.Ingest.EnableOCRFallback, in.EnableOCRFallback)
	setIf(&c.Ingest.Pdftotext, in.Pdftotext)
	setIf(&c.Ingest.Workers, in.Workers)
	setIf(&c.Ingest.QueueSize, in.QueueSize)
	dur(&c.Ingest.ProcessTimeout, "ingest.process_timeout", in.ProcessTimeout)

	o := fc.OCR
	setIf(&c.OCR.Engine, o.Engine)
	if len(o.Languages) > 0 {
		c.OCR.Languages = o.Languages
	}
	setIf(&c.OCR.DPI, o.DPI)
	dur(&c.OCR.Timeout, "ocr.timeout", o.Timeout)
	setIf(&c.OCR.MaxPages, o.MaxPages)
	setIf(&c.OCR.Pdftoppm, o.Pdftoppm)
	setIf(&c.OCR.Tesseract, o.Tesseract)
	setIf(&c.OCR.TessdataDir, o.TessdataDir)
	setIf(&c.OCR.TempDir, o.TempDir)

	q := fc.Quality
	setIf(&c.Quality.Disabled, q.Disabled)
	setIf(&c.Quality.CriticalMean, q.CriticalMean)
	setIf(&c.Quality.WarningMean, q.WarningMean)
	setIf(&c.Quality.LowConfidenceRatio, q.LowConfidenceRatio)
	setIf(&c.Quality.MinWords, q.MinWords)

	setIf(&c.Fields.AmbiguityConfidence, fc.Fields.AmbiguityConfidence)
	setIf(&c.Fields.AmbiguityRatio, fc.Fields.AmbiguityRatio)

	setIf(&c.Database.DSN, fc.Database.DSN)
	setIf(&c.Database.MaxConns, fc.Database.MaxConns)
	setIf(&c.Database.MinConns, fc.Database.MinConns)

	setIf(&c.Server.GRPCAddr, fc.Server.GRPCAddr)
	setIf(&c.Server.AdminAddr, fc.Server.AdminAddr)

	if len(fc.Watch.Roots) > 0 {
		c.Watch.Roots = fc.Watch.Roots
	}
	dur(&c.Watch.Debounce, "watch.debounce", fc.Watch.Debounce)
	setIf(&c.Watch.InitialScan, fc.Watch.InitialScan)
	setIf(&c.LogLevel, fc.LogLevel)

	if len(errs) > 0 {
		return NewAppError("CONFIG_ERROR", strings.Join(errs, "; "), ErrInvalidInput)
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
