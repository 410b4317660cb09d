// Package textlayer pulls the embedded text layer out of a PDF with pdftotext.
package textlayer

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/entity"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
	"github.com/joseph-ayodele/form106-ingest/internal/utils"
)

// Version of the text-layer extractor.
const Version = "1.1.0"

// DefaultTimeout bounds a single pdftotext call.
const DefaultTimeout = 30 * time.Second

var passwordSignature = regexp.MustCompile(`(?i)incorrect password|password required|wrong password|encrypted`)

// Extractor runs pdftotext through a toolexec.Runner.
type Extractor struct {
	runner  toolexec.Runner
	tools   *toolexec.ToolCache
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor wires an extractor. timeout <= 0 selects DefaultTimeout.
func NewExtractor(runner toolexec.Runner, tools *toolexec.ToolCache, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{runner: runner, tools: tools, timeout: timeout, logger: logger}
}

// Extract returns the normalized text layer of path. An empty result is not an
// error; callers decide what image-only means. password may be empty.
func (e *Extractor) Extract(ctx context.Context, path, password string) (entity.ExtractedText, error) {
	bin, err := e.tools.Resolve(ctx, toolexec.ToolPdftotext)
	if err != nil {
		return entity.ExtractedText{}, common.NewFailure(constants.CodeToolMissing,
			"pdftotext is not installed (install poppler-utils)", err)
	}

	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, "-")

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, errb, err := e.runner.Run(cctx, bin, args...)
	if err != nil {
		return entity.ExtractedText{}, e.classify(err, string(errb), password)
	}

	raw := strings.ToValidUTF8(string(out), "")
	// form feeds separate pages
	text := utils.NormalizeText(strings.ReplaceAll(raw, "\f", "\n"))
	e.logger.Debug("text layer extracted",
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len([]rune(text)),
		"pages", 1+strings.Count(raw, "\f"),
	)
	return entity.ExtractedText{Raw: text}, nil
}

func (e *Extractor) classify(err error, stderr, password string) error {
	cause := utils.ScrubError(err, password)
	switch {
	case toolexec.IsTimeout(err):
		return common.NewFailuref(constants.CodeExtractionTimeout, cause,
			"pdftotext did not finish within %s", e.timeout)
	case toolexec.IsNotFound(err):
		return common.NewFailure(constants.CodeToolMissing, "pdftotext could not be started", cause)
	case errors.Is(err, context.Canceled):
		return common.NewFailure(constants.CodeExtractionFailed, "text extraction canceled", cause)
	case passwordSignature.MatchString(stderr):
		if password == "" {
			return common.NewFailure(constants.CodePasswordRequired, "PDF is password protected; a password is required", nil)
		}
		return common.NewFailure(constants.CodePasswordInvalid, "the supplied PDF password is incorrect", nil)
	}
	return common.NewFailure(constants.CodeExtractionFailed, "pdftotext failed to extract text", cause)
}
