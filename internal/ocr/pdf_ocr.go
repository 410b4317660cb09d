package ocr

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
)

// rasterize renders every page of path to a grayscale PNG inside dir and
// returns the images in page order.
func (e *Extractor) rasterize(ctx context.Context, path, dir string, dpi int, budget time.Duration) ([]string, error) {
	bin, err := e.tools.Resolve(ctx, toolexec.ToolPdftoppm)
	if err != nil {
		return nil, common.NewFailure(constants.CodeOCRToolMissing, "pdftoppm is not installed (install poppler-utils)", err)
	}

	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	prefix := filepath.Join(dir, "page")
	// pdftoppm -png -r 600 -gray <in.pdf> <tmp/page>
	start := time.Now()
	_, _, err = e.runner.Run(cctx, bin, "-png", "-r", strconv.Itoa(dpi), "-gray", path, prefix)
	if err != nil {
		switch {
		case toolexec.IsTimeout(err):
			return nil, common.NewFailuref(constants.CodeOCRExtractionTimeout, err,
				"PDF rasterization did not finish within %s", budget.Round(time.Millisecond))
		case toolexec.IsNotFound(err):
			return nil, common.NewFailure(constants.CodeOCRToolMissing, "pdftoppm could not be started", err)
		case errors.Is(err, context.Canceled):
			return nil, common.NewFailure(constants.CodeOCRExtractionFailed, "OCR canceled", err)
		}
		return nil, common.NewFailure(constants.CodeOCRExtractionFailed, "PDF rasterization failed", err)
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.NewFailure(constants.CodeOCRExtractionFailed, "pdftoppm produced no images", nil)
	}
	e.logger.Debug("pdf rasterized", "pages", len(matches), "dpi", dpi, "duration_ms", time.Since(start).Milliseconds())
	return matches, nil
}
