package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
)

// PageResult is the recognized text of one page image and its word confidence.
type PageResult struct {
	Text       string
	Confidence Confidence
}

// PageRecognizer turns one page image into text. Implementations must honor
// the timeout and ctx cancellation.
type PageRecognizer interface {
	Recognize(ctx context.Context, imagePath string, languages []string, timeout time.Duration) (PageResult, error)
}

// TesseractCLI recognizes pages with the tesseract binary, producing the text
// and TSV outputs in a single invocation.
type TesseractCLI struct {
	runner toolexec.Runner
	tools  *toolexec.ToolCache
}

// PSM 6 treats the page as a single uniform block, which keeps form rows intact.
const tesseractPSM = "6"

func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string, languages []string, timeout time.Duration) (PageResult, error) {
	bin, err := t.tools.Resolve(ctx, toolexec.ToolTesseract)
	if err != nil {
		return PageResult{}, err
	}

	outBase := strings.TrimSuffix(imagePath, ".png") + "-ocr"
	args := []string{imagePath, outBase}
	args = append(args, t.tools.TessdataArgs()...)
	args = append(args, "-l", strings.Join(languages, "+"), "--psm", tesseractPSM, "txt", "tsv")

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// tesseract <img> <outbase> -l heb+eng --psm 6 txt tsv
	if _, _, err := t.runner.Run(cctx, bin, args...); err != nil {
		return PageResult{}, err
	}

	txt, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return PageResult{}, fmt.Errorf("read tesseract text output: %w", err)
	}

	conf := Confidence{Mean: 0, Min: 0, LowConfidenceRatio: 1, WordCount: 0}
	if tsv, err := os.ReadFile(outBase + ".tsv"); err == nil {
		conf = ParseTSV(string(tsv))
	}
	return PageResult{Text: string(txt), Confidence: conf}, nil
}
