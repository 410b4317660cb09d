//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// GosseractAvailable reports whether the in-process engine was compiled in.
const GosseractAvailable = true

// Gosseract recognizes pages in-process through libtesseract.
type Gosseract struct {
	tessdataDir string
}

// NewGosseract returns the in-process recognizer. tessdataDir may be empty.
func NewGosseract(tessdataDir string) (PageRecognizer, error) {
	return &Gosseract{tessdataDir: tessdataDir}, nil
}

// Recognize runs libtesseract on imagePath. The cgo call cannot be interrupted,
// so ctx and the deadline are checked before and after it.
func (g *Gosseract) Recognize(ctx context.Context, imagePath string, languages []string, timeout time.Duration) (PageResult, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := cctx.Err(); err != nil {
		return PageResult{}, err
	}

	c := gosseract.NewClient()
	defer c.Close()

	if g.tessdataDir != "" {
		if err := c.SetTessdataPrefix(g.tessdataDir); err != nil {
			return PageResult{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(languages...); err != nil {
		return PageResult{}, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return PageResult{}, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImage(imagePath); err != nil {
		return PageResult{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return PageResult{}, fmt.Errorf("recognize text: %w", err)
	}
	if err := cctx.Err(); err != nil {
		return PageResult{}, err
	}

	var confs []float64
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		for _, b := range boxes {
			if b.Word == "" || b.Confidence < 0 {
				continue
			}
			confs = append(confs, b.Confidence)
		}
	}
	return PageResult{Text: text, Confidence: FromWordConfidences(confs)}, nil
}
