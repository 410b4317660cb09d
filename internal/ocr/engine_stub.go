//go:build !gosseract

package ocr

import "errors"

// GosseractAvailable reports whether the in-process engine was compiled in.
const GosseractAvailable = false

// ErrGosseractNotBuilt is returned when the gosseract engine is requested
// from a binary built without -tags gosseract.
var ErrGosseractNotBuilt = errors.New("gosseract engine not compiled in; rebuild with -tags gosseract")

// NewGosseract always fails in builds without the gosseract tag.
func NewGosseract(string) (PageRecognizer, error) {
	return nil, ErrGosseractNotBuilt
}
