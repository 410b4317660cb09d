// Package security screens a PDF before any parser touches it: size limits,
// header check and a streaming scan for active-content markers.
package security

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

// Version of the screening rules. Bump on any marker or limit change.
const Version = "1.0.0"

const (
	// DefaultMaxSize is the largest file accepted unless overridden.
	DefaultMaxSize int64 = 50 << 20

	headerWindow = 1024
	chunkSize    = 64 << 10
)

var pdfHeader = []byte("%PDF-")

// Marker is a byte pattern that indicates active content.
type Marker struct {
	Pattern string
	Label   string
}

// Markers are scanned in this order and reported in this order.
var Markers = []Marker{
	{Pattern: "/JS", Label: "JavaScript reference"},
	{Pattern: "/JavaScript", Label: "JavaScript action"},
	{Pattern: "/Launch", Label: "Launch action (command execution)"},
	{Pattern: "/EmbeddedFile", Label: "Embedded file"},
	{Pattern: "/RichMedia", Label: "Rich media (Flash/video)"},
	{Pattern: "/XFA", Label: "XFA form (dynamic scripting)"},
	{Pattern: "/OpenAction", Label: "Auto-open action"},
	{Pattern: "/AA", Label: "Additional auto-actions"},
}

var overlap = longestMarker(Markers)

func longestMarker(ms []Marker) int {
	n := 0
	for _, m := range ms {
		n = max(n, len(m.Pattern))
	}
	return n
}

// Screener validates files on disk. The zero value is not usable; use NewScreener.
type Screener struct {
	maxSize int64
	logger  *slog.Logger
}

// NewScreener returns a screener enforcing maxSize (DefaultMaxSize when <= 0).
func NewScreener(maxSize int64, logger *slog.Logger) *Screener {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Screener{maxSize: maxSize, logger: logger}
}

// Screen checks path and returns nil or an extract-stage *common.IngestionFailure.
// maxSize overrides the screener default when positive. Nothing is parsed.
func (s *Screener) Screen(ctx context.Context, path string, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = s.maxSize
	}

	st, err := os.Stat(path)
	if err != nil {
		return common.NewFailure(constants.CodeInvalidFormat, "cannot access file for security validation", err)
	}
	if !st.Mode().IsRegular() {
		return common.NewFailure(constants.CodeInvalidFormat, "path is not a regular file", nil)
	}
	if st.Size() > maxSize {
		return common.NewFailuref(constants.CodeTooLarge, nil,
			"file size (%s) exceeds maximum allowed (%s)", formatMB(st.Size()), formatMB(maxSize))
	}
	if st.Size() == 0 {
		return common.NewFailure(constants.CodeInvalidFormat, "file is empty", nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return common.NewFailure(constants.CodeInvalidFormat, "cannot open file for security validation", err)
	}
	defer f.Close()

	if err := checkHeader(f); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return common.NewFailure(constants.CodeInvalidFormat, "cannot rewind file", err)
	}

	threats, err := Scan(ctx, f)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return common.NewFailure(constants.CodeExtractionFailed, "security scan interrupted", err)
		}
		return common.NewFailure(constants.CodeInvalidFormat, "cannot read file for security validation", err)
	}
	if len(threats) > 0 {
		labels := make([]string, len(threats))
		for i, t := range threats {
			labels[i] = t.Label
		}
		s.logger.Warn("active content detected", "threats", labels)
		return common.NewFailure(constants.CodeSecurityRisk,
			"PDF contains potentially dangerous content: "+strings.Join(labels, ", "), nil).
			WithThreats(labels...)
	}
	return nil
}

// checkHeader accepts %PDF- anywhere in the first kilobyte; some producers
// prepend junk before the header.
func checkHeader(r io.Reader) error {
	buf := make([]byte, headerWindow)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return common.NewFailure(constants.CodeInvalidFormat, "cannot read file header", err)
	}
	if !HasSignature(buf[:n]) {
		return common.NewFailure(constants.CodeInvalidFormat, "file does not have a valid PDF header", nil)
	}
	return nil
}

// HasSignature reports whether %PDF- appears in the first kilobyte of b.
func HasSignature(b []byte) bool {
	if len(b) > headerWindow {
		b = b[:headerWindow]
	}
	return bytes.Contains(b, pdfHeader)
}

// ScanBytes is Scan over an in-memory document.
func ScanBytes(b []byte) []Marker {
	threats, _ := Scan(context.Background(), bytes.NewReader(b))
	return threats
}

// Scan streams r in fixed chunks, carrying a tail between chunks so markers
// split across a boundary are still found. Memory stays bounded by the chunk size.
func Scan(ctx context.Context, r io.Reader) ([]Marker, error) {
	found := make(map[string]bool, len(Markers))
	window := make([]byte, 0, chunkSize+overlap)
	chunk := make([]byte, chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			window = append(window, chunk[:n]...)
			for _, m := range Markers {
				if !found[m.Pattern] && bytes.Contains(window, []byte(m.Pattern)) {
					found[m.Pattern] = true
				}
			}
			if len(window) > overlap {
				window = append(window[:0], window[len(window)-overlap:]...)
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	var threats []Marker
	for _, m := range Markers {
		if found[m.Pattern] {
			threats = append(threats, m)
		}
	}
	return threats, nil
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
}
