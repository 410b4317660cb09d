package security

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

const cleanPDF = "%PDF-1.7\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func requireCode(t *testing.T, err error, code constants.ErrorCode) *common.IngestionFailure {
	t.Helper()
	require.Error(t, err)
	f, ok := common.AsFailure(err)
	require.True(t, ok, "expected ingestion failure, got %v", err)
	assert.Equal(t, code, f.Code)
	assert.Equal(t, constants.StageExtract, f.Stage)
	return f
}

func TestScreen_Clean(t *testing.T) {
	s := NewScreener(0, nil)
	assert.NoError(t, s.Screen(context.Background(), writeFile(t, []byte(cleanPDF)), 0))
}

func TestScreen_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		maxSize int64
		code    constants.ErrorCode
	}{
		{name: "empty", content: []byte{}, code: constants.CodeInvalidFormat},
		{name: "not a pdf", content: []byte("hello world"), code: constants.CodeInvalidFormat},
		{name: "header past first kilobyte", content: append(bytes.Repeat([]byte{' '}, 1100), []byte(cleanPDF)...), code: constants.CodeInvalidFormat},
		{name: "over limit", content: []byte(cleanPDF), maxSize: 10, code: constants.CodeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewScreener(0, nil).Screen(context.Background(), writeFile(t, tt.content), tt.maxSize)
			requireCode(t, err, tt.code)
		})
	}
}

func TestScreen_OverLimitCheckedBeforeContent(t *testing.T) {
	// not a PDF at all, but size is checked first
	err := NewScreener(4, nil).Screen(context.Background(), writeFile(t, []byte("garbage!")), 0)
	f := requireCode(t, err, constants.CodeTooLarge)
	assert.Contains(t, f.Message, "exceeds maximum allowed")
}

func TestScreen_HeaderWithLeadingJunk(t *testing.T) {
	content := append([]byte("\x00\x01junk\n"), []byte(cleanPDF)...)
	assert.NoError(t, NewScreener(0, nil).Screen(context.Background(), writeFile(t, content), 0))
}

func TestScreen_NotAFile(t *testing.T) {
	s := NewScreener(0, nil)
	requireCode(t, s.Screen(context.Background(), t.TempDir(), 0), constants.CodeInvalidFormat)
	requireCode(t, s.Screen(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 0), constants.CodeInvalidFormat)
}

func TestScreen_EachMarker(t *testing.T) {
	for _, m := range Markers {
		t.Run(m.Pattern, func(t *testing.T) {
			content := strings.Replace(cleanPDF, "/Type /Catalog", "/Type /Catalog "+m.Pattern+" 5 0 R", 1)
			err := NewScreener(0, nil).Screen(context.Background(), writeFile(t, []byte(content)), 0)
			f := requireCode(t, err, constants.CodeSecurityRisk)
			assert.Contains(t, f.Threats, m.Label)
			assert.Contains(t, f.Message, m.Label)
			assert.NotContains(t, f.Message, m.Pattern)
		})
	}
}

func TestScreen_DeduplicatesAndOrders(t *testing.T) {
	content := cleanPDF + "/OpenAction /Launch /Launch /OpenAction /Launch\n"
	err := NewScreener(0, nil).Screen(context.Background(), writeFile(t, []byte(content)), 0)
	f := requireCode(t, err, constants.CodeSecurityRisk)
	assert.Equal(t, []string{"Launch action (command execution)", "Auto-open action"}, f.Threats)
}

func TestScan_MarkerAcrossChunkBoundary(t *testing.T) {
	marker := "/EmbeddedFile"
	for split := 1; split < len(marker); split++ {
		buf := bytes.Repeat([]byte{'x'}, chunkSize-split)
		buf = append(buf, []byte(marker)...)
		buf = append(buf, bytes.Repeat([]byte{'y'}, 100)...)

		threats, err := Scan(context.Background(), bytes.NewReader(buf))
		require.NoError(t, err)
		require.Len(t, threats, 1, "split at %d", split)
		assert.Equal(t, marker, threats[0].Pattern)
	}
}

func TestScan_LargeCleanInput(t *testing.T) {
	buf := bytes.Repeat([]byte("/Type /Page "), 3*chunkSize/12)
	threats, err := Scan(context.Background(), bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Empty(t, threats)
}

func TestScan_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, bytes.NewReader([]byte(cleanPDF)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOverlapCoversLongestMarker(t *testing.T) {
	assert.Equal(t, len("/EmbeddedFile"), overlap)
}

func TestHasSignature(t *testing.T) {
	assert.True(t, HasSignature([]byte(cleanPDF)))
	assert.True(t, HasSignature(append(bytes.Repeat([]byte{' '}, 1000), "%PDF-1.4"...)))
	assert.False(t, HasSignature(append(bytes.Repeat([]byte{' '}, 1024), "%PDF-1.4"...)))
	assert.False(t, HasSignature([]byte("PK\x03\x04")))
}

func TestScanBytes(t *testing.T) {
	doc := []byte(cleanPDF + "<< /AA << /O 3 0 R >> /JS (x) >>")
	var labels []string
	for _, m := range ScanBytes(doc) {
		labels = append(labels, m.Pattern)
	}
	assert.Equal(t, []string{"/JS", "/AA"}, labels)
	assert.Empty(t, ScanBytes([]byte(cleanPDF)))
}
