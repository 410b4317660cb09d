package textlayer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/textlayer"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec/faketools"
)

func newExtractor(r *faketools.Runner, timeout time.Duration) *textlayer.Extractor {
	tools := toolexec.NewToolCache(r, nil, toolexec.WithCandidates(toolexec.ToolPdftotext, "pdftotext"))
	return textlayer.NewExtractor(r, tools, timeout, nil)
}

func TestExtract_NormalizesOutput(t *testing.T) {
	r := faketools.New().Handle("pdftotext", faketools.Stdout("  Employee ID: 123456782   \r\n\fTax Year: 2024\r\n\n"))
	text, err := newExtractor(r, 0).Extract(context.Background(), "/in/doc.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "Employee ID: 123456782\n\nTax Year: 2024", text.Raw)

	calls := r.CallsTo("pdftotext")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "/in/doc.pdf", "-"}, calls[0].Args)
}

func TestExtract_EmptyIsNotAnError(t *testing.T) {
	r := faketools.New().Handle("pdftotext", faketools.Stdout("\f\f"))
	text, err := newExtractor(r, 0).Extract(context.Background(), "/in/scan.pdf", "")
	require.NoError(t, err)
	assert.Empty(t, text.Raw)
}

func TestExtract_PasswordPassedAsArgument(t *testing.T) {
	r := faketools.New().Handle("pdftotext", faketools.Stdout("ok"))
	_, err := newExtractor(r, 0).Extract(context.Background(), "/in/doc.pdf", "s3cret")
	require.NoError(t, err)
	args := r.CallsTo("pdftotext")[0].Args
	assert.Equal(t, []string{"-upw", "s3cret"}, args[5:7])
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		runner   *faketools.Runner
		password string
		timeout  time.Duration
		code     constants.ErrorCode
	}{
		{
			name:   "tool missing",
			runner: faketools.New(),
			code:   constants.CodeToolMissing,
		},
		{
			name:   "password required",
			runner: faketools.New().Handle("pdftotext", faketools.Fail("Command Line Error: Incorrect password")),
			code:   constants.CodePasswordRequired,
		},
		{
			name:     "password invalid",
			runner:   faketools.New().Handle("pdftotext", faketools.Fail("Command Line Error: Incorrect password")),
			password: "wrong-pass",
			code:     constants.CodePasswordInvalid,
		},
		{
			name:    "timeout",
			runner:  faketools.New().Handle("pdftotext", faketools.Hang()),
			timeout: 20 * time.Millisecond,
			code:    constants.CodeExtractionTimeout,
		},
		{
			name:   "generic failure",
			runner: faketools.New().Handle("pdftotext", faketools.Fail("Syntax Error: Couldn't read xref table")),
			code:   constants.CodeExtractionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newExtractor(tt.runner, tt.timeout).Extract(context.Background(), "/in/doc.pdf", tt.password)
			require.Error(t, err)
			f, ok := common.AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, constants.StageExtract, f.Stage)
			if tt.password != "" {
				assert.NotContains(t, f.Error(), tt.password)
			}
		})
	}
}

func TestIsImageOnly(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		threshold int
		want      bool
	}{
		{name: "empty", text: "", want: true},
		{name: "whitespace", text: "   \n\t  ", want: true},
		{name: "short", text: "Page 1", want: true},
		{name: "exactly fifty meaningful", text: strings.Repeat("a", 50), want: false},
		{name: "forty nine", text: strings.Repeat("a", 49), want: true},
		{name: "mostly whitespace", text: "a" + strings.Repeat(" ", 90) + strings.Repeat("b", 9), threshold: 50, want: true},
		{name: "hebrew", text: strings.Repeat("שנת מס ", 10), want: false},
		{name: "control characters", text: "x" + strings.Repeat("\x01\x02", 40) + "y", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textlayer.IsImageOnly(tt.text, tt.threshold))
		})
	}
}
