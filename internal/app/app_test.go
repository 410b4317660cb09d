package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/form106-ingest/constants"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
	"github.com/joseph-ayodele/form106-ingest/internal/core"
	"github.com/joseph-ayodele/form106-ingest/internal/export"
	"github.com/joseph-ayodele/form106-ingest/internal/toolexec/faketools"
)

const digital = `טופס 106
מספר זהות עובד: 123456782
מספר מזהה מעסיק: 987654324
שנת מס: 2024
סה"כ הכנסה ממשכורת: 150,000
מס שנוכה: 25,000
ביטוח לאומי: 8,000
ביטוח בריאות: 4,500`

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.LoadConfig()
	cfg.Ingest.Pdftotext, cfg.OCR.Pdftoppm, cfg.OCR.Tesseract, cfg.OCR.TessdataDir = "", "", "", ""
	cfg.OCR.Engine = core.EngineTesseract
	cfg.OCR.TempDir = t.TempDir()
	cfg.Ingest.Workers = 2
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")
	return cfg
}

func writePDF(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"+body+"\n%%EOF\n"), 0o600))
}

func TestApp_BatchIngestAndExport(t *testing.T) {
	runner := faketools.New().Handle("pdftotext", faketools.Stdout(digital+"\f"))
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), runner, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	dir := t.TempDir()
	writePDF(t, filepath.Join(dir, "a.pdf"), "1 0 obj << /Type /Catalog >> endobj")
	writePDF(t, filepath.Join(dir, "b.pdf"), "<< /OpenAction 5 0 R /S /JavaScript >>")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	results, stats, err := a.Ingestor.IngestDirectory(ctx, dir, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Matched)
	require.Len(t, results, 2)
	a.Drain(ctx)

	docs, err := a.Docs.List(ctx)
	require.NoError(t, err)
	status := map[string]constants.DocumentStatus{}
	for _, d := range docs {
		status[d.FileName] = d.Status
	}
	assert.Equal(t, constants.DocumentStatusProcessed, status["a.pdf"])
	assert.Equal(t, constants.DocumentStatusFailed, status["b.pdf"])

	out, err := a.Exporter.ExportXLSX(ctx)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.pdf", rows[1][0])
	assert.Equal(t, "123456782", rows[1][2])
}

func TestApp_AdminWithoutStorage(t *testing.T) {
	runner := faketools.New().Handle("pdftotext", faketools.Stdout(""))
	a, err := NewPipelineOnly(testConfig(t), runner, nil)
	require.NoError(t, err)

	h := a.Admin()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), a.Pipeline.Version())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pdftotext")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewPipelineOnly_BadEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.Engine = "nope"
	_, err := NewPipelineOnly(cfg, faketools.New(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
