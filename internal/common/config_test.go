package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, int64(50<<20), cfg.Ingest.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.Ingest.TextTimeout)
	assert.Equal(t, 50, cfg.Ingest.ImageOnlyThreshold)
	assert.True(t, cfg.Ingest.EnableOCRFallback)
	assert.Equal(t, []string{"heb", "eng"}, cfg.OCR.Languages)
	assert.Equal(t, 600, cfg.OCR.DPI)
	assert.Equal(t, 60*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, 40.0, cfg.Quality.CriticalMean)
	assert.Equal(t, 60.0, cfg.Quality.WarningMean)
	assert.Equal(t, 0.3, cfg.Quality.LowConfidenceRatio)
	assert.Equal(t, 10, cfg.Quality.MinWords)
	assert.Equal(t, 0.7, cfg.Fields.AmbiguityConfidence)
	assert.Equal(t, 0.8, cfg.Fields.AmbiguityRatio)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("OCR_LANGUAGES", "heb+eng,ara")
	t.Setenv("OCR_DPI", "300")
	t.Setenv("INGEST_ENABLE_OCR_FALLBACK", "false")
	t.Setenv("INGEST_MAX_FILE_SIZE_MB", "10")

	cfg := LoadConfig()
	assert.Equal(t, []string{"heb", "eng", "ara"}, cfg.OCR.Languages)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.False(t, cfg.Ingest.EnableOCRFallback)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxFileSize)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero size", func(c *Config) { c.Ingest.MaxFileSize = 0 }},
		{"no languages", func(c *Config) { c.OCR.Languages = nil }},
		{"dpi too low", func(c *Config) { c.OCR.DPI = 10 }},
		{"critical above warning", func(c *Config) { c.Quality.CriticalMean = 70 }},
		{"ratio above one", func(c *Config) { c.Quality.LowConfidenceRatio = 1.5 }},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "magic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestApplyFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form106.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[ingest]
max_file_size_mb = 5
text_timeout = "10s"

[ocr]
languages = ["eng"]
dpi = 300

[quality]
disabled = true

[watch]
roots = ["/in"]
debounce = "500ms"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(5<<20), cfg.Ingest.MaxFileSize)
	assert.Equal(t, 10*time.Second, cfg.Ingest.TextTimeout)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.True(t, cfg.Quality.Disabled)
	assert.Equal(t, []string{"/in"}, cfg.Watch.Roots)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	// untouched keys keep their env defaults
	assert.Equal(t, 60*time.Second, cfg.OCR.Timeout)
}

func TestApplyFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form106.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ocr:
  engine: gosseract
  timeout: 2m
fields:
  ambiguity_ratio: 0.9
database:
  dsn: file:test.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gosseract", cfg.OCR.Engine)
	assert.Equal(t, 2*time.Minute, cfg.OCR.Timeout)
	assert.Equal(t, 0.9, cfg.Fields.AmbiguityRatio)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
}

func TestApplyFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{}`), 0o600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badDur := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(badDur, []byte("ocr:\n  timeout: soon\n"), 0o600))
	_, err = Load(badDur)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FORM106_TEST_KEY=from-file\n"), 0o600))
	t.Setenv("FORM106_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("FORM106_TEST_KEY"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "from-file", os.Getenv("FORM106_TEST_KEY"))
}
