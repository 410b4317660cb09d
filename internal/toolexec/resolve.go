package toolexec

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

// Tool names an external binary the extractors depend on.
type Tool string

const (
	ToolPdftotext Tool = "pdftotext"
	ToolPdftoppm  Tool = "pdftoppm"
	ToolTesseract Tool = "tesseract"
)

// AllTools lists every tool in report order.
var AllTools = []Tool{ToolPdftotext, ToolPdftoppm, ToolTesseract}

var probeArgs = map[Tool][]string{
	ToolPdftotext: {"-v"},
	ToolPdftoppm:  {"-v"},
	ToolTesseract: {"--version"},
}

// DefaultProbeTimeout bounds a single candidate probe.
const DefaultProbeTimeout = 5 * time.Second

// DefaultCandidates returns the probe order per tool for goos.
func DefaultCandidates(goos string) map[Tool][]string {
	if goos == "windows" {
		return map[Tool][]string{
			ToolTesseract: {
				"tesseract",
				`C:\Program Files\Tesseract-OCR\tesseract.exe`,
				`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
			},
			ToolPdftoppm: {
				"pdftoppm",
				`C:\Program Files\poppler\Library\bin\pdftoppm.exe`,
				`C:\poppler\Library\bin\pdftoppm.exe`,
			},
			ToolPdftotext: {
				"pdftotext",
				`C:\Program Files\poppler\Library\bin\pdftotext.exe`,
				`C:\poppler\Library\bin\pdftotext.exe`,
			},
		}
	}
	unix := func(bin string) []string {
		return []string{bin, "/usr/bin/" + bin, "/usr/local/bin/" + bin, "/opt/homebrew/bin/" + bin}
	}
	return map[Tool][]string{
		ToolTesseract: unix("tesseract"),
		ToolPdftoppm:  unix("pdftoppm"),
		ToolPdftotext: unix("pdftotext"),
	}
}

// DefaultTessdataCandidates returns the directories searched for language data.
func DefaultTessdataCandidates() []string {
	var dirs []string
	if p := os.Getenv("TESSDATA_PREFIX"); p != "" {
		dirs = append(dirs, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "tessdata"))
	}
	return append(dirs,
		"/usr/share/tesseract-ocr/4.00/tessdata",
		"/usr/share/tesseract-ocr/5/tessdata",
		"/usr/local/share/tessdata",
		"/opt/homebrew/share/tessdata",
	)
}

// ToolCache discovers tool binaries and installed OCR languages once and
// remembers the answers. Safe for concurrent use; concurrent first lookups
// may probe twice but always settle on the same value.
type ToolCache struct {
	runner             Runner
	logger             *slog.Logger
	probeTimeout       time.Duration
	overrides          map[Tool]string
	candidates         map[Tool][]string
	tessdataDir        string
	tessdataCandidates []string

	mu           sync.Mutex
	resolved     map[Tool]string
	langs        []string
	tessdata     string
	tessdataDone bool
}

// CacheOption configures a ToolCache.
type CacheOption func(*ToolCache)

// WithOverride pins tool to a single configured path.
func WithOverride(tool Tool, path string) CacheOption {
	return func(c *ToolCache) {
		if path != "" {
			c.overrides[tool] = path
		}
	}
}

// WithCandidates replaces the probe list for tool.
func WithCandidates(tool Tool, paths ...string) CacheOption {
	return func(c *ToolCache) { c.candidates[tool] = paths }
}

// WithTessdataDir pins the tessdata directory handed to tesseract.
func WithTessdataDir(dir string) CacheOption {
	return func(c *ToolCache) { c.tessdataDir = dir }
}

// WithTessdataCandidates replaces the tessdata search list.
func WithTessdataCandidates(dirs ...string) CacheOption {
	return func(c *ToolCache) { c.tessdataCandidates = dirs }
}

// WithProbeTimeout bounds each probe call.
func WithProbeTimeout(d time.Duration) CacheOption {
	return func(c *ToolCache) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// NewToolCache builds a cache probing through runner.
func NewToolCache(runner Runner, logger *slog.Logger, opts ...CacheOption) *ToolCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ToolCache{
		runner:             runner,
		logger:             logger,
		probeTimeout:       DefaultProbeTimeout,
		overrides:          map[Tool]string{},
		candidates:         DefaultCandidates(runtime.GOOS),
		tessdataCandidates: DefaultTessdataCandidates(),
		resolved:           map[Tool]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the first working binary path for tool. Only successful
// lookups are cached, so a tool installed later is picked up on the next call.
func (c *ToolCache) Resolve(ctx context.Context, tool Tool) (string, error) {
	c.mu.Lock()
	if p, ok := c.resolved[tool]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	candidates := c.candidates[tool]
	if p, ok := c.overrides[tool]; ok {
		candidates = []string{p}
	}
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if c.probe(ctx, tool, cand) {
			c.mu.Lock()
			if existing, ok := c.resolved[tool]; ok {
				cand = existing
			} else {
				c.resolved[tool] = cand
			}
			c.mu.Unlock()
			c.logger.Debug("tool resolved", "tool", tool, "path", cand)
			return cand, nil
		}
	}
	return "", &MissingError{Tool: tool}
}

// probe treats a binary that started as present, even if the version flag
// exits non-zero; some poppler builds return 99 for -v.
func (c *ToolCache) probe(ctx context.Context, tool Tool, path string) bool {
	pctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	_, _, err := c.runner.Run(pctx, path, probeArgs[tool]...)
	if err == nil {
		return true
	}
	return !IsNotFound(err) && !IsTimeout(err)
}

// MissingError reports a tool none of the candidates could provide.
type MissingError struct {
	Tool Tool
}

func (e *MissingError) Error() string { return string(e.Tool) + ": " + ErrNotFound.Error() }
func (e *MissingError) Unwrap() error { return ErrNotFound }

// TessdataArgs returns the --tessdata-dir flag when a directory was configured explicitly.
func (c *ToolCache) TessdataArgs() []string {
	if c.tessdataDir == "" {
		return nil
	}
	return []string{"--tessdata-dir", c.tessdataDir}
}

// TessdataDir returns the configured directory or the first candidate that exists.
func (c *ToolCache) TessdataDir() string {
	if c.tessdataDir != "" {
		return c.tessdataDir
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tessdataDone {
		return c.tessdata
	}
	for _, dir := range c.tessdataCandidates {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			c.tessdata = dir
			break
		}
	}
	c.tessdataDone = true
	return c.tessdata
}

// Languages returns the language codes tesseract reports as installed.
func (c *ToolCache) Languages(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if c.langs != nil {
		langs := slices.Clone(c.langs)
		c.mu.Unlock()
		return langs, nil
	}
	c.mu.Unlock()

	bin, err := c.Resolve(ctx, ToolTesseract)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	args := append(c.TessdataArgs(), "--list-langs")
	stdout, stderr, err := c.runner.Run(pctx, bin, args...)
	if err != nil {
		return nil, err
	}
	langs := parseLanguageList(string(stdout) + "\n" + string(stderr))

	c.mu.Lock()
	c.langs = langs
	c.mu.Unlock()
	return slices.Clone(langs), nil
}

func parseLanguageList(out string) []string {
	langs := []string{}
	seen := map[string]struct{}{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.ContainsAny(line, " \t:") {
			continue
		}
		l := strings.ToLower(line)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		langs = append(langs, l)
	}
	return langs
}

// MissingLanguages returns the requested languages that are not installed.
// When tesseract cannot list languages, traineddata files in the tessdata
// directory are checked instead.
func (c *ToolCache) MissingLanguages(ctx context.Context, requested []string) ([]string, error) {
	installed, err := c.Languages(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		c.logger.Warn("tesseract --list-langs failed, checking tessdata directory", "error", err)
		installed = c.languagesOnDisk()
	}
	return missingFrom(installed, requested), nil
}

// MissingLanguagesOnDisk checks requested against the traineddata files in
// TessdataDir, for engines that load language data without the tesseract binary.
func (c *ToolCache) MissingLanguagesOnDisk(requested []string) []string {
	return missingFrom(c.languagesOnDisk(), requested)
}

func missingFrom(installed, requested []string) []string {
	var missing []string
	for _, lang := range requested {
		if !slices.Contains(installed, strings.ToLower(lang)) {
			missing = append(missing, lang)
		}
	}
	return missing
}

func (c *ToolCache) languagesOnDisk() []string {
	dir := c.TessdataDir()
	if dir == "" {
		return nil
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.traineddata"))
	langs := make([]string, 0, len(matches))
	for _, m := range matches {
		langs = append(langs, strings.ToLower(strings.TrimSuffix(filepath.Base(m), ".traineddata")))
	}
	return langs
}

// Report summarizes tool discovery for the tools command and the admin endpoint.
type Report struct {
	Tools       map[Tool]string `json:"tools"`
	Missing     []Tool          `json:"missing,omitempty"`
	TessdataDir string          `json:"tessdataDir,omitempty"`
	Languages   []string        `json:"languages,omitempty"`
}

// Report resolves every tool and lists installed languages.
func (c *ToolCache) Report(ctx context.Context) Report {
	r := Report{Tools: map[Tool]string{}, TessdataDir: c.TessdataDir()}
	for _, tool := range AllTools {
		p, err := c.Resolve(ctx, tool)
		if err != nil {
			r.Missing = append(r.Missing, tool)
			continue
		}
		r.Tools[tool] = p
	}
	if _, ok := r.Tools[ToolTesseract]; ok {
		if langs, err := c.Languages(ctx); err == nil {
			r.Languages = langs
		}
	}
	return r
}
