// Package faketools provides a scripted toolexec.Runner for tests that
// exercise the extractors without poppler or tesseract installed.
package faketools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/joseph-ayodele/form106-ingest/internal/toolexec"
)

// HandlerFunc answers one invocation of a tool.
type HandlerFunc func(ctx context.Context, args []string) (stdout, stderr []byte, err error)

// Call records one invocation.
type Call struct {
	Tool string
	Args []string
}

// Runner dispatches by binary base name. Unregistered tools fail with
// toolexec.ErrNotFound, and version probes of registered tools succeed.
type Runner struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
}

// New returns an empty Runner.
func New() *Runner {
	return &Runner{handlers: map[string]HandlerFunc{}}
}

// Handle registers fn for tool and returns r.
func (r *Runner) Handle(tool string, fn HandlerFunc) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tool] = fn
	return r
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	tool := strings.TrimSuffix(filepath.Base(name), ".exe")
	r.mu.Lock()
	r.calls = append(r.calls, Call{Tool: tool, Args: slices.Clone(args)})
	fn, ok := r.handlers[tool]
	r.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", tool, toolexec.ErrNotFound)
	}
	if len(args) == 1 && (args[0] == "-v" || args[0] == "--version") {
		return nil, []byte(tool + " version fake"), nil
	}
	return fn(ctx, args)
}

// Calls returns every recorded invocation.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo returns the invocations of tool, excluding version probes.
func (r *Runner) CallsTo(tool string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Tool != tool {
			continue
		}
		if len(c.Args) == 1 && (c.Args[0] == "-v" || c.Args[0] == "--version") {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Stdout answers with fixed output.
func Stdout(out string) HandlerFunc {
	return func(context.Context, []string) ([]byte, []byte, error) {
		return []byte(out), nil, nil
	}
}

// Fail answers with stderr and a non-zero exit.
func Fail(stderr string) HandlerFunc {
	return func(context.Context, []string) ([]byte, []byte, error) {
		return nil, []byte(stderr), errors.New("exit status 1")
	}
}

// Hang blocks until ctx ends and reports it the way toolexec.ExecRunner does.
func Hang() HandlerFunc {
	return func(ctx context.Context, _ []string) ([]byte, []byte, error) {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w: %w", toolexec.ErrTimeout, ctx.Err())
		}
		return nil, nil, ctx.Err()
	}
}

// Pages mimics pdftoppm writing n page images next to the output prefix,
// which is the last argument.
func Pages(n int) HandlerFunc {
	return func(_ context.Context, args []string) ([]byte, []byte, error) {
		prefix := args[len(args)-1]
		width := len(fmt.Sprint(n))
		for i := 1; i <= n; i++ {
			name := fmt.Sprintf("%s-%0*d.png", prefix, width, i)
			if err := os.WriteFile(name, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}
}

// PageOutput is what the fake tesseract writes for one image.
type PageOutput struct {
	Text string
	TSV  string
	// SkipTSV leaves the .tsv file out.
	SkipTSV bool
}

// Tesseract mimics the tesseract CLI. --list-langs prints langs; a recognition
// call (image, outbase, ...) writes outbase.txt and outbase.tsv from page.
func Tesseract(langs []string, page func(image string) PageOutput) HandlerFunc {
	return func(_ context.Context, args []string) ([]byte, []byte, error) {
		if slices.Contains(args, "--list-langs") {
			out := fmt.Sprintf("List of available languages in \"/fake/tessdata/\" (%d):\n%s\n", len(langs), strings.Join(langs, "\n"))
			return []byte(out), nil, nil
		}
		if len(args) < 2 {
			return nil, []byte("usage"), errors.New("exit status 1")
		}
		img, outBase := args[0], args[1]
		p := page(img)
		if err := os.WriteFile(outBase+".txt", []byte(p.Text), 0o600); err != nil {
			return nil, nil, err
		}
		if !p.SkipTSV {
			if err := os.WriteFile(outBase+".tsv", []byte(p.TSV), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}
}

// Word is one recognized word in a fake TSV.
type Word struct {
	Text string
	Conf float64
}

// TSV renders words as tesseract level-5 rows, preceded by the header and a
// page-level row that parsers must ignore.
func TSV(words ...Word) string {
	var b strings.Builder
	b.WriteString("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n")
	b.WriteString("1\t1\t0\t0\t0\t0\t0\t0\t2480\t3508\t-1\t\n")
	for i, w := range words {
		fmt.Fprintf(&b, "5\t1\t1\t1\t1\t%d\t10\t10\t50\t20\t%g\t%s\n", i+1, w.Conf, w.Text)
	}
	return b.String()
}

// Words returns n words all at conf.
func Words(n int, conf float64) []Word {
	out := make([]Word, n)
	for i := range out {
		out[i] = Word{Text: fmt.Sprintf("w%d", i), Conf: conf}
	}
	return out
}
