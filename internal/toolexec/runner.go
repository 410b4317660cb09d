package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/form106-ingest/internal/utils"
)

var (
	// ErrNotFound means the binary could not be started at all.
	ErrNotFound = errors.New("tool not found")
	// ErrTimeout means the call ran past its context deadline and was killed.
	ErrTimeout = errors.New("tool timed out")
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs real binaries. Arguments are passed as a vector, never through a shell.
type ExecRunner struct {
	Logger *slog.Logger
	// WaitDelay bounds how long Run waits for output pipes after the process is killed.
	WaitDelay time.Duration
}

// NewExecRunner returns an ExecRunner logging to logger (slog.Default when nil).
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Logger: logger, WaitDelay: 2 * time.Second}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := classify(ctx, name, cmd.Run())
	dur := time.Since(start)

	if err != nil {
		logger.Error("exec failed",
			"cmd", filepath.Base(name),
			"args", maskArgs(args),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", utils.Redact(utils.Truncate(errb.String(), 8<<10)), // cap at 8KB
		)
	} else {
		logger.Debug("exec ok",
			"cmd", filepath.Base(name),
			"args", maskArgs(args),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
			"stderr_bytes", errb.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func classify(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}
	tool := filepath.Base(name)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", tool, ErrTimeout, context.DeadlineExceeded)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s: %w", tool, context.Canceled)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w: %w", tool, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", tool, err)
}

// IsTimeout reports whether err came from a killed, overdue call.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsNotFound reports whether err means the tool binary is unavailable.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var secretFlags = map[string]struct{}{"-upw": {}, "-opw": {}}

// maskArgs renders args for logs with password values hidden and identifiers redacted.
func maskArgs(args []string) string {
	masked := make([]string, len(args))
	for i, a := range args {
		if i > 0 {
			if _, ok := secretFlags[args[i-1]]; ok {
				masked[i] = utils.RedactedSecret
				continue
			}
		}
		masked[i] = a
	}
	return utils.Redact(strings.Join(masked, " "))
}
