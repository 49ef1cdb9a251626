package ffmpeg

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"

	"talkvid/internal/logging"
	"talkvid/internal/services"
)

// baseArgs precede every invocation: no banner, no stdin, overwrite outputs
// (outputs are always fresh temp paths in the cache), errors only.
var baseArgs = []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}

// Runner invokes the ffmpeg binary.
type Runner struct {
	binary string
	logger *slog.Logger
}

// NewRunner returns a runner for the given binary name or path.
func NewRunner(binary string, logger *slog.Logger) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// Run executes ffmpeg with args. A non-zero exit yields a *services.ToolError
// carrying the captured stderr verbatim.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	return r.RunWithProgress(ctx, 0, args...)
}

func (r *Runner) command(ctx context.Context, args []string) *exec.Cmd {
	return exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
}

func toolError(tool string, args []string, stderr string, err error) error {
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return &services.ToolError{
		Tool:     tool,
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      err,
	}
}
