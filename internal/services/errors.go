package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCacheBuild       = errors.New("cache build failure")
	ErrGraphType        = errors.New("graph type error")
	ErrMissingElement   = errors.New("missing element")
	ErrSyncPrecondition = errors.New("sync precondition failed")
	ErrExternalTool     = errors.New("external tool error")
	ErrConfiguration    = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint maps an error to the operator action that usually resolves it.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSyncPrecondition):
		return "supply the screen/speaker offset manually with --screen-offset (screen_offset in the manifest)"
	case errors.Is(err, ErrMissingElement):
		return "check the element ids in the SVG template"
	case errors.Is(err, ErrGraphType):
		return "the composition combines incompatible streams; fix the pipeline"
	case errors.Is(err, ErrConfiguration):
		return "run `talkvid config validate`"
	case errors.Is(err, ErrCacheBuild), errors.Is(err, ErrExternalTool):
		return "fix the cause and rerun; finished artifacts are reused from the cache"
	default:
		return ""
	}
}

// ToolError records a failed external tool invocation. Stderr is kept verbatim.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
