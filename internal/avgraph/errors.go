package avgraph

import (
	"errors"
	"fmt"

	"talkvid/internal/services"
)

// ErrorKind classifies composition failures.
type ErrorKind string

const (
	EmptyInputSet        ErrorKind = "empty input set"
	AttributeUnavailable ErrorKind = "attribute unavailable"
	TypeMismatch         ErrorKind = "type mismatch"
	InvalidArgument      ErrorKind = "invalid argument"
)

// GraphError reports an invalid composition. All graph errors match
// services.ErrGraphType.
type GraphError struct {
	Kind   ErrorKind
	Op     string
	Detail string
}

func (e *GraphError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("avgraph: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("avgraph: %s: %s: %s", e.Op, e.Kind, e.Detail)
}

func (e *GraphError) Unwrap() error { return services.ErrGraphType }

func graphErr(kind ErrorKind, op, format string, args ...any) error {
	return &GraphError{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a GraphError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.Kind == kind
}
