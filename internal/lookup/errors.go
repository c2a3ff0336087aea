package lookup

import (
	"errors"
	"fmt"
)

// ErrBadPayload indicates a response whose shape does not match what the
// source is documented to return (wrong top-level type, unexpected root
// element, kind mismatch). Distinct from a transport failure and from a
// well-formed "no results" answer.
var ErrBadPayload = errors.New("unexpected payload shape")

// DiagnosticError carries an operational error reported by the remote
// service itself, such as WorldCat's diagnostics block.
type DiagnosticError struct {
	Source  string
	Message string
}

func (e *DiagnosticError) Error() string {
	return fmt.Sprintf("%s diagnostic: %s", e.Source, e.Message)
}

// IsDiagnosticError reports whether err is (or wraps) a DiagnosticError.
func IsDiagnosticError(err error) bool {
	var de *DiagnosticError
	return errors.As(err, &de)
}
