package parse

import (
	"errors"
	"fmt"
)

// ErrFormat is the sentinel wrapped by every FormatError, so callers can
// match any malformed-input failure with errors.Is.
var ErrFormat = errors.New("malformed graph file")

// FormatError describes where and why an input file failed to parse.
type FormatError struct {
	Line   int    // 1-based input line, 0 when the position is unknown
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

// Unwrap ties every FormatError to ErrFormat.
func (e *FormatError) Unwrap() error { return ErrFormat }

// IsFormat reports whether err stems from a malformed input file.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}

// formatErrorf builds a FormatError at the given line.
func formatErrorf(line int, format string, args ...interface{}) error {
	return &FormatError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
