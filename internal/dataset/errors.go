package dataset

import (
	"fmt"
	"strings"
)

// MissingInputError indicates the source file cannot be located or opened.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input %q not available: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("input %q not available", e.Path)
}

func (e *MissingInputError) Unwrap() error { return e.Err }

// MalformedInputError indicates the source file is not a usable spreadsheet:
// it cannot be parsed, has no header row, or lacks a column the preparation needs.
type MalformedInputError struct {
	Path   string
	Column string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed input")
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MalformedInputError) Unwrap() error { return e.Err }
