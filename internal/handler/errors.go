package handler

import "fmt"

// ParseError reports malformed input. Line and Column are 1-based and zero
// when the position could not be determined.
type ParseError struct {
	Format string
	Reason string
	Line   int
	Column int
	Offset int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: %d:%d: %s", e.Format, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Reason)
}

// Issue converts the error to a validation issue.
func (e *ParseError) Issue() Issue {
	return Issue{Message: e.Reason, Line: e.Line, Column: e.Column}
}

// SerializationError reports a tree that cannot be serialized, e.g. a
// cycle. It is always raised before any partial text is produced.
type SerializationError struct {
	Format string
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %s", e.Format, e.Reason)
}

// UnsupportedFormatError reports that no handler is registered for a
// requested or detected format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return "unsupported format: content matched no registered handler"
	}
	return fmt.Sprintf("unsupported format: %s", e.Format)
}

// lineCol converts a byte offset into a 1-based line/column pair.
func lineCol(content string, offset int) (line, col int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	line, col = 1, 1
	for _, b := range []byte(content[:offset]) {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
