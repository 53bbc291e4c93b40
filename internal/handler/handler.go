// Package handler bridges raw text in a concrete format (JSON, XML, YAML,
// Markdown, plain text, HTML) and the canonical doctree representation.
package handler

import (
	"fmt"

	"github.com/docsync/docsync/internal/doctree"
)

// Handler is the format-specific bridge between text and the canonical
// tree. Implementations must be deterministic: the same content always
// parses to the same shape, and Serialize(Parse(s)) must itself reparse to
// an isomorphic tree.
type Handler interface {
	// Parse converts content into a canonical tree. Malformed input
	// always yields a *ParseError carrying a reason and, when
	// determinable, a position. A parse either produces a complete tree
	// or fails; there are no partial results.
	Parse(content string) (*doctree.Node, error)

	// Serialize converts a tree back to text, escaping per format rules.
	// It detects cycles and fails with a *SerializationError before
	// emitting anything; on success the output always passes Validate.
	Serialize(root *doctree.Node) (string, error)

	// Validate checks content without building a tree. It never fails
	// with a Go error: problems come back as data so callers can run it
	// per keystroke and render issues inline.
	Validate(content string) Validation

	// Detect returns a confidence score in [0,1] that content is in this
	// handler's format. Used by the registry for auto-detection.
	Detect(content string) float64

	// Descriptor identifies the handler for registries and UIs.
	Descriptor() Descriptor
}

// Validation is the non-throwing result of Handler.Validate.
type Validation struct {
	Valid  bool
	Errors []Issue
}

// Issue is one validation finding. Line and Column are 1-based; zero means
// the position could not be determined.
type Issue struct {
	Message string
	Line    int
	Column  int
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", i.Line, i.Column, i.Message)
	}
	return i.Message
}

// Descriptor names a handler and the file extensions / MIME types it
// claims. Extensions include the leading dot.
type Descriptor struct {
	Name       string
	Extensions []string
	MIMETypes  []string
}

// checkSerializable walks the tree and fails if any node is reachable
// through more than one path (a cycle or a shared subtree). Every
// serializer calls this before emitting output so a bad tree never
// produces partial text.
func checkSerializable(format string, root *doctree.Node) error {
	if root == nil {
		return &SerializationError{Format: format, Reason: "nil root"}
	}
	seen := make(map[*doctree.Node]bool)
	var walk func(n *doctree.Node) error
	walk = func(n *doctree.Node) error {
		if seen[n] {
			return &SerializationError{Format: format, Reason: "cycle detected in tree"}
		}
		seen[n] = true
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
