package handler

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/docsync/docsync/internal/doctree"
)

// JSONHandler maps JSON text onto object/array/value trees. Object keys
// keep their insertion order (gjson iterates in document order, which the
// stdlib map decoding cannot do) and numbers keep their raw source text.
type JSONHandler struct{}

func (h *JSONHandler) Descriptor() Descriptor {
	return Descriptor{
		Name:       "json",
		Extensions: []string{".json"},
		MIMETypes:  []string{"application/json"},
	}
}

func (h *JSONHandler) Parse(content string) (*doctree.Node, error) {
	if perr := jsonSyntaxError(content); perr != nil {
		return nil, perr
	}
	root := buildJSONNode("", gjson.Parse(content))
	return root, nil
}

func buildJSONNode(name string, r gjson.Result) *doctree.Node {
	switch {
	case r.IsObject():
		n := doctree.New(doctree.KindObject)
		n.Name = name
		r.ForEach(func(key, value gjson.Result) bool {
			n.Append(buildJSONNode(key.String(), value))
			return true
		})
		return n
	case r.IsArray():
		n := doctree.New(doctree.KindArray)
		n.Name = name
		r.ForEach(func(_, value gjson.Result) bool {
			n.Append(buildJSONNode("", value))
			return true
		})
		return n
	default:
		n := doctree.New(doctree.KindValue)
		n.Name = name
		switch r.Type {
		case gjson.Number:
			n.ValueKind = doctree.ValueNumber
			n.Value = strings.TrimSpace(r.Raw)
		case gjson.True:
			n.ValueKind = doctree.ValueBool
			n.Value = "true"
		case gjson.False:
			n.ValueKind = doctree.ValueBool
			n.Value = "false"
		case gjson.Null:
			n.ValueKind = doctree.ValueNull
			n.Value = "null"
		default:
			n.ValueKind = doctree.ValueString
			n.Value = r.String()
		}
		return n
	}
}

func (h *JSONHandler) Serialize(root *doctree.Node) (string, error) {
	if err := checkSerializable("json", root); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := writeJSONNode(&b, root, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSONNode(b *strings.Builder, n *doctree.Node, depth int) error {
	switch n.Kind {
	case doctree.KindObject:
		if len(n.Children) == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteString("{\n")
		for i, c := range n.Children {
			writeJSONIndent(b, depth+1)
			b.WriteString(jsonQuote(c.Name))
			b.WriteString(": ")
			if err := writeJSONNode(b, c, depth+1); err != nil {
				return err
			}
			if i < len(n.Children)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeJSONIndent(b, depth)
		b.WriteByte('}')
		return nil
	case doctree.KindArray:
		if len(n.Children) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteString("[\n")
		for i, c := range n.Children {
			writeJSONIndent(b, depth+1)
			if err := writeJSONNode(b, c, depth+1); err != nil {
				return err
			}
			if i < len(n.Children)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeJSONIndent(b, depth)
		b.WriteByte(']')
		return nil
	case doctree.KindValue:
		b.WriteString(jsonScalar(n))
		return nil
	default:
		return &SerializationError{Format: "json", Reason: "node kind " + string(n.Kind) + " is not representable in JSON"}
	}
}

func writeJSONIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

// jsonScalar renders a value node. Number/bool/null payloads that are not
// valid JSON literals fall back to a quoted string so output always
// validates.
func jsonScalar(n *doctree.Node) string {
	switch n.ValueKind {
	case doctree.ValueNumber:
		if json.Valid([]byte(n.Value)) {
			return n.Value
		}
	case doctree.ValueBool:
		if n.Value == "true" || n.Value == "false" {
			return n.Value
		}
	case doctree.ValueNull:
		return "null"
	}
	return jsonQuote(n.Value)
}

func jsonQuote(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

func (h *JSONHandler) Validate(content string) Validation {
	if perr := jsonSyntaxError(content); perr != nil {
		return Validation{Errors: []Issue{perr.Issue()}}
	}
	return Validation{Valid: true}
}

// jsonSyntaxError runs the stdlib decoder over content and converts the
// first problem into a positioned ParseError. gjson tolerates some
// malformed input, so the strict check happens here.
func jsonSyntaxError(content string) *ParseError {
	dec := json.NewDecoder(strings.NewReader(content))
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseError{Format: "json", Reason: "empty input"}
		}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			line, col := lineCol(content, int(syn.Offset)-1)
			return &ParseError{
				Format: "json",
				Reason: syn.Error(),
				Line:   line,
				Column: col,
				Offset: int(syn.Offset),
			}
		}
		return &ParseError{Format: "json", Reason: err.Error()}
	}
	if dec.More() {
		off := int(dec.InputOffset())
		line, col := lineCol(content, off)
		return &ParseError{
			Format: "json",
			Reason: "unexpected content after top-level value",
			Line:   line,
			Column: col,
			Offset: off,
		}
	}
	return nil
}

func (h *JSONHandler) Detect(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}
	switch trimmed[0] {
	case '{', '[':
		if gjson.Valid(trimmed) {
			return 0.95
		}
		return 0.2
	}
	return 0
}
