package handler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/docsync/docsync/internal/doctree"
)

// YAMLHandler maps YAML text onto object/array/value trees. Decoding goes
// through goccy's ordered-map mode so mapping keys keep document order.
// Validation is syntax-only; anchors and exotic scalars that the decoder
// rejects surface as parse errors (hard-fail, no partial trees). Numeric
// scalars are normalized through the decoder, so serialization emits the
// canonical form rather than the exact source spelling.
type YAMLHandler struct{}

func (h *YAMLHandler) Descriptor() Descriptor {
	return Descriptor{
		Name:       "yaml",
		Extensions: []string{".yaml", ".yml"},
		MIMETypes:  []string{"application/yaml", "text/yaml"},
	}
}

func (h *YAMLHandler) Parse(content string) (*doctree.Node, error) {
	v, perr := decodeYAML(content)
	if perr != nil {
		return nil, perr
	}
	return buildYAMLNode("", v), nil
}

func decodeYAML(content string) (any, *ParseError) {
	var v any
	if err := yaml.UnmarshalWithOptions([]byte(content), &v, yaml.UseOrderedMap()); err != nil {
		perr := &ParseError{Format: "yaml", Reason: yamlErrorMessage(err)}
		perr.Line, perr.Column = yamlErrorPosition(err)
		return nil, perr
	}
	return v, nil
}

var yamlPosRe = regexp.MustCompile(`\[(\d+):(\d+)\]`)

// yamlErrorPosition pulls the "[line:col]" marker goccy embeds in its
// error strings. Zero values mean the position was not determinable.
func yamlErrorPosition(err error) (line, col int) {
	m := yamlPosRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, 0
	}
	line, _ = strconv.Atoi(m[1])
	col, _ = strconv.Atoi(m[2])
	return line, col
}

func yamlErrorMessage(err error) string {
	msg := err.Error()
	if m := yamlPosRe.FindStringIndex(msg); m != nil && m[0] == 0 {
		msg = strings.TrimSpace(msg[m[1]:])
	}
	// goccy appends a multi-line source excerpt; the first line is the
	// reason.
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func buildYAMLNode(name string, v any) *doctree.Node {
	switch t := v.(type) {
	case yaml.MapSlice:
		n := doctree.New(doctree.KindObject)
		n.Name = name
		for _, item := range t {
			n.Append(buildYAMLNode(fmt.Sprint(item.Key), item.Value))
		}
		return n
	case []any:
		n := doctree.New(doctree.KindArray)
		n.Name = name
		for _, item := range t {
			n.Append(buildYAMLNode("", item))
		}
		return n
	default:
		n := doctree.New(doctree.KindValue)
		n.Name = name
		switch s := v.(type) {
		case nil:
			n.ValueKind = doctree.ValueNull
			n.Value = "null"
		case bool:
			n.ValueKind = doctree.ValueBool
			n.Value = strconv.FormatBool(s)
		case int:
			n.ValueKind = doctree.ValueNumber
			n.Value = strconv.Itoa(s)
		case int64:
			n.ValueKind = doctree.ValueNumber
			n.Value = strconv.FormatInt(s, 10)
		case uint64:
			n.ValueKind = doctree.ValueNumber
			n.Value = strconv.FormatUint(s, 10)
		case float64:
			n.ValueKind = doctree.ValueNumber
			n.Value = strconv.FormatFloat(s, 'g', -1, 64)
		case string:
			n.ValueKind = doctree.ValueString
			n.Value = s
		default:
			n.ValueKind = doctree.ValueString
			n.Value = fmt.Sprint(v)
		}
		return n
	}
}

func (h *YAMLHandler) Serialize(root *doctree.Node) (string, error) {
	if err := checkSerializable("yaml", root); err != nil {
		return "", err
	}
	var b strings.Builder
	switch root.Kind {
	case doctree.KindObject, doctree.KindArray:
		if len(root.Children) == 0 {
			if root.Kind == doctree.KindObject {
				b.WriteString("{}\n")
			} else {
				b.WriteString("[]\n")
			}
			break
		}
		for _, c := range root.Children {
			if err := writeYAMLEntry(&b, root.Kind, c, 0); err != nil {
				return "", err
			}
		}
	case doctree.KindValue:
		b.WriteString(yamlScalar(root))
		b.WriteByte('\n')
	default:
		return "", &SerializationError{Format: "yaml", Reason: "node kind " + string(root.Kind) + " is not representable in YAML"}
	}
	return b.String(), nil
}

// writeYAMLEntry emits one child of a mapping or sequence in block style.
func writeYAMLEntry(b *strings.Builder, parentKind doctree.Kind, n *doctree.Node, depth int) error {
	writeYAMLIndent(b, depth)
	if parentKind == doctree.KindObject {
		b.WriteString(yamlKey(n.Name))
		b.WriteByte(':')
	} else {
		b.WriteByte('-')
	}

	switch n.Kind {
	case doctree.KindValue:
		b.WriteByte(' ')
		b.WriteString(yamlScalar(n))
		b.WriteByte('\n')
		return nil
	case doctree.KindObject:
		if len(n.Children) == 0 {
			b.WriteString(" {}\n")
			return nil
		}
	case doctree.KindArray:
		if len(n.Children) == 0 {
			b.WriteString(" []\n")
			return nil
		}
	default:
		return &SerializationError{Format: "yaml", Reason: "node kind " + string(n.Kind) + " is not representable in YAML"}
	}

	b.WriteByte('\n')
	for _, c := range n.Children {
		if err := writeYAMLEntry(b, n.Kind, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func writeYAMLIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func yamlScalar(n *doctree.Node) string {
	switch n.ValueKind {
	case doctree.ValueNull:
		return "null"
	case doctree.ValueBool:
		if n.Value == "true" || n.Value == "false" {
			return n.Value
		}
	case doctree.ValueNumber:
		if _, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return n.Value
		}
	}
	return yamlString(n.Value)
}

func yamlKey(key string) string { return yamlString(key) }

// yamlString emits a scalar as plain text when that reparses to the same
// string, otherwise double-quoted. Go's quoting rules are a subset of
// YAML's double-quote escapes, so strconv.Quote output is always valid.
func yamlString(s string) string {
	if yamlNeedsQuote(s) {
		return strconv.Quote(s)
	}
	return s
}

func yamlNeedsQuote(s string) bool {
	if s == "" {
		return true
	}
	switch strings.ToLower(s) {
	case "null", "~", "true", "false", "yes", "no", "on", "off":
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	if strings.ContainsAny(s[:1], "-?:,[]{}#&*!|>'\"%@` \t") {
		return true
	}
	if strings.ContainsAny(s, "\n\t") {
		return true
	}
	if strings.Contains(s, ": ") || strings.Contains(s, " #") || strings.HasSuffix(s, ":") {
		return true
	}
	if s != strings.TrimSpace(s) {
		return true
	}
	return false
}

func (h *YAMLHandler) Validate(content string) Validation {
	if _, perr := decodeYAML(content); perr != nil {
		return Validation{Errors: []Issue{perr.Issue()}}
	}
	return Validation{Valid: true}
}

// Detect claims content only when it decodes to a mapping or sequence. A
// bare scalar is valid YAML but so is nearly any prose, so scalars score
// zero and fall through to the text handler.
func (h *YAMLHandler) Detect(content string) float64 {
	v, perr := decodeYAML(content)
	if perr != nil {
		return 0
	}
	switch v.(type) {
	case yaml.MapSlice, []any:
		return 0.6
	}
	return 0
}
