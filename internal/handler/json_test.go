package handler

import (
	"strings"
	"testing"

	"github.com/docsync/docsync/internal/doctree"
)

func TestJSONParse_SimpleObject(t *testing.T) {
	h := &JSONHandler{}
	root, err := h.Parse(`{"a":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Kind != doctree.KindObject {
		t.Fatalf("expected object root, got %s", root.Kind)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	a := root.Children[0]
	if a.Name != "a" {
		t.Errorf("expected child name %q, got %q", "a", a.Name)
	}
	if a.Kind != doctree.KindValue || a.ValueKind != doctree.ValueNumber || a.Value != "1" {
		t.Errorf("expected number value 1, got kind=%s valueKind=%s value=%q", a.Kind, a.ValueKind, a.Value)
	}
	if a.Parent() != root {
		t.Error("expected parent back-reference to be set")
	}
}

func TestJSONParse_KeyOrderPreserved(t *testing.T) {
	h := &JSONHandler{}
	root, err := h.Parse(`{"z":1,"a":2,"m":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"z", "a", "m"}
	if len(root.Children) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(root.Children))
	}
	for i, w := range want {
		if root.Children[i].Name != w {
			t.Errorf("child[%d]: expected key %q, got %q", i, w, root.Children[i].Name)
		}
	}
}

func TestJSONParse_TypedValues(t *testing.T) {
	h := &JSONHandler{}
	root, err := h.Parse(`{"s":"x","n":1.50,"t":true,"f":false,"z":null}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		name  string
		kind  doctree.ValueKind
		value string
	}{
		{"s", doctree.ValueString, "x"},
		{"n", doctree.ValueNumber, "1.50"}, // raw text preserved
		{"t", doctree.ValueBool, "true"},
		{"f", doctree.ValueBool, "false"},
		{"z", doctree.ValueNull, "null"},
	}
	for i, tt := range tests {
		c := root.Children[i]
		if c.Name != tt.name || c.ValueKind != tt.kind || c.Value != tt.value {
			t.Errorf("child[%d]: expected %s/%s=%q, got %s/%s=%q",
				i, tt.name, tt.kind, tt.value, c.Name, c.ValueKind, c.Value)
		}
	}
}

func TestJSONParse_ArrayChildrenUnnamed(t *testing.T) {
	h := &JSONHandler{}
	root, err := h.Parse(`[1,"two",{"k":3}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Kind != doctree.KindArray {
		t.Fatalf("expected array root, got %s", root.Kind)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(root.Children))
	}
	for i, c := range root.Children {
		if c.Name != "" {
			t.Errorf("child[%d]: expected empty name, got %q", i, c.Name)
		}
	}
	if root.Children[2].Kind != doctree.KindObject {
		t.Errorf("expected nested object, got %s", root.Children[2].Kind)
	}
}

func TestJSONParse_MalformedInput(t *testing.T) {
	h := &JSONHandler{}
	tests := []string{
		`{invalid json}`,
		`{"a":}`,
		`{"a":1`,
		``,
		`{"a":1} trailing`,
	}
	for _, input := range tests {
		_, err := h.Parse(input)
		if err == nil {
			t.Errorf("input %q: expected parse error", input)
			continue
		}
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("input %q: expected *ParseError, got %T", input, err)
		}
	}
}

func TestJSONParseError_Position(t *testing.T) {
	h := &JSONHandler{}
	_, err := h.Parse("{\n  \"a\": oops\n}")
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Line != 2 {
		t.Errorf("expected error on line 2, got line %d", perr.Line)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	h := &JSONHandler{}
	inputs := []string{
		`{"a":1}`,
		`{"z":1,"a":{"nested":[1,2,3]},"m":"text"}`,
		`[]`,
		`{}`,
		`[{"deep":{"deeper":[true,false,null]}}]`,
		`{"escaped":"line\nbreak \"quoted\""}`,
		`{"nums":[0,-1,3.14,1e10,1.50]}`,
	}
	for _, input := range inputs {
		roundTrip(t, h, input)
	}
}

func TestJSONSerialize_EscapesStrings(t *testing.T) {
	h := &JSONHandler{}
	root := doctree.New(doctree.KindObject)
	c := doctree.New(doctree.KindValue)
	c.Name = "k"
	c.ValueKind = doctree.ValueString
	c.Value = "a\"b\nc"
	root.Append(c)

	out, err := h.Serialize(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"a\"b\nc"`) {
		t.Errorf("expected escaped string in output, got %q", out)
	}
	if v := h.Validate(out); !v.Valid {
		t.Errorf("expected serialized output to validate, got %v", v.Errors)
	}
}

func TestJSONSerialize_BadNumberFallsBackToString(t *testing.T) {
	h := &JSONHandler{}
	root := doctree.New(doctree.KindValue)
	root.ValueKind = doctree.ValueNumber
	root.Value = "not-a-number"

	out, err := h.Serialize(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := h.Validate(out); !v.Valid {
		t.Errorf("output must always validate, got %v for %q", v.Errors, out)
	}
}

func TestJSONValidate(t *testing.T) {
	h := &JSONHandler{}
	if v := h.Validate(`{"ok":true}`); !v.Valid {
		t.Errorf("expected valid, got %v", v.Errors)
	}
	v := h.Validate(`{"broken":`)
	if v.Valid {
		t.Fatal("expected invalid")
	}
	if len(v.Errors) == 0 {
		t.Fatal("expected at least one issue")
	}
}

func TestJSONDetect(t *testing.T) {
	h := &JSONHandler{}
	if score := h.Detect(`{"a":1}`); score < 0.9 {
		t.Errorf("expected high confidence for valid JSON object, got %f", score)
	}
	if score := h.Detect(`{broken`); score >= 0.9 || score == 0 {
		t.Errorf("expected low-but-nonzero confidence for brace-led garbage, got %f", score)
	}
	if score := h.Detect(`# heading`); score != 0 {
		t.Errorf("expected zero confidence for markdown, got %f", score)
	}
	if score := h.Detect(""); score != 0 {
		t.Errorf("expected zero confidence for empty input, got %f", score)
	}
}
