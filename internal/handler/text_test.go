package handler

import (
	"testing"

	"github.com/docsync/docsync/internal/doctree"
)

func TestTextParse_ParagraphSplitting(t *testing.T) {
	h := &TextHandler{}
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	root, err := h.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Kind != doctree.KindDocument {
		t.Fatalf("expected document root, got %s", root.Kind)
	}
	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	if len(root.Children) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d", len(want), len(root.Children))
	}
	for i, w := range want {
		c := root.Children[i]
		if c.Kind != doctree.KindContent || c.Meta.ContentKind != doctree.ContentParagraph {
			t.Errorf("child[%d]: expected paragraph content, got %s/%s", i, c.Kind, c.Meta.ContentKind)
		}
		if c.Value != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, c.Value)
		}
	}
}

func TestTextParse_BlankVariants(t *testing.T) {
	h := &TextHandler{}
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"single", 1},
		{"a\n\n\n\nb", 2},
		{"a\n   \nb", 2}, // whitespace-only lines count as blank
	}
	for _, tt := range tests {
		root, err := h.Parse(tt.input)
		if err != nil {
			t.Fatalf("input %q: unexpected error: %v", tt.input, err)
		}
		if len(root.Children) != tt.want {
			t.Errorf("input %q: expected %d paragraphs, got %d", tt.input, tt.want, len(root.Children))
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	h := &TextHandler{}
	inputs := []string{
		"one paragraph\n",
		"para one\n\npara two\n\npara three\n",
		"multi\nline\nparagraph\n\nnext\n",
	}
	for _, input := range inputs {
		roundTrip(t, h, input)
	}
}

func TestTextSerialize_RejectsForeignKinds(t *testing.T) {
	h := &TextHandler{}
	root := doctree.New(doctree.KindObject)
	if _, err := h.Serialize(root); err == nil {
		t.Error("expected error serializing an object tree as plain text")
	}
}

func TestTextValidateAndDetect(t *testing.T) {
	h := &TextHandler{}
	if v := h.Validate("anything"); !v.Valid {
		t.Error("text validation must always pass")
	}
	if score := h.Detect("some prose"); score <= 0 {
		t.Errorf("expected text to be the detection floor, got %f", score)
	}
}
