package handler

import (
	"strings"
	"testing"

	"github.com/docsync/docsync/internal/doctree"
)

func TestXMLParse_MixedContent(t *testing.T) {
	h := &XMLHandler{}
	root, err := h.Parse(`<p>This is <em>emphasized</em> text.</p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Kind != doctree.KindElement || root.Name != "p" {
		t.Fatalf("expected <p> root, got %s %q", root.Kind, root.Name)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(root.Children))
	}

	if root.Children[0].Kind != doctree.KindText || root.Children[0].Value != "This is " {
		t.Errorf("child[0]: expected text %q, got %s %q", "This is ", root.Children[0].Kind, root.Children[0].Value)
	}
	em := root.Children[1]
	if em.Kind != doctree.KindElement || em.Name != "em" {
		t.Errorf("child[1]: expected <em>, got %s %q", em.Kind, em.Name)
	}
	if len(em.Children) != 1 || em.Children[0].Value != "emphasized" {
		t.Errorf("expected <em> to hold one text child %q", "emphasized")
	}
	if root.Children[2].Kind != doctree.KindText || root.Children[2].Value != " text." {
		t.Errorf("child[2]: expected text %q, got %q", " text.", root.Children[2].Value)
	}
}

func TestXMLParse_EntitiesDecoded(t *testing.T) {
	h := &XMLHandler{}
	root, err := h.Parse(`<a attr="x &amp; y">1 &lt; 2 &gt; 0 &quot;q&quot; &apos;a&apos; &#65;</a>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := root.Children[0].Value; got != `1 < 2 > 0 "q" 'a' A` {
		t.Errorf("expected decoded text, got %q", got)
	}
	if got := root.Meta.Attrs[0].Value; got != "x & y" {
		t.Errorf("expected decoded attribute, got %q", got)
	}
}

func TestXMLParse_CDataPreserved(t *testing.T) {
	h := &XMLHandler{}
	root, err := h.Parse(`<code><![CDATA[if (a < b && b > c) { run(); }]]></code>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	c := root.Children[0]
	if c.Kind != doctree.KindCData {
		t.Fatalf("expected cdata node, got %s", c.Kind)
	}
	if c.Value != "if (a < b && b > c) { run(); }" {
		t.Errorf("expected verbatim cdata payload, got %q", c.Value)
	}

	out, err := h.Serialize(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<![CDATA[if (a < b && b > c) { run(); }]]>") {
		t.Errorf("expected CDATA emitted verbatim, got %q", out)
	}
	if strings.Contains(out, "&lt;") {
		t.Errorf("CDATA must never be entity-escaped, got %q", out)
	}
}

func TestXMLParse_SkipsPrologAndDoctype(t *testing.T) {
	h := &XMLHandler{}
	input := "<?xml version=\"1.0\"?>\n<!DOCTYPE note [<!ELEMENT note (#PCDATA)>]>\n<!-- prolog -->\n<note>hi</note>"
	root, err := h.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Name != "note" {
		t.Errorf("expected root <note>, got %q", root.Name)
	}
}

func TestXMLParse_CommentsKept(t *testing.T) {
	h := &XMLHandler{}
	root, err := h.Parse(`<a><!-- note --><b/></a>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	if root.Children[0].Kind != doctree.KindComment || root.Children[0].Value != " note " {
		t.Errorf("expected comment child, got %s %q", root.Children[0].Kind, root.Children[0].Value)
	}
}

func TestXMLParse_Malformed(t *testing.T) {
	h := &XMLHandler{}
	tests := []struct {
		input  string
		reason string
	}{
		{`<a><b></a>`, "mismatched closing tag"},
		{`<a>`, "unclosed element"},
		{`plain text`, "text outside root"},
		{`<a/><b/>`, "multiple roots"},
		{`<a attr=unquoted/>`, "unquoted attribute"},
		{`<a>&bogus;</a>`, "unknown entity"},
		{``, "empty input"},
	}
	for _, tt := range tests {
		_, err := h.Parse(tt.input)
		if err == nil {
			t.Errorf("%s: expected parse error for %q", tt.reason, tt.input)
			continue
		}
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("%s: expected *ParseError, got %T", tt.reason, err)
		}
	}
}

func TestXMLRoundTrip(t *testing.T) {
	h := &XMLHandler{}
	inputs := []string{
		`<p>This is <em>emphasized</em> text.</p>`,
		`<root><child attr="v1" other="v2"><leaf/></child><child/></root>`,
		`<doc>a &amp; b &lt; c</doc>`,
		`<code><![CDATA[x < y]]></code>`,
		`<a><!-- keep me --><b>text</b></a>`,
		`<data><item id="1">first</item><item id="2">second</item></data>`,
	}
	for _, input := range inputs {
		roundTrip(t, h, input)
	}
}

func TestXMLSerialize_EscapesEntities(t *testing.T) {
	h := &XMLHandler{}
	root := doctree.New(doctree.KindElement)
	root.Name = "a"
	root.Meta.Attrs = []doctree.Attr{{Name: "q", Value: `say "hi" & <go>`}}
	text := doctree.New(doctree.KindText)
	text.Value = "1 < 2 & 3 > 2"
	root.Append(text)

	out, err := h.Serialize(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1 &lt; 2 &amp; 3 &gt; 2") {
		t.Errorf("expected escaped text, got %q", out)
	}
	if !strings.Contains(out, `q="say &quot;hi&quot; &amp; &lt;go&gt;"`) {
		t.Errorf("expected escaped attribute, got %q", out)
	}
}

func TestXMLSerialize_CDataTerminatorSplit(t *testing.T) {
	h := &XMLHandler{}
	root := doctree.New(doctree.KindElement)
	root.Name = "c"
	cdata := doctree.New(doctree.KindCData)
	cdata.Value = "bad ]]> payload"
	root.Append(cdata)

	out, err := h.Serialize(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reparsed, err := h.Parse(out)
	if err != nil {
		t.Fatalf("reparse failed: %v\noutput: %q", err, out)
	}
	// The payload splits into two CDATA sections; concatenated they
	// reproduce the original bytes.
	var got strings.Builder
	for _, c := range reparsed.Children {
		got.WriteString(c.Value)
	}
	if got.String() != "bad ]]> payload" {
		t.Errorf("expected payload preserved across split, got %q", got.String())
	}
}

func TestXMLValidate_ReportsPosition(t *testing.T) {
	h := &XMLHandler{}
	v := h.Validate("<a>\n  <b>\n</a>")
	if v.Valid {
		t.Fatal("expected invalid")
	}
	if len(v.Errors) == 0 || v.Errors[0].Line == 0 {
		t.Errorf("expected a positioned issue, got %v", v.Errors)
	}
}

func TestXMLDetect(t *testing.T) {
	h := &XMLHandler{}
	if score := h.Detect(`<a>ok</a>`); score < 0.8 {
		t.Errorf("expected high confidence for well-formed XML, got %f", score)
	}
	if score := h.Detect(`<broken`); score == 0 || score >= 0.8 {
		t.Errorf("expected low-but-nonzero confidence for angle-led garbage, got %f", score)
	}
	if score := h.Detect(`{"a":1}`); score != 0 {
		t.Errorf("expected zero confidence for JSON, got %f", score)
	}
}
