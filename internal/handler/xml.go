package handler

import (
	"strings"

	"github.com/docsync/docsync/internal/doctree"
)

// XMLHandler maps XML text onto element/text/cdata/comment trees. Mixed
// content stays ordered, entities are decoded on parse and re-encoded on
// serialize, and CDATA sections round-trip verbatim without escaping.
// Whitespace-only text between elements is dropped; text that carries any
// non-whitespace is kept verbatim.
type XMLHandler struct{}

func (h *XMLHandler) Descriptor() Descriptor {
	return Descriptor{
		Name:       "xml",
		Extensions: []string{".xml"},
		MIMETypes:  []string{"application/xml", "text/xml"},
	}
}

func (h *XMLHandler) Parse(content string) (*doctree.Node, error) {
	s := newXMLScanner(content)
	var root *doctree.Node
	var stack []*doctree.Node
	for {
		tok, perr := s.next()
		if perr != nil {
			return nil, perr
		}
		switch tok.kind {
		case xmlTokEOF:
			if len(stack) > 0 {
				return nil, s.errAt(tok.offset, "unclosed element <%s>", stack[len(stack)-1].Name)
			}
			if root == nil {
				return nil, s.errAt(tok.offset, "no root element")
			}
			return root, nil

		case xmlTokStart:
			n := doctree.New(doctree.KindElement)
			n.Name = tok.name
			n.Meta.Attrs = tok.attrs
			if len(stack) == 0 {
				if root != nil {
					return nil, s.errAt(tok.offset, "multiple root elements")
				}
				root = n
			} else {
				stack[len(stack)-1].Append(n)
			}
			if !tok.selfClosing {
				stack = append(stack, n)
			}

		case xmlTokEnd:
			if len(stack) == 0 {
				return nil, s.errAt(tok.offset, "unexpected closing tag </%s>", tok.name)
			}
			top := stack[len(stack)-1]
			if top.Name != tok.name {
				return nil, s.errAt(tok.offset, "closing tag </%s> does not match <%s>", tok.name, top.Name)
			}
			stack = stack[:len(stack)-1]

		case xmlTokText:
			if strings.TrimSpace(tok.text) == "" {
				continue
			}
			if len(stack) == 0 {
				return nil, s.errAt(tok.offset, "text outside root element")
			}
			n := doctree.New(doctree.KindText)
			n.Value = tok.text
			stack[len(stack)-1].Append(n)

		case xmlTokCData:
			if len(stack) == 0 {
				return nil, s.errAt(tok.offset, "CDATA outside root element")
			}
			n := doctree.New(doctree.KindCData)
			n.Value = tok.text
			stack[len(stack)-1].Append(n)

		case xmlTokComment:
			if len(stack) == 0 {
				// Prolog comments carry no structure; drop them.
				continue
			}
			n := doctree.New(doctree.KindComment)
			n.Value = tok.text
			stack[len(stack)-1].Append(n)
		}
	}
}

func (h *XMLHandler) Serialize(root *doctree.Node) (string, error) {
	if err := checkSerializable("xml", root); err != nil {
		return "", err
	}
	if root.Kind != doctree.KindElement {
		return "", &SerializationError{Format: "xml", Reason: "root must be an element node"}
	}
	var b strings.Builder
	if err := writeXMLNode(&b, root, 0, false); err != nil {
		return "", err
	}
	return b.String(), nil
}

// writeXMLNode emits one node. Elements whose children include text or
// CDATA are mixed content and render inline so reparsing preserves the
// exact text; element-only containers render indented.
func writeXMLNode(b *strings.Builder, n *doctree.Node, depth int, inline bool) error {
	switch n.Kind {
	case doctree.KindElement:
		if !inline {
			writeXMLIndent(b, depth)
		}
		b.WriteByte('<')
		b.WriteString(n.Name)
		for _, a := range n.Meta.Attrs {
			b.WriteByte(' ')
			b.WriteString(a.Name)
			b.WriteString(`="`)
			b.WriteString(escapeXMLAttr(a.Value))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 {
			b.WriteString("/>")
			if !inline {
				b.WriteByte('\n')
			}
			return nil
		}
		mixed := hasXMLMixedContent(n)
		b.WriteByte('>')
		if mixed {
			for _, c := range n.Children {
				if err := writeXMLNode(b, c, 0, true); err != nil {
					return err
				}
			}
		} else {
			b.WriteByte('\n')
			for _, c := range n.Children {
				if err := writeXMLNode(b, c, depth+1, false); err != nil {
					return err
				}
			}
			writeXMLIndent(b, depth)
		}
		b.WriteString("</")
		b.WriteString(n.Name)
		b.WriteByte('>')
		if !inline {
			b.WriteByte('\n')
		}
		return nil

	case doctree.KindText:
		if !inline {
			writeXMLIndent(b, depth)
		}
		b.WriteString(escapeXMLText(n.Value))
		if !inline {
			b.WriteByte('\n')
		}
		return nil

	case doctree.KindCData:
		if !inline {
			writeXMLIndent(b, depth)
		}
		b.WriteString("<![CDATA[")
		// A literal "]]>" inside the payload splits into two sections.
		b.WriteString(strings.ReplaceAll(n.Value, "]]>", "]]]]><![CDATA[>"))
		b.WriteString("]]>")
		if !inline {
			b.WriteByte('\n')
		}
		return nil

	case doctree.KindComment:
		if strings.Contains(n.Value, "--") {
			return &SerializationError{Format: "xml", Reason: `comment contains "--"`}
		}
		if !inline {
			writeXMLIndent(b, depth)
		}
		b.WriteString("<!--")
		b.WriteString(n.Value)
		b.WriteString("-->")
		if !inline {
			b.WriteByte('\n')
		}
		return nil

	default:
		return &SerializationError{Format: "xml", Reason: "node kind " + string(n.Kind) + " is not representable in XML"}
	}
}

func hasXMLMixedContent(n *doctree.Node) bool {
	for _, c := range n.Children {
		if c.Kind == doctree.KindText || c.Kind == doctree.KindCData {
			return true
		}
	}
	return false
}

func writeXMLIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

var xmlTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var xmlAttrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeXMLText(s string) string { return xmlTextEscaper.Replace(s) }

func escapeXMLAttr(s string) string { return xmlAttrEscaper.Replace(s) }

func (h *XMLHandler) Validate(content string) Validation {
	if _, err := h.Parse(content); err != nil {
		if perr, ok := err.(*ParseError); ok {
			return Validation{Errors: []Issue{perr.Issue()}}
		}
		return Validation{Errors: []Issue{{Message: err.Error()}}}
	}
	return Validation{Valid: true}
}

func (h *XMLHandler) Detect(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed[0] != '<' {
		return 0
	}
	if h.Validate(content).Valid {
		return 0.9
	}
	return 0.2
}
