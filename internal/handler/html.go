package handler

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/docsync/docsync/internal/doctree"
)

// HTMLHandler maps HTML onto the same heading/content shape Markdown uses:
// h1-h6 nest by level, paragraph-ish elements become content nodes, and
// non-content elements (script, style, chrome) are skipped. Serialization
// emits minimal well-formed fragments; x/net/html's lenient parser wraps
// them back into a full document on reparse.
type HTMLHandler struct{}

func (h *HTMLHandler) Descriptor() Descriptor {
	return Descriptor{
		Name:       "html",
		Extensions: []string{".html", ".htm"},
		MIMETypes:  []string{"text/html"},
	}
}

func (h *HTMLHandler) Parse(content string) (*doctree.Node, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, &ParseError{Format: "html", Reason: err.Error()}
	}

	root := doctree.New(doctree.KindDocument)
	type stackEntry struct {
		node  *doctree.Node
		level int
	}
	stack := []stackEntry{{node: root, level: 0}}

	attach := func(n *doctree.Node) {
		stack[len(stack)-1].node.Append(n)
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := htmlHeadingLevel(n.Data); level > 0 {
				node := doctree.New(doctree.KindHeading)
				node.Name = htmlTextContent(n)
				node.Meta.HeadingLevel = level
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack[len(stack)-1].node.Append(node)
				stack = append(stack, stackEntry{node: node, level: level})
				return
			}
			switch n.Data {
			case "script", "style", "nav", "header", "footer":
				return
			case "p":
				if t := htmlTextContent(n); t != "" {
					c := doctree.New(doctree.KindContent)
					c.Meta.ContentKind = doctree.ContentParagraph
					c.Value = t
					attach(c)
				}
				return
			case "pre":
				c := doctree.New(doctree.KindContent)
				c.Meta.ContentKind = doctree.ContentCode
				c.Meta.CodeLang = htmlCodeLang(n)
				c.Value = strings.TrimRight(htmlRawText(n), "\n")
				if c.Value != "" {
					attach(c)
				}
				return
			case "blockquote":
				if t := htmlBlockquoteText(n); t != "" {
					c := doctree.New(doctree.KindContent)
					c.Meta.ContentKind = doctree.ContentBlockquote
					c.Value = t
					attach(c)
				}
				return
			case "ul", "ol":
				if t := htmlListLines(n); t != "" {
					c := doctree.New(doctree.KindContent)
					c.Meta.ContentKind = doctree.ContentList
					c.Value = t
					attach(c)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findHTMLBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return root, nil
}

func htmlHeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func htmlTextContent(n *html.Node) string {
	return strings.TrimSpace(htmlRawText(n))
}

func htmlRawText(n *html.Node) string {
	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return b.String()
}

// htmlCodeLang reads the "language-*" class from a <code> child, the
// convention Markdown converters emit.
func htmlCodeLang(pre *html.Node) string {
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "code" {
			continue
		}
		for _, a := range c.Attr {
			if a.Key != "class" {
				continue
			}
			for _, cls := range strings.Fields(a.Val) {
				if lang, ok := strings.CutPrefix(cls, "language-"); ok {
					return lang
				}
			}
		}
	}
	return ""
}

func htmlBlockquoteText(quote *html.Node) string {
	var parts []string
	for c := quote.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "p" {
			if t := htmlTextContent(c); t != "" {
				parts = append(parts, t)
			}
		}
	}
	if len(parts) == 0 {
		if t := htmlTextContent(quote); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func htmlListLines(list *html.Node) string {
	ordered := list.Data == "ol"
	var lines []string
	i := 0
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		i++
		t := htmlTextContent(c)
		if t == "" {
			continue
		}
		if ordered {
			lines = append(lines, fmt.Sprintf("%d. %s", i, t))
		} else {
			lines = append(lines, "- "+t)
		}
	}
	return strings.Join(lines, "\n")
}

func findHTMLBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findHTMLBody(c); b != nil {
			return b
		}
	}
	return nil
}

func (h *HTMLHandler) Serialize(root *doctree.Node) (string, error) {
	if err := checkSerializable("html", root); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := writeHTMLNode(&b, root); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeHTMLNode(b *strings.Builder, n *doctree.Node) error {
	switch n.Kind {
	case doctree.KindDocument:
		for _, c := range n.Children {
			if err := writeHTMLNode(b, c); err != nil {
				return err
			}
		}
		return nil

	case doctree.KindHeading:
		level := n.Meta.HeadingLevel
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		fmt.Fprintf(b, "<h%d>%s</h%d>\n", level, html.EscapeString(n.Name), level)
		for _, c := range n.Children {
			if err := writeHTMLNode(b, c); err != nil {
				return err
			}
		}
		return nil

	case doctree.KindContent:
		switch n.Meta.ContentKind {
		case doctree.ContentCode:
			b.WriteString("<pre><code")
			if n.Meta.CodeLang != "" {
				fmt.Fprintf(b, ` class="language-%s"`, html.EscapeString(n.Meta.CodeLang))
			}
			b.WriteString(">")
			b.WriteString(html.EscapeString(n.Value))
			b.WriteString("\n</code></pre>\n")
		case doctree.ContentBlockquote:
			b.WriteString("<blockquote>\n")
			for _, para := range strings.Split(n.Value, "\n\n") {
				fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(para))
			}
			b.WriteString("</blockquote>\n")
		case doctree.ContentList:
			lines := strings.Split(n.Value, "\n")
			tag := "ul"
			if len(lines) > 0 && isOrderedMarker(lines[0]) {
				tag = "ol"
			}
			fmt.Fprintf(b, "<%s>\n", tag)
			for _, line := range lines {
				fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(stripListMarker(line)))
			}
			fmt.Fprintf(b, "</%s>\n", tag)
		default:
			fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(n.Value))
		}
		return nil

	default:
		return &SerializationError{Format: "html", Reason: "node kind " + string(n.Kind) + " is not representable in HTML"}
	}
}

func isOrderedMarker(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(line[i:], ". ")
}

func stripListMarker(line string) string {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return rest
	}
	if i := strings.Index(line, ". "); i > 0 && isOrderedMarker(line) {
		return line[i+2:]
	}
	return line
}

// Validate always succeeds: the HTML5 algorithm produces a document for
// any input.
func (h *HTMLHandler) Validate(content string) Validation {
	return Validation{Valid: true}
}

func (h *HTMLHandler) Detect(content string) float64 {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html") {
		return 0.95
	}
	for _, marker := range []string{"<body", "<div", "</p>", "<br"} {
		if strings.Contains(lower, marker) {
			return 0.6
		}
	}
	return 0
}
