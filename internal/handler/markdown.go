package handler

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/docsync/docsync/internal/doctree"
)

// MarkdownHandler maps Markdown onto heading/content trees. A heading of
// level N becomes a child of the nearest preceding heading with a lower
// level, or of the document root. Non-heading blocks become content nodes
// whose sub-kind (paragraph, list, code, blockquote) lives in metadata;
// fenced code blocks keep their language tag.
//
// There is no malformed Markdown: any input parses. Nested list structure
// is flattened into item lines, so the tree is a fixpoint after one
// parse/serialize cycle rather than a byte-exact copy of arbitrary input.
type MarkdownHandler struct{}

func (h *MarkdownHandler) Descriptor() Descriptor {
	return Descriptor{
		Name:       "markdown",
		Extensions: []string{".md", ".markdown"},
		MIMETypes:  []string{"text/markdown"},
	}
}

func (h *MarkdownHandler) Parse(content string) (*doctree.Node, error) {
	src := []byte(content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	root := doctree.New(doctree.KindDocument)

	type stackEntry struct {
		node  *doctree.Node
		level int
	}
	stack := []stackEntry{{node: root, level: 0}}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok {
			node := doctree.New(doctree.KindHeading)
			node.Name = string(heading.Text(src))
			node.Meta.HeadingLevel = heading.Level

			for len(stack) > 1 && stack[len(stack)-1].level >= heading.Level {
				stack = stack[:len(stack)-1]
			}
			stack[len(stack)-1].node.Append(node)
			stack = append(stack, stackEntry{node: node, level: heading.Level})
			continue
		}
		if c := markdownContentNode(n, src); c != nil {
			stack[len(stack)-1].node.Append(c)
		}
	}
	return root, nil
}

func markdownContentNode(n ast.Node, src []byte) *doctree.Node {
	c := doctree.New(doctree.KindContent)
	switch block := n.(type) {
	case *ast.FencedCodeBlock:
		c.Meta.ContentKind = doctree.ContentCode
		c.Meta.CodeLang = string(block.Language(src))
		c.Value = blockLines(block, src)
	case *ast.CodeBlock:
		c.Meta.ContentKind = doctree.ContentCode
		c.Value = blockLines(block, src)
	case *ast.List:
		c.Meta.ContentKind = doctree.ContentList
		c.Value = listLines(block, src)
	case *ast.Blockquote:
		c.Meta.ContentKind = doctree.ContentBlockquote
		c.Value = blockquoteText(block, src)
	case *ast.ThematicBreak:
		c.Meta.ContentKind = doctree.ContentParagraph
		c.Value = "---"
	default:
		c.Meta.ContentKind = doctree.ContentParagraph
		c.Value = blockLines(n, src)
	}
	if c.Value == "" {
		return nil
	}
	return c
}

// blockLines reconstructs the raw source lines of a block node.
func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

// listLines renders a list as one marker-prefixed line per item. Nested
// lists flatten into their parent item's line.
func listLines(list *ast.List, src []byte) string {
	var lines []string
	i := 0
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d. ", list.Start+i)
		}
		lines = append(lines, marker+listItemText(item, src))
		i++
	}
	return strings.Join(lines, "\n")
}

func listItemText(item ast.Node, src []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if nested, ok := c.(*ast.List); ok {
			for ni := nested.FirstChild(); ni != nil; ni = ni.NextSibling() {
				parts = append(parts, listItemText(ni, src))
			}
			continue
		}
		if t := blockLines(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func blockquoteText(quote *ast.Blockquote, src []byte) string {
	var parts []string
	for c := quote.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockLines(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (h *MarkdownHandler) Serialize(root *doctree.Node) (string, error) {
	if err := checkSerializable("markdown", root); err != nil {
		return "", err
	}
	var blocks []string
	if err := appendMarkdownBlocks(&blocks, root); err != nil {
		return "", err
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

func appendMarkdownBlocks(blocks *[]string, n *doctree.Node) error {
	switch n.Kind {
	case doctree.KindDocument:
		for _, c := range n.Children {
			if err := appendMarkdownBlocks(blocks, c); err != nil {
				return err
			}
		}
		return nil

	case doctree.KindHeading:
		level := n.Meta.HeadingLevel
		if level < 1 {
			level = 1 // missing level defaults to a top-level heading
		}
		if level > 6 {
			level = 6
		}
		title := strings.ReplaceAll(n.Name, "\n", " ")
		*blocks = append(*blocks, strings.Repeat("#", level)+" "+title)
		for _, c := range n.Children {
			if err := appendMarkdownBlocks(blocks, c); err != nil {
				return err
			}
		}
		return nil

	case doctree.KindContent:
		switch n.Meta.ContentKind {
		case doctree.ContentCode:
			fence := codeFence(n.Value)
			*blocks = append(*blocks, fence+n.Meta.CodeLang+"\n"+n.Value+"\n"+fence)
		case doctree.ContentBlockquote:
			var quoted []string
			for _, line := range strings.Split(n.Value, "\n") {
				if line == "" {
					quoted = append(quoted, ">")
				} else {
					quoted = append(quoted, "> "+line)
				}
			}
			*blocks = append(*blocks, strings.Join(quoted, "\n"))
		default:
			*blocks = append(*blocks, n.Value)
		}
		return nil

	default:
		return &SerializationError{Format: "markdown", Reason: "node kind " + string(n.Kind) + " is not representable in Markdown"}
	}
}

// codeFence picks a backtick fence longer than any backtick run in the
// code body.
func codeFence(body string) string {
	longest := 0
	run := 0
	for _, r := range body {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := longest + 1
	if n < 3 {
		n = 3
	}
	return strings.Repeat("`", n)
}

// Validate always succeeds: every byte sequence is some Markdown document.
func (h *MarkdownHandler) Validate(content string) Validation {
	return Validation{Valid: true}
}

func (h *MarkdownHandler) Detect(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}
	strong := 0 // headings, fences
	weak := 0   // lists, quotes
	for _, line := range strings.Split(trimmed, "\n") {
		t := strings.TrimLeft(line, " \t")
		switch {
		case isMarkdownHeading(t), strings.HasPrefix(t, "```"):
			strong++
		case strings.HasPrefix(t, "- "), strings.HasPrefix(t, "* "), strings.HasPrefix(t, "> "):
			weak++
		}
	}
	switch {
	case strong > 0:
		score := 0.65 + 0.02*float64(strong+weak)
		if score > 0.75 {
			score = 0.75
		}
		return score
	case weak > 0:
		score := 0.3 + 0.05*float64(weak)
		if score > 0.5 {
			score = 0.5
		}
		return score
	default:
		return 0
	}
}

func isMarkdownHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	rest := strings.TrimLeft(line, "#")
	return len(line)-len(rest) <= 6 && strings.HasPrefix(rest, " ")
}
