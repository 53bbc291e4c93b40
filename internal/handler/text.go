package handler

import (
	"strings"

	"github.com/docsync/docsync/internal/doctree"
)

// TextHandler maps plain text onto a flat document of paragraph content
// nodes, split on blank lines. It is also the detection floor: when no
// structured handler claims content, text does.
type TextHandler struct{}

func (h *TextHandler) Descriptor() Descriptor {
	return Descriptor{
		Name:       "text",
		Extensions: []string{".txt"},
		MIMETypes:  []string{"text/plain"},
	}
}

func (h *TextHandler) Parse(content string) (*doctree.Node, error) {
	root := doctree.New(doctree.KindDocument)
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		n := doctree.New(doctree.KindContent)
		n.Meta.ContentKind = doctree.ContentParagraph
		n.Value = strings.Join(current, "\n")
		root.Append(n)
		current = nil
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			current = append(current, strings.TrimRight(line, "\r"))
		}
	}
	flush()
	return root, nil
}

func (h *TextHandler) Serialize(root *doctree.Node) (string, error) {
	if err := checkSerializable("text", root); err != nil {
		return "", err
	}
	var paras []string
	var collect func(n *doctree.Node) error
	collect = func(n *doctree.Node) error {
		switch n.Kind {
		case doctree.KindDocument:
			for _, c := range n.Children {
				if err := collect(c); err != nil {
					return err
				}
			}
			return nil
		case doctree.KindContent:
			paras = append(paras, n.Value)
			return nil
		default:
			return &SerializationError{Format: "text", Reason: "node kind " + string(n.Kind) + " is not representable as plain text"}
		}
	}
	if err := collect(root); err != nil {
		return "", err
	}
	if len(paras) == 0 {
		return "", nil
	}
	return strings.Join(paras, "\n\n") + "\n", nil
}

// Validate always succeeds: any text is plain text.
func (h *TextHandler) Validate(content string) Validation {
	return Validation{Valid: true}
}

func (h *TextHandler) Detect(content string) float64 {
	return 0.1
}
