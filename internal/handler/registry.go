package handler

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Registry maps format identifiers to handlers and performs content-based
// auto-detection. Registration order is retained so detection ties resolve
// deterministically.
type Registry struct {
	handlers map[string]Handler
	order    []string // formats in first-registration order
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a format key. The last registration for a
// key wins; the key keeps its original position in the tie-break order.
func (r *Registry) Register(format string, h Handler) error {
	if format == "" {
		return fmt.Errorf("register handler: empty format key")
	}
	if h == nil {
		return fmt.Errorf("register handler %q: nil handler", format)
	}
	if _, exists := r.handlers[format]; !exists {
		r.order = append(r.order, format)
	}
	r.handlers[format] = h
	return nil
}

// Lookup returns the handler for a format.
func (r *Registry) Lookup(format string) (Handler, error) {
	h, ok := r.handlers[format]
	if !ok {
		return nil, &UnsupportedFormatError{Format: format}
	}
	return h, nil
}

// Formats lists registered format keys in registration order.
func (r *Registry) Formats() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Detect scores content against every registered handler and returns the
// format with the highest confidence. Ties break by registration order. If
// every handler scores zero the content is unsupported.
func (r *Registry) Detect(content string) (string, Handler, error) {
	bestFormat := ""
	var best Handler
	bestScore := 0.0
	for _, format := range r.order {
		h := r.handlers[format]
		score := h.Detect(content)
		if score > bestScore {
			bestScore = score
			bestFormat = format
			best = h
		}
	}
	if best == nil {
		return "", nil, &UnsupportedFormatError{}
	}
	return bestFormat, best, nil
}

// ForFilename returns the handler whose descriptor claims the filename's
// extension. Thin convenience over Descriptor data; content detection is
// the primary path.
func (r *Registry) ForFilename(filename string) (string, Handler, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range r.order {
		h := r.handlers[format]
		for _, e := range h.Descriptor().Extensions {
			if e == ext {
				return format, h, nil
			}
		}
	}
	return "", nil, &UnsupportedFormatError{Format: ext}
}
