package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docsync/docsync/internal/doctree"
	"github.com/docsync/docsync/internal/handler"
	"github.com/docsync/docsync/internal/model"
	"github.com/docsync/docsync/internal/viewmode"
)

// nodeJSON is the wire projection of a doctree.Node.
type nodeJSON struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Name      string         `json:"name,omitempty"`
	Value     string         `json:"value,omitempty"`
	ValueKind string         `json:"value_kind,omitempty"`
	Meta      *nodeMetaJSON  `json:"meta,omitempty"`
	Children  []nodeJSON     `json:"children,omitempty"`
}

type nodeMetaJSON struct {
	Attrs        []attrJSON `json:"attrs,omitempty"`
	HeadingLevel int        `json:"heading_level,omitempty"`
	ContentKind  string     `json:"content_kind,omitempty"`
	CodeLang     string     `json:"code_lang,omitempty"`
}

type attrJSON struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func toNodeJSON(n *doctree.Node) nodeJSON {
	out := nodeJSON{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Name:      n.Name,
		Value:     n.Value,
		ValueKind: string(n.ValueKind),
	}
	meta := nodeMetaJSON{
		HeadingLevel: n.Meta.HeadingLevel,
		ContentKind:  string(n.Meta.ContentKind),
		CodeLang:     n.Meta.CodeLang,
	}
	for _, a := range n.Meta.Attrs {
		meta.Attrs = append(meta.Attrs, attrJSON{Name: a.Name, Value: a.Value})
	}
	if meta.HeadingLevel != 0 || meta.ContentKind != "" || meta.CodeLang != "" || len(meta.Attrs) > 0 {
		out.Meta = &meta
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, toNodeJSON(c))
	}
	return out
}

func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read request body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	var req struct {
		Content string `json:"content"`
		Format  string `json:"format"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Format == "" {
		req.Format = s.cfg.DefaultFormat
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.model.LoadContent(req.Content, req.Format); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"format": s.model.Format(),
		"dirty":  s.model.Dirty(),
		"root":   toNodeJSON(s.model.Root()),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.model.Document()
	if doc == nil {
		jsonError(w, "no document loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"format": doc.Format,
		"dirty":  doc.Dirty,
		"root":   toNodeJSON(doc.Root),
	})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, err := s.model.SyncSource()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"format": s.model.Format(),
		"source": source,
	})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type formatJSON struct {
		Format     string   `json:"format"`
		Extensions []string `json:"extensions,omitempty"`
		MIMETypes  []string `json:"mime_types,omitempty"`
	}
	var out []formatJSON
	for _, f := range s.model.Registry().Formats() {
		h, err := s.model.Registry().Lookup(f)
		if err != nil {
			continue
		}
		d := h.Descriptor()
		out = append(out, formatJSON{Format: f, Extensions: d.Extensions, MIMETypes: d.MIMETypes})
	}
	writeJSON(w, http.StatusOK, map[string]any{"formats": out})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.model.FindNode(chi.URLParam(r, "nodeID"))
	if n == nil {
		jsonError(w, "node not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toNodeJSON(n))
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID  string `json:"parent_id"`
		Kind      string `json:"kind"`
		Name      string `json:"name"`
		Value     string `json:"value"`
		ValueKind string `json:"value_kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.model.AddNode(req.ParentID, model.NodeSpec{
		Kind:      doctree.Kind(req.Kind),
		Name:      req.Name,
		Value:     req.Value,
		ValueKind: doctree.ValueKind(req.ValueKind),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNodeJSON(n))
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "nodeID")
	if err := s.model.UpdateNodeValue(id, req.Value); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeJSON(s.model.FindNode(id)))
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.model.DeleteNode(chi.URLParam(r, "nodeID")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewParentID string `json:"new_parent_id"`
		Index       int    `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "nodeID")
	if err := s.model.MoveNode(id, req.NewParentID, req.Index); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeJSON(s.model.FindNode(id)))
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"mode": string(s.view.Mode())})
}

func (s *Server) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "mode")

	s.mu.Lock()
	defer s.mu.Unlock()
	var res viewmode.Result
	switch target {
	case string(viewmode.ModeSource):
		res = s.view.SwitchToSource(r.Context())
	case string(viewmode.ModeTree):
		res = s.view.SwitchToTree(r.Context())
	case "toggle":
		res = s.view.ToggleMode(r.Context())
	default:
		jsonError(w, fmt.Sprintf("unknown mode %q", target), http.StatusBadRequest)
		return
	}
	if !res.Success {
		// A refused switch keeps the user in their current mode with
		// their edits untouched.
		writeJSON(w, http.StatusConflict, map[string]any{
			"success": false,
			"mode":    string(s.view.Mode()),
			"error":   res.Err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"mode":    string(s.view.Mode()),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.events.snapshot()})
}

func writeEngineError(w http.ResponseWriter, err error) {
	var notFound *model.NotFoundError
	var parseErr *handler.ParseError
	var unsupported *handler.UnsupportedFormatError
	var serErr *handler.SerializationError
	switch {
	case errors.As(err, &notFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  parseErr.Reason,
			"line":   parseErr.Line,
			"column": parseErr.Column,
		})
	case errors.As(err, &unsupported):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.As(err, &serErr):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrNoDocument):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
