package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/flowcanvas/internal/dsl"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/editor"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/graph"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/operator"
	"github.com/gyaneshwarpardhi/flowcanvas/internal/storage"
)

const maxImportBytes = 4 << 20

// Handler holds all HTTP handler dependencies. It keeps one editing
// session per open flow; every session carries a debounced autosaver that
// compiles and persists after edits go quiet.
type Handler struct {
	flows         storage.FlowStore
	loader        *operator.Loader
	autosaveDelay time.Duration
	mux           *http.ServeMux

	mu       sync.Mutex
	sessions map[string]*openFlow
}

type openFlow struct {
	session *editor.Session
	saver   *editor.Autosaver
	title   string
}

// New creates an HTTP handler and registers all routes.
func New(flows storage.FlowStore, loader *operator.Loader, autosaveDelay time.Duration) *Handler {
	h := &Handler{
		flows:         flows,
		loader:        loader,
		autosaveDelay: autosaveDelay,
		mux:           http.NewServeMux(),
		sessions:      make(map[string]*openFlow),
	}

	h.mux.HandleFunc("POST /v1/flows", h.createFlow)
	h.mux.HandleFunc("GET /v1/flows", h.listFlows)
	h.mux.HandleFunc("GET /v1/flows/{id}", h.getFlow)
	h.mux.HandleFunc("PUT /v1/flows/{id}", h.saveFlow)
	h.mux.HandleFunc("DELETE /v1/flows/{id}", h.deleteFlow)
	h.mux.HandleFunc("POST /v1/flows/{id}/import", h.importGraph)
	h.mux.HandleFunc("GET /v1/flows/{id}/export", h.exportGraph)
	h.mux.HandleFunc("POST /v1/flows/{id}/connections/validate", h.validateConnection)
	h.mux.HandleFunc("GET /v1/operators", h.listOperators)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

// Router returns the handler wrapped in middleware.
func (h *Handler) Router() http.Handler {
	return loggingMiddleware(h.mux)
}

// Shutdown flushes every open session's pending autosave.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, of := range h.sessions {
		of.saver.Close()
	}
}

// POST /v1/flows creates an empty flow.
func (h *Handler) createFlow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	f, err := h.flows.Create(r.Context(), req.Title, dsl.NewDocument())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// GET /v1/flows lists flow summaries.
func (h *Handler) listFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.flows.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"flows": flows})
}

// GET /v1/flows/{id} loads the flow's DSL document.
func (h *Handler) getFlow(w http.ResponseWriter, r *http.Request) {
	of, err := h.open(r, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    of.session.FlowID(),
		"title": of.title,
		"dsl":   of.session.Compile(),
	})
}

// PUT /v1/flows/{id} replaces the flow's document, compiles and persists it.
func (h *Handler) saveFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	of, err := h.open(r, id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	var req struct {
		Title string        `json:"title"`
		DSL   *dsl.Document `json:"dsl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Title != "" {
		of.title = req.Title
	}
	of.session.LoadDocument(req.DSL)
	doc := of.session.Compile()
	if err := h.flows.Save(r.Context(), id, of.title, doc); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"saved": true, "components": len(doc.Components)})
}

// DELETE /v1/flows/{id}
func (h *Handler) deleteFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mu.Lock()
	if of, ok := h.sessions[id]; ok {
		of.saver.Close()
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if err := h.flows.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// POST /v1/flows/{id}/import replaces the graph from an uploaded JSON
// document. The store is untouched when validation fails.
func (h *Handler) importGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	of, err := h.open(r, id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := of.session.ImportGraph(data); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	doc := of.session.Compile()
	if err := h.flows.Save(r.Context(), id, of.title, doc); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imported": true, "nodes": len(doc.Components)})
}

// GET /v1/flows/{id}/export downloads the current graph as JSON.
func (h *Handler) exportGraph(w http.ResponseWriter, r *http.Request) {
	of, err := h.open(r, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	data, filename, err := of.session.ExportGraph(of.title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// POST /v1/flows/{id}/connections/validate is the UI-facing predicate.
func (h *Handler) validateConnection(w http.ResponseWriter, r *http.Request) {
	of, err := h.open(r, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	var conn graph.Connection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": of.session.IsValidConnection(conn)})
}

// GET /v1/operators returns the catalog the palette renders.
func (h *Handler) listOperators(w http.ResponseWriter, r *http.Request) {
	cat := h.loader.Catalog()
	kinds := cat.Kinds()
	ops := make([]map[string]interface{}, 0, len(kinds))
	for _, k := range kinds {
		e := cat.Lookup(k)
		ops = append(ops, map[string]interface{}{
			"kind":        k,
			"form":        cat.DefaultForm(k),
			"container":   e.Container,
			"drag_handle": e.DragHandle,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"operators": ops})
}

// GET /healthz always returns 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// open returns the editing session for a flow, loading it from storage on
// first access and wiring its autosaver to store changes.
func (h *Handler) open(r *http.Request, id string) (*openFlow, error) {
	h.mu.Lock()
	if of, ok := h.sessions[id]; ok {
		h.mu.Unlock()
		return of, nil
	}
	h.mu.Unlock()

	f, err := h.flows.Load(r.Context(), id)
	if err != nil {
		return nil, err
	}

	session := editor.NewSession(id, h.loader.Catalog())
	session.LoadDocument(f.DSL)
	of := &openFlow{session: session, title: f.Title}
	of.saver = editor.NewAutosaver(h.autosaveDelay, func() error {
		// The save outlives the request that opened the session.
		doc := session.Compile()
		return h.flows.Save(context.Background(), id, of.title, doc)
	})
	session.Store().OnChange(func(graph.Change) { of.saver.Touch() })

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[id]; ok {
		of.saver.Close()
		return existing, nil
	}
	h.sessions[id] = of
	return of, nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrFlowNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
