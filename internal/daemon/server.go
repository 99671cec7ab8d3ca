// Package daemon implements the Craftpad HTTP daemon: editor sessions
// over project workspaces, plus direct project CRUD against the store.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftpad/craftpad/internal/config"
	"github.com/craftpad/craftpad/internal/events"
	"github.com/craftpad/craftpad/internal/fileset"
	"github.com/craftpad/craftpad/internal/preview"
	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

// Version reported by the status endpoint.
const Version = "0.1.0"

// Server represents the Craftpad daemon HTTP server
type Server struct {
	cfg    *config.LocalConfig
	server *http.Server
	router *http.ServeMux

	store     workspace.Store
	publisher events.Publisher

	mu       sync.Mutex
	sessions map[string]*workspace.Controller
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config    *config.LocalConfig
	Store     workspace.Store
	Publisher events.Publisher
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:       cfg.Config,
		router:    http.NewServeMux(),
		store:     cfg.Store,
		publisher: cfg.Publisher,
		sessions:  make(map[string]*workspace.Controller),
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	handler := recoveryMiddleware(loggingMiddleware(correlationIDMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Projects (direct store access)
	s.router.HandleFunc("GET /v1/projects", s.handleListProjects)
	s.router.HandleFunc("GET /v1/projects/{id}", s.handleGetProject)
	s.router.HandleFunc("DELETE /v1/projects/{id}", s.handleDeleteProject)

	// Editor sessions
	s.router.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /v1/sessions/{id}", s.handleCloseSession)

	// Session operations
	s.router.HandleFunc("POST /v1/sessions/{id}/select", s.handleSelectFile)
	s.router.HandleFunc("PUT /v1/sessions/{id}/file", s.handleEditFile)
	s.router.HandleFunc("POST /v1/sessions/{id}/files", s.handleCreateFile)
	s.router.HandleFunc("DELETE /v1/sessions/{id}/files/{name...}", s.handleDeleteFile)
	s.router.HandleFunc("GET /v1/sessions/{id}/files/{name...}", s.handleGetFile)
	s.router.HandleFunc("POST /v1/sessions/{id}/save", s.handleSave)
	s.router.HandleFunc("POST /v1/sessions/{id}/rename", s.handleRename)
	s.router.HandleFunc("POST /v1/sessions/{id}/duplicate", s.handleDuplicate)
	s.router.HandleFunc("DELETE /v1/sessions/{id}/project", s.handleDeleteSessionProject)
	s.router.HandleFunc("GET /v1/sessions/{id}/preview", s.handlePreview)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting craftpad daemon",
		"addr", s.server.Addr,
		"backend", s.cfg.Storage.Backend,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	open := len(s.sessions)
	s.mu.Unlock()

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "running",
		"version":  Version,
		"backend":  s.cfg.Storage.Backend,
		"sessions": open,
	})
}

// Project handlers

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		s.jsonError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}

	recs, err := s.store.ListProjects(r.Context(), ownerID)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to list projects", err)
		return
	}

	result := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		result = append(result, map[string]interface{}{
			"id":         rec.ID,
			"name":       rec.Name,
			"type":       rec.Type,
			"file_count": len(rec.Files),
			"updated_at": rec.UpdatedAt,
		})
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"projects": result,
	})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.store.FetchProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			s.jsonError(w, http.StatusNotFound, "project not found", nil)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch project", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.store.FetchProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			s.jsonError(w, http.StatusNotFound, "project not found", nil)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch project", err)
		return
	}

	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			s.jsonError(w, http.StatusNotFound, "project not found", nil)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to delete project", err)
		return
	}

	s.publishEvent(r.Context(), events.KindDeleted, rec)
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"deleted": true,
	})
}

// Session handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id,omitempty"`
		OwnerID   string `json:"owner_id,omitempty"`
		Name      string `json:"name,omitempty"`
		Type      string `json:"type,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctrl := workspace.NewController(s.store)

	if req.ProjectID != "" {
		if err := ctrl.LoadProject(r.Context(), req.ProjectID); err != nil {
			s.controllerError(w, "failed to load project", err)
			return
		}
	} else {
		if req.Name == "" {
			s.jsonError(w, http.StatusBadRequest, "name is required for a new draft", nil)
			return
		}
		if err := ctrl.NewDraft(req.OwnerID, req.Name, req.Type); err != nil {
			s.controllerError(w, "failed to create draft", err)
			return
		}
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = ctrl
	s.mu.Unlock()

	s.jsonResponse(w, http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"workspace":  snapshotJSON(ctrl.Snapshot()),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	ctrl, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	// Best effort: a busy controller keeps its document, the session entry
	// is gone either way.
	if err := ctrl.CloseProject(); err != nil {
		slog.Warn("session closed while busy", "session_id", id, "error", err)
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"closed": true,
	})
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := ctrl.SelectFile(req.Name); err != nil {
		s.controllerError(w, "failed to select file", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleEditFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := ctrl.EditCurrentFile(req.Content); err != nil {
		s.controllerError(w, "failed to edit file", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := ctrl.CreateFile(req.Name, req.Content); err != nil {
		s.controllerError(w, "failed to create file", err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	name := r.PathValue("name")
	if err := ctrl.DeleteFile(name); err != nil {
		s.controllerError(w, "failed to delete file", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	name := r.PathValue("name")
	content, err := ctrl.FileContent(name)
	if err != nil {
		s.controllerError(w, "failed to read file", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"name":    name,
		"content": content,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	wasDraft := ctrl.Snapshot().Draft
	if err := ctrl.Save(r.Context()); err != nil {
		s.controllerError(w, "failed to save project", err)
		return
	}

	snap := ctrl.Snapshot()
	kind := events.KindSaved
	if wasDraft {
		kind = events.KindCreated
	}
	s.publishEvent(r.Context(), kind, project.Record{
		ID:        snap.ProjectID,
		OwnerID:   snap.OwnerID,
		Name:      snap.Name,
		Type:      snap.Type,
		UpdatedAt: snap.UpdatedAt,
	})

	s.jsonResponse(w, http.StatusOK, snapshotJSON(snap))
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := ctrl.Rename(req.Name); err != nil {
		s.controllerError(w, "failed to rename project", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	if err := ctrl.DuplicateToDraft(); err != nil {
		s.controllerError(w, "failed to duplicate project", err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, snapshotJSON(ctrl.Snapshot()))
}

func (s *Server) handleDeleteSessionProject(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	snap := ctrl.Snapshot()
	if err := ctrl.RequestDelete(r.Context()); err != nil {
		s.controllerError(w, "failed to delete project", err)
		return
	}

	if snap.ProjectID != "" {
		s.publishEvent(r.Context(), events.KindDeleted, project.Record{
			ID:      snap.ProjectID,
			OwnerID: snap.OwnerID,
			Name:    snap.Name,
			Type:    snap.Type,
		})
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"deleted": true,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(r)
	if !ok {
		s.jsonError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	doc, err := ctrl.Preview()
	if err != nil {
		s.controllerError(w, "failed to compose preview", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

// Helper methods

// session resolves the controller for the request's {id} path value.
func (s *Server) session(r *http.Request) (*workspace.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[r.PathValue("id")]
	return ctrl, ok
}

func (s *Server) publishEvent(ctx context.Context, kind string, rec project.Record) {
	event := events.ProjectEvent{
		Kind:      kind,
		ProjectID: rec.ID,
		OwnerID:   rec.OwnerID,
		Name:      rec.Name,
		Type:      rec.Type,
		At:        time.Now().UTC(),
	}
	if err := s.publisher.PublishProjectEvent(ctx, event); err != nil {
		slog.Warn("failed to publish project event", "kind", kind, "project_id", rec.ID, "error", err)
	}
}

// controllerError maps controller and store failures to HTTP statuses.
func (s *Server) controllerError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, workspace.ErrBusy):
		s.jsonError(w, http.StatusConflict, message, err)
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, workspace.ErrUnknownFile),
		errors.Is(err, fileset.ErrNotFound):
		s.jsonError(w, http.StatusNotFound, message, err)
	case errors.Is(err, workspace.ErrNoProject), errors.Is(err, workspace.ErrNoSelection):
		s.jsonError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, project.ErrInvalidName), errors.Is(err, project.ErrMalformedRecord),
		errors.Is(err, fileset.ErrInvalidName):
		s.jsonError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, preview.ErrNotPreviewable):
		s.jsonError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, workspace.ErrRemoteWriteFailed):
		s.jsonError(w, http.StatusBadGateway, message, err)
	default:
		s.jsonError(w, http.StatusInternalServerError, message, err)
	}
}

func snapshotJSON(snap workspace.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"phase":      string(snap.Phase),
		"project_id": snap.ProjectID,
		"owner_id":   snap.OwnerID,
		"name":       snap.Name,
		"type":       snap.Type,
		"files":      snap.Files,
		"selected":   snap.Selected,
		"dirty":      snap.Dirty,
		"draft":      snap.Draft,
		"updated_at": snap.UpdatedAt,
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}
