// Package assistant exposes Craftpad workspaces as MCP tools, so an
// AI assistant can open projects, edit files, and inspect the preview on
// the user's behalf.
package assistant

import (
	"context"
	"fmt"
	"sync"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/craftpad/craftpad/internal/project"
	"github.com/craftpad/craftpad/internal/workspace"
)

// Server wraps the MCP server with Craftpad workspace tools.
type Server struct {
	mcpServer *server.Server
	store     workspace.Store

	mu       sync.Mutex
	sessions map[string]*workspace.Controller
}

// Config contains configuration for the MCP server
type Config struct {
	Store workspace.Store
}

// NewServer creates a new MCP server for Craftpad
func NewServer(cfg Config) *Server {
	s := &Server{
		store:    cfg.Store,
		sessions: make(map[string]*workspace.Controller),
	}

	s.mcpServer = server.New(server.Info{
		Name:    "craftpad",
		Version: "0.1.0",
	}, server.WithInstructions(`
Craftpad is a project workspace for small web, react, and python projects.
A project is a named set of files; web projects compose index.html,
style.css, and script.js into a live preview.

Available tools:
- craftpad_open: Open an existing project or start a new draft
- craftpad_files: List the files of an open workspace
- craftpad_read: Read one file
- craftpad_edit: Write content to a file (creates it when missing)
- craftpad_save: Persist the workspace to storage
- craftpad_preview: Get the composed preview HTML document
- craftpad_close: Close a workspace

Edits are local until craftpad_save is called.
`))

	s.registerTools()

	return s
}

// registerTools registers all Craftpad MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("craftpad_open").
		Description("Open an existing project by ID, or start a new draft when project_id is omitted.").
		Handler(s.handleOpen)

	s.mcpServer.Tool("craftpad_files").
		Description("List the files of an open workspace in display order.").
		Handler(s.handleFiles)

	s.mcpServer.Tool("craftpad_read").
		Description("Read the content of one file in an open workspace.").
		Handler(s.handleRead)

	s.mcpServer.Tool("craftpad_edit").
		Description("Write content to a file. The file is created when it does not exist. Local until craftpad_save.").
		Handler(s.handleEdit)

	s.mcpServer.Tool("craftpad_save").
		Description("Persist the workspace to storage. Assigns an ID to a new draft.").
		Handler(s.handleSave)

	s.mcpServer.Tool("craftpad_preview").
		Description("Get the composed preview HTML for a web workspace.").
		Handler(s.handlePreview)

	s.mcpServer.Tool("craftpad_close").
		Description("Close an open workspace. Unsaved edits are discarded.").
		Handler(s.handleClose)
}

// Input/Output types for tools

type OpenInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"description=ID of an existing project to open"`
	OwnerID   string `json:"owner_id,omitempty" jsonschema:"description=Owner of a new draft"`
	Name      string `json:"name,omitempty" jsonschema:"description=Name for a new draft"`
	Type      string `json:"type,omitempty" jsonschema:"description=Project type for a new draft,enum=web,enum=react,enum=python"`
}

type OpenOutput struct {
	WorkspaceID string   `json:"workspace_id"`
	ProjectID   string   `json:"project_id,omitempty"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Files       []string `json:"files"`
	Selected    string   `json:"selected,omitempty"`
	Draft       bool     `json:"draft"`
}

type FilesInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"description=Workspace ID from craftpad_open"`
}

type FilesOutput struct {
	Files    []string `json:"files"`
	Selected string   `json:"selected,omitempty"`
	Dirty    bool     `json:"dirty"`
}

type ReadInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"description=Workspace ID from craftpad_open"`
	Name        string `json:"name" jsonschema:"description=File name to read"`
}

type ReadOutput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type EditInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"description=Workspace ID from craftpad_open"`
	Name        string `json:"name" jsonschema:"description=File name to write"`
	Content     string `json:"content" jsonschema:"description=Full new content of the file"`
}

type EditOutput struct {
	Name  string `json:"name"`
	Dirty bool   `json:"dirty"`
}

type SaveInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"description=Workspace ID from craftpad_open"`
}

type SaveOutput struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
}

type PreviewInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"description=Workspace ID from craftpad_open"`
}

type PreviewOutput struct {
	Document string `json:"document"`
}

type CloseInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"description=Workspace ID to close"`
}

type CloseOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleOpen(ctx context.Context, input OpenInput) (OpenOutput, error) {
	ctrl := workspace.NewController(s.store)

	if input.ProjectID != "" {
		if err := ctrl.LoadProject(ctx, input.ProjectID); err != nil {
			return OpenOutput{}, fmt.Errorf("failed to open project: %w", err)
		}
	} else {
		name := input.Name
		if name == "" {
			name = "Untitled"
		}
		typ := input.Type
		if typ == "" {
			typ = project.TypeWeb
		}
		if err := ctrl.NewDraft(input.OwnerID, name, typ); err != nil {
			return OpenOutput{}, fmt.Errorf("failed to create draft: %w", err)
		}
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = ctrl
	s.mu.Unlock()

	snap := ctrl.Snapshot()
	return OpenOutput{
		WorkspaceID: id,
		ProjectID:   snap.ProjectID,
		Name:        snap.Name,
		Type:        snap.Type,
		Files:       snap.Files,
		Selected:    snap.Selected,
		Draft:       snap.Draft,
	}, nil
}

func (s *Server) handleFiles(ctx context.Context, input FilesInput) (FilesOutput, error) {
	ctrl, err := s.workspace(input.WorkspaceID)
	if err != nil {
		return FilesOutput{}, err
	}

	snap := ctrl.Snapshot()
	return FilesOutput{
		Files:    snap.Files,
		Selected: snap.Selected,
		Dirty:    snap.Dirty,
	}, nil
}

func (s *Server) handleRead(ctx context.Context, input ReadInput) (ReadOutput, error) {
	ctrl, err := s.workspace(input.WorkspaceID)
	if err != nil {
		return ReadOutput{}, err
	}

	content, err := ctrl.FileContent(input.Name)
	if err != nil {
		return ReadOutput{}, fmt.Errorf("failed to read %s: %w", input.Name, err)
	}
	return ReadOutput{Name: input.Name, Content: content}, nil
}

func (s *Server) handleEdit(ctx context.Context, input EditInput) (EditOutput, error) {
	ctrl, err := s.workspace(input.WorkspaceID)
	if err != nil {
		return EditOutput{}, err
	}

	if err := ctrl.CreateFile(input.Name, input.Content); err != nil {
		return EditOutput{}, fmt.Errorf("failed to edit %s: %w", input.Name, err)
	}
	return EditOutput{Name: input.Name, Dirty: ctrl.Snapshot().Dirty}, nil
}

func (s *Server) handleSave(ctx context.Context, input SaveInput) (SaveOutput, error) {
	ctrl, err := s.workspace(input.WorkspaceID)
	if err != nil {
		return SaveOutput{}, err
	}

	if err := ctrl.Save(ctx); err != nil {
		return SaveOutput{}, fmt.Errorf("failed to save: %w", err)
	}

	snap := ctrl.Snapshot()
	return SaveOutput{
		ProjectID: snap.ProjectID,
		Message:   fmt.Sprintf("Saved %q (%d files)", snap.Name, len(snap.Files)),
	}, nil
}

func (s *Server) handlePreview(ctx context.Context, input PreviewInput) (PreviewOutput, error) {
	ctrl, err := s.workspace(input.WorkspaceID)
	if err != nil {
		return PreviewOutput{}, err
	}

	doc, err := ctrl.Preview()
	if err != nil {
		return PreviewOutput{}, fmt.Errorf("failed to compose preview: %w", err)
	}
	return PreviewOutput{Document: doc}, nil
}

func (s *Server) handleClose(ctx context.Context, input CloseInput) (CloseOutput, error) {
	s.mu.Lock()
	ctrl, ok := s.sessions[input.WorkspaceID]
	delete(s.sessions, input.WorkspaceID)
	s.mu.Unlock()

	if !ok {
		return CloseOutput{}, fmt.Errorf("workspace not found: %s", input.WorkspaceID)
	}

	_ = ctrl.CloseProject()
	return CloseOutput{Message: "Workspace closed"}, nil
}

func (s *Server) workspace(id string) (*workspace.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("workspace not found: %s", id)
	}
	return ctrl, nil
}

// ServeStdio starts the MCP server on stdio (for editor integration)
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
