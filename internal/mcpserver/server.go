// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's journal to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
)

// PaletteURI identifies the folder colour palette resource.
const PaletteURI = "journal://palette"

const maxSearchResults = 50

// Server wraps the MCP server with journal tools bound to a loaded store.
type Server struct {
	mcp   *server.MCPServer
	store *notestore.Store
}

// New creates a new MCP server with all journal tools registered.
func New(store *notestore.Store, version string) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Journal",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Find notes whose title or content contains the query, "+
			"optionally restricted to a folder and to notes carrying any of the given tags."),
		mcp.WithString("query", mcp.Description("Case-insensitive search text (empty matches everything)")),
		mcp.WithString("folder", mcp.Description("Folder id or name (empty for all folders)")),
		mcp.WithArray("tags", mcp.Description("Tags to match"), mcp.WithStringItems()),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its folder."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create and save a note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body")),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
		mcp.WithString("folder", mcp.Description("Folder id or name (defaults to the fallback folder)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List all folders in display order."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag in use, in first-seen order."),
	), s.listTags)

	s.mcp.AddResource(
		mcp.NewResource(PaletteURI, "Folder Palette",
			mcp.WithResourceDescription("Colour tokens accepted when creating a folder."),
			mcp.WithMIMEType("application/json"),
		),
		s.readPaletteResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// noteView is the JSON shape of a note returned to clients.
type noteView struct {
	models.Note
	Folder string `json:"folder"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// resolveFolder finds a folder by id, then by case-insensitive name.
func (s *Server) resolveFolder(ref string) (models.Folder, bool) {
	folders := s.store.Folders()
	for _, f := range folders {
		if f.ID == ref {
			return f, true
		}
	}
	for _, f := range folders {
		if strings.EqualFold(f.Name, ref) {
			return f, true
		}
	}
	return models.Folder{}, false
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := notestore.Criteria{
		Search: req.GetString("query", ""),
		Tags:   notestore.NormalizeTags(req.GetStringSlice("tags", nil)),
	}
	if ref := req.GetString("folder", ""); ref != "" {
		f, ok := s.resolveFolder(ref)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("folder not found: %s", ref)), nil
		}
		c.FolderID = f.ID
	}

	notes := s.store.Query(c)
	if len(notes) > maxSearchResults {
		notes = notes[:maxSearchResults]
	}
	out := make([]noteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteView{Note: n, Folder: s.store.FolderOf(n).Name})
	}
	return jsonResult(out)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, ok := s.store.Note(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(noteView{Note: n, Folder: s.store.FolderOf(n).Name})
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var folderID string
	if ref := req.GetString("folder", ""); ref != "" {
		f, ok := s.resolveFolder(ref)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("folder not found: %s", ref)), nil
		}
		folderID = f.ID
	}

	draft, err := s.store.CreateNote(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft.Title = title
	draft.Content = req.GetString("content", "")
	draft.Tags = req.GetStringSlice("tags", nil)
	if folderID != "" {
		draft.FolderID = folderID
	}

	saved, err := s.store.SaveNote(ctx, draft)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(noteView{Note: saved, Folder: s.store.FolderOf(saved).Name})
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Folders())
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := s.store.Tags()
	if len(tags) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) readPaletteResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.Marshal(map[string]any{
		"colors":  models.Palette(),
		"default": models.DefaultColor,
	})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PaletteURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
