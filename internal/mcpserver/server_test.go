package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/journal/internal/notestore"
	"github.com/starford/journal/internal/persistence"
	"github.com/starford/journal/internal/testutil"
)

func testServer(t *testing.T) (*Server, *notestore.Store) {
	t.Helper()
	db := testutil.TestDB(t)
	u := testutil.TestUser(t, db, "mcp@example.com")

	store := notestore.New(persistence.Scope(db, u.ID), u)
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(store, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "list_folders":
		result, err = srv.listFolders(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeNotes(t *testing.T, r *mcp.CallToolResult) []noteView {
	t.Helper()
	var out []noteView
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return out
}

func TestCreateAndReadNote(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"title":   "Standup",
		"content": "Talked about the roadmap",
		"tags":    []any{"work", "meeting"},
		"folder":  "work",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	var created noteView
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.Folder != "Work" {
		t.Errorf("folder = %q, want Work", created.Folder)
	}
	if len(store.Pending()) != 0 {
		t.Errorf("pending = %v", store.Pending())
	}

	r = callTool(t, srv, "read_note", map[string]any{"id": created.ID})
	if !strings.Contains(resultText(r), "roadmap") {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestCreateNoteUnknownFolder(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"title": "x", "folder": "Nowhere"})
	if !r.IsError {
		t.Error("expected error for unknown folder")
	}
	if n := len(store.Notes()); n != 2 {
		t.Errorf("notes = %d, want 2", n)
	}
}

func TestSearchNotes(t *testing.T) {
	srv, store := testServer(t)

	got := decodeNotes(t, callTool(t, srv, "search_notes", map[string]any{"query": "HIKING"}))
	if len(got) != 1 || got[0].Folder != "Personal" {
		t.Errorf("search by text = %+v", got)
	}

	got = decodeNotes(t, callTool(t, srv, "search_notes", map[string]any{"tags": []any{"welcome", "family"}}))
	if len(got) != 2 {
		t.Errorf("search by tags = %d notes, want 2", len(got))
	}

	got = decodeNotes(t, callTool(t, srv, "search_notes", map[string]any{"folder": "Ideas"}))
	if len(got) != 0 {
		t.Errorf("search in empty folder = %d notes", len(got))
	}

	if v := store.Snapshot(); v.Search != "" || v.SelectedFolder != notestore.AllFolders {
		t.Errorf("search must not change the view state: %+v", v)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestDeleteNote(t *testing.T) {
	srv, store := testServer(t)
	id := store.Notes()[0].ID

	r := callTool(t, srv, "delete_note", map[string]any{"id": id})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	if _, ok := store.Note(id); ok {
		t.Error("note still present")
	}
	r = callTool(t, srv, "delete_note", map[string]any{"id": id})
	if !r.IsError {
		t.Error("expected error deleting twice")
	}
}

func TestListFoldersAndTags(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "list_folders", map[string]any{}))
	for _, name := range []string{"Personal", "Work", "Ideas"} {
		if !strings.Contains(text, name) {
			t.Errorf("folders missing %s: %s", name, text)
		}
	}

	text = resultText(callTool(t, srv, "list_tags", map[string]any{}))
	if lines := strings.Split(text, "\n"); len(lines) != 5 {
		t.Errorf("tags = %q", text)
	}
}

func TestPaletteResource(t *testing.T) {
	srv, _ := testServer(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = PaletteURI

	contents, err := srv.readPaletteResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	if !strings.Contains(tc.Text, "bg-blue-500") {
		t.Errorf("palette = %s", tc.Text)
	}
}
