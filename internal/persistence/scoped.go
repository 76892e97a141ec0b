package persistence

import (
	"context"

	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/notestore"
)

// Scoped binds a Backend to one user, giving the store its implicit-user view.
type Scoped struct {
	backend Backend
	userID  string
}

var _ notestore.Remote = (*Scoped)(nil)

// Scope returns b bound to userID.
func Scope(b Backend, userID string) *Scoped {
	return &Scoped{backend: b, userID: userID}
}

func (s *Scoped) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return s.backend.ListFolders(ctx, s.userID)
}

func (s *Scoped) ListNotes(ctx context.Context) ([]models.Note, error) {
	return s.backend.ListNotes(ctx, s.userID)
}

func (s *Scoped) CreateNote(ctx context.Context, in models.NoteInput) (models.Note, error) {
	return s.backend.CreateNote(ctx, s.userID, in)
}

func (s *Scoped) UpdateNote(ctx context.Context, id string, in models.NoteInput) (models.Note, error) {
	return s.backend.UpdateNote(ctx, s.userID, id, in)
}

func (s *Scoped) DeleteNote(ctx context.Context, id string) error {
	return s.backend.DeleteNote(ctx, s.userID, id)
}

func (s *Scoped) CreateFolder(ctx context.Context, name, color string) (models.Folder, error) {
	return s.backend.CreateFolder(ctx, s.userID, name, color)
}

func (s *Scoped) DeleteFolder(ctx context.Context, id string) error {
	return s.backend.DeleteFolder(ctx, s.userID, id)
}

func (s *Scoped) EnsureDefaultFolders(ctx context.Context) error {
	return EnsureDefaultFolders(ctx, s.backend, s.userID)
}

func (s *Scoped) EnsureDefaultNotes(ctx context.Context, folders []models.Folder) error {
	return EnsureDefaultNotes(ctx, s.backend, s.userID, folders)
}
