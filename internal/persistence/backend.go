// Package persistence defines the remote persistence contract of the journal
// and the pieces shared by its backends: user scoping, default seed data and
// metrics instrumentation.
package persistence

import (
	"context"

	"github.com/starford/journal/internal/models"
)

// Backend stores notes and folders for many users. Every call is keyed by
// the owning user's id; an id that does not belong to the user is reported
// as apperr.ErrNotFound.
//
// Folders are listed oldest first, notes most recently updated first.
type Backend interface {
	ListFolders(ctx context.Context, userID string) ([]models.Folder, error)
	ListNotes(ctx context.Context, userID string) ([]models.Note, error)
	CreateNote(ctx context.Context, userID string, in models.NoteInput) (models.Note, error)
	UpdateNote(ctx context.Context, userID, id string, in models.NoteInput) (models.Note, error)
	DeleteNote(ctx context.Context, userID, id string) error
	CreateFolder(ctx context.Context, userID, name, color string) (models.Folder, error)
	DeleteFolder(ctx context.Context, userID, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// UserBackend is a Backend that also keeps user accounts.
type UserBackend interface {
	Backend
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, string, error)
}
