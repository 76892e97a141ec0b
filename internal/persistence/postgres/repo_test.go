package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/journal/internal/apperr"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/persistence"
	"github.com/starford/journal/internal/persistence/postgres"
)

// openStore connects to TEST_DATABASE_URL, skipping the test when it is unset.
func openStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	s, err := postgres.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newUser(t *testing.T, s *postgres.Store) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), uuid.NewString()+"@example.com", "")
	require.NoError(t, err)
	return u
}

func TestStore_NotesAndFolders(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	u := newUser(t, s)

	work, err := s.CreateFolder(ctx, u.ID, "Work", models.ColorBlue)
	require.NoError(t, err)
	home, err := s.CreateFolder(ctx, u.ID, "Home", models.ColorGreen)
	require.NoError(t, err)

	folders, err := s.ListFolders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, work.ID, folders[0].ID)

	n, err := s.CreateNote(ctx, u.ID, models.NoteInput{Title: "t", Tags: []string{"a", "b"}, FolderID: work.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.Tags)

	updated, err := s.UpdateNote(ctx, u.ID, n.ID, models.NoteInput{Title: "t2", FolderID: home.ID})
	require.NoError(t, err)
	assert.Equal(t, home.ID, updated.FolderID)
	assert.Equal(t, []string{}, updated.Tags)
	assert.False(t, updated.UpdatedAt.Before(n.UpdatedAt))

	assert.ErrorIs(t, s.DeleteFolder(ctx, u.ID, home.ID), apperr.ErrConflict)
	require.NoError(t, s.DeleteNote(ctx, u.ID, n.ID))
	require.NoError(t, s.DeleteFolder(ctx, u.ID, home.ID))
	assert.ErrorIs(t, s.DeleteNote(ctx, u.ID, n.ID), apperr.ErrNotFound)
}

func TestStore_ForeignFolderRejected(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	alice, bob := newUser(t, s), newUser(t, s)

	f, err := s.CreateFolder(ctx, alice.ID, "Personal", models.ColorGreen)
	require.NoError(t, err)

	_, err = s.CreateNote(ctx, bob.ID, models.NoteInput{FolderID: f.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStore_Users(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"

	_, err := s.CreateUser(ctx, email, "hash")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, email, "hash")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	_, hash, err := s.UserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)

	_, _, err = s.UserByEmail(ctx, "missing-"+email)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_Seeding(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	remote := persistence.Scope(s, newUser(t, s).ID)

	require.NoError(t, remote.EnsureDefaultFolders(ctx))
	folders, err := remote.ListFolders(ctx)
	require.NoError(t, err)
	require.NoError(t, remote.EnsureDefaultNotes(ctx, folders))
	require.NoError(t, remote.EnsureDefaultNotes(ctx, folders))

	notes, err := remote.ListNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 3)
	assert.Len(t, notes, 2)
}
